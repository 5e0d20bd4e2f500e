// Package updatedetails реализует админский обработчик смены username и роли пользователя.
package updatedetails

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Request — новые данные пользователя.
type Request struct {
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Role     string `json:"role" validate:"required,oneof=user Admin"`
}

// Service описывает интерфейс обновления пользователя.
type Service interface {
	UpdateDetails(ctx context.Context, id int64, username, role string) (*models.User, error)
}

// Handler — HTTP-обработчик обновления пользователя.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновление пользователя
// @Description Только для роли Admin. Меняет username и роль.
// @Tags Admin
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Новые данные"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Username занят"
// @Failure 401 {object} response.ErrorResponse "Не авторизован или не администратор"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /users/update-user-details [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.updatedetails"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderBadRequest(w, r)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.RenderValidationError(w, r, err)
		return
	}

	user, err := h.service.UpdateDetails(r.Context(), req.UserID, req.Username, req.Role)
	if err != nil {
		log.Info("failed to update user", sl.UserID(req.UserID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user updated", sl.UserID(user.ID))
	render.JSON(w, r, response.OKWithData(user))
}
