// Package verify реализует HTTP-обработчик подтверждения email по ссылке из письма.
package verify

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

// SuccessMessage ответ на успешную активацию
const SuccessMessage = "Account is activated successfully."

// Request — email и токен из ссылки подтверждения.
type Request struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

// Service описывает интерфейс подтверждения аккаунта.
type Service interface {
	VerifyAccount(ctx context.Context, email, token string) (*models.User, error)
}

// Handler обрабатывает запросы на подтверждение аккаунта.
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
// @Summary Подтверждение email
// @Description Проверяет токен из письма и активирует аккаунт.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body Request true "Email и токен"
// @Success 200 {object} response.Response{data=response.MessageData}
// @Failure 400 {object} response.ErrorResponse "Ссылка недействительна или email не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /users/verify-account [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.verify"

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

	user, err := h.service.VerifyAccount(r.Context(), req.Email, req.Token)
	if err != nil {
		log.Info("account verification failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("account verified", sl.UserID(user.ID))
	render.JSON(w, r, response.OKWithMessage(SuccessMessage))
}
