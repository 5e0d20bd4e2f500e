// Package resetpassword реализует смену пароля по паре email + username.
package resetpassword

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
)

// SuccessMessage ответ на успешную смену пароля
const SuccessMessage = "Your password has been updated."

// Request — данные для смены пароля.
type Request struct {
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Service описывает интерфейс смены пароля.
type Service interface {
	ResetPassword(ctx context.Context, email, username, newPassword string) error
}

// Handler — HTTP-обработчик смены пароля.
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
// @Summary Смена пароля
// @Description Пароль меняется, если username совпадает с владельцем email.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Email, username и новый пароль"
// @Success 200 {object} response.Response{data=response.MessageData}
// @Failure 400 {object} response.ErrorResponse "Пользователь не найден или пароль слабый"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /auth/reset-password [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resetpassword"

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

	if err := h.service.ResetPassword(r.Context(), req.Email, req.Username, req.NewPassword); err != nil {
		log.Info("password reset failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithMessage(SuccessMessage))
}
