// Package logout отзывает все токены текущего пользователя.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/apperr"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// SuccessMessage ответ на успешный выход
const SuccessMessage = "Logout successful"

// Service описывает интерфейс выхода.
type Service interface {
	Logout(ctx context.Context, user *models.User) error
}

// Handler — HTTP-обработчик выхода.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Отзывает все выданные пользователю токены.
// @Tags Auth
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response{data=response.MessageData}
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Warn("no user in context")
		response.RenderError(w, r, apperr.ErrNotAuthorised)
		return
	}

	if err := h.service.Logout(r.Context(), user); err != nil {
		log.Error("logout failed", sl.UserID(user.ID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user logged out", sl.UserID(user.ID))
	render.JSON(w, r, response.OKWithMessage(SuccessMessage))
}
