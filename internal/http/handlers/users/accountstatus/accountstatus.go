// Package accountstatus реализует админские обработчики блокировки и разблокировки аккаунта.
//
// Блокировка снимает флаг is_active и отзывает все выданные пользователю токены.
package accountstatus

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

// Action действие над аккаунтом
type Action int

const (
	ActionBlock Action = iota
	ActionUnblock
)

func (a Action) String() string {
	if a == ActionBlock {
		return "block"
	}
	return "unblock"
}

// Request — ID пользователя.
type Request struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// Service описывает интерфейс смены статуса аккаунта.
type Service interface {
	Block(ctx context.Context, id int64) (*models.User, error)
	Unblock(ctx context.Context, id int64) (*models.User, error)
}

// Handler — HTTP-обработчик блокировки/разблокировки.
type Handler struct {
	log      *slog.Logger
	service  Service
	action   Action
	validate *validator.Validate
}

// New создает новый Handler для заданного действия.
func New(log *slog.Logger, service Service, action Action) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		action:   action,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Блокировка или разблокировка аккаунта
// @Description Только для роли Admin. Блокировка отзывает все токены пользователя.
// @Tags Admin
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "ID пользователя"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 401 {object} response.ErrorResponse "Не авторизован или не администратор"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /users/block-user-account [put]
// @Router /users/unblock-user-account [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.accountstatus"

	log := h.log.With(
		slog.String("op", op),
		slog.String("action", h.action.String()),
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

	var (
		user *models.User
		err  error
	)
	switch h.action {
	case ActionBlock:
		user, err = h.service.Block(r.Context(), req.UserID)
	default:
		user, err = h.service.Unblock(r.Context(), req.UserID)
	}
	if err != nil {
		log.Info("failed to change account status", sl.UserID(req.UserID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("account status changed", sl.UserID(user.ID), slog.Bool("is_active", user.IsActive))
	render.JSON(w, r, response.OKWithData(user))
}
