// Package refresh реализует обмен refresh токена на новую пару токенов.
//
// Refresh токен передаётся в заголовке refresh-token и после обмена становится недействительным.
package refresh

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/apperr"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// HeaderName заголовок с refresh токеном
const HeaderName = "refresh-token"

// Service описывает интерфейс ротации токенов.
type Service interface {
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

// Handler — HTTP-обработчик обновления токенов.
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
// @Summary Обновление токенов
// @Tags Auth
// @Produce  json
// @Param refresh-token header string true "Refresh токен"
// @Success 200 {object} response.Response{data=models.TokenPair}
// @Failure 400 {object} response.ErrorResponse "Недействительный refresh токен"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /auth/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := strings.TrimSpace(r.Header.Get(HeaderName))
	if token == "" {
		log.Info("refresh token header is missing")
		response.RenderError(w, r, apperr.ErrInvalidRefreshToken)
		return
	}

	pair, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		log.Info("refresh failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(pair))
}
