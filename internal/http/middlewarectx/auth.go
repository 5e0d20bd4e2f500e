// Package middlewarectx содержит HTTP middleware доступа: проверку bearer токена,
// проверку роли и ограничение частоты запросов.
//
// JWTMiddleware достаёт access токен из заголовка Authorization, находит по нему
// владельца и кладёт пользователя в контекст. При ошибке проверки отвечает 401.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/apperr"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/tokens"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User ключ текущего пользователя в контексте
const User Key = "user"

// Resolver находит владельца access токена
type Resolver interface {
	Resolve(ctx context.Context, accessToken string) (*models.User, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет bearer токен.
func JWTMiddleware(resolver Resolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				sl.Op(op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearerToken(r)
			if !ok {
				log.Info("missing or invalid authorization header")
				response.RenderError(w, r, apperr.ErrNotAuthorised)
				return
			}

			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, tokens.ErrUnresolved) {
					log.Info("invalid or expired token")
					response.RenderError(w, r, apperr.ErrNotAuthorised)
					return
				}
				log.Error("failed to resolve token", sl.Err(err))
				response.RenderError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), User, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только пользователей с ролью role (точное сравнение).
// Должен стоять после JWTMiddleware.
func RequireRole(role string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				response.RenderError(w, r, apperr.ErrNotAuthorised)
				return
			}
			if user.Role != role {
				log.Info("role check failed", sl.UserID(user.ID), slog.String("role", user.Role))
				response.RenderError(w, r, apperr.ErrNotAdmin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext возвращает пользователя, положенного JWTMiddleware
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(User).(*models.User)
	return user, ok && user != nil
}

// WithUser кладёт пользователя в контекст
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, User, user)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
