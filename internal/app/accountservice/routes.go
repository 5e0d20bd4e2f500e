// Package accountservice собирает HTTP-приложение сервиса учётных записей.
package accountservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/refresh"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/resetpassword"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/users/accountstatus"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/users/listusers"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/users/me"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/users/read"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/users/signup"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/users/updatedetails"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/users/verify"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// AccountService все операции над аккаунтами, которые нужны ручкам
type AccountService interface {
	signup.Service
	verify.Service
	login.Service
	refresh.Service
	logout.Service
	resetpassword.Service
	read.Service
	listusers.Service
	accountstatus.Service
	updatedetails.Service
}

// Deps зависимости маршрутов
type Deps struct {
	Accounts AccountService
	Resolver middlewarectx.Resolver
	Health   health.Checker
	Limiter  *middlewarectx.RateLimiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware. RealIP не подключается: лимитер считает запросы
	// по адресу сокета, а X-Forwarded-For задаёт сам клиент.
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	authenticate := middlewarectx.JWTMiddleware(deps.Resolver, logger)
	adminOnly := middlewarectx.RequireRole(models.RoleAdmin, logger)
	limited := middlewarectx.RateLimitMiddleware(deps.Limiter, logger)

	r.Route("/users", func(r chi.Router) {
		r.With(limited).Post("/signup", signup.New(logger, deps.Accounts).ServeHTTP)
		r.Post("/verify-account", verify.New(logger, deps.Accounts).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", me.New(logger).ServeHTTP)
			r.Get("/{id}", read.New(logger, deps.Accounts).ServeHTTP)

			// Только для администраторов
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/list-users", listusers.New(logger, deps.Accounts).ServeHTTP)
				r.Put("/block-user-account", accountstatus.New(logger, deps.Accounts, accountstatus.ActionBlock).ServeHTTP)
				r.Put("/unblock-user-account", accountstatus.New(logger, deps.Accounts, accountstatus.ActionUnblock).ServeHTTP)
				r.Put("/update-user-details", updatedetails.New(logger, deps.Accounts).ServeHTTP)
			})
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(limited).Post("/login", login.New(logger, deps.Accounts).ServeHTTP)
		r.With(limited).Post("/refresh", refresh.New(logger, deps.Accounts).ServeHTTP)
		r.With(limited).Put("/reset-password", resetpassword.New(logger, deps.Accounts).ServeHTTP)
		r.With(authenticate).Post("/logout", logout.New(logger, deps.Accounts).ServeHTTP)
	})

	r.Get("/health", health.New(logger, deps.Health).ServeHTTP)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
