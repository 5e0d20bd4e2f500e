package accountservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/migrations"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
	"github.com/magabrotheeeer/account-service/internal/services/notification"
	"github.com/magabrotheeeer/account-service/internal/services/scheduler"
	"github.com/magabrotheeeer/account-service/internal/services/tokens"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

const (
	metricsNamespace = "account_service"
	shutdownTimeout  = 15 * time.Second
	amqpRetries      = 5
	amqpRetryDelay   = 2 * time.Second
)

// App HTTP-приложение сервиса учётных записей
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *repository.Storage
	cache      *cache.Cache
	conn       *amqp.Connection
	ch         *amqp.Channel
	dispatcher *notification.Dispatcher
	cleanup    *scheduler.Service
}

// New поднимает зависимости: базу с миграциями, кэш, брокер, сервисы и роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "accountservice.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{logger: logger, db: db}

	var opts []auth.Option
	if cfg.RedisConnection.AddressRedis != "" {
		app.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, err
		}
		opts = append(opts, auth.WithCache(app.cache, cfg.RedisConnection.TTL))
	} else {
		logger.Warn("redis address is empty, users cache disabled")
	}

	app.conn, err = rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, "account-service", amqpRetries, amqpRetryDelay)
	if err != nil {
		app.close()
		return nil, err
	}
	app.ch, err = rabbitmq.SetupChannel(app.conn, cfg.RabbitMQ.Exchange, rabbitmq.EmailQueues(cfg.RabbitMQ))
	if err != nil {
		app.close()
		return nil, err
	}

	signer, err := jwt.NewSigner(cfg.JWTToken.JWTAlgorithm)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tokenService := tokens.New(logger, db, signer, tokens.Config{
		AccessSecret:  cfg.JWTToken.JWTSecret,
		RefreshSecret: cfg.JWTToken.SecretKey,
		AccessTTL:     cfg.JWTToken.AccessTTL(),
		RefreshTTL:    cfg.JWTToken.RefreshTTL(),
	})

	app.dispatcher = notification.New(logger, rabbitmq.NewPublisher(app.ch, cfg.RabbitMQ.Exchange), notification.Config{
		AppName:      cfg.AppName,
		FrontendHost: cfg.FrontendHost,
		RoutingKey:   cfg.RabbitMQ.EmailRoutingKey,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metricsNamespace, registry)
	opts = append(opts, auth.WithEvents(m))

	authService := auth.New(logger, db, tokenService, app.dispatcher, opts...)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Accounts: authService,
		Resolver: tokenService,
		Health:   db,
		Limiter:  middlewarectx.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Metrics:  m,
		Gatherer: registry,
	})

	app.cleanup = scheduler.New(db, logger, cfg.TokenCleanup.Interval, cfg.TokenCleanup.Retention)

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене ctx.
func (a *App) Run(ctx context.Context) error {
	go a.cleanup.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

// close дожидается фоновых публикаций и закрывает соединения
func (a *App) close() {
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
