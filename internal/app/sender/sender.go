// Package sender собирает воркер отправки писем: потребитель RabbitMQ и SMTP транспорт.
package sender

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/account-service/internal/services/sender"
)

const (
	amqpRetries    = 5
	amqpRetryDelay = 2 * time.Second
)

// App воркер отправки писем
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	queue         string
	retry         rabbitmq.RetryPolicy
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к брокеру и объявляет очередь писем.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, "notification-sender", amqpRetries, amqpRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.EmailQueues(cfg.RabbitMQ))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		queue:         cfg.RabbitMQ.EmailQueue,
		retry:         rabbitmq.RetryPolicy{MaxRetries: cfg.RabbitMQ.MaxRetries, Delay: cfg.RabbitMQ.RetryDelay},
		senderService: senderservice.New(logger, transport),
		logger:        logger,
	}, nil
}

// Run потребляет очередь до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, a.queue, a.retry, a.senderService.Handle)
	if err != nil {
		a.logger.Error("failed to start email consumer", slog.String("queue", a.queue), sl.Err(err))
		return err
	}
	a.logger.Info("email consumer started", slog.String("queue", a.queue))

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}

	return nil
}
