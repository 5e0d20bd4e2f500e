// Package notification ставит письма пользователям в очередь.
// Отправка не блокирует вызывающий запрос: ошибки публикации логируются и не возвращаются.
package notification

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// DefaultPublishTimeout ограничение на одну публикацию
const DefaultPublishTimeout = 5 * time.Second

// Publisher публикует сообщение в брокер
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Config параметры писем
type Config struct {
	AppName      string
	FrontendHost string
	RoutingKey   string
	Timeout      time.Duration
}

// Dispatcher формирует письма и публикует их в фоне.
type Dispatcher struct {
	log       *slog.Logger
	publisher Publisher
	cfg       Config
	wg        sync.WaitGroup
}

// New создаёт Dispatcher
func New(log *slog.Logger, publisher Publisher, cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPublishTimeout
	}
	cfg.FrontendHost = strings.TrimRight(cfg.FrontendHost, "/")
	return &Dispatcher{log: log, publisher: publisher, cfg: cfg}
}

// VerificationURL ссылка подтверждения email для фронтенда
func (d *Dispatcher) VerificationURL(email, token string) string {
	return d.cfg.FrontendHost + "/account-verify?token=" + url.QueryEscape(token) +
		"&email=" + url.QueryEscape(email)
}

// SendVerification ставит в очередь письмо со ссылкой подтверждения.
func (d *Dispatcher) SendVerification(ctx context.Context, user *models.User, token string) {
	d.dispatch(ctx, models.EmailMessage{
		ID:       uuid.NewString(),
		Kind:     models.EmailAccountVerification,
		To:       user.Email,
		Subject:  "Account Verification - " + d.cfg.AppName,
		Username: user.Username,
		AppName:  d.cfg.AppName,
		URL:      d.VerificationURL(user.Email, token),
	})
}

// SendActivationConfirmation ставит в очередь письмо об активации аккаунта.
func (d *Dispatcher) SendActivationConfirmation(ctx context.Context, user *models.User) {
	d.dispatch(ctx, models.EmailMessage{
		ID:       uuid.NewString(),
		Kind:     models.EmailAccountActivated,
		To:       user.Email,
		Subject:  "Welcome - " + d.cfg.AppName,
		Username: user.Username,
		AppName:  d.cfg.AppName,
		URL:      d.cfg.FrontendHost,
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, msg models.EmailMessage) {
	// запрос может завершиться раньше публикации
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("panic while publishing email", slog.Any("panic", r), slog.String("id", msg.ID))
			}
		}()

		pubCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
		if err := d.publisher.Publish(pubCtx, d.cfg.RoutingKey, msg); err != nil {
			d.log.Error("failed to publish email", sl.Err(err),
				slog.String("id", msg.ID), slog.String("kind", msg.Kind))
			return
		}
		d.log.Debug("email queued", slog.String("id", msg.ID), slog.String("kind", msg.Kind))
	}()
}

// Wait ждёт завершения начатых публикаций
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
