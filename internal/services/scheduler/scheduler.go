// Package scheduler периодически удаляет из базы давно истёкшие записи токенов.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// TokenRepository удаление истёкших записей
type TokenRepository interface {
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

// Service планировщик очистки токенов
type Service struct {
	repo      TokenRepository
	log       *slog.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// New создает новый экземпляр Service. Записи старше retention после истечения удаляются раз в interval.
func New(repo TokenRepository, log *slog.Logger, interval, retention time.Duration) *Service {
	return &Service{
		repo:      repo,
		log:       log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Run выполняет очистку сразу и затем по тикеру, пока не отменён ctx.
func (s *Service) Run(ctx context.Context) {
	s.PurgeExpiredTokens(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PurgeExpiredTokens(ctx)
		}
	}
}

// PurgeExpiredTokens удаляет записи, истёкшие раньше now - retention.
func (s *Service) PurgeExpiredTokens(ctx context.Context) {
	const op = "scheduler.PurgeExpiredTokens"
	before := s.now().UTC().Add(-s.retention)

	n, err := s.repo.DeleteExpiredTokens(ctx, before)
	if err != nil {
		s.log.Error("failed to purge expired tokens", sl.Op(op), sl.Err(err))
		return
	}
	if n > 0 {
		s.log.Info("expired tokens purged", sl.Op(op), slog.Int64("count", n))
	}
}
