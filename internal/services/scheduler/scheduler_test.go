package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type TokenRepoMock struct {
	mock.Mock
}

func (m *TokenRepoMock) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPurgeExpiredTokens(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		n    int64
		err  error
	}{
		{name: "удалены записи", n: 3},
		{name: "нечего удалять", n: 0},
		{name: "ошибка базы", err: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(TokenRepoMock)
			repo.On("DeleteExpiredTokens", mock.Anything, now.Add(-24*time.Hour)).Return(tt.n, tt.err).Once()

			s := New(repo, newNoopLogger(), time.Hour, 24*time.Hour)
			s.now = func() time.Time { return now }
			s.PurgeExpiredTokens(context.Background())

			repo.AssertExpectations(t)
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	repo := new(TokenRepoMock)
	repo.On("DeleteExpiredTokens", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(int64(0), nil)

	s := New(repo, newNoopLogger(), 10*time.Millisecond, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
