// Package logger создаёт slog-логгер под окружение.
package logger

import (
	"io"
	"log/slog"
)

// Окружения из конфига
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// New возвращает текстовый логгер для local и JSON для остальных окружений.
// Поля service и env добавляются к каждой записи.
func New(env, service string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	switch env {
	case EnvLocal:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	case EnvDev:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("env", env),
	)
}
