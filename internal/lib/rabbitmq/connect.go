// Package rabbitmq содержит подключение к брокеру, объявление топологии,
// публикацию и потребление JSON-сообщений.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

const heartbeat = 10 * time.Second

// Connect подключается к брокеру под именем name, которое видно в management UI.
// Неудачная попытка повторяется до retries раз с паузой delay, отмена ctx прерывает ожидание.
func Connect(ctx context.Context, url, name string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	if retries < 1 {
		retries = 1
	}
	cfg := amqp.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: amqp.Table{"connection_name": name},
	}

	var err error
	for attempt := 1; ; attempt++ {
		var conn *amqp.Connection
		conn, err = amqp.DialConfig(url, cfg)
		if err == nil {
			return conn, nil
		}
		if attempt == retries {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	return nil, fmt.Errorf("%s: broker unreachable after %d attempts: %w", op, retries, err)
}
