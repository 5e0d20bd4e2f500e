package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// RetryHeader заголовок с числом уже сделанных повторов
const RetryHeader = "x-retry-count"

// RetryPolicy сколько раз и с какой паузой повторять сообщение, на котором упал handler
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// ConsumerMessage запускает обработку очереди queueName. Не больше 10 сообщений
// обрабатываются одновременно. Сообщение с ошибкой handler через policy.Delay
// публикуется в ту же очередь заново, после policy.MaxRetries повторов отклоняется.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string,
	policy RetryPolicy, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(d.Body); err != nil {
						retry(ctx, log.With(sl.Op(op)), ch, queueName, policy, d, err)
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Op(op), sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func retry(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string,
	policy RetryPolicy, d amqp.Delivery, cause error) {
	attempt := RetryCount(d.Headers)
	if attempt >= policy.MaxRetries {
		log.Error("message rejected after retries", slog.Int("retries", attempt), sl.Err(cause))
		if err := d.Nack(false, false); err != nil {
			log.Error("failed to reject message", sl.Err(err))
		}
		return
	}

	log.Warn("message handling failed, retry scheduled",
		slog.Int("retry", attempt+1), slog.Duration("delay", policy.Delay), sl.Err(cause))

	timer := time.NewTimer(policy.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		if err := d.Nack(false, true); err != nil {
			log.Error("failed to nack message", sl.Err(err))
		}
		return
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[RetryHeader] = int32(attempt + 1)

	err := ch.Publish("", queueName, false, false, amqp.Publishing{
		Headers:      headers,
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Timestamp:    d.Timestamp,
		Body:         d.Body,
	})
	if err != nil {
		log.Error("failed to republish message", sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if err = d.Ack(false); err != nil {
		log.Error("failed to ack message", sl.Err(err))
	}
}

// RetryCount возвращает число повторов из заголовков сообщения.
func RetryCount(headers amqp.Table) int {
	switch v := headers[RetryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	default:
		return 0
	}
}
