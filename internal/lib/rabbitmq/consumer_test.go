package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openChannel(t *testing.T, uri string) *amqp.Channel {
	t.Helper()
	conn, err := Connect(context.Background(), uri, "test", 3, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	})

	ch, err := conn.Channel()
	require.NoError(t, err)
	return ch
}

func TestConsumerMessage_HandleMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	uri, cleanup := amqpURI(ctx, t)
	defer cleanup()

	ch := openChannel(t, uri)
	queueName := "consumer-test"
	_, err := ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)

	received := make([]string, 0)
	var mu sync.Mutex

	handler := func(body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(body))
		wg.Done()
		return nil
	}

	require.NoError(t, ConsumerMessage(ctx, newNoopLogger(), ch, queueName, RetryPolicy{}, handler))

	for _, msg := range []string{"hello", "world"} {
		err := ch.Publish("", queueName, false, false, amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(msg),
		})
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for messages to be processed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"hello", "world"}, received)
}

func TestConsumerMessage_HandlerErrorTriggersRedelivery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	uri, cleanup := amqpURI(ctx, t)
	defer cleanup()

	ch := openChannel(t, uri)
	queueName := "nack-test"
	_, err := ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	// первая попытка падает, повторная доставка проходит
	attempts := make(chan bool, 4)
	var mu sync.Mutex
	calls := 0
	handler := func(_ []byte) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			attempts <- false
			return fmt.Errorf("fail")
		}
		attempts <- true
		return nil
	}

	require.NoError(t, ConsumerMessage(ctx, newNoopLogger(), ch, queueName,
		RetryPolicy{MaxRetries: 3, Delay: 10 * time.Millisecond}, handler))

	err = ch.Publish("", queueName, false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte("bad"),
	})
	require.NoError(t, err)

	for _, want := range []bool{false, true} {
		select {
		case got := <-attempts:
			assert.Equal(t, want, got)
		case <-time.After(10 * time.Second):
			t.Fatal("Did not receive retried message")
		}
	}
}

func TestConsumerMessage_StopsAfterMaxRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	uri, cleanup := amqpURI(ctx, t)
	defer cleanup()

	ch := openChannel(t, uri)
	queueName := "retry-limit-test"
	_, err := ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	retries := make(chan int, 16)
	handler := func(_ []byte) error {
		retries <- int(calls.Add(1))
		return fmt.Errorf("smtp is down")
	}

	require.NoError(t, ConsumerMessage(ctx, newNoopLogger(), ch, queueName,
		RetryPolicy{MaxRetries: 2, Delay: 10 * time.Millisecond}, handler))

	require.NoError(t, ch.Publish("", queueName, false, false, amqp.Publishing{Body: []byte("mail")}))

	for want := 1; want <= 3; want++ {
		select {
		case got := <-retries:
			assert.Equal(t, want, got)
		case <-time.After(10 * time.Second):
			t.Fatalf("attempt %d was not delivered", want)
		}
	}

	// после исчерпания повторов сообщение больше не приходит
	select {
	case <-retries:
		t.Fatal("message delivered after retries were exhausted")
	case <-time.After(500 * time.Millisecond):
	}
	assert.Equal(t, int32(3), calls.Load())

	q, err := ch.QueueInspect(queueName)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Messages)
}

func TestRetryCount(t *testing.T) {
	tests := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{name: "no headers", headers: nil, want: 0},
		{name: "int32", headers: amqp.Table{RetryHeader: int32(2)}, want: 2},
		{name: "int64", headers: amqp.Table{RetryHeader: int64(4)}, want: 4},
		{name: "foreign type", headers: amqp.Table{RetryHeader: "3"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryCount(tt.headers))
		})
	}
}
