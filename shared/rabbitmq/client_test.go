package rabbitmq

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDisconnectedClient builds a client whose broker address never answers,
// so every operation exercises the reconnect path.
func newDisconnectedClient() *Client {
	return &Client{
		config: &Config{
			Host:          "127.0.0.1",
			Port:          1,
			User:          "guest",
			Password:      "guest",
			VHost:         "/",
			ExchangeName:  "tattoo_exchange",
			ExchangeType:  "direct",
			QueueName:     "image_processing_queue",
			RetryAttempts: 1,
		},
		logger:    slog.New(slog.DiscardHandler),
		closeChan: make(chan *amqp.Error),
	}
}

func TestReconnectPathIsConcurrencySafe(t *testing.T) {
	client := newDisconnectedClient()

	// Several request goroutines hitting the lazy-reconnect path at once,
	// the way shared HTTP handlers do after a broker outage.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.PendingMessages()
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, client.IsConnected())
}

func TestPurgeNotConnected(t *testing.T) {
	client := newDisconnectedClient()

	_, err := client.Purge()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected to RabbitMQ")
}

func TestConsumeNotConnected(t *testing.T) {
	client := newDisconnectedClient()

	_, err := client.Consume("worker-test")
	require.Error(t, err)

	err = client.SetPrefetch(1)
	require.Error(t, err)
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		mult    float64
		attempt int
		want    time.Duration
	}{
		{name: "first retry uses base delay", base: 100 * time.Millisecond, mult: 2.0, attempt: 0, want: 100 * time.Millisecond},
		{name: "doubles per attempt", base: 100 * time.Millisecond, mult: 2.0, attempt: 2, want: 400 * time.Millisecond},
		{name: "configured multiplier respected", base: 100 * time.Millisecond, mult: 1.5, attempt: 2, want: 225 * time.Millisecond},
		{name: "multiplier below one falls back", base: 100 * time.Millisecond, mult: 0.5, attempt: 1, want: 200 * time.Millisecond},
		{name: "unset multiplier falls back", base: 50 * time.Millisecond, mult: 0, attempt: 3, want: 400 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backoffDelay(tt.base, tt.mult, tt.attempt))
		})
	}
}

func TestQueueName(t *testing.T) {
	client := newDisconnectedClient()
	assert.Equal(t, "image_processing_queue", client.QueueName())
}
