package publishers

//go:generate mockgen -source=transaction.go -destination=transaction_mock_test.go -package=publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sbilibin2017/gw-banking/internal/logger"
	"github.com/sbilibin2017/gw-banking/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// BreakerSettings controls when publishing stops hitting an unhealthy broker.
type BreakerSettings struct {
	ConsecutiveFailures uint32        // Failures in a row that open the breaker
	OpenTimeout         time.Duration // Time the breaker stays open before probing again
}

// DefaultBreakerSettings opens after 5 consecutive failures and retries after 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

// TransactionPublisher writes committed transaction events to Kafka.
// Writes go through a circuit breaker so a broker outage fails fast instead of
// delaying every request.
type TransactionPublisher struct {
	writer  KafkaWriter
	breaker *gobreaker.CircuitBreaker
}

// NewTransactionPublisher creates a new TransactionPublisher.
func NewTransactionPublisher(writer KafkaWriter, settings BreakerSettings) *TransactionPublisher {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "kafka-transactions",
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Log.Warnw("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &TransactionPublisher{writer: writer, breaker: breaker}
}

// Publish writes one event keyed by its transaction id.
func (p *TransactionPublisher) Publish(ctx context.Context, event models.TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transaction event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TransactionID),
		Value: data,
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish transaction %s: %w", event.TransactionID, err)
	}

	logger.Log.Infow("Transaction published to Kafka", "transaction_id", event.TransactionID, "amount", event.Amount)
	return nil
}

// State returns the breaker state reported by /health.
func (p *TransactionPublisher) State() gobreaker.State {
	return p.breaker.State()
}

// Close closes the underlying writer.
func (p *TransactionPublisher) Close() error {
	return p.writer.Close()
}
