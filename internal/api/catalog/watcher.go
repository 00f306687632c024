package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultResubscribeDelay = 5 * time.Second

// Consumer is the subset of the RabbitMQ client the watcher needs
type Consumer interface {
	SetQos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	Reconnect(ctx context.Context) error
}

// Invalidator is anything holding cached jobs that can be marked stale
type Invalidator interface {
	Invalidate()
}

// ChangeEvent is the notification published when the jobs table changes
type ChangeEvent struct {
	Event string `json:"event"`
}

// Watcher invalidates the catalog whenever a change notification arrives
type Watcher struct {
	consumer      Consumer
	target        Invalidator
	logger        *slog.Logger
	consumerTag   string
	prefetchCount int
	retryDelay    time.Duration
}

// NewWatcher creates a watcher that consumes with the given tag
func NewWatcher(consumer Consumer, target Invalidator, consumerTag string, prefetchCount int, logger *slog.Logger) *Watcher {
	if prefetchCount <= 0 {
		prefetchCount = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		consumer:      consumer,
		target:        target,
		logger:        logger,
		consumerTag:   consumerTag,
		prefetchCount: prefetchCount,
		retryDelay:    defaultResubscribeDelay,
	}
}

// Run consumes change events until ctx is canceled. When the broker closes
// the delivery channel it reconnects, subscribes again and invalidates the
// target, since events published while disconnected were lost.
func (w *Watcher) Run(ctx context.Context) error {
	deliveries, err := w.subscribe()
	if err != nil {
		return err
	}

	for {
		if stopped := w.dispatch(ctx, deliveries); stopped {
			return nil
		}

		deliveries = w.resubscribe(ctx)
		if deliveries == nil {
			w.logger.Info("Catalog watcher stopped - context canceled")
			return nil
		}

		w.target.Invalidate()
	}
}

func (w *Watcher) subscribe() (<-chan amqp.Delivery, error) {
	if err := w.consumer.SetQos(w.prefetchCount); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := w.consumer.Consume(w.consumerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("Catalog watcher started",
		slog.String("consumer_tag", w.consumerTag),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	return deliveries, nil
}

// resubscribe retries until it has a delivery channel; nil means ctx ended
func (w *Watcher) resubscribe(ctx context.Context) <-chan amqp.Delivery {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		err := w.consumer.Reconnect(ctx)
		if err == nil {
			deliveries, subErr := w.subscribe()
			if subErr == nil {
				return deliveries
			}
			err = subErr
		}

		if ctx.Err() != nil {
			return nil
		}

		w.logger.Error("Failed to resubscribe catalog watcher",
			slog.Int("attempt", attempt),
			slog.Duration("retry_after", w.retryDelay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}

// dispatch handles deliveries and reports true when ctx was canceled
func (w *Watcher) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Catalog watcher stopped - context canceled")
			return true

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed, reconnecting")
				return false
			}
			w.handle(delivery)
		}
	}
}

func (w *Watcher) handle(delivery amqp.Delivery) {
	var event ChangeEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		w.logger.Error("Failed to parse change event",
			slog.String("error", err.Error()),
			slog.String("body", string(delivery.Body)),
		)
		// malformed messages go to the DLQ, if one is bound
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to NACK malformed message",
				slog.String("error", nackErr.Error()),
			)
		}
		return
	}

	w.target.Invalidate()

	if ackErr := delivery.Ack(false); ackErr != nil {
		w.logger.Error("Failed to ACK change event",
			slog.String("event", event.Event),
			slog.String("error", ackErr.Error()),
		)
		return
	}

	w.logger.Info("Catalog invalidated",
		slog.String("event", event.Event),
		slog.Uint64("delivery_tag", delivery.DeliveryTag),
	)
}
