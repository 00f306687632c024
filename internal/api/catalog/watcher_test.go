package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockConsumer is a mock implementation of Consumer
type MockConsumer struct {
	mock.Mock
}

func (m *MockConsumer) SetQos(prefetchCount int) error {
	return m.Called(prefetchCount).Error(0)
}

func (m *MockConsumer) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	args := m.Called(consumerTag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan amqp.Delivery), args.Error(1)
}

func (m *MockConsumer) Reconnect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// cancelOnReconnect ends the watcher the first time it tries to reconnect
func cancelOnReconnect(consumer *MockConsumer, cancel context.CancelFunc) {
	consumer.On("Reconnect", mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(context.Canceled).Once()
}

type countingInvalidator struct {
	mu    sync.Mutex
	count int
}

func (c *countingInvalidator) Invalidate() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *countingInvalidator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// recordingAcknowledger captures acks and nacks in place of a broker channel
type recordingAcknowledger struct {
	mu    sync.Mutex
	acks  []uint64
	nacks []uint64
	err   error
}

func (r *recordingAcknowledger) Ack(tag uint64, multiple bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, tag)
	return r.err
}

func (r *recordingAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nacks = append(r.nacks, tag)
	return r.err
}

func (r *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return r.Nack(tag, false, requeue)
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: []byte(body)}
}

func TestWatcher_InvalidatesAndAcks(t *testing.T) {
	ack := &recordingAcknowledger{}
	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- delivery(ack, 1, `{"event":"jobs.changed"}`)
	deliveries <- delivery(ack, 2, `not json`)
	deliveries <- delivery(ack, 3, `{"event":"jobs.reloaded"}`)
	close(deliveries)

	consumer := new(MockConsumer)
	consumer.On("SetQos", 5).Return(nil)
	consumer.On("Consume", "api-1").Return((<-chan amqp.Delivery)(deliveries), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelOnReconnect(consumer, cancel)

	target := &countingInvalidator{}
	w := NewWatcher(consumer, target, "api-1", 5, discardLogger())

	require.NoError(t, w.Run(ctx))

	assert.Equal(t, 2, target.Count())
	assert.Equal(t, []uint64{1, 3}, ack.acks)
	assert.Equal(t, []uint64{2}, ack.nacks)
	consumer.AssertExpectations(t)
}

func TestWatcher_AckFailureStillInvalidates(t *testing.T) {
	ack := &recordingAcknowledger{err: errors.New("channel closed")}
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- delivery(ack, 7, `{"event":"jobs.changed"}`)
	close(deliveries)

	consumer := new(MockConsumer)
	consumer.On("SetQos", 1).Return(nil)
	consumer.On("Consume", "tag").Return((<-chan amqp.Delivery)(deliveries), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelOnReconnect(consumer, cancel)

	target := &countingInvalidator{}
	w := NewWatcher(consumer, target, "tag", 0, discardLogger())

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, 1, target.Count())
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	deliveries := make(chan amqp.Delivery)

	consumer := new(MockConsumer)
	consumer.On("SetQos", 1).Return(nil)
	consumer.On("Consume", "tag").Return((<-chan amqp.Delivery)(deliveries), nil)

	w := NewWatcher(consumer, &countingInvalidator{}, "tag", 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcher_SetupErrors(t *testing.T) {
	t.Run("qos failure", func(t *testing.T) {
		consumer := new(MockConsumer)
		consumer.On("SetQos", 1).Return(errors.New("not connected"))

		w := NewWatcher(consumer, &countingInvalidator{}, "tag", 1, discardLogger())

		err := w.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to set QoS")
		consumer.AssertNotCalled(t, "Consume", mock.Anything)
	})

	t.Run("consume failure", func(t *testing.T) {
		consumer := new(MockConsumer)
		consumer.On("SetQos", 1).Return(nil)
		consumer.On("Consume", "tag").Return(nil, errors.New("queue missing"))

		w := NewWatcher(consumer, &countingInvalidator{}, "tag", 1, discardLogger())

		err := w.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start consuming")
	})
}

func TestWatcher_InvalidatesSnapshot(t *testing.T) {
	source := new(MockSource)
	source.On("Jobs", mock.Anything).Return(nil, nil)
	snap := NewSnapshot(source, time.Hour, discardLogger())

	_, err := snap.Jobs(context.Background())
	require.NoError(t, err)

	ack := &recordingAcknowledger{}
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- delivery(ack, 1, `{"event":"jobs.changed"}`)
	close(deliveries)

	consumer := new(MockConsumer)
	consumer.On("SetQos", 1).Return(nil)
	consumer.On("Consume", "tag").Return((<-chan amqp.Delivery)(deliveries), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelOnReconnect(consumer, cancel)

	require.NoError(t, NewWatcher(consumer, snap, "tag", 1, discardLogger()).Run(ctx))

	_, err = snap.Jobs(context.Background())
	require.NoError(t, err)
	source.AssertNumberOfCalls(t, "Jobs", 2)
}

func TestWatcher_ResubscribesAfterChannelClose(t *testing.T) {
	ack := &recordingAcknowledger{}

	first := make(chan amqp.Delivery, 1)
	first <- delivery(ack, 1, `{"event":"jobs.changed"}`)
	close(first)

	second := make(chan amqp.Delivery, 1)
	second <- delivery(ack, 1, `{"event":"jobs.changed"}`)
	close(second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := new(MockConsumer)
	consumer.On("SetQos", 1).Return(nil)
	consumer.On("Consume", "tag").Return((<-chan amqp.Delivery)(first), nil).Once()
	consumer.On("Consume", "tag").Return((<-chan amqp.Delivery)(second), nil).Once()
	consumer.On("Reconnect", mock.Anything).Return(nil).Once()
	cancelOnReconnect(consumer, cancel)

	target := &countingInvalidator{}
	w := NewWatcher(consumer, target, "tag", 1, discardLogger())

	require.NoError(t, w.Run(ctx))

	// one per event plus one after the reconnect
	assert.Equal(t, 3, target.Count())
	assert.Equal(t, []uint64{1, 1}, ack.acks)
	consumer.AssertNumberOfCalls(t, "Consume", 2)
	consumer.AssertNumberOfCalls(t, "Reconnect", 2)
}

func TestWatcher_RetriesFailedReconnect(t *testing.T) {
	closed := make(chan amqp.Delivery)
	close(closed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := new(MockConsumer)
	consumer.On("SetQos", 1).Return(nil)
	consumer.On("Consume", "tag").Return((<-chan amqp.Delivery)(closed), nil).Once()
	consumer.On("Reconnect", mock.Anything).Return(errors.New("connection refused")).Twice()
	cancelOnReconnect(consumer, cancel)

	target := &countingInvalidator{}
	w := NewWatcher(consumer, target, "tag", 1, discardLogger())
	w.retryDelay = time.Millisecond

	require.NoError(t, w.Run(ctx))

	assert.Equal(t, 0, target.Count())
	consumer.AssertNumberOfCalls(t, "Reconnect", 3)
}

func TestWatcher_NilLogger(t *testing.T) {
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- delivery(&recordingAcknowledger{}, 1, `{"event":"jobs.changed"}`)
	close(deliveries)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := new(MockConsumer)
	consumer.On("SetQos", 1).Return(nil)
	consumer.On("Consume", "tag").Return((<-chan amqp.Delivery)(deliveries), nil)
	cancelOnReconnect(consumer, cancel)

	target := &countingInvalidator{}
	w := NewWatcher(consumer, target, "tag", 1, nil)

	assert.NotPanics(t, func() {
		require.NoError(t, w.Run(ctx))
	})
	assert.Equal(t, 1, target.Count())
}
