// Package queue provides the bounded FIFO that carries dispatch tickets from
// the control path to the dispatcher.
//
// Publish blocks while the queue is full instead of dropping or overwriting,
// so a burst of submissions never loses a ticket. A consumer that cannot
// handle a message Nacks it and the message is redelivered after the retry
// delay.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by Publish and Consume after Close.
	ErrClosed = errors.New("queue closed")
	// ErrAlreadyProcessed is returned when a message is acked or nacked twice.
	ErrAlreadyProcessed = errors.New("message already processed")
)

// Message wraps a payload consumed from the queue.
type Message[T any] struct {
	// payload is the published value.
	payload T
	// attempts counts deliveries, starting at 1.
	attempts int
	// queue is where Nack redelivers the payload.
	queue *Queue[T]

	mu        sync.Mutex
	processed bool
}

// Payload returns the published value.
func (m *Message[T]) Payload() T {
	return m.payload
}

// Attempts returns how many times the payload has been delivered.
func (m *Message[T]) Attempts() int {
	return m.attempts
}

// Ack marks the message as handled.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return ErrAlreadyProcessed
	}

	m.processed = true

	return nil
}

// Nack marks the message as failed and schedules redelivery after the retry delay.
func (m *Message[T]) Nack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return ErrAlreadyProcessed
	}

	m.processed = true
	m.queue.redeliver(m)

	return nil
}

// Queue is a bounded in-memory FIFO.
type Queue[T any] struct {
	// messages buffers pending deliveries.
	messages chan *Message[T]
	// retryDelay is the wait before a nacked message is redelivered.
	retryDelay time.Duration
	// done is closed by Close.
	done chan struct{}
	// retries tracks redelivery goroutines.
	retries sync.WaitGroup

	closeOnce sync.Once
}

// New creates a queue holding at most size pending messages.
func New[T any](size int, retryDelay time.Duration) *Queue[T] {
	if size <= 0 {
		size = 1
	}

	return &Queue[T]{
		messages:   make(chan *Message[T], size),
		retryDelay: retryDelay,
		done:       make(chan struct{}),
	}
}

// Publish appends payload, blocking while the queue is full.
func (q *Queue[T]) Publish(ctx context.Context, payload T) error {
	msg := &Message[T]{
		payload:  payload,
		attempts: 1,
		queue:    q,
	}

	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.messages <- msg:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks until a message is available.
func (q *Queue[T]) Consume(ctx context.Context) (*Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of messages waiting for delivery.
func (q *Queue[T]) Len() int {
	return len(q.messages)
}

// Close stops deliveries and waits for pending redeliveries to give up.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})

	q.retries.Wait()
}

// redeliver puts a copy of m back after the retry delay.
func (q *Queue[T]) redeliver(m *Message[T]) {
	next := &Message[T]{
		payload:  m.payload,
		attempts: m.attempts + 1,
		queue:    q,
	}

	q.retries.Add(1)

	go func() {
		defer q.retries.Done()

		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-q.done:
			return
		}

		select {
		case q.messages <- next:
		case <-q.done:
		}
	}()
}
