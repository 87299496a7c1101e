package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler processes one batch. Errors are logged and do not stop the queue.
type Handler[T any] func(ctx context.Context, batch []T) error

// Queue is a bounded in-memory queue of batches delivered to every subscriber
// in push order by a single worker goroutine.
type Queue[T any] struct {
	items    chan []T
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
	handlers []Handler[T]
}

func New[T any](bufferSize int, logger *logrus.Logger) *Queue[T] {
	return &Queue[T]{
		items:   make(chan []T, bufferSize),
		done:    make(chan struct{}),
		maxSize: bufferSize,
		logger:  logger,
	}
}

// Push enqueues a batch without blocking. Empty batches are dropped.
func (q *Queue[T]) Push(batch []T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if len(batch) == 0 {
		return nil
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue[T]) Subscribe(handler Handler[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start runs the worker until ctx is cancelled or the queue is closed
func (q *Queue[T]) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.process(ctx)
}

func (q *Queue[T]) process(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case batch := <-q.items:
			q.processBatch(ctx, batch)
		}
	}
}

func (q *Queue[T]) processBatch(ctx context.Context, batch []T) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, batch); err != nil {
			q.logger.WithError(err).WithField("batch_size", len(batch)).Error("Handler failed to process batch")
		}
	}
}

// Close rejects further pushes and waits for the batch in flight to finish.
// Batches still buffered are discarded.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

func (q *Queue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
