package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentiful/server/internal/models"
)

func TestNew(t *testing.T) {
	q := New[*models.Location](10, logrus.New())
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
}

func TestQueue_Push(t *testing.T) {
	q := New[*models.Location](2, logrus.New())

	batch := []*models.Location{{ID: 1, City: "Los Angeles"}}
	require.NoError(t, q.Push(batch))
	assert.Equal(t, 1, q.Len())

	// empty batches never take a slot
	require.NoError(t, q.Push(nil))
	assert.Equal(t, 1, q.Len())

	require.NoError(t, q.Push(batch))
	assert.ErrorIs(t, q.Push(batch), ErrQueueFull)

	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Push(batch), ErrQueueClosed)
}

func TestQueue_Subscribe(t *testing.T) {
	q := New[*models.Location](10, logrus.New())

	var mu sync.Mutex
	var processed []*models.Location
	done := make(chan struct{})
	q.Subscribe(func(_ context.Context, batch []*models.Location) error {
		mu.Lock()
		processed = append(processed, batch...)
		mu.Unlock()
		close(done)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	require.NoError(t, q.Push([]*models.Location{{ID: 1}, {ID: 2}}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("batch was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, processed, 2)
	assert.Equal(t, int64(1), processed[0].ID)
	assert.Equal(t, int64(2), processed[1].ID)
}

func TestQueue_HandlerErrorDoesNotStopQueue(t *testing.T) {
	q := New[int](10, logrus.New())

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	var seen []int
	q.Subscribe(func(_ context.Context, batch []int) error {
		defer wg.Done()
		mu.Lock()
		seen = append(seen, batch...)
		mu.Unlock()
		return errors.New("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	require.NoError(t, q.Push([]int{1}))
	require.NoError(t, q.Push([]int{2}))
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, seen)
}

func TestQueue_Close(t *testing.T) {
	q := New[int](10, logrus.New())
	q.Start(context.Background())

	assert.NoError(t, q.Close())
	assert.True(t, q.IsClosed())

	// second close is a no-op
	assert.NoError(t, q.Close())
}

func TestQueue_AllHandlersReceiveBatch(t *testing.T) {
	q := New[int](10, logrus.New())

	var wg sync.WaitGroup
	var mu sync.Mutex
	calls := 0
	for i := 0; i < 3; i++ {
		wg.Add(1)
		q.Subscribe(func(context.Context, []int) error {
			mu.Lock()
			calls++
			mu.Unlock()
			wg.Done()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	require.NoError(t, q.Push([]int{42}))
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()
}
