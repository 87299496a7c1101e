package scheduler

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
	"rentiful/server/internal/queue"
)

type stubSource struct {
	mu        sync.Mutex
	locations []*models.Location
	err       error
	limits    []int
}

func (s *stubSource) LocationsNeedingGeocode(_ context.Context, limit int) ([]*models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = append(s.limits, limit)
	return s.locations, s.err
}

func (s *stubSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limits)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestRunOnce_QueuesBatch(t *testing.T) {
	src := &stubSource{locations: []*models.Location{{ID: 1}, {ID: 2}}}
	q := queue.New[*models.Location](1, quietLogger())
	s := NewScheduler(src, q, 50, quietLogger())

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, []int{50}, src.limits)
}

func TestRunOnce_NothingToDo(t *testing.T) {
	q := queue.New[*models.Location](1, quietLogger())
	s := NewScheduler(&stubSource{}, q, 50, quietLogger())

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, q.Len())
}

func TestRunOnce_Errors(t *testing.T) {
	s := NewScheduler(&stubSource{err: errors.New("db down")}, queue.New[*models.Location](1, quietLogger()), 10, quietLogger())
	_, err := s.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")

	full := queue.New[*models.Location](1, quietLogger())
	require.NoError(t, full.Push([]*models.Location{{ID: 99}}))
	s = NewScheduler(&stubSource{locations: []*models.Location{{ID: 1}}}, full, 10, quietLogger())
	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, queue.ErrQueueFull)
}

func TestRunOnce_SkipsQueuedLocations(t *testing.T) {
	src := &stubSource{locations: []*models.Location{{ID: 1}, {ID: 2}, {ID: 3}}}
	q := queue.New[*models.Location](3, quietLogger())
	s := NewScheduler(src, q, 2, quietLogger())

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// everything is claimed until the processor releases it
	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []int{2, 4, 5}, src.limits)

	var queued []int64
	q.Subscribe(func(_ context.Context, batch []*models.Location) error {
		for _, loc := range batch {
			queued = append(queued, loc.ID)
		}
		s.Release(batch)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	assert.Eventually(t, func() bool { return q.Len() == 0 && s.claimed() == 0 }, time.Second, 10*time.Millisecond)
	require.NoError(t, q.Close())
	assert.Equal(t, []int64{1, 2, 3}, queued)
}

func TestRunOnce_ReleasesOnPushFailure(t *testing.T) {
	full := queue.New[*models.Location](1, quietLogger())
	require.NoError(t, full.Push([]*models.Location{{ID: 99}}))
	s := NewScheduler(&stubSource{locations: []*models.Location{{ID: 1}}}, full, 10, quietLogger())

	_, err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, queue.ErrQueueFull)
	assert.Zero(t, s.claimed())
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&stubSource{}, queue.New[*models.Location](1, quietLogger()), 10, quietLogger())
	assert.Error(t, s.Start("not a schedule"))
}

func TestStart_RunsOnSchedule(t *testing.T) {
	src := &stubSource{}
	s := NewScheduler(src, queue.New[*models.Location](1, quietLogger()), 10, quietLogger())

	require.NoError(t, s.Start("@every 1s"))
	defer s.Stop()

	assert.Eventually(t, func() bool { return src.calls() > 0 }, 3*time.Second, 50*time.Millisecond)
}
