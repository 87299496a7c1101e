package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"rentiful/server/internal/models"
)

type LocationSource interface {
	LocationsNeedingGeocode(ctx context.Context, limit int) ([]*models.Location, error)
}

type BatchQueue interface {
	Push(batch []*models.Location) error
}

// Scheduler periodically selects locations still on the fallback point and
// hands them to the coordinate queue. Runs never overlap, and a location stays
// claimed from the moment it is queued until Release is called for it, so it
// is never queued twice.
type Scheduler struct {
	source    LocationSource
	queue     BatchQueue
	batchSize int
	cron      *cron.Cron
	logger    *logrus.Logger
	jobMutex  sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewScheduler(source LocationSource, q BatchQueue, batchSize int, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		source:    source,
		queue:     q,
		batchSize: batchSize,
		cron:      cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		inFlight:  make(map[int64]struct{}),
	}
}

// Start registers the backfill job under spec, e.g. "@every 1h" or "0 * * * *"
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runScheduled); err != nil {
		return fmt.Errorf("invalid backfill schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", spec).Info("Coordinate backfill scheduled")
	return nil
}

// Stop waits for a running job to finish
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runScheduled() {
	queued, err := s.RunOnce(s.ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled coordinate backfill failed")
		return
	}
	s.logger.WithField("queued", queued).Info("Scheduled coordinate backfill completed")
}

// RunOnce queues one batch of unclaimed locations and reports how many it
// contained
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	// claimed rows still match the selection, so look past them
	locations, err := s.source.LocationsNeedingGeocode(ctx, s.batchSize+s.claimed())
	if err != nil {
		return 0, err
	}

	batch := s.claim(locations)
	if len(batch) == 0 {
		s.logger.Debug("No locations need coordinates")
		return 0, nil
	}

	if err := s.queue.Push(batch); err != nil {
		s.Release(batch)
		return 0, fmt.Errorf("failed to queue %d locations: %w", len(batch), err)
	}
	return len(batch), nil
}

// Release makes locations eligible for selection again once their batch has
// been processed
func (s *Scheduler) Release(locations []*models.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loc := range locations {
		delete(s.inFlight, loc.ID)
	}
}

func (s *Scheduler) claimed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

func (s *Scheduler) claim(locations []*models.Location) []*models.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]*models.Location, 0, min(len(locations), s.batchSize))
	for _, loc := range locations {
		if len(batch) == s.batchSize {
			break
		}
		if _, ok := s.inFlight[loc.ID]; ok {
			continue
		}
		s.inFlight[loc.ID] = struct{}{}
		batch = append(batch, loc)
	}
	return batch
}

type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if err == nil {
		err = errors.New("unknown")
	}
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
