package processor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/latlong"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentiful/server/config"
	"rentiful/server/internal/database"
	"rentiful/server/internal/geocoding"
	"rentiful/server/internal/models"
	"rentiful/server/internal/queue"
)

// Transactor is satisfied by *gorm.DB
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

type Geocoder interface {
	Geocode(ctx context.Context, addr geocoding.Address) (orb.Point, bool, error)
}

type Invalidator interface {
	InvalidateProperties(ctx context.Context) error
}

// Releaser is told when a batch is done so its locations can be selected again
type Releaser interface {
	Release(locations []*models.Location)
}

// update stores the outcome of one geocode attempt inside a transaction
type update func(tx *gorm.DB, id int64, point *orb.Point, timeZone string) error

type resolved struct {
	location *models.Location
	point    *orb.Point
	timeZone string
}

// BatchProcessor geocodes queued locations that were stored at the fallback
// point and writes the results back in one transaction per batch.
type BatchProcessor struct {
	db       Transactor
	geocoder Geocoder
	cache    Invalidator
	releaser Releaser
	queue    *queue.Queue[*models.Location]
	config   *config.Config
	logger   *logrus.Logger
	update   update
}

func NewBatchProcessor(db Transactor, geocoder Geocoder, q *queue.Queue[*models.Location], cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	return &BatchProcessor{
		db:       db,
		geocoder: geocoder,
		queue:    q,
		config:   cfg,
		logger:   logger,
		update:   database.UpdateLocationCoordinates,
	}
}

// WithInvalidator drops cached search results whenever a batch resolves at
// least one location
func (p *BatchProcessor) WithInvalidator(cache Invalidator) *BatchProcessor {
	p.cache = cache
	return p
}

// WithReleaser hands every finished batch back to r, whether it succeeded or not
func (p *BatchProcessor) WithReleaser(r Releaser) *BatchProcessor {
	p.releaser = r
	return p
}

// Start subscribes the processor to its queue
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
}

func (p *BatchProcessor) processBatch(ctx context.Context, batch []*models.Location) error {
	if p.releaser != nil {
		defer p.releaser.Release(batch)
	}

	results := p.geocodeAll(ctx, batch)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	maxRetries := p.config.BatchProcessing.MaxRetries
	delay := time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying coordinate batch, attempt %d of %d", attempt, maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			for _, r := range results {
				err := p.update(tx, r.location.ID, r.point, r.timeZone)
				if errors.Is(err, database.ErrNotFound) {
					// deleted since it was queued
					p.logger.WithField("location_id", r.location.ID).Debug("Skipping missing location")
					continue
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			p.finish(ctx, results)
			return nil
		}

		p.logger.WithError(err).Error("Coordinate batch failed")
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", maxRetries+1, err)
}

// geocodeAll resolves each location in order. The geocoder rate limits
// itself, so there is nothing to gain from running these concurrently.
func (p *BatchProcessor) geocodeAll(ctx context.Context, batch []*models.Location) []resolved {
	results := make([]resolved, 0, len(batch))
	for _, loc := range batch {
		if ctx.Err() != nil {
			break
		}
		r := resolved{location: loc}

		addr := geocoding.Address{
			Street:     loc.Address,
			City:       loc.City,
			State:      loc.State,
			Country:    loc.Country,
			PostalCode: loc.PostalCode,
		}
		point, found, err := p.geocoder.Geocode(ctx, addr)
		switch {
		case err != nil:
			p.logger.WithError(err).WithField("location_id", loc.ID).Warn("Geocoding failed, counting attempt")
		case !found:
			p.logger.WithField("location_id", loc.ID).Debug("No geocode match")
		default:
			r.point = &point
			r.timeZone = latlong.LookupZoneName(point.Lat(), point.Lon())
		}
		results = append(results, r)
	}
	return results
}

func (p *BatchProcessor) finish(ctx context.Context, results []resolved) {
	updated := 0
	for _, r := range results {
		if r.point != nil {
			r.location.Coordinates = models.CoordinatesFromPoint(*r.point)
			r.location.TimeZone = r.timeZone
			updated++
		}
		r.location.GeocodeAttempts++
	}

	if updated > 0 && p.cache != nil {
		if err := p.cache.InvalidateProperties(ctx); err != nil {
			p.logger.WithError(err).Warn("Failed to invalidate search cache")
		}
	}

	p.logger.WithFields(logrus.Fields{
		"batch_size": len(results),
		"updated":    updated,
	}).Info("Processed coordinate batch")
}
