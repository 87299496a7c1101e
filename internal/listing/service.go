package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/latlong"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"rentiful/server/internal/geocoding"
	"rentiful/server/internal/models"
	"rentiful/server/internal/storage"
)

var (
	ErrUpload  = errors.New("image upload failed")
	ErrGeocode = errors.New("geocoding failed")
	ErrPersist = errors.New("saving property failed")
)

const compensationTimeout = 30 * time.Second

type ImageStore interface {
	Upload(ctx context.Context, obj storage.Object) (storage.Stored, error)
	Delete(ctx context.Context, key string) error
}

type Geocoder interface {
	Geocode(ctx context.Context, addr geocoding.Address) (orb.Point, bool, error)
}

type PropertyStore interface {
	CreateProperty(ctx context.Context, loc models.Location, prop models.Property) (*models.Property, error)
}

// Invalidator drops cached search results after a listing changes
type Invalidator interface {
	InvalidateProperties(ctx context.Context) error
}

// CreateInput is a validated create request. Property carries every listing
// attribute; its photo, location and manager fields are filled in here.
type CreateInput struct {
	Address  geocoding.Address
	Property models.Property
	Photos   []storage.Object
}

type Service struct {
	images   ImageStore
	geocoder Geocoder
	store    PropertyStore
	cache    Invalidator
	logger   *logrus.Logger
}

func NewService(images ImageStore, geocoder Geocoder, store PropertyStore, cache Invalidator, logger *logrus.Logger) *Service {
	return &Service{
		images:   images,
		geocoder: geocoder,
		store:    store,
		cache:    cache,
		logger:   logger,
	}
}

// CreateProperty uploads the photos concurrently, geocodes the address once and
// stores location and property together. Any failure after an upload removes
// the uploaded photos again.
func (s *Service) CreateProperty(ctx context.Context, in CreateInput) (*models.Property, error) {
	stored, err := s.uploadAll(ctx, in.Photos)
	if err != nil {
		s.compensate(ctx, stored)
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	loc, err := s.resolveLocation(ctx, in.Address)
	if err != nil {
		s.compensate(ctx, stored)
		return nil, fmt.Errorf("%w: %w", ErrGeocode, err)
	}

	prop := in.Property
	prop.PhotoURLs = make([]string, len(stored))
	for i, obj := range stored {
		prop.PhotoURLs[i] = obj.URL
	}
	if prop.PostedDate.IsZero() {
		prop.PostedDate = time.Now().UTC()
	}

	created, err := s.store.CreateProperty(ctx, loc, prop)
	if err != nil {
		s.compensate(ctx, stored)
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateProperties(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate search cache")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"property_id": created.ID,
		"photos":      len(stored),
		"resolved":    !loc.Unresolved(),
	}).Info("Created property")
	return created, nil
}

// uploadAll runs every upload concurrently and waits for all of them. On
// failure the successfully stored objects are still returned so they can be
// removed.
func (s *Service) uploadAll(ctx context.Context, photos []storage.Object) ([]storage.Stored, error) {
	results := make([]storage.Stored, len(photos))
	g, gctx := errgroup.WithContext(ctx)
	for i, photo := range photos {
		g.Go(func() error {
			obj, err := s.images.Upload(gctx, photo)
			if err != nil {
				return err
			}
			results[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var uploaded []storage.Stored
		for _, r := range results {
			if r.Key != "" {
				uploaded = append(uploaded, r)
			}
		}
		return uploaded, err
	}
	return results, nil
}

// resolveLocation geocodes addr. An address without a match is stored at (0,0)
// so the background backfill can retry it later.
func (s *Service) resolveLocation(ctx context.Context, addr geocoding.Address) (models.Location, error) {
	loc := models.Location{
		Address:         addr.Street,
		City:            addr.City,
		State:           addr.State,
		Country:         addr.Country,
		PostalCode:      addr.PostalCode,
		GeocodeAttempts: 1,
	}

	point, found, err := s.geocoder.Geocode(ctx, addr)
	if err != nil {
		return loc, err
	}
	if !found {
		s.logger.WithField("address", addr.String()).Warn("Address could not be geocoded, storing fallback point")
		return loc, nil
	}

	loc.Coordinates = models.CoordinatesFromPoint(point)
	loc.TimeZone = latlong.LookupZoneName(point.Lat(), point.Lon())
	return loc, nil
}

func (s *Service) compensate(ctx context.Context, stored []storage.Stored) {
	if len(stored) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for _, obj := range stored {
		if err := s.images.Delete(ctx, obj.Key); err != nil {
			s.logger.WithError(err).WithField("key", obj.Key).Error("Failed to remove uploaded photo")
		}
	}
	s.logger.WithField("photos", len(stored)).Info("Removed uploaded photos after failed create")
}
