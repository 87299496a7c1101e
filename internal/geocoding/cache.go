package geocoding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	gocachestore "github.com/eko/gocache/store/go_cache/v4"
	"github.com/paulmach/orb"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type cachedPoint struct {
	AddressKey string `gorm:"primaryKey"`
	Longitude  float64
	Latitude   float64
	CreatedAt  time.Time
}

func (cachedPoint) TableName() string {
	return "geocode_cache"
}

// Cache keeps resolved addresses in memory and in a sqlite file so results
// survive restarts. Only successful lookups are stored.
type Cache struct {
	memory *cache.Cache[orb.Point]
	db     *gorm.DB
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCache opens (or creates) the sqlite file at path. Use ":memory:" for a
// process local store.
func NewCache(path string, ttl time.Duration, logger *logrus.Logger) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open geocode cache: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&cachedPoint{}); err != nil {
		return nil, fmt.Errorf("failed to migrate geocode cache: %w", err)
	}

	client := gocache.New(ttl, 2*ttl)
	c := &Cache{
		memory: cache.New[orb.Point](gocachestore.NewGoCache(client)),
		db:     db,
		ttl:    ttl,
		logger: logger,
	}

	var count int64
	db.Model(&cachedPoint{}).Count(&count)
	logger.Infof("Loaded geocode cache with %d addresses", count)
	return c, nil
}

func (c *Cache) Get(ctx context.Context, key string) (orb.Point, bool) {
	if p, err := c.memory.Get(ctx, key); err == nil {
		return p, true
	}

	var row cachedPoint
	err := c.db.WithContext(ctx).
		Where("address_key = ? AND created_at > ?", key, time.Now().Add(-c.ttl)).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.logger.WithError(err).Warn("Failed to read geocode cache")
		}
		return orb.Point{}, false
	}

	p := orb.Point{row.Longitude, row.Latitude}
	if err := c.memory.Set(ctx, key, p, store.WithExpiration(c.ttl)); err != nil {
		c.logger.WithError(err).Debug("Failed to warm memory cache")
	}
	return p, true
}

// Set stores p for key in both layers. Failures are logged, not returned; a
// lost cache entry only costs another upstream request.
func (c *Cache) Set(ctx context.Context, key string, p orb.Point) {
	if err := c.memory.Set(ctx, key, p, store.WithExpiration(c.ttl)); err != nil {
		c.logger.WithError(err).Warn("Failed to write memory geocode cache")
	}

	row := cachedPoint{AddressKey: key, Longitude: p.Lon(), Latitude: p.Lat(), CreatedAt: time.Now()}
	if err := c.db.WithContext(ctx).Save(&row).Error; err != nil {
		c.logger.WithError(err).Warn("Failed to write geocode cache")
	}
}

func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
