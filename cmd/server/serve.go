package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rentiful/server/config"
	"rentiful/server/internal/api"
	"rentiful/server/internal/cache"
	"rentiful/server/internal/database"
	"rentiful/server/internal/geocoding"
	"rentiful/server/internal/listing"
	"rentiful/server/internal/models"
	"rentiful/server/internal/processor"
	"rentiful/server/internal/queue"
	"rentiful/server/internal/scheduler"
	"rentiful/server/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the coordinate backfill",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(cfg.Database.URL, logger, cfg.Database.SlowQueryThreshold)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize database")
		return err
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Error("Failed to run database migrations")
		return err
	}

	geocoder, closeGeocoder, err := newGeocoder(cfg, logger)
	if err != nil {
		return err
	}
	defer closeGeocoder()

	images, err := storage.NewImageStore(ctx, cfg.Storage.Region, cfg.Storage.BucketName, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize image store")
		return err
	}

	searchCache, closeCache, err := newSearchCache(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	listings := listing.NewService(images, geocoder, db, searchCache, logger)

	// coordinate backfill: scheduler -> queue -> processor
	locations := queue.New[*models.Location](cfg.BatchProcessing.QueueSize, logger)
	backfill := scheduler.NewScheduler(db, locations, cfg.BatchProcessing.MaxBatchSize, logger)
	processor.NewBatchProcessor(db.GetDB(), geocoder, locations, cfg, logger).
		WithInvalidator(searchCache).
		WithReleaser(backfill).
		Start()
	locations.Start(ctx)
	defer locations.Close()

	if err := backfill.Start(cfg.BatchProcessing.Schedule); err != nil {
		logger.WithError(err).Error("Failed to schedule coordinate backfill")
		return err
	}
	defer backfill.Stop()

	auth, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTPublicKeyPEM, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize authentication")
		return err
	}
	if err := api.RegisterValidators(); err != nil {
		return err
	}

	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(api.Deps{
		Properties:     db,
		Users:          db,
		Leases:         db,
		Listings:       listings,
		Cache:          searchCache,
		Backfill:       backfill,
		Pinger:         db,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	}, logger)
	router := api.NewRouter(handler, auth, api.NewMetrics(), api.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server failed")
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
		return err
	}
	return nil
}

func newGeocoder(cfg *config.Config, logger *logrus.Logger) (*geocoding.Geocoder, func(), error) {
	path := cfg.Geocoder.CachePath
	if path == "" {
		path = ":memory:"
	}
	geoCache, err := geocoding.NewCache(path, cfg.Geocoder.CacheTTL, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open geocode cache")
		return nil, nil, err
	}

	geocoder := geocoding.NewGeocoder(logger, geoCache, geocoding.Options{
		BaseURL:     cfg.Geocoder.BaseURL,
		UserAgent:   cfg.Geocoder.UserAgent,
		MinInterval: cfg.Geocoder.MinInterval,
		Timeout:     cfg.Geocoder.Timeout,
	})
	return geocoder, func() {
		if err := geoCache.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close geocode cache")
		}
	}, nil
}

// newSearchCache prefers Redis so several API instances share results
func newSearchCache(cfg *config.Config, logger *logrus.Logger) (cache.Cache, func(), error) {
	if cfg.SearchCache.RedisAddr == "" {
		logger.Info("Using in-memory search cache")
		return cache.NewMemory(cfg.SearchCache.TTL, logger), func() {}, nil
	}

	rc, err := cache.NewRedis(cfg.SearchCache.RedisAddr, cfg.SearchCache.RedisPassword, cfg.SearchCache.TTL, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect search cache")
		return nil, nil, err
	}
	logger.WithField("addr", cfg.SearchCache.RedisAddr).Info("Using redis search cache")
	return rc, func() { _ = rc.Close() }, nil
}
