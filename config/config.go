package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"3002"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Comma separated list of origins allowed by CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	Database struct {
		URL string `env:"DATABASE_URL,required"`

		// Statements slower than this are logged
		SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"500ms"`
	}

	Storage struct {
		Region     string `env:"AWS_REGION" envDefault:"us-east-1"`
		BucketName string `env:"S3_BUCKET_NAME"`

		// Maximum size of a single uploaded photo
		MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	}

	Geocoder struct {
		BaseURL     string        `env:"GEOCODER_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
		UserAgent   string        `env:"GEOCODER_USER_AGENT" envDefault:"Rentiful Listing Service/1.0"`
		MinInterval time.Duration `env:"GEOCODER_MIN_INTERVAL" envDefault:"1s"`
		Timeout     time.Duration `env:"GEOCODER_TIMEOUT" envDefault:"10s"`

		// sqlite file backing the geocode cache, empty disables persistence
		CachePath string        `env:"GEOCODE_CACHE_PATH" envDefault:"geocode_cache.db"`
		CacheTTL  time.Duration `env:"GEOCODE_CACHE_TTL" envDefault:"24h"`
	}

	SearchCache struct {
		RedisAddr     string        `env:"REDIS_ADDR"`
		RedisPassword string        `env:"REDIS_PASSWORD"`
		TTL           time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"5m"`
	}

	Auth struct {
		JWTSecret       string `env:"JWT_SECRET"`
		JWTPublicKeyPEM string `env:"JWT_PUBLIC_KEY_PEM"`
	}

	// BatchProcessing configuration for the coordinate backfill pipeline
	BatchProcessing struct {
		// Cron spec for selecting locations that still need coordinates
		Schedule string `env:"BACKFILL_SCHEDULE" envDefault:"@every 1h"`

		// Maximum number of locations to accumulate into one batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of batches the queue can hold
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"10"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
