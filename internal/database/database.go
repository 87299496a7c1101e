package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/qustavo/sqlhooks/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with existing data")
)

type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewDatabase opens a PostGIS backed connection pool. Statements run through a
// hooked pgx driver so slow queries end up in the log.
func NewDatabase(dsn string, logger *logrus.Logger, slowThreshold time.Duration) (*Database, error) {
	sqlDB := openHooked(dsn, &slowQueryHooks{logger: logger, threshold: slowThreshold})
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Database{db: db, logger: logger}, nil
}

// openHooked wraps pgx with hooks owned by this pool alone. A driver registered
// under a global name would keep the first caller's hooks forever.
func openHooked(dsn string, hooks sqlhooks.Hooks) *sql.DB {
	return sql.OpenDB(hookedConnector{
		dsn:    dsn,
		driver: sqlhooks.Wrap(stdlib.GetDefaultDriver(), hooks),
	})
}

type hookedConnector struct {
	dsn    string
	driver driver.Driver
}

func (c hookedConnector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c hookedConnector) Driver() driver.Driver {
	return c.driver
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// classify maps driver level failures onto the package sentinels
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}
