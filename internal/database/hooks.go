package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type queryStartKey struct{}

// slowQueryHooks implements sqlhooks.Hooks
type slowQueryHooks struct {
	logger    *logrus.Logger
	threshold time.Duration
}

func (h *slowQueryHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, queryStartKey{}, time.Now()), nil
}

func (h *slowQueryHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	begin, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok || h.logger == nil {
		return ctx, nil
	}
	if took := time.Since(begin); took > h.threshold {
		h.logger.WithFields(logrus.Fields{
			"query":    query,
			"args":     len(args),
			"duration": took.String(),
		}).Warn("Slow SQL statement")
	}
	return ctx, nil
}

func (h *slowQueryHooks) OnError(ctx context.Context, err error, query string, args ...interface{}) error {
	if h.logger != nil {
		h.logger.WithError(err).WithField("query", query).Debug("SQL statement failed")
	}
	return err
}
