package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rentiful/server/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rentiful",
		Short:         "Rental marketplace API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())
	return root
}

// setup loads the configuration and builds the process wide logger
func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fail("configuration error: %v", err)
		return nil, nil, err
	}
	return cfg, newLogger(cfg.LogLevel, cfg.LogFormat), nil
}

func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.WithField("level", level).Warn("Unknown log level, using info")
		return logger
	}
	logger.SetLevel(lvl)
	return logger
}

func success(format string, args ...any) {
	fmt.Fprintln(os.Stdout, color.GreenString("✓ ")+fmt.Sprintf(format, args...))
}

func fail(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.RedString("✗ ")+fmt.Sprintf(format, args...))
}
