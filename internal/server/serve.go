package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/app"
	"github.com/dense-analysis/boardfolio/internal/env"
	"github.com/dense-analysis/boardfolio/internal/logging"
)

// Serve loads the configuration from the environment and runs a site until
// ctx is cancelled.
func Serve(ctx context.Context, site string) error {
	cfg, err := env.Load()

	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)

	if err != nil {
		return err
	}

	defer logger.Sync()

	application, err := app.New(ctx, site, cfg, logger.With(zap.String("site", site)))

	if err != nil {
		return fmt.Errorf("startup error: %w", err)
	}

	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("Error closing connections", zap.Error(err))
		}
	}()

	return Run(ctx, cfg.Address, NewRouter(application), application.Log)
}
