package config

import (
	"go.uber.org/fx"

	"github.com/aalemi-dev/sqlconn/logger"
	"github.com/aalemi-dev/sqlconn/metrics"
	"github.com/aalemi-dev/sqlconn/tracer"
)

// FXModule splits a *Config into the per-package configs the logger, metrics and
// tracer modules depend on.
//
// Usage:
//
//	app := fx.New(
//	    fx.Provide(func() (*config.Config, error) { return config.Load("sqlconn.yaml") }),
//	    config.FXModule,
//	    logger.FXModule,
//	    metrics.FXModule,
//	    tracer.FXModule,
//	    provider.FXModule,
//	)
var FXModule = fx.Module("config",
	fx.Provide(
		func(c *Config) logger.Config { return c.Logger },
		func(c *Config) metrics.Config { return c.Metrics },
		func(c *Config) tracer.Config { return c.Tracer },
	),
)
