package provider

import (
	"context"

	"go.uber.org/fx"

	"github.com/aalemi-dev/sqlconn/config"
	"github.com/aalemi-dev/sqlconn/database"
	"github.com/aalemi-dev/sqlconn/logger"
	"github.com/aalemi-dev/sqlconn/observability"
	"github.com/aalemi-dev/sqlconn/tracer"
)

// FXModule provides the Registry, the Provider and the ConnectionFactory
// interface, and disconnects every issued connection when the application stops.
//
// The registry is filled from *config.Config when one is available. Logger,
// observer, tracer and connector are optional.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    metrics.FXModule,
//	    provider.FXModule,
//	    fx.Provide(func() (*config.Config, error) { return config.Load("sqlconn.yaml") }),
//	    fx.Invoke(func(f provider.ConnectionFactory) { ... }),
//	)
var FXModule = fx.Module("provider",
	fx.Provide(
		NewRegistryWithDI,
		NewProviderWithDI,
		fx.Annotate(
			func(p *Provider) ConnectionFactory { return p },
			fx.As(new(ConnectionFactory)),
		),
	),
	fx.Invoke(RegisterProviderLifecycle),
)

// RegistryParams holds the optional configuration the registry is built from.
type RegistryParams struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// NewRegistryWithDI defines one entry per configured database.
func NewRegistryWithDI(params RegistryParams) *Registry {
	r := NewRegistry()
	if params.Config == nil {
		return r
	}
	for id, db := range params.Config.Databases {
		r.Define(id, db)
	}
	return r
}

// ProviderParams groups the dependencies of NewProviderWithDI.
type ProviderParams struct {
	fx.In

	Registry  *Registry
	Connector database.Connector     `optional:"true"`
	Logger    logger.Logger          `optional:"true"`
	Observer  observability.Observer `optional:"true"`
	Tracer    tracer.Tracer          `optional:"true"`
}

// NewProviderWithDI creates a Provider from injected dependencies.
func NewProviderWithDI(params ProviderParams) *Provider {
	opts := []Option{WithConnector(params.Connector)}
	if params.Logger != nil {
		opts = append(opts, WithLogger(params.Logger))
	}
	if params.Observer != nil {
		opts = append(opts, WithObserver(params.Observer))
	}
	if params.Tracer != nil {
		opts = append(opts, WithTracer(params.Tracer))
	}
	return New(params.Registry, opts...)
}

// RegisterProviderLifecycle closes the provider on application stop.
func RegisterProviderLifecycle(lc fx.Lifecycle, p *Provider) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.Close()
		},
	})
}
