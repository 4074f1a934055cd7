package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/aalemi-dev/sqlconn/database"
	"github.com/aalemi-dev/sqlconn/observability"
	"github.com/aalemi-dev/sqlconn/tracer"
)

// ConnectionFactory creates connections by configuration id.
//
// This interface is implemented by the concrete *Provider type.
type ConnectionFactory interface {
	Connection(id string) (database.Connection, error)
	Database(id string) (*database.Database, error)
	Use(ctx context.Context, id string, fn func(database.Connection) error) error
}

var _ ConnectionFactory = (*Provider)(nil)

// Provider creates a new, disconnected DriverConnection for every request. It keeps
// track of the connections that are currently connected so Close can release them;
// a connection drops out of that set as soon as it disconnects.
type Provider struct {
	registry  *Registry
	connector database.Connector

	logger   database.Logger
	observer observability.Observer
	tracer   tracer.Tracer

	mu   sync.Mutex
	open map[*database.DriverConnection]struct{}
}

// Option configures a Provider.
type Option func(*Provider)

// WithConnector replaces the default database/sql connector.
func WithConnector(c database.Connector) Option {
	return func(p *Provider) { p.connector = c }
}

// WithLogger attaches a logger to every connection.
func WithLogger(l database.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithObserver attaches an observer to every connection.
func WithObserver(o observability.Observer) Option {
	return func(p *Provider) { p.observer = o }
}

// WithTracer attaches a tracer to every connection.
func WithTracer(t tracer.Tracer) Option {
	return func(p *Provider) { p.tracer = t }
}

// New creates a Provider over registry.
func New(registry *Registry, opts ...Option) *Provider {
	p := &Provider{
		registry: registry,
		open:     make(map[*database.DriverConnection]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the registry connections are resolved from.
func (p *Provider) Registry() *Registry { return p.registry }

// Connection returns a new disconnected connection for id.
func (p *Provider) Connection(id string) (database.Connection, error) {
	conn, err := p.driverConnection(id)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Database returns a facade over a new connection for id.
func (p *Provider) Database(id string) (*database.Database, error) {
	conn, err := p.driverConnection(id)
	if err != nil {
		return nil, err
	}
	return database.NewDatabase(conn), nil
}

// Use runs fn with a connected connection for id and disconnects afterwards.
func (p *Provider) Use(ctx context.Context, id string, fn func(database.Connection) error) error {
	conn, err := p.driverConnection(id)
	if err != nil {
		return err
	}
	return database.WithConnection(ctx, conn, fn)
}

func (p *Provider) track(conn *database.DriverConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open[conn] = struct{}{}
}

func (p *Provider) untrack(conn *database.DriverConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.open, conn)
}

// Close disconnects every connection handed out that is still connected.
func (p *Provider) Close() error {
	p.mu.Lock()
	open := make([]*database.DriverConnection, 0, len(p.open))
	for conn := range p.open {
		open = append(open, conn)
	}
	p.mu.Unlock()

	var errs []error
	for _, conn := range open {
		if err := conn.Disconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) driverConnection(id string) (*database.DriverConnection, error) {
	cfg, err := p.registry.Configuration(id)
	if err != nil {
		return nil, err
	}
	conn, err := database.NewDriverConnection(cfg, p.connector)
	if err != nil {
		return nil, err
	}
	conn.WithHooks(database.Hooks{
		OnConnect:    p.track,
		OnDisconnect: p.untrack,
	})
	if p.logger != nil {
		conn.WithLogger(p.logger)
	}
	if p.observer != nil {
		conn.WithObserver(p.observer)
	}
	if p.tracer != nil {
		conn.WithTracer(p.tracer)
	}
	return conn, nil
}
