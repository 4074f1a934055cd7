package database

import "maps"

// Property keys ConfigurationFromProperties maps onto dedicated fields.
const (
	PropertyUsername     = "username"
	PropertyPassword     = "password"
	PropertyInitialQuery = "initialQuery"
	PropertyDetails      = "details"
)

// Configuration describes one database a connection can be opened to.
//
// The identifier and DSN are fixed at construction. Every other field is optional and
// has a Has* predicate that tells "never set" apart from "set to the empty value".
// Setters mutate the receiver and return it so calls can be chained.
type Configuration struct {
	id  string
	dsn string

	username      *string
	password      *string
	driverOptions DriverOptions
	initialQuery  *string
	details       *string
	properties    map[string]string
}

// NewConfiguration creates a configuration for the given identifier and DSN.
//
// The DSN is "<driver>:<driver DSN>", e.g. "mysql:host=db;dbname=app",
// "pgsql:postgres://db/app" or "sqlite:/var/lib/app.db".
func NewConfiguration(id, dsn string) *Configuration {
	return &Configuration{
		id:         id,
		dsn:        dsn,
		properties: make(map[string]string),
	}
}

// ConfigurationFromProperties builds a configuration from an associative property set.
// The keys username, password, initialQuery and details fill the matching fields; any
// other key is kept as a generic property readable through Property.
func ConfigurationFromProperties(id, dsn string, props map[string]string) *Configuration {
	c := NewConfiguration(id, dsn)
	for k, v := range props {
		switch k {
		case PropertyUsername:
			c.WithUsername(v)
		case PropertyPassword:
			c.WithPassword(v)
		case PropertyInitialQuery:
			c.WithInitialQuery(v)
		case PropertyDetails:
			c.WithDetails(v)
		default:
			c.WithProperty(k, v)
		}
	}
	return c
}

// ID returns the configuration identifier.
func (c *Configuration) ID() string { return c.id }

// DSN returns the data source name.
func (c *Configuration) DSN() string { return c.dsn }

func (c *Configuration) WithUsername(username string) *Configuration {
	c.username = &username
	return c
}

func (c *Configuration) HasUsername() bool { return c.username != nil }

// Username returns the username and whether one was set.
func (c *Configuration) Username() (string, bool) {
	if c.username == nil {
		return "", false
	}
	return *c.username, true
}

func (c *Configuration) WithPassword(password string) *Configuration {
	c.password = &password
	return c
}

func (c *Configuration) HasPassword() bool { return c.password != nil }

// Password returns the password and whether one was set.
func (c *Configuration) Password() (string, bool) {
	if c.password == nil {
		return "", false
	}
	return *c.password, true
}

// WithDriverOptions replaces the connection driver options. A non-nil empty map
// counts as set.
func (c *Configuration) WithDriverOptions(opts DriverOptions) *Configuration {
	if opts == nil {
		opts = DriverOptions{}
	}
	c.driverOptions = maps.Clone(opts)
	return c
}

func (c *Configuration) HasDriverOptions() bool { return c.driverOptions != nil }

// DriverOptions returns a copy of the driver options, an empty map when none were set.
func (c *Configuration) DriverOptions() DriverOptions {
	if c.driverOptions == nil {
		return DriverOptions{}
	}
	return maps.Clone(c.driverOptions)
}

// WithInitialQuery sets a statement that runs once right after each connect.
func (c *Configuration) WithInitialQuery(query string) *Configuration {
	c.initialQuery = &query
	return c
}

func (c *Configuration) HasInitialQuery() bool { return c.initialQuery != nil }

// InitialQuery returns the initial query and whether one was set.
func (c *Configuration) InitialQuery() (string, bool) {
	if c.initialQuery == nil {
		return "", false
	}
	return *c.initialQuery, true
}

func (c *Configuration) WithDetails(details string) *Configuration {
	c.details = &details
	return c
}

func (c *Configuration) HasDetails() bool { return c.details != nil }

// Details returns the free-text description, empty when unset.
func (c *Configuration) Details() string {
	if c.details == nil {
		return ""
	}
	return *c.details
}

// WithProperty stores a generic named property.
func (c *Configuration) WithProperty(name, value string) *Configuration {
	if c.properties == nil {
		c.properties = make(map[string]string)
	}
	c.properties[name] = value
	return c
}

// Property returns the named property, or def when it was never set.
func (c *Configuration) Property(name, def string) string {
	if v, ok := c.properties[name]; ok {
		return v
	}
	return def
}

// Properties returns a copy of all generic properties.
func (c *Configuration) Properties() map[string]string {
	return maps.Clone(c.properties)
}

// ApplyCredentials calls fn with the configured username and password, nil for each
// one that is unset, and returns fn's result. It lets credentials reach a connector
// without the configuration knowing how connections are built.
func ApplyCredentials[T any](c *Configuration, fn func(username, password *string) T) T {
	var user, pass *string
	if c.username != nil {
		u := *c.username
		user = &u
	}
	if c.password != nil {
		p := *c.password
		pass = &p
	}
	return fn(user, pass)
}
