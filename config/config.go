// Package config loads the sqlconn configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/aalemi-dev/sqlconn/database"
	"github.com/aalemi-dev/sqlconn/logger"
	"github.com/aalemi-dev/sqlconn/metrics"
	"github.com/aalemi-dev/sqlconn/tracer"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SQLCONN"

// Config is the complete library configuration.
type Config struct {
	Logger  logger.Config  `yaml:"logger"`
	Metrics metrics.Config `yaml:"metrics"`
	Tracer  tracer.Config  `yaml:"tracer"`

	// Databases maps configuration ids to connection settings.
	Databases map[string]Database `yaml:"databases"`
}

// Database is the declarative form of a database.Configuration. Optional fields
// are pointers so an absent key stays unset rather than empty.
//
// Environment names derive from the field names only; unprefixed variables such
// as USERNAME are never read.
type Database struct {
	DSN          string  `yaml:"dsn"`
	Username     *string `yaml:"username"`
	Password     *string `yaml:"password"`
	InitialQuery *string `yaml:"initial_query" split_words:"true"`
	Details      *string `yaml:"details"`

	DriverOptions map[string]any    `yaml:"driver_options" ignored:"true"`
	Properties    map[string]string `yaml:"properties"`
}

// Configuration builds the database.Configuration for id.
func (d Database) Configuration(id string) (*database.Configuration, error) {
	if d.DSN == "" {
		return nil, fmt.Errorf("database %q: dsn is required", id)
	}
	cfg := database.NewConfiguration(id, d.DSN)
	if d.Username != nil {
		cfg.WithUsername(*d.Username)
	}
	if d.Password != nil {
		cfg.WithPassword(*d.Password)
	}
	if d.InitialQuery != nil {
		cfg.WithInitialQuery(*d.InitialQuery)
	}
	if d.Details != nil {
		cfg.WithDetails(*d.Details)
	}
	if d.DriverOptions != nil {
		cfg.WithDriverOptions(database.DriverOptions(d.DriverOptions))
	}
	for k, v := range d.Properties {
		cfg.WithProperty(k, v)
	}
	return cfg, nil
}

// Load reads path, applies environment overrides and validates the result.
//
// Overrides use the SQLCONN_ prefix: SQLCONN_LOGGER_LEVEL,
// SQLCONN_METRICS_ADDRESS, SQLCONN_TRACER_ENABLE_EXPORT and so on, and
// SQLCONN_DB_<ID>_DSN, _USERNAME, _PASSWORD, _INITIAL_QUERY, _DETAILS for each
// database already present in the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Logger: logger.Config{
			Level:       logger.Info,
			ServiceName: "sqlconn",
		},
		Metrics: metrics.Config{
			Namespace:   metrics.DefaultNamespace,
			ServiceName: "sqlconn",
		},
		Tracer: tracer.Config{
			ServiceName: "sqlconn",
		},
		Databases: map[string]Database{},
	}
}

func applyEnvOverrides(cfg *Config) error {
	for _, section := range []any{&cfg.Logger, &cfg.Metrics, &cfg.Tracer} {
		if err := envconfig.Process(EnvPrefix, section); err != nil {
			return err
		}
	}
	for id, db := range cfg.Databases {
		if err := envconfig.Process(envKey(id), &db); err != nil {
			return fmt.Errorf("database %q: %w", id, err)
		}
		cfg.Databases[id] = db
	}
	return nil
}

// envKey turns a configuration id into its environment prefix.
func envKey(id string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return EnvPrefix + "_DB_" + strings.ToUpper(r.Replace(id))
}

// Validate checks the configuration for missing or malformed values.
func (c *Config) Validate() error {
	var errs []error

	switch c.Logger.Level {
	case logger.Debug, logger.Info, logger.Warning, logger.Error:
	default:
		errs = append(errs, fmt.Errorf("logger.level: unknown level %q", c.Logger.Level))
	}
	if c.Tracer.SampleRatio < 0 {
		errs = append(errs, errors.New("tracer.sample_ratio: must not be negative"))
	}

	for _, id := range c.DatabaseIDs() {
		db := c.Databases[id]
		if db.DSN == "" {
			errs = append(errs, fmt.Errorf("databases.%s.dsn: required", id))
			continue
		}
		if prefix, _, ok := strings.Cut(db.DSN, ":"); !ok || prefix == "" {
			errs = append(errs, fmt.Errorf("databases.%s.dsn: missing driver prefix", id))
		}
	}

	return errors.Join(errs...)
}

// DatabaseIDs returns the configured database ids in sorted order.
func (c *Config) DatabaseIDs() []string {
	ids := make([]string, 0, len(c.Databases))
	for id := range c.Databases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
