package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pthm/sqlgate"
	"github.com/pthm/sqlgate/internal/logger"
)

const (
	maxWalkDepth = 25
)

// Config represents the sqlgate configuration from sqlgate.yaml.
type Config struct {
	// Dialect is postgres or sqlite. When empty it follows database.driver.
	Dialect string `mapstructure:"dialect" json:"dialect"`

	Limits   LimitsConfig   `mapstructure:"limits" json:"limits"`
	Filter   FilterConfig   `mapstructure:"filter" json:"filter"`
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Log      LogConfig      `mapstructure:"log" json:"log"`
}

// LimitsConfig bounds page sizes.
type LimitsConfig struct {
	MaxLimit     int `mapstructure:"max_limit" json:"max_limit"`
	DefaultLimit int `mapstructure:"default_limit" json:"default_limit"`
}

// FilterConfig restricts the filters accepted from request documents.
type FilterConfig struct {
	AllowedFields   []string `mapstructure:"allowed_fields" json:"allowed_fields"`
	DeniedOperators []string `mapstructure:"denied_operators" json:"denied_operators"`
	MaxDepth        int      `mapstructure:"max_depth" json:"max_depth"`
	MaxNodes        int      `mapstructure:"max_nodes" json:"max_nodes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url" json:"url"`
	Driver   string `mapstructure:"driver" json:"driver"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Name     string `mapstructure:"name" json:"name"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password,omitempty"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix("SQLGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, configPath, err
	}
	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dialect", "")

	// Limit defaults
	v.SetDefault("limits.max_limit", sqlgate.DefaultMaxLimit)
	v.SetDefault("limits.default_limit", 20)

	// Filter defaults
	v.SetDefault("filter.allowed_fields", []string{})
	v.SetDefault("filter.denied_operators", []string{})
	v.SetDefault("filter.max_depth", sqlgate.DefaultMaxDepth)
	v.SetDefault("filter.max_nodes", sqlgate.DefaultMaxNodes)

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "prefer")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for sqlgate.yaml or sqlgate.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"sqlgate.yaml", "sqlgate.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Check for repo boundary (.git file or directory)
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	default:
		return fmt.Errorf("database.driver: unsupported driver %q (want postgres, pgx or sqlite)", c.Database.Driver)
	}
	if _, err := c.ResolvedDialect(); err != nil {
		return err
	}
	if c.Limits.MaxLimit <= 0 {
		return fmt.Errorf("limits.max_limit must be positive, got %d", c.Limits.MaxLimit)
	}
	if c.Limits.DefaultLimit < 0 {
		return fmt.Errorf("limits.default_limit must not be negative, got %d", c.Limits.DefaultLimit)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}

// ResolvedDialect returns the configured dialect, falling back to the one
// implied by database.driver.
func (c *Config) ResolvedDialect() (sqlgate.Dialect, error) {
	name := c.Dialect
	if name == "" {
		name = DriverPostgres
		if c.Database.Driver == DriverSQLite {
			name = DriverSQLite
		}
	}
	d, err := sqlgate.ParseDialect(name)
	if err != nil {
		return nil, fmt.Errorf("dialect: %w", err)
	}
	return d, nil
}

// Policy builds the filter policy applied to request filters.
func (c *Config) Policy() (sqlgate.FilterPolicy, error) {
	p := sqlgate.FilterPolicy{
		AllowedFields: c.Filter.AllowedFields,
		MaxDepth:      c.Filter.MaxDepth,
		MaxNodes:      c.Filter.MaxNodes,
	}
	for _, name := range c.Filter.DeniedOperators {
		op, err := sqlgate.ParseOperator(name)
		if err != nil {
			return sqlgate.FilterPolicy{}, fmt.Errorf("filter.denied_operators: %w", err)
		}
		p.DeniedOperators = append(p.DeniedOperators, op)
	}
	return p, nil
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// DSN returns the database connection string.
// If database.url is set, it's returned directly. For sqlite, database.name
// is the file path. Otherwise, builds a postgres URL from discrete fields.
func (c *Config) DSN() (string, error) {
	db := c.Database

	if db.URL != "" {
		return db.URL, nil
	}

	if db.Driver == DriverSQLite {
		if db.Name == "" {
			return "", fmt.Errorf("database.name is required for sqlite when database.url is not set")
		}
		return db.Name, nil
	}

	// Build DSN from discrete fields
	if db.Host == "" {
		return "", fmt.Errorf("database.host is required when database.url is not set")
	}
	if db.Name == "" {
		return "", fmt.Errorf("database.name is required when database.url is not set")
	}
	if db.User == "" {
		return "", fmt.Errorf("database.user is required when database.url is not set")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   "/" + db.Name,
	}

	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	} else {
		u.User = url.User(db.User)
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
