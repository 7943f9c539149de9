// Package postgres wraps a pgx connection pool with OpenTelemetry tracing
// and structured errors. It backs the Cognito session store in
// pkg/cognito/pgstore.
//
//	cfg := postgres.DefaultConfig()
//	cfg.Password = secret.String(os.Getenv("POSTGRES_PASSWORD"))
//	client, err := postgres.NewClient(ctx, *cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Tests inject a pgxmock pool with [NewFromPool].
package postgres

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/scalde/scalde-go/pkg/secret"
)

// maxSQLLen caps the db.statement span attribute.
const maxSQLLen = 100

// Defaults applied by [DefaultConfig] and [Config.Validate].
const (
	DefaultHost              = "localhost"
	DefaultPort              = 5432
	DefaultDatabase          = "scalde"
	DefaultUser              = "postgres"
	DefaultMaxConns          = int32(10)
	DefaultMinConns          = int32(1)
	DefaultMaxConnLifetime   = time.Hour
	DefaultMaxConnIdleTime   = 30 * time.Minute
	DefaultHealthCheckPeriod = time.Minute
	DefaultConnectTimeout    = 10 * time.Second
	DefaultHealthTimeout     = 5 * time.Second
)

// SSLMode is a libpq sslmode value.
type SSLMode string

const (
	SSLModeDisable    SSLMode = "disable"
	SSLModeAllow      SSLMode = "allow"
	SSLModePrefer     SSLMode = "prefer"
	SSLModeRequire    SSLMode = "require"
	SSLModeVerifyCA   SSLMode = "verify-ca"
	SSLModeVerifyFull SSLMode = "verify-full"
)

// Valid reports whether m is a recognized mode.
func (m SSLMode) Valid() bool {
	switch m {
	case SSLModeDisable, SSLModeAllow, SSLModePrefer, SSLModeRequire, SSLModeVerifyCA, SSLModeVerifyFull:
		return true
	}
	return false
}

// Config holds the connection settings. URI, when set, wins over the
// structured fields.
type Config struct {
	URI      string        `env:"POSTGRES_URI" yaml:"uri" json:"uri,omitempty"`
	Host     string        `env:"POSTGRES_HOST" yaml:"host" json:"host,omitempty"`
	Port     int           `env:"POSTGRES_PORT" yaml:"port" json:"port,omitempty"`
	Database string        `env:"POSTGRES_DATABASE" yaml:"database" json:"database"`
	User     string        `env:"POSTGRES_USER" yaml:"user" json:"user"`
	Password secret.String `env:"POSTGRES_PASSWORD" yaml:"password" json:"-"`
	SSLMode  SSLMode       `env:"POSTGRES_SSLMODE" yaml:"ssl_mode" json:"ssl_mode,omitempty"`

	MaxConns          int32         `env:"POSTGRES_MAX_CONNS" yaml:"max_conns" json:"max_conns,omitempty"`
	MinConns          int32         `env:"POSTGRES_MIN_CONNS" yaml:"min_conns" json:"min_conns,omitempty"`
	MaxConnLifetime   time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" yaml:"max_conn_lifetime" json:"max_conn_lifetime,omitempty"`
	MaxConnIdleTime   time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" yaml:"max_conn_idle_time" json:"max_conn_idle_time,omitempty"`
	HealthCheckPeriod time.Duration `env:"POSTGRES_HEALTH_CHECK_PERIOD" yaml:"health_check_period" json:"health_check_period,omitempty"`
	ConnectTimeout    time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" yaml:"connect_timeout" json:"connect_timeout,omitempty"`
}

// DefaultConfig returns a Config for a local database.
func DefaultConfig() *Config {
	c := &Config{
		Host:     DefaultHost,
		Port:     DefaultPort,
		Database: DefaultDatabase,
		User:     DefaultUser,
		SSLMode:  SSLModePrefer,
	}
	c.applyPoolDefaults()
	return c
}

// Validate applies defaults to zero fields and checks the rest. When URI
// is set only the URI and pool settings are checked.
func (c *Config) Validate() error {
	c.applyPoolDefaults()
	if c.MaxConns < 0 || c.MinConns < 0 {
		return errors.New("postgres: config max_conns and min_conns must not be negative")
	}
	if c.MaxConnLifetime < 0 || c.MaxConnIdleTime < 0 || c.HealthCheckPeriod < 0 || c.ConnectTimeout < 0 {
		return errors.New("postgres: config durations must not be negative")
	}
	if c.MaxConns < c.MinConns {
		return fmt.Errorf("postgres: config max_conns (%d) must be >= min_conns (%d)", c.MaxConns, c.MinConns)
	}

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("postgres: config URI is invalid: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("postgres: config URI scheme must be postgres:// or postgresql://, got %q", u.Scheme)
		}
		return nil
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.SSLMode == "" {
		c.SSLMode = SSLModePrefer
	}
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("postgres: config port must be between 1 and 65535, got %d", c.Port)
	case c.Database == "":
		return errors.New("postgres: config database must not be empty")
	case c.User == "":
		return errors.New("postgres: config user must not be empty")
	case !c.SSLMode.Valid():
		return fmt.Errorf("postgres: config ssl_mode %q is not valid", c.SSLMode)
	}
	return nil
}

func (c *Config) applyPoolDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.MinConns == 0 {
		c.MinConns = DefaultMinConns
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = DefaultMaxConnLifetime
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = DefaultMaxConnIdleTime
	}
	if c.HealthCheckPeriod == 0 {
		c.HealthCheckPeriod = DefaultHealthCheckPeriod
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
}

// ConnectionString returns URI, or builds one from the structured fields.
// The result holds the password in clear text.
func (c *Config) ConnectionString() string {
	if c.URI != "" {
		return c.URI
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password.Value()),
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   c.Database,
	}
	q := u.Query()
	if c.SSLMode != "" {
		q.Set("sslmode", string(c.SSLMode))
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// databaseName is the name reported in spans.
func (c *Config) databaseName() string {
	if c.URI != "" {
		if u, err := url.Parse(c.URI); err == nil {
			return trimSlash(u.Path)
		}
	}
	return c.Database
}

func trimSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLen {
		return sql
	}
	return sql[:maxSQLLen] + "..."
}
