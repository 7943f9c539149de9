// Package redis wraps go-redis with OpenTelemetry tracing and structured
// errors. It backs the server-side Cognito session store in
// pkg/cognito/redisstore.
//
// Create a client from a [Config]:
//
//	cfg := redis.DefaultConfig()
//	cfg.Addr = "localhost:6379"
//	client, err := redis.NewClient(ctx, *cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Tests inject a mock [Cmdable] with [NewFromClient].
package redis

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/scalde/scalde-go/pkg/secret"
)

// maxStatementLen caps the db.statement span attribute. Session keys carry
// session ids, so the attribute is kept short.
const maxStatementLen = 100

// Defaults applied by [Config.Validate].
const (
	DefaultAddr          = "localhost:6379"
	DefaultPoolSize      = 10
	DefaultMaxRetries    = 3
	DefaultDialTimeout   = 5 * time.Second
	DefaultReadTimeout   = 3 * time.Second
	DefaultWriteTimeout  = 3 * time.Second
	DefaultHealthTimeout = 5 * time.Second
)

// Config holds the Redis connection settings. URI, when set, wins over
// Addr, DB and Password.
type Config struct {
	URI      string        `env:"URI" yaml:"uri" json:"uri,omitempty"`
	Addr     string        `env:"ADDR" envDefault:"localhost:6379" yaml:"addr" json:"addr,omitempty"`
	DB       int           `env:"DB" yaml:"db" json:"db"`
	Password secret.String `env:"PASSWORD" yaml:"password" json:"-"`

	PoolSize     int           `env:"POOL_SIZE" yaml:"pool_size" json:"pool_size,omitempty"`
	MaxRetries   int           `env:"MAX_RETRIES" yaml:"max_retries" json:"max_retries,omitempty"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" yaml:"dial_timeout" json:"dial_timeout,omitempty"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" yaml:"read_timeout" json:"read_timeout,omitempty"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" yaml:"write_timeout" json:"write_timeout,omitempty"`
	TLSEnabled   bool          `env:"TLS_ENABLED" yaml:"tls_enabled" json:"tls_enabled,omitempty"`
}

// DefaultConfig returns a Config pointing at a local Redis.
func DefaultConfig() *Config {
	return &Config{
		Addr:         DefaultAddr,
		PoolSize:     DefaultPoolSize,
		MaxRetries:   DefaultMaxRetries,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate applies defaults to zero fields and checks the rest.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("redis: config URI is invalid: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("redis: config URI scheme must be redis:// or rediss://, got %q", u.Scheme)
		}
		return nil
	}

	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("redis: config addr %q must be host:port: %w", c.Addr, err)
	}
	if c.DB < 0 {
		return fmt.Errorf("redis: config db must be >= 0, got %d", c.DB)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("redis: config pool_size must be >= 1, got %d", c.PoolSize)
	}
	for name, d := range map[string]time.Duration{
		"dial_timeout":  c.DialTimeout,
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("redis: config %s must not be negative, got %v", name, d)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// truncateStatement shortens s to maxStatementLen runes.
func truncateStatement(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStatementLen {
		return s
	}
	return string(runes[:maxStatementLen]) + "..."
}
