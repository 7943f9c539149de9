// Package minio wraps minio-go with OpenTelemetry tracing and structured
// errors. The datafactory object loader and exporter read and write CSV
// objects through it.
//
//	cfg := minio.DefaultConfig()
//	cfg.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
//	cfg.SecretKey = secret.String(os.Getenv("MINIO_SECRET_KEY"))
//	client, err := minio.NewClient(ctx, *cfg)
//
// Tests inject a mock [ObjectStore] with [NewFromStore].
package minio

import (
	"errors"
	"time"

	"github.com/scalde/scalde-go/pkg/secret"
)

const maxStatementLen = 100

// Defaults applied by [DefaultConfig] and [Config.Validate].
const (
	DefaultEndpoint      = "localhost:9000"
	DefaultRegion        = "us-east-1"
	DefaultHealthBucket  = "health-check-probe"
	DefaultHealthTimeout = 5 * time.Second
)

// Config holds the object storage connection settings.
type Config struct {
	Endpoint  string        `env:"MINIO_ENDPOINT" yaml:"endpoint" json:"endpoint,omitempty"`
	AccessKey string        `env:"MINIO_ACCESS_KEY" yaml:"access_key" json:"access_key,omitempty"`
	SecretKey secret.String `env:"MINIO_SECRET_KEY" yaml:"secret_key" json:"-"`
	Region    string        `env:"MINIO_REGION" yaml:"region" json:"region,omitempty"`
	UseSSL    bool          `env:"MINIO_USE_SSL" yaml:"use_ssl" json:"use_ssl,omitempty"`

	// HealthBucket is probed with BucketExists; it need not exist.
	HealthBucket string `env:"MINIO_HEALTH_BUCKET" yaml:"health_bucket" json:"health_bucket,omitempty"`
}

// DefaultConfig returns a Config for a local MinIO.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:     DefaultEndpoint,
		Region:       DefaultRegion,
		HealthBucket: DefaultHealthBucket,
	}
}

// Validate applies defaults and checks required fields.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: config endpoint must not be empty")
	}
	if c.AccessKey == "" {
		return errors.New("minio: config access_key must not be empty")
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.HealthBucket == "" {
		c.HealthBucket = DefaultHealthBucket
	}
	return nil
}

// truncateStatement is rune aware so multi-byte object names are not split.
func truncateStatement(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStatementLen {
		return s
	}
	return string(runes[:maxStatementLen]) + "..."
}
