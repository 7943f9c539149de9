//go:build integration

// Package containers starts throwaway Redis, PostgreSQL and MinIO
// containers for integration tests of the session stores and the
// datafactory object IO.
//
// Everything here is behind the "integration" build tag so unit test
// builds never link the Docker client. Each Start* helper registers the
// container's termination with t.Cleanup:
//
//	redis := containers.StartRedis(t)
//	client, _ := redisclient.NewClient(redisclient.Config{Addr: redis.Addr})
package containers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// Container images. Alpine variants keep startup fast.
const (
	PostgresImage = "docker.io/postgres:16-alpine"
	RedisImage    = "docker.io/redis:7-alpine"
	MinIOImage    = "docker.io/minio/minio:latest"
)

// Credentials baked into the test containers. Only suitable for ephemeral
// containers on a trusted local network.
const (
	PostgresDatabase = "scalde_test"
	PostgresUser     = "testuser"
	PostgresPassword = "testpassword"
	MinIOAccessKey   = "minioadmin"
	MinIOSecretKey   = "minioadmin"
)

// Postgres is a running PostgreSQL container.
type Postgres struct {
	Container *tcpostgres.PostgresContainer
	// ConnString has sslmode=disable; testcontainers expose the port
	// on localhost without TLS.
	ConnString string
}

// StartPostgres starts PostgreSQL 16 and waits until it accepts
// connections.
func StartPostgres(t testing.TB) *Postgres {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		PostgresImage,
		tcpostgres.WithDatabase(PostgresDatabase),
		tcpostgres.WithUsername(PostgresUser),
		tcpostgres.WithPassword(PostgresPassword),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "containers: failed to start postgres")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "containers: failed to get postgres connection string")

	return &Postgres{Container: container, ConnString: connStr}
}

// Redis is a running Redis container.
type Redis struct {
	Container *tcredis.RedisContainer
	// Addr is host:port, ready for redis.Config.Addr.
	Addr string
}

// StartRedis starts Redis 7 without authentication.
func StartRedis(t testing.TB) *Redis {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, RedisImage)
	require.NoError(t, err, "containers: failed to start redis")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err, "containers: failed to get redis connection string")

	// ConnectionString is redis://host:port; the client wants host:port.
	addr := strings.TrimPrefix(connStr, "redis://")
	addr = strings.TrimSuffix(addr, "/0")
	return &Redis{Container: container, Addr: addr}
}

// MinIO is a running MinIO container.
type MinIO struct {
	Container *tcminio.MinioContainer
	// Endpoint is host:port of the S3 API.
	Endpoint  string
	AccessKey string
	SecretKey string
}

// StartMinIO starts MinIO with the root credentials above.
func StartMinIO(t testing.TB) *MinIO {
	t.Helper()
	ctx := context.Background()

	container, err := tcminio.Run(ctx,
		MinIOImage,
		tcminio.WithUsername(MinIOAccessKey),
		tcminio.WithPassword(MinIOSecretKey),
	)
	require.NoError(t, err, "containers: failed to start minio")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err, "containers: failed to get minio endpoint")

	return &MinIO{
		Container: container,
		Endpoint:  endpoint,
		AccessKey: MinIOAccessKey,
		SecretKey: MinIOSecretKey,
	}
}
