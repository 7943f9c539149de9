//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/scalde/scalde-go/internal/testutil/containers"
	"github.com/scalde/scalde-go/pkg/clients/redis"
)

type RedisIntegrationSuite struct {
	suite.Suite
	client *redis.Client
}

func TestRedisIntegration(t *testing.T) {
	suite.Run(t, new(RedisIntegrationSuite))
}

func (s *RedisIntegrationSuite) SetupSuite() {
	rc := containers.StartRedis(s.T())
	client, err := redis.NewClient(context.Background(), redis.Config{Addr: rc.Addr})
	s.Require().NoError(err)
	s.client = client
}

func (s *RedisIntegrationSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

func (s *RedisIntegrationSuite) TestSetGetDel() {
	ctx := context.Background()
	s.Require().NoError(s.client.Set(ctx, "it:setget", []byte("v"), 0))

	v, found, err := s.client.Get(ctx, "it:setget")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("v", string(v))

	n, err := s.client.Del(ctx, "it:setget", "it:missing")
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, found, err = s.client.Get(ctx, "it:setget")
	s.Require().NoError(err)
	s.False(found)
}

func (s *RedisIntegrationSuite) TestTTLExpires() {
	ctx := context.Background()
	s.Require().NoError(s.client.Set(ctx, "it:ttl", []byte("v"), time.Second))

	s.Eventually(func() bool {
		n, err := s.client.Exists(ctx, "it:ttl")
		return err == nil && n == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *RedisIntegrationSuite) TestHealth() {
	s.NoError(s.client.Health(context.Background()))
}
