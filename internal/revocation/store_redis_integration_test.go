//go:build integration

package revocation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisListSuite struct {
	suite.Suite
	client *redis.Client
	list   *RedisList
}

func TestRedisListSuite(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if testing.Short() || addr == "" {
		t.Skip("skipping integration test: REDIS_ADDR not set")
	}
	suite.Run(t, &RedisListSuite{client: redis.NewClient(&redis.Options{Addr: addr})})
}

func (s *RedisListSuite) SetupTest() {
	s.list = NewRedis(s.client)
}

func (s *RedisListSuite) TearDownSuite() {
	s.client.Close()
}

func (s *RedisListSuite) TestRevokeAndExpire() {
	ctx := context.Background()
	jti := "test-" + time.Now().Format(time.RFC3339Nano)

	revoked, err := s.list.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.list.Revoke(ctx, jti, 200*time.Millisecond))
	revoked, err = s.list.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)

	s.Eventually(func() bool {
		revoked, err := s.list.IsRevoked(ctx, jti)
		return err == nil && !revoked
	}, 2*time.Second, 50*time.Millisecond)
}
