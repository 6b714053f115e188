// Package revocation implements the access-token jti blacklist on Redis.
package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
)

const keyPrefix = "auth:blacklist:"

var _ model.RevocationStore = (*Redis)(nil)

// Redis is a TTL-bounded jti set. By default it fails open: when the backend
// is unreachable, Contains reports not-revoked so a Redis outage does not
// take authentication down with it. Stricter deployments set failClosed.
type Redis struct {
	client     redis.UniversalClient
	failClosed bool
	logger     *logger.Logger
}

// NewRedis creates a revocation store on the given client.
func NewRedis(client redis.UniversalClient, failClosed bool, logger *logger.Logger) *Redis {
	return &Redis{client: client, failClosed: failClosed, logger: logger}
}

// Add inserts a jti with the given TTL. Empty jti is a no-op. Backend
// failures are logged and swallowed: logout must not fail because the
// revocation side channel is degraded.
func (s *Redis) Add(ctx context.Context, jti string, ttl time.Duration) {
	if jti == "" {
		s.logger.Warn("attempted to blacklist empty jti")
		return
	}

	if err := s.client.Set(ctx, keyPrefix+jti, "revoked", ttl).Err(); err != nil {
		s.logger.Error("failed to add jti to blacklist",
			"jti", jti,
			"error", err.Error())
		return
	}

	s.logger.Info("token jti added to blacklist",
		"jti", jti,
		"ttl_seconds", int64(ttl.Seconds()))
}

// Contains reports whether a jti is blacklisted and not yet TTL-expired.
func (s *Redis) Contains(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}

	n, err := s.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		s.logger.Error("failed to check blacklist",
			"jti", jti,
			"error", err.Error())
		return s.failClosed
	}

	return n > 0
}

// Remove evicts a jti. Idempotent; used for administrative and test paths,
// not on the request path.
func (s *Redis) Remove(ctx context.Context, jti string) {
	if jti == "" {
		return
	}

	if err := s.client.Del(ctx, keyPrefix+jti).Err(); err != nil {
		s.logger.Error("failed to remove jti from blacklist",
			"jti", jti,
			"error", err.Error())
	}
}
