package service

import (
	"context"
	"fmt"
	"time"

	"github.com/homeopshq/homeops-api/pkg/database"
)

// TokenBlacklistService revokes JWTs by jti in Redis. Both access tokens
// (on logout) and MFA tickets (after too many failed codes) land here; the
// entry expires together with the token it shadows.
type TokenBlacklistService struct {
	redis *database.Redis
}

// NewTokenBlacklistService creates a new token blacklist service
func NewTokenBlacklistService(redis *database.Redis) *TokenBlacklistService {
	return &TokenBlacklistService{redis: redis}
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:jti:%s", jti)
}

// Revoke marks a token id as revoked until its natural expiry
func (s *TokenBlacklistService) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// already expired, nothing to shadow
		return nil
	}
	if err := s.redis.Client.Set(ctx, blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsRevoked checks whether a token id has been revoked
func (s *TokenBlacklistService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := s.redis.Client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists > 0, nil
}
