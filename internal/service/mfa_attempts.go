package service

import (
	"context"
	"fmt"
	"time"

	"github.com/homeopshq/homeops-api/pkg/database"
)

// maxMfaAttempts is how many wrong second-factor codes a single ticket
// tolerates before it is revoked
const maxMfaAttempts = 3

// MfaAttempts counts failed second-factor attempts per MFA ticket in Redis
type MfaAttempts struct {
	redis *database.Redis
}

// NewMfaAttempts creates the attempt counter
func NewMfaAttempts(redis *database.Redis) *MfaAttempts {
	return &MfaAttempts{redis: redis}
}

func attemptsKey(jti string) string {
	return fmt.Sprintf("mfa:attempts:%s", jti)
}

// Fail records one failed attempt for a ticket and returns the running count.
// The counter expires with the ticket.
func (m *MfaAttempts) Fail(ctx context.Context, jti string, ticketTTL time.Duration) (int, error) {
	key := attemptsKey(jti)

	count, err := m.redis.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count mfa attempt: %w", err)
	}
	if count == 1 && ticketTTL > 0 {
		_ = m.redis.Client.Expire(ctx, key, ticketTTL).Err()
	}

	return int(count), nil
}

// Reset clears the counter after a successful verification
func (m *MfaAttempts) Reset(ctx context.Context, jti string) error {
	if err := m.redis.Client.Del(ctx, attemptsKey(jti)).Err(); err != nil {
		return fmt.Errorf("failed to reset mfa attempts: %w", err)
	}
	return nil
}
