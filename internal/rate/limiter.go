package rate

import (
	"context"
	"fmt"
	"time"

	"trip-plan-backend/internal/xerrors"

	"github.com/redis/go-redis/v9"
)

// Limiter tracks request counters in Redis so the engine itself stays
// stateless. Counters use INCR with an expiry set on first increment, giving a
// rolling window without any in-process shared state.
type Limiter struct {
	rdb             *redis.Client
	maxCodeRequests int
	maxVerifyPerIP  int
}

// NewLimiter creates a limiter with the configured thresholds
func NewLimiter(rdb *redis.Client, maxCodeRequests, maxVerifyPerIP int) *Limiter {
	return &Limiter{
		rdb:             rdb,
		maxCodeRequests: maxCodeRequests,
		maxVerifyPerIP:  maxVerifyPerIP,
	}
}

// AllowCodeRequest enforces the per-invite-token issuance limit (rolling hour).
// Exceeding it fails with ErrTooManyRequests and counts the rejected request.
func (l *Limiter) AllowCodeRequest(ctx context.Context, inviteToken string) error {
	return l.allow(ctx, "code_req:"+inviteToken, l.maxCodeRequests, time.Hour)
}

// AllowVerifyAttempt enforces the per-IP verification attempt limit (rolling minute)
func (l *Limiter) AllowVerifyAttempt(ctx context.Context, ip string) error {
	return l.allow(ctx, "verify_ip:"+ip, l.maxVerifyPerIP, time.Minute)
}

func (l *Limiter) allow(ctx context.Context, key string, max int, window time.Duration) error {
	countKey := "rate:" + key

	cnt, err := l.rdb.Incr(ctx, countKey).Result()
	if err != nil {
		return fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, countKey, window).Err(); err != nil {
			return fmt.Errorf("failed to set rate window: %w", err)
		}
	}
	if int(cnt) > max {
		return xerrors.ErrTooManyRequests
	}
	return nil
}
