package attendance

import (
	"context"
	"fmt"
	"time"

	platformredis "geoasistencia/internal/platform/redis"
	id "geoasistencia/pkg/domain"
)

// IdempotencyGuard deduplicates repeated submissions carrying the same
// Idempotency-Key header. It is best-effort: without Redis configured the
// guard admits everything, and a Redis failure is surfaced to the caller to
// decide on (the recorder logs and proceeds).
type IdempotencyGuard struct {
	client *platformredis.Client
	ttl    time.Duration
}

func NewIdempotencyGuard(client *platformredis.Client, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{client: client, ttl: ttl}
}

// Reserve claims the key for the profile. It returns false when the key was
// already claimed within the TTL, meaning the submission is a replay.
func (g *IdempotencyGuard) Reserve(ctx context.Context, profileID id.ProfileID, key string) (bool, error) {
	if g == nil || g.client == nil || key == "" {
		return true, nil
	}
	redisKey := fmt.Sprintf("idem:registro:%s:%s", profileID.String(), key)
	ok, err := g.client.SetNX(ctx, redisKey, 1, g.ttl).Result()
	if err != nil {
		return true, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}
