package checkout

import (
	"context"
	"errors"
	"time"

	"comet-be/internal/cache"
)

const (
	idemKeyPrefix = "checkout:idem:"

	// claimTTL bounds how long a crashed in-flight checkout blocks retries.
	claimTTL = 15 * time.Minute
	// resultTTL is how long a completed checkout replays instead of
	// re-charging.
	resultTTL = 24 * time.Hour
)

// IdempotencyStore makes checkout retries safe: a key is first claimed,
// then overwritten with the final result.
type IdempotencyStore interface {
	// Claim marks the key in-flight. False means another checkout holds it.
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
	GetResult(ctx context.Context, key string) (*Result, error)
	SaveResult(ctx context.Context, key string, res *Result) error
}

type redisIdempotency struct {
	redis *cache.Redis
}

func NewIdempotencyStore(r *cache.Redis) IdempotencyStore {
	return &redisIdempotency{redis: r}
}

func (s *redisIdempotency) Claim(ctx context.Context, key string) (bool, error) {
	// an empty object marks the claim; GetResult treats it as "no result yet"
	return s.redis.SetNX(ctx, idemKeyPrefix+key, "{}", claimTTL)
}

func (s *redisIdempotency) Release(ctx context.Context, key string) error {
	return s.redis.Del(ctx, idemKeyPrefix+key)
}

func (s *redisIdempotency) GetResult(ctx context.Context, key string) (*Result, error) {
	var res Result
	err := s.redis.GetJSON(ctx, idemKeyPrefix+key, &res)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, nil
		}
		return nil, err
	}
	if res.OrderCode == 0 {
		// key holds an in-flight claim, not a result
		return nil, nil
	}
	return &res, nil
}

func (s *redisIdempotency) SaveResult(ctx context.Context, key string, res *Result) error {
	return s.redis.SetJSON(ctx, idemKeyPrefix+key, res, resultTTL)
}
