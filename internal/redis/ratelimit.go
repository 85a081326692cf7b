package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{user_id}:ballot - per-minute ballot submissions
// - ratelimit:{ip}:cron - per-minute scheduler triggers

type RateLimitConfig struct {
	BallotLimit  int
	BallotWindow time.Duration
	CronLimit    int
	CronWindow   time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		BallotLimit:  5,
		BallotWindow: 60 * time.Second,
		CronLimit:    30,
		CronWindow:   60 * time.Second,
	}
}

type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

// AllowBallot checks whether a user may submit another ballot request.
// The ballot transaction still guarantees a single accepted ballot; this
// only sheds retry storms.
func (r *RateLimiter) AllowBallot(ctx context.Context, userID string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:ballot", userID)
	return r.checkLimit(ctx, key, r.config.BallotLimit, r.config.BallotWindow)
}

func (r *RateLimiter) AllowCron(ctx context.Context, ip string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:cron", ip)
	return r.checkLimit(ctx, key, r.config.CronLimit, r.config.CronWindow)
}

var limitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	else
		return {0, 0, ttl}
	end
`)

// checkLimit increments a fixed-window counter atomically.
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	res, err := limitScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	resetIn, _ := values[2].(int64)

	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetIn:   time.Duration(resetIn) * time.Second,
		Limit:     limit,
	}, nil
}

// Reset clears a user's ballot counter.
func (r *RateLimiter) Reset(ctx context.Context, userID string) error {
	return r.client.Del(ctx, fmt.Sprintf("ratelimit:%s:ballot", userID)).Err()
}
