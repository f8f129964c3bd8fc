package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var advanceScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current < tonumber(ARGV[1]) then
	redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
end
return 1
`)

// Redis keeps counters as INCR keys that expire after two days.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		prefix: "complaints:seq:",
		ttl:    48 * time.Hour,
	}
}

func (r *Redis) Next(ctx context.Context, day string, seed SeedFunc) (int64, error) {
	key := r.prefix + day

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to check sequence %s: %w", day, err)
	}
	if exists == 0 {
		var start int64
		if seed != nil {
			if start, err = seed(ctx); err != nil {
				return 0, fmt.Errorf("failed to seed sequence %s: %w", day, err)
			}
		}
		if err := r.client.SetNX(ctx, key, start, r.ttl).Err(); err != nil {
			return 0, fmt.Errorf("failed to seed sequence %s: %w", day, err)
		}
	}

	value, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %s: %w", day, err)
	}
	return value, nil
}

func (r *Redis) Advance(ctx context.Context, day string, floor int64) error {
	return advanceScript.Run(ctx, r.client, []string{r.prefix + day}, floor, int(r.ttl.Seconds())).Err()
}
