package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"eboto/internal/domain/result"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - tally:{election_id} - short TTL, deleted after every committed ballot
// - tally:{election_id}:gen - bumped on every invalidation

// TallyCache keeps recently computed tallies so realtime viewers polling the
// same election do not each run the grouped count.
type TallyCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewTallyCache(client *goredis.Client, ttl time.Duration) *TallyCache {
	return &TallyCache{client: client, ttl: ttl}
}

func tallyKey(electionID uuid.UUID) string {
	return fmt.Sprintf("tally:%s", electionID.String())
}

func generationKey(electionID uuid.UUID) string {
	return fmt.Sprintf("tally:%s:gen", electionID.String())
}

const generationTTL = 24 * time.Hour

// Get returns nil on a cache miss.
func (c *TallyCache) Get(ctx context.Context, electionID uuid.UUID) (*result.Tally, error) {
	data, err := c.client.Get(ctx, tallyKey(electionID)).Bytes()
	if err == goredis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}

	var t result.Tally
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Generation is read before computing a tally and handed back to Set.
func (c *TallyCache) Generation(ctx context.Context, electionID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(electionID)).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	return gen, err
}

var setIfCurrentScript = goredis.NewScript(`
	local current = redis.call('GET', KEYS[2]) or '0'
	if current ~= ARGV[1] then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// Set stores t unless the election was invalidated after generation was
// read, so a slow reader cannot cache a tally older than a committed write.
func (c *TallyCache) Set(ctx context.Context, t result.Tally, generation int64) error {
	if c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	keys := []string{tallyKey(t.ElectionID), generationKey(t.ElectionID)}
	return setIfCurrentScript.Run(ctx, c.client, keys, strconv.FormatInt(generation, 10), data, c.ttl.Milliseconds()).Err()
}

func (c *TallyCache) Invalidate(ctx context.Context, electionID uuid.UUID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(electionID))
		pipe.Expire(ctx, generationKey(electionID), generationTTL)
		pipe.Del(ctx, tallyKey(electionID))
		return nil
	})
	return err
}
