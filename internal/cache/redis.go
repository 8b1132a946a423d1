package cache

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix = "wishlist:votes:"
	genPrefix = "wishlist:votes:gen:"
)

// genUnknown never matches a stored generation, so a Set after a failed
// Generation read is dropped.
const genUnknown = math.MaxUint64

// setIfGeneration stores the count only while the generation key still holds
// the value the reader saw. A missing generation key is generation 0.
var setIfGeneration = redis.NewScript(`
local g = redis.call('GET', KEYS[2])
if (g or '0') ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings so a bad address fails at startup
// instead of on the first vote.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Redis is a CountCache shared by every process pointing at the same Redis.
// Redis failures degrade to cache misses; counts are always recomputable
// from the votes table.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis wraps client. ttl bounds how stale a count written by another
// process can be.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func key(featureID snowflake.ID) string    { return keyPrefix + featureID.String() }
func genKey(featureID snowflake.ID) string { return genPrefix + featureID.String() }

func (r *Redis) Get(ctx context.Context, featureID snowflake.ID) (int64, bool) {
	raw, err := r.client.Get(ctx, key(featureID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("feature_id", featureID.String()).Msg("vote cache get failed")
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r *Redis) Generation(ctx context.Context, featureID snowflake.ID) uint64 {
	gen, err := r.client.Get(ctx, genKey(featureID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("feature_id", featureID.String()).Msg("vote cache generation failed")
		return genUnknown
	}
	return gen
}

func (r *Redis) Set(ctx context.Context, featureID snowflake.ID, count int64, gen uint64) bool {
	if gen == genUnknown {
		return false
	}
	stored, err := setIfGeneration.Run(ctx, r.client,
		[]string{key(featureID), genKey(featureID)},
		strconv.FormatUint(gen, 10), count, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("feature_id", featureID.String()).Msg("vote cache set failed")
		return false
	}
	return stored == 1
}

// Invalidate bumps the generation and drops the count in one MULTI/EXEC.
// The generation key carries no TTL; one small counter per voted feature.
func (r *Redis) Invalidate(ctx context.Context, featureID snowflake.ID) {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey(featureID))
		p.Del(ctx, key(featureID))
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("feature_id", featureID.String()).Msg("vote cache invalidate failed")
	}
}
