package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window semantics: PEXPIRE only on the first hit. A counter that lost
// its TTL (crash between INCR and PEXPIRE on older servers) is re-armed.
var incrScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
if c == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local t = redis.call('PTTL', KEYS[1])
if t < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  t = tonumber(ARGV[1])
end
return {c, t}
`)

var takeAllScript = redis.NewScript(`
for i = 1, #KEYS do
  if redis.call('EXISTS', KEYS[i]) == 0 then
    return false
  end
end
local out = {}
for i = 1, #KEYS do
  out[i] = redis.call('GET', KEYS[i])
end
redis.call('DEL', unpack(KEYS))
return out
`)

// RedisStore implements [Store] on top of a go-redis universal client.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps client. The caller owns the client lifecycle.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Incr implements [Store].
func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	res, err := incrScript.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, unavailable(err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("%w: unexpected incr reply", ErrUnavailable)
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}

// Set implements [Store].
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// SetNX implements [Store].
func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, time.Duration, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, 0, unavailable(err)
	}
	if ok {
		return true, ttl, nil
	}
	remaining, err := s.TTL(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			// Expired between SETNX and PTTL.
			return false, 0, nil
		}
		return false, 0, err
	}
	return false, remaining, nil
}

// Get implements [Store].
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, unavailable(err)
	}
	return val, nil
}

// TTL implements [Store].
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	// go-redis passes -2 (missing) and -1 (no expiry) through unscaled.
	if d == -2 {
		return 0, ErrMiss
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Del implements [Store].
func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// TakeAll implements [Store].
func (s *RedisStore) TakeAll(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	res, err := takeAllScript.Run(ctx, s.client, keys).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, unavailable(err)
	}
	out := make([][]byte, len(res))
	for i, v := range res {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected take reply", ErrUnavailable)
		}
		out[i] = []byte(str)
	}
	return out, nil
}

// Ping implements [Store].
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
