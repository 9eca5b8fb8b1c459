package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// luaMarkOnce claims the action id with SETNX so the same client submission
// executes at most once within the TTL window.
const luaMarkOnce = `
local key = KEYS[1]
local ttlSec = tonumber(ARGV[1])

if redis.call('SETNX', key, '1') == 1 then
  redis.call('EXPIRE', key, ttlSec)
  return 1
end
return 0
`

// MarkActionOnce claims actionID for execution:
//   - first claim returns true
//   - a duplicate submission returns false and must be rejected
func MarkActionOnce(ctx context.Context, rdb *rd.Client, actionID string, ttl time.Duration) (bool, error) {
	key := ActionOnceKey(actionID)
	ttlSec := int64(ttl / time.Second)
	if ttlSec <= 0 {
		ttlSec = 1
	}
	n, err := rdb.Eval(ctx, luaMarkOnce, []string{key}, ttlSec).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseActionOnce frees a claimed action id after the action failed
// server-side, so the user's explicit re-attempt is not mistaken for a
// duplicate.
func ReleaseActionOnce(ctx context.Context, rdb *rd.Client, actionID string) error {
	return rdb.Del(ctx, ActionOnceKey(actionID)).Err()
}
