package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// luaReleaseReorderLockIfMatch deletes the lock only when it still belongs to
// the given action, so a failed action cannot release a newer submission's
// lock.
const luaReleaseReorderLockIfMatch = `
local lockKey = KEYS[1]
local actionID = ARGV[1]
if redis.call('GET', lockKey) == actionID then
  return redis.call('DEL', lockKey)
end
return 0
`

// AcquireReorderLock claims the per-chemical in-flight marker. It returns
// false when another reorder submission for the same chemical has not settled
// yet.
func AcquireReorderLock(ctx context.Context, rdb *rd.Client, chemicalID uint, actionID string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, ReorderLockKey(chemicalID), actionID, ttl).Result()
}

// ReleaseReorderLockIfMatch frees the marker after the submission settled,
// value-checked against the owning action id.
func ReleaseReorderLockIfMatch(ctx context.Context, rdb *rd.Client, chemicalID uint, actionID string) error {
	_, err := rdb.Eval(ctx, luaReleaseReorderLockIfMatch, []string{ReorderLockKey(chemicalID)}, actionID).Int()
	return err
}
