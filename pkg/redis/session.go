package redis

import (
	"context"
	"strconv"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// Session is the Redis-backed login state behind the cookie.
type Session struct {
	Token    string
	UserID   uint
	Username string
	IsBuyer  bool
}

// GetSession looks up a session token. found=false means the cookie is stale
// and the caller should answer 401.
func GetSession(ctx context.Context, rdb *rd.Client, token string) (Session, bool, error) {
	key := SessionKey(token)
	m, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return Session{}, false, err
	}
	if len(m) == 0 {
		return Session{}, false, nil
	}

	userID, err := strconv.ParseUint(m["user_id"], 10, 32)
	if err != nil {
		return Session{}, false, err
	}
	return Session{
		Token:    token,
		UserID:   uint(userID),
		Username: m["username"],
		IsBuyer:  m["is_buyer"] == "1",
	}, true, nil
}

// PutSession stores the session hash and refreshes its TTL.
func PutSession(ctx context.Context, rdb *rd.Client, s Session, ttl time.Duration) error {
	key := SessionKey(s.Token)
	isBuyer := "0"
	if s.IsBuyer {
		isBuyer = "1"
	}
	pipe := rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"user_id", strconv.FormatUint(uint64(s.UserID), 10),
		"username", s.Username,
		"is_buyer", isBuyer,
	)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteSession drops the session on logout.
func DeleteSession(ctx context.Context, rdb *rd.Client, token string) error {
	return rdb.Del(ctx, SessionKey(token)).Err()
}
