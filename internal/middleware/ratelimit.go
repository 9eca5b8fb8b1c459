package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	rediskey "labstock/pkg/redis"
)

// luaRateLimit: Redis sliding-window limiter in one atomic Lua script.
// KEYS[1]=limit key, ARGV[1]=now, ARGV[2]=window start, ARGV[3]=window sec,
// ARGV[4]=member, ARGV[5]=limit. Returns the in-window count, or -1 when the
// request must be rejected.
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)

if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

// RedisRateLimit limits mutating workflow routes per session user (per IP
// before a session is resolved). A Redis outage fails open: the limiter is a
// protection layer, not a correctness dependency.
func RedisRateLimit(rdb *rd.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		if sess, ok := SessionFrom(c); ok {
			key = rediskey.RateLimitUserKey(sess.UserID)
		} else {
			key = rediskey.RateLimitIPKey(c.ClientIP())
		}

		now := time.Now().Unix()
		windowSec := int64(window.Seconds())
		windowStart := now - windowSec
		member := time.Now().Format("20060102150405.000000000")

		res, err := rdb.Eval(c.Request.Context(), luaRateLimit, []string{key},
			now, windowStart, windowSec, member, limit).Int()
		if err != nil {
			logger.Warn("rate limiter unavailable, failing open", zap.Error(err))
			c.Next()
			return
		}

		if res < 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": 429,
				"msg":  "too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}
