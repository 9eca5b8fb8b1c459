package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	rediskey "labstock/pkg/redis"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "labstock_session"

// sessionCtxKey is where the resolved session lands in the gin context.
const sessionCtxKey = "labstock.session"

// RequireSession resolves the session cookie against Redis and aborts with
// 401 when it is missing or expired. The browser client treats any 401 as
// "go back to login".
func RequireSession(rdb *rd.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "login required"})
			return
		}

		sess, found, err := rediskey.GetSession(c.Request.Context(), rdb, token)
		if err != nil {
			logger.Warn("session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "session store unavailable"})
			return
		}
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "session expired"})
			return
		}

		c.Set(sessionCtxKey, sess)
		c.Next()
	}
}

// SessionFrom returns the session resolved by RequireSession.
func SessionFrom(c *gin.Context) (rediskey.Session, bool) {
	v, ok := c.Get(sessionCtxKey)
	if !ok {
		return rediskey.Session{}, false
	}
	sess, ok := v.(rediskey.Session)
	return sess, ok
}

// RequireBuyer gates fulfillment actions to buyer accounts. Must run after
// RequireSession.
func RequireBuyer() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "login required"})
			return
		}
		if !sess.IsBuyer {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": 403, "msg": "buyer role required"})
			return
		}
		c.Next()
	}
}
