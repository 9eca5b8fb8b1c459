package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"labstock/internal/middleware"
	"labstock/internal/model"
	rediskey "labstock/pkg/redis"
)

// login checks credentials and issues the session cookie backed by Redis.
func login(db *gorm.DB, rdb *rd.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		var user model.User
		err := db.Where("username = ?", req.Username).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "unknown user or wrong password"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !user.CheckPassword(req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "unknown user or wrong password"})
			return
		}

		sess := rediskey.Session{
			Token:    uuid.New().String(),
			UserID:   user.ID,
			Username: user.Username,
			IsBuyer:  user.IsBuyer,
		}
		if err := rediskey.PutSession(c.Request.Context(), rdb, sess, ttl); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "session store unavailable"})
			return
		}

		c.SetCookie(middleware.SessionCookie, sess.Token, int(ttl.Seconds()), "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"username": user.Username,
			"is_buyer": user.IsBuyer,
		}})
	}
}

// logout drops the session server-side and expires the cookie.
func logout(rdb *rd.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(middleware.SessionCookie); err == nil && token != "" {
			_ = rediskey.DeleteSession(c.Request.Context(), rdb, token)
		}
		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "logged out"})
	}
}
