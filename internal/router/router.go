package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"labstock/internal/config"
	"labstock/internal/middleware"
	"labstock/internal/queue"
)

// Setup registers all HTTP routes. Everything under /api except login
// requires a session cookie; fulfillment actions additionally require the
// buyer role and pass the rate limiter.
func Setup(r *gin.Engine, db *gorm.DB, rdb *rd.Client, outbox *queue.Outbox, cfg config.AppConfig, logger *zap.Logger) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	r.POST("/api/login", login(db, rdb, cfg.SessionTTL))

	auth := r.Group("/api", middleware.RequireSession(rdb, logger))
	auth.POST("/logout", logout(rdb))

	// Chemicals
	auth.GET("/chemicals", listChemicals(db))
	auth.POST("/chemicals", createChemical(db))
	auth.GET("/chemicals/needing-reorder", listNeedingReorder(db))
	auth.GET("/chemicals/on-order", listOnOrder(db))
	auth.GET("/chemicals/expiring-soon", listExpiringSoon(db, cfg.ExpiringSoonWindow))

	// User requests
	auth.POST("/user-requests", createUserRequest(db))
	auth.GET("/user-requests/:id", getUserRequest(db))
	auth.POST("/user-requests/:id/items/answered", answerRequestItems(db, outbox))

	// Procurement orders
	auth.GET("/orders", listOrders(db))

	// Fulfillment actions: buyer only, rate limited.
	buyer := auth.Group("",
		middleware.RequireBuyer(),
		middleware.RedisRateLimit(rdb, cfg.ActionRateLimit, cfg.ActionRateWin, logger),
	)
	buyer.POST("/chemicals/:id/reorder", reorderChemical(db, rdb, outbox, cfg, logger))
	buyer.POST("/chemicals/:id/deliver", deliverChemical(db, outbox))
	buyer.POST("/chemicals/:id/cancel", cancelChemicalReorder(db, outbox))
	buyer.POST("/chemicals/:id/flag", flagChemicalForReorder(db, outbox))
	buyer.POST("/user-requests/:id/items/ordered", orderRequestItems(db, rdb, outbox, cfg, logger))
	buyer.POST("/user-requests/:id/items/received", receiveRequestItems(db, outbox))
	buyer.POST("/user-requests/:id/items/cancelled", cancelRequestItems(db, outbox))
	buyer.POST("/user-requests/:id/items/info", requestItemInfo(db, outbox))
}

// paramID parses the :id route parameter. ok=false means the handler already
// answered 400.
func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
