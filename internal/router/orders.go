package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"labstock/internal/model"
)

// listOrders returns procurement orders, newest first. Optional ?target_kind
// filters to chemical or request_item orders.
func listOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Order("created_at DESC")
		if kind := c.Query("target_kind"); kind != "" {
			if kind != model.TargetChemical && kind != model.TargetRequestItem {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "unknown target_kind"})
				return
			}
			q = q.Where("target_kind = ?", kind)
		}

		var orders []model.ProcurementOrder
		if err := q.Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": orders})
	}
}
