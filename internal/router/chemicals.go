package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"labstock/internal/config"
	"labstock/internal/middleware"
	"labstock/internal/model"
	"labstock/internal/queue"
	rediskey "labstock/pkg/redis"
	"labstock/pkg/workflow"
)

// listChemicals returns the main inventory projection.
func listChemicals(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var chems []model.Chemical
		if err := db.Where("status <> ?", workflow.StatusCancelled).Find(&chems).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": projectChemicals(chems)})
	}
}

// listNeedingReorder returns chemicals waiting for a buyer to order them.
func listNeedingReorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var chems []model.Chemical
		err := db.Where("status IN ?", []workflow.Status{workflow.StatusPending, workflow.StatusAwaitingInfo}).
			Find(&chems).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": projectChemicals(chems)})
	}
}

// listOnOrder returns chemicals with an open procurement order.
func listOnOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var chems []model.Chemical
		if err := db.Where("status = ?", workflow.StatusOrdered).Find(&chems).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": projectChemicals(chems)})
	}
}

// listExpiringSoon returns chemicals expiring within the configured horizon.
func listExpiringSoon(db *gorm.DB, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		horizon := time.Now().Add(window)
		var chems []model.Chemical
		err := db.Where("expires_at IS NOT NULL AND expires_at < ?", horizon).
			Where("status NOT IN ?", []workflow.Status{workflow.StatusReceived, workflow.StatusCancelled}).
			Find(&chems).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": projectChemicals(chems)})
	}
}

// createChemical registers a new substance. The stored status is computed,
// never taken from the request.
func createChemical(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name         string     `json:"name" binding:"required"`
			CASNumber    string     `json:"cas_number"`
			Description  string     `json:"description"`
			Quantity     int        `json:"quantity" binding:"min=0"`
			Unit         string     `json:"unit"`
			ReorderLevel int        `json:"reorder_level" binding:"min=0"`
			AutoReorder  bool       `json:"auto_reorder"`
			Vendor       string     `json:"vendor"`
			ExpiresAt    *time.Time `json:"expires_at"`
			UnitCost     string     `json:"unit_cost"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		unitCost := decimal.Zero
		if req.UnitCost != "" {
			parsed, err := decimal.NewFromString(req.UnitCost)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid unit_cost"})
				return
			}
			unitCost = parsed
		}

		unit := req.Unit
		if unit == "" {
			unit = "ea"
		}
		chem := &model.Chemical{
			Name:         req.Name,
			CASNumber:    req.CASNumber,
			Description:  req.Description,
			Quantity:     req.Quantity,
			Unit:         unit,
			ReorderLevel: req.ReorderLevel,
			AutoReorder:  req.AutoReorder,
			Vendor:       req.Vendor,
			ExpiresAt:    req.ExpiresAt,
			UnitCost:     unitCost,
		}
		chem.RefreshStatus(time.Now())

		if err := db.Create(chem).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": chem})
	}
}

// reorderChemical moves one pending chemical to ordered and creates the
// procurement order. The flow:
//  1. transition + payload validation against the current row
//  2. per-chemical in-flight lock (SETNX) so two buyers cannot race
//  3. action-id once-guard so a resubmitted request cannot buy twice
//  4. one DB transaction: status update + procurement order row
//  5. transition event to the outbox
func reorderChemical(db *gorm.DB, rdb *rd.Client, outbox *queue.Outbox, cfg config.AppConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
			Notes                string     `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		chem, ok := loadChemical(c, db, id)
		if !ok {
			return
		}

		action := workflow.FulfillmentAction{
			Kind:    workflow.ActionMarkOrdered,
			ItemIDs: []uint{id},
			Payload: workflow.ActionPayload{
				Vendor:           chem.Vendor,
				ExpectedDelivery: req.ExpectedDeliveryDate,
				UnitCost:         chem.UnitCost,
				Notes:            req.Notes,
			},
		}
		records, ok := planOrReject(c, action, map[uint]workflow.Item{id: chem.WorkflowItem()})
		if !ok {
			return
		}

		actionID := c.GetHeader("X-Action-ID")
		if actionID == "" {
			actionID = uuid.New().String()
		}

		ctx := c.Request.Context()
		locked, err := rediskey.AcquireReorderLock(ctx, rdb, id, actionID, cfg.ReorderLockTTL)
		if err != nil {
			logger.Warn("reorder lock unavailable, proceeding unguarded", zap.Error(err))
		} else if !locked {
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "a reorder for this chemical is already in flight"})
			return
		}

		claimed, err := rediskey.MarkActionOnce(ctx, rdb, actionID, cfg.ActionOnceTTL)
		if err != nil {
			logger.Warn("action once-guard unavailable, proceeding unguarded", zap.Error(err))
		} else if !claimed {
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "duplicate submission, action already executed"})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		order := &model.ProcurementOrder{
			OrderNo:          "PO-" + uuid.NewString()[:12],
			ActionID:         actionID,
			TargetKind:       model.TargetChemical,
			TargetID:         chem.ID,
			PlacedBy:         sess.UserID,
			Vendor:           chem.Vendor,
			Quantity:         reorderQuantity(chem),
			UnitCost:         chem.UnitCost,
			ExpectedDelivery: req.ExpectedDeliveryDate,
			Notes:            req.Notes,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			chem.Status = workflow.StatusOrdered
			chem.ExpectedDelivery = req.ExpectedDeliveryDate
			chem.ReorderNotes = req.Notes
			if err := tx.Save(chem).Error; err != nil {
				return err
			}
			return tx.Create(order).Error
		})
		if err != nil {
			// Free the guards so the user's explicit retry is not treated as
			// a duplicate of this failed attempt.
			_ = rediskey.ReleaseActionOnce(ctx, rdb, actionID)
			_ = rediskey.ReleaseReorderLockIfMatch(ctx, rdb, id, actionID)
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		outbox.Append(ctx, transitionEvent(model.TargetChemical, records[0], sess.UserID, chem.Vendor, order.Quantity))
		_ = rediskey.ReleaseReorderLockIfMatch(ctx, rdb, id, actionID)

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": chem.WorkflowItem()})
	}
}

// deliverChemical records receipt of an ordered chemical: stock goes up and
// the status folds back into the computed inventory level.
func deliverChemical(db *gorm.DB, outbox *queue.Outbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			ReceivedQuantity int `json:"received_quantity" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		chem, ok := loadChemical(c, db, id)
		if !ok {
			return
		}

		action := workflow.FulfillmentAction{
			Kind:    workflow.ActionMarkDelivered,
			ItemIDs: []uint{id},
			Payload: workflow.ActionPayload{ReceivedQuantity: req.ReceivedQuantity},
		}
		records, ok := planOrReject(c, action, map[uint]workflow.Item{id: chem.WorkflowItem()})
		if !ok {
			return
		}

		chem.Quantity += req.ReceivedQuantity
		chem.Status = workflow.StatusReceived
		chem.ExpectedDelivery = nil
		chem.RefreshStatus(time.Now())
		if err := db.Save(chem).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		outbox.Append(c.Request.Context(), transitionEvent(model.TargetChemical, records[0], sess.UserID, chem.Vendor, req.ReceivedQuantity))

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": chem.WorkflowItem()})
	}
}

// cancelChemicalReorder aborts a reorder; the chemical drops back to its
// computed inventory level rather than auto-reentering the pipeline.
func cancelChemicalReorder(db *gorm.DB, outbox *queue.Outbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			Notes string `json:"notes"`
		}
		// Body is optional for cancel.
		_ = c.ShouldBindJSON(&req)

		chem, ok := loadChemical(c, db, id)
		if !ok {
			return
		}

		action := workflow.FulfillmentAction{
			Kind:    workflow.ActionMarkCancelled,
			ItemIDs: []uint{id},
			Payload: workflow.ActionPayload{Notes: req.Notes},
		}
		records, ok := planOrReject(c, action, map[uint]workflow.Item{id: chem.WorkflowItem()})
		if !ok {
			return
		}

		chem.Status = model.InventoryStatus(chem.Quantity, chem.ReorderLevel, chem.ExpiresAt, time.Now())
		chem.ExpectedDelivery = nil
		chem.ReorderNotes = req.Notes
		if err := db.Save(chem).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		outbox.Append(c.Request.Context(), transitionEvent(model.TargetChemical, records[0], sess.UserID, chem.Vendor, 0))

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": chem.WorkflowItem()})
	}
}

// flagChemicalForReorder puts a depleted or expired chemical into the
// pipeline by hand, for stock that is not on auto-reorder.
func flagChemicalForReorder(db *gorm.DB, outbox *queue.Outbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		chem, ok := loadChemical(c, db, id)
		if !ok {
			return
		}
		if !chem.NeedsReorder() {
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "chemical does not need reordering"})
			return
		}

		prev := chem.Status
		chem.Status = workflow.StatusPending
		if err := db.Save(chem).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		outbox.Append(c.Request.Context(), transitionEvent(model.TargetChemical, workflow.TransitionRecord{
			ItemID:         chem.ID,
			PreviousStatus: prev,
			NewStatus:      workflow.StatusPending,
		}, sess.UserID, chem.Vendor, 0))

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": chem.WorkflowItem()})
	}
}

func loadChemical(c *gin.Context, db *gorm.DB, id uint) (*model.Chemical, bool) {
	var chem model.Chemical
	if err := db.First(&chem, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "chemical not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
		return nil, false
	}
	return &chem, true
}

// reorderQuantity is how much a reorder buys: enough to clear the reorder
// level, at least one unit.
func reorderQuantity(chem *model.Chemical) int {
	n := chem.ReorderLevel - chem.Quantity + 1
	if n < 1 {
		n = 1
	}
	return n
}

func projectChemicals(chems []model.Chemical) []workflow.Item {
	items := make([]workflow.Item, 0, len(chems))
	for i := range chems {
		items = append(items, chems[i].WorkflowItem())
	}
	return items
}
