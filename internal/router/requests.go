package router

import (
	"errors"
	"fmt"
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

// createUserRequest opens a requisition; every line item starts pending.
func createUserRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title string `json:"title" binding:"required"`
			Notes string `json:"notes"`
			Items []struct {
				PartNumber  string `json:"part_number"`
				Description string `json:"description" binding:"required"`
				Quantity    int    `json:"quantity" binding:"required,min=1"`
				Unit        string `json:"unit"`
			} `json:"items" binding:"required,min=1,dive"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		ur := &model.UserRequest{
			RequesterID: sess.UserID,
			Title:       req.Title,
			Notes:       req.Notes,
		}
		for _, it := range req.Items {
			unit := it.Unit
			if unit == "" {
				unit = "ea"
			}
			ur.Items = append(ur.Items, model.RequestItem{
				PartNumber:  it.PartNumber,
				Description: it.Description,
				Quantity:    it.Quantity,
				Unit:        unit,
				Status:      workflow.StatusPending,
			})
		}

		if err := db.Create(ur).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": ur})
	}
}

// getUserRequest returns a requisition with its line items.
func getUserRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var ur model.UserRequest
		if err := db.Preload("Items").First(&ur, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "user request not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": ur})
	}
}

// orderedLine is one element of the batched items/ordered body.
type orderedLine struct {
	ItemID           uint       `json:"item_id" binding:"required"`
	Vendor           string     `json:"vendor" binding:"required"`
	TrackingNumber   string     `json:"tracking_number"`
	ExpectedDelivery *time.Time `json:"expected_delivery_date"`
	UnitCost         string     `json:"unit_cost"`
	OrderNotes       string     `json:"order_notes"`
}

// orderRequestItems marks the listed pending line items ordered in one shot.
// Validation is all-or-nothing: one ineligible line rejects the whole batch
// with nothing written.
func orderRequestItems(db *gorm.DB, rdb *rd.Client, outbox *queue.Outbox, cfg config.AppConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := paramID(c)
		if !ok {
			return
		}
		var lines []orderedLine
		if err := c.ShouldBindJSON(&lines); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if len(lines) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "at least one line item is required"})
			return
		}

		ids := make([]uint, 0, len(lines))
		costs := make(map[uint]decimal.Decimal, len(lines))
		for _, ln := range lines {
			ids = append(ids, ln.ItemID)
			if ln.UnitCost == "" {
				continue
			}
			cost, err := decimal.NewFromString(ln.UnitCost)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": fmt.Sprintf("invalid unit_cost for item %d", ln.ItemID)})
				return
			}
			costs[ln.ItemID] = cost
		}

		items, ok := loadRequestItems(c, db, requestID, ids)
		if !ok {
			return
		}

		// Validate every line before mutating anything.
		records := make([]workflow.TransitionRecord, 0, len(lines))
		for _, ln := range lines {
			item := items[ln.ItemID]
			action := workflow.FulfillmentAction{
				Kind:    workflow.ActionMarkOrdered,
				ItemIDs: []uint{ln.ItemID},
				Payload: workflow.ActionPayload{
					Vendor:           ln.Vendor,
					TrackingNumber:   ln.TrackingNumber,
					ExpectedDelivery: ln.ExpectedDelivery,
					UnitCost:         costs[ln.ItemID],
					Notes:            ln.OrderNotes,
				},
			}
			recs, ok := planOrReject(c, action, map[uint]workflow.Item{ln.ItemID: item.WorkflowItem()})
			if !ok {
				return
			}
			records = append(records, recs...)
		}

		actionID := c.GetHeader("X-Action-ID")
		if actionID == "" {
			actionID = uuid.New().String()
		}
		ctx := c.Request.Context()
		claimed, err := rediskey.MarkActionOnce(ctx, rdb, actionID, cfg.ActionOnceTTL)
		if err != nil {
			logger.Warn("action once-guard unavailable, proceeding unguarded", zap.Error(err))
		} else if !claimed {
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "duplicate submission, action already executed"})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			for _, ln := range lines {
				item := items[ln.ItemID]
				item.Status = workflow.StatusOrdered
				item.Vendor = ln.Vendor
				item.TrackingNumber = ln.TrackingNumber
				item.ExpectedDelivery = ln.ExpectedDelivery
				item.UnitCost = costs[ln.ItemID]
				item.OrderNotes = ln.OrderNotes
				if err := tx.Save(item).Error; err != nil {
					return err
				}
				order := &model.ProcurementOrder{
					OrderNo:          "PO-" + uuid.NewString()[:12],
					ActionID:         actionID,
					TargetKind:       model.TargetRequestItem,
					TargetID:         item.ID,
					PlacedBy:         sess.UserID,
					Vendor:           ln.Vendor,
					Quantity:         item.Quantity,
					UnitCost:         costs[ln.ItemID],
					TrackingNumber:   ln.TrackingNumber,
					ExpectedDelivery: ln.ExpectedDelivery,
					Notes:            ln.OrderNotes,
				}
				if err := tx.Create(order).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			_ = rediskey.ReleaseActionOnce(ctx, rdb, actionID)
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		for _, rec := range records {
			item := items[rec.ItemID]
			outbox.Append(ctx, transitionEvent(model.TargetRequestItem, rec, sess.UserID, item.Vendor, item.Quantity))
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": projectRequestItems(items, ids)})
	}
}

// receiveRequestItems marks the listed ordered line items received. Body is a
// bare array of item ids; the received quantity is the requested quantity.
func receiveRequestItems(db *gorm.DB, outbox *queue.Outbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := paramID(c)
		if !ok {
			return
		}
		var ids []uint
		if err := c.ShouldBindJSON(&ids); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if len(ids) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "at least one item id is required"})
			return
		}

		items, ok := loadRequestItems(c, db, requestID, ids)
		if !ok {
			return
		}

		records := make([]workflow.TransitionRecord, 0, len(ids))
		for _, id := range ids {
			item := items[id]
			action := workflow.FulfillmentAction{
				Kind:    workflow.ActionMarkDelivered,
				ItemIDs: []uint{id},
				Payload: workflow.ActionPayload{ReceivedQuantity: item.Quantity},
			}
			recs, ok := planOrReject(c, action, map[uint]workflow.Item{id: item.WorkflowItem()})
			if !ok {
				return
			}
			records = append(records, recs...)
		}

		now := time.Now()
		err := db.Transaction(func(tx *gorm.DB) error {
			for _, id := range ids {
				item := items[id]
				item.Status = workflow.StatusReceived
				item.ReceivedQuantity = item.Quantity
				item.ReceivedAt = &now
				if err := tx.Save(item).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		for _, rec := range records {
			item := items[rec.ItemID]
			outbox.Append(c.Request.Context(), transitionEvent(model.TargetRequestItem, rec, sess.UserID, item.Vendor, item.ReceivedQuantity))
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": projectRequestItems(items, ids)})
	}
}

// cancelRequestItems cancels the listed line items (terminal).
func cancelRequestItems(db *gorm.DB, outbox *queue.Outbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			ItemIDs []uint `json:"item_ids" binding:"required,min=1"`
			Notes   string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		items, ok := loadRequestItems(c, db, requestID, req.ItemIDs)
		if !ok {
			return
		}

		action := workflow.FulfillmentAction{
			Kind:    workflow.ActionMarkCancelled,
			ItemIDs: req.ItemIDs,
			Payload: workflow.ActionPayload{Notes: req.Notes},
		}
		records, ok := planOrReject(c, action, projectSnapshot(items))
		if !ok {
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			for _, id := range req.ItemIDs {
				item := items[id]
				item.Status = workflow.StatusCancelled
				if req.Notes != "" {
					item.OrderNotes = req.Notes
				}
				if err := tx.Save(item).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		for _, rec := range records {
			item := items[rec.ItemID]
			outbox.Append(c.Request.Context(), transitionEvent(model.TargetRequestItem, rec, sess.UserID, item.Vendor, 0))
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": projectRequestItems(items, req.ItemIDs)})
	}
}

// requestItemInfo parks pending line items on the awaiting_info side channel
// with the buyer's question.
func requestItemInfo(db *gorm.DB, outbox *queue.Outbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			ItemIDs  []uint `json:"item_ids" binding:"required,min=1"`
			Question string `json:"question" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		items, ok := loadRequestItems(c, db, requestID, req.ItemIDs)
		if !ok {
			return
		}

		action := workflow.FulfillmentAction{
			Kind:    workflow.ActionRequestInfo,
			ItemIDs: req.ItemIDs,
			Payload: workflow.ActionPayload{Question: req.Question},
		}
		records, ok := planOrReject(c, action, projectSnapshot(items))
		if !ok {
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			for _, id := range req.ItemIDs {
				item := items[id]
				item.Status = workflow.StatusAwaitingInfo
				item.NeedsInfo = true
				item.Question = req.Question
				item.Answer = ""
				if err := tx.Save(item).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		for _, rec := range records {
			item := items[rec.ItemID]
			outbox.Append(c.Request.Context(), transitionEvent(model.TargetRequestItem, rec, sess.UserID, item.Vendor, 0))
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": projectRequestItems(items, req.ItemIDs)})
	}
}

// answerRequestItems lets the requester answer an info request, returning the
// items to pending. Not buyer-gated: the requester owns this step.
func answerRequestItems(db *gorm.DB, outbox *queue.Outbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			ItemIDs []uint `json:"item_ids" binding:"required,min=1"`
			Answer  string `json:"answer" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		items, ok := loadRequestItems(c, db, requestID, req.ItemIDs)
		if !ok {
			return
		}

		action := workflow.FulfillmentAction{
			Kind:    workflow.ActionProvideInfo,
			ItemIDs: req.ItemIDs,
			Payload: workflow.ActionPayload{Notes: req.Answer},
		}
		records, ok := planOrReject(c, action, projectSnapshot(items))
		if !ok {
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			for _, id := range req.ItemIDs {
				item := items[id]
				item.Status = workflow.StatusPending
				item.NeedsInfo = false
				item.Answer = req.Answer
				if err := tx.Save(item).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		sess, _ := middleware.SessionFrom(c)
		for _, rec := range records {
			item := items[rec.ItemID]
			outbox.Append(c.Request.Context(), transitionEvent(model.TargetRequestItem, rec, sess.UserID, item.Vendor, 0))
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": projectRequestItems(items, req.ItemIDs)})
	}
}

// loadRequestItems fetches the targeted line items of one requisition and
// answers 404 if the request or any id is missing. ok=false means the
// response was written.
func loadRequestItems(c *gin.Context, db *gorm.DB, requestID uint, ids []uint) (map[uint]*model.RequestItem, bool) {
	var count int64
	if err := db.Model(&model.UserRequest{}).Where("id = ?", requestID).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
		return nil, false
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "user request not found"})
		return nil, false
	}

	var rows []model.RequestItem
	if err := db.Where("request_id = ? AND id IN ?", requestID, ids).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
		return nil, false
	}

	items := make(map[uint]*model.RequestItem, len(rows))
	for i := range rows {
		items[rows[i].ID] = &rows[i]
	}
	for _, id := range ids {
		if _, found := items[id]; !found {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": fmt.Sprintf("item %d not found in request %d", id, requestID)})
			return nil, false
		}
	}
	return items, true
}

func projectSnapshot(items map[uint]*model.RequestItem) map[uint]workflow.Item {
	out := make(map[uint]workflow.Item, len(items))
	for id, item := range items {
		out[id] = item.WorkflowItem()
	}
	return out
}

func projectRequestItems(items map[uint]*model.RequestItem, ids []uint) []workflow.Item {
	out := make([]workflow.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, items[id].WorkflowItem())
	}
	return out
}
