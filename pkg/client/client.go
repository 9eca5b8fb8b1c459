package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/google/uuid"

	"labstock/pkg/workflow"
)

// Client talks to the labstock backend. Every fulfillment action maps to
// exactly one request, batched item ids included; nothing is written to the
// local cache until the server acknowledges. Failed requests are not retried:
// mark-ordered is not idempotent on the wire and a silent retry could place a
// duplicate procurement order.
type Client struct {
	baseURL string
	hc      *http.Client
	cache   *Cache
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default 10s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

// WithCache substitutes a pre-built cache (e.g. with a custom expiring
// window).
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// New builds a client for the given base URL. The underlying http.Client
// carries a cookie jar for the session cookie issued by Login.
func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 10 * time.Second, Jar: jar},
		cache:   NewCache(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Cache exposes the list projections for rendering.
func (c *Client) Cache() *Cache { return c.cache }

// envelope is the backend's uniform JSON wrapper.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Login opens a cookie-backed session. All other calls 401 without one.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	_, err := c.post(ctx, "/api/login", body)
	return err
}

// FetchInventory loads the main inventory list into the cache.
func (c *Client) FetchInventory(ctx context.Context) ([]workflow.Item, error) {
	return c.fetchList(ctx, "/api/chemicals", ListInventory)
}

// FetchNeedingReorder loads the needing-reorder list into the cache.
func (c *Client) FetchNeedingReorder(ctx context.Context) ([]workflow.Item, error) {
	return c.fetchList(ctx, "/api/chemicals/needing-reorder", ListNeedingReorder)
}

// FetchOnOrder loads the on-order list into the cache.
func (c *Client) FetchOnOrder(ctx context.Context) ([]workflow.Item, error) {
	return c.fetchList(ctx, "/api/chemicals/on-order", ListOnOrder)
}

// FetchExpiringSoon loads the expiring-soon list into the cache.
func (c *Client) FetchExpiringSoon(ctx context.Context) ([]workflow.Item, error) {
	return c.fetchList(ctx, "/api/chemicals/expiring-soon", ListExpiringSoon)
}

// FetchUserRequest loads one requisition and seeds the cache with its line
// items so actions against them can be planned.
func (c *Client) FetchUserRequest(ctx context.Context, requestID uint) ([]workflow.Item, error) {
	data, err := c.get(ctx, fmt.Sprintf("/api/user-requests/%d", requestID))
	if err != nil {
		return nil, err
	}
	var ur struct {
		Items []workflow.Item `json:"items"`
	}
	if err := json.Unmarshal(data, &ur); err != nil {
		return nil, fmt.Errorf("decode user request %d: %w", requestID, err)
	}
	c.cache.Upsert(ur.Items...)
	return ur.Items, nil
}

func (c *Client) fetchList(ctx context.Context, path string, kind ListKind) ([]workflow.Item, error) {
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var items []workflow.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	c.cache.LoadList(kind, items)
	return items, nil
}

// ReorderChemical marks one pending chemical ordered. The vendor on the
// procurement order is the chemical's own vendor, so the cached item must
// carry one.
func (c *Client) ReorderChemical(ctx context.Context, id uint, expected *time.Time, notes string) ([]workflow.TransitionRecord, error) {
	payload := workflow.ActionPayload{ExpectedDelivery: expected, Notes: notes}
	if it, ok := c.cache.Get(id); ok {
		payload.Vendor = it.Vendor
	}
	action := workflow.FulfillmentAction{Kind: workflow.ActionMarkOrdered, ItemIDs: []uint{id}, Payload: payload}
	body := map[string]any{"expected_delivery_date": expected, "notes": notes}
	return c.execute(ctx, action, fmt.Sprintf("/api/chemicals/%d/reorder", id), body)
}

// DeliverChemical records receipt of an ordered chemical.
func (c *Client) DeliverChemical(ctx context.Context, id uint, receivedQuantity int) ([]workflow.TransitionRecord, error) {
	action := workflow.FulfillmentAction{
		Kind:    workflow.ActionMarkDelivered,
		ItemIDs: []uint{id},
		Payload: workflow.ActionPayload{ReceivedQuantity: receivedQuantity},
	}
	body := map[string]any{"received_quantity": receivedQuantity}
	return c.execute(ctx, action, fmt.Sprintf("/api/chemicals/%d/deliver", id), body)
}

// CancelChemicalReorder aborts a pending or ordered chemical reorder.
func (c *Client) CancelChemicalReorder(ctx context.Context, id uint, notes string) ([]workflow.TransitionRecord, error) {
	action := workflow.FulfillmentAction{
		Kind:    workflow.ActionMarkCancelled,
		ItemIDs: []uint{id},
		Payload: workflow.ActionPayload{Notes: notes},
	}
	body := map[string]any{"notes": notes}
	return c.execute(ctx, action, fmt.Sprintf("/api/chemicals/%d/cancel", id), body)
}

// orderedLine is one element of the batched items/ordered request body.
type orderedLine struct {
	ItemID           uint       `json:"item_id"`
	Vendor           string     `json:"vendor"`
	TrackingNumber   string     `json:"tracking_number,omitempty"`
	ExpectedDelivery *time.Time `json:"expected_delivery_date,omitempty"`
	UnitCost         string     `json:"unit_cost,omitempty"`
	OrderNotes       string     `json:"order_notes,omitempty"`
}

// OrderRequestItems marks the listed pending line items of a user request
// ordered, in one batched call.
func (c *Client) OrderRequestItems(ctx context.Context, requestID uint, itemIDs []uint, payload workflow.ActionPayload) ([]workflow.TransitionRecord, error) {
	action := workflow.FulfillmentAction{Kind: workflow.ActionMarkOrdered, ItemIDs: itemIDs, Payload: payload}
	lines := make([]orderedLine, 0, len(itemIDs))
	for _, id := range itemIDs {
		line := orderedLine{
			ItemID:           id,
			Vendor:           payload.Vendor,
			TrackingNumber:   payload.TrackingNumber,
			ExpectedDelivery: payload.ExpectedDelivery,
			OrderNotes:       payload.Notes,
		}
		if !payload.UnitCost.IsZero() {
			line.UnitCost = payload.UnitCost.String()
		}
		lines = append(lines, line)
	}
	return c.execute(ctx, action, fmt.Sprintf("/api/user-requests/%d/items/ordered", requestID), lines)
}

// ReceiveRequestItems marks the listed ordered line items received. The wire
// body is the bare id array; the server receives each item at its requested
// quantity, so the local payload mirrors that from the cached snapshots.
func (c *Client) ReceiveRequestItems(ctx context.Context, requestID uint, itemIDs []uint) ([]workflow.TransitionRecord, error) {
	received := 0
	for _, it := range c.cache.Snapshot(itemIDs) {
		received += it.Quantity
	}
	if received <= 0 {
		received = len(itemIDs)
	}
	action := workflow.FulfillmentAction{
		Kind:    workflow.ActionMarkDelivered,
		ItemIDs: itemIDs,
		Payload: workflow.ActionPayload{ReceivedQuantity: received},
	}
	return c.execute(ctx, action, fmt.Sprintf("/api/user-requests/%d/items/received", requestID), itemIDs)
}

// CancelRequestItems cancels the listed line items.
func (c *Client) CancelRequestItems(ctx context.Context, requestID uint, itemIDs []uint, notes string) ([]workflow.TransitionRecord, error) {
	action := workflow.FulfillmentAction{
		Kind:    workflow.ActionMarkCancelled,
		ItemIDs: itemIDs,
		Payload: workflow.ActionPayload{Notes: notes},
	}
	body := map[string]any{"item_ids": itemIDs, "notes": notes}
	return c.execute(ctx, action, fmt.Sprintf("/api/user-requests/%d/items/cancelled", requestID), body)
}

// RequestItemInfo parks the listed pending line items until the requester
// answers the buyer's question. Status chain untouched beyond the
// awaiting_info side channel.
func (c *Client) RequestItemInfo(ctx context.Context, requestID uint, itemIDs []uint, question string) ([]workflow.TransitionRecord, error) {
	action := workflow.FulfillmentAction{
		Kind:    workflow.ActionRequestInfo,
		ItemIDs: itemIDs,
		Payload: workflow.ActionPayload{Question: question},
	}
	body := map[string]any{"item_ids": itemIDs, "question": question}
	return c.execute(ctx, action, fmt.Sprintf("/api/user-requests/%d/items/info", requestID), body)
}

// AnswerItemInfo returns awaiting_info line items to pending.
func (c *Client) AnswerItemInfo(ctx context.Context, requestID uint, itemIDs []uint, answer string) ([]workflow.TransitionRecord, error) {
	action := workflow.FulfillmentAction{
		Kind:    workflow.ActionProvideInfo,
		ItemIDs: itemIDs,
		Payload: workflow.ActionPayload{Notes: answer},
	}
	body := map[string]any{"item_ids": itemIDs, "answer": answer}
	return c.execute(ctx, action, fmt.Sprintf("/api/user-requests/%d/items/answered", requestID), body)
}

// execute is the single path every fulfillment action goes through:
// plan against the cached snapshot (validation and transition checks happen
// here, before any network traffic), issue the one request, and only on a
// 2xx reconcile the cache with the acknowledged records plus whatever updated
// items the server returned. Any failure leaves the cache exactly as it was.
func (c *Client) execute(ctx context.Context, action workflow.FulfillmentAction, path string, body any) ([]workflow.TransitionRecord, error) {
	records, err := workflow.Plan(action, c.cache.Snapshot(action.ItemIDs))
	if err != nil {
		return nil, err
	}

	// One id per submission: the server's once-guard turns an accidental
	// resend of this exact request into a 409 instead of a second order.
	data, err := c.postAction(ctx, path, body, uuid.New().String())
	if err != nil {
		return nil, err
	}

	updated := decodeUpdatedItems(data)
	c.cache.Reconcile(records, updated)
	return records, nil
}

// decodeUpdatedItems accepts either a single item or an item array as the
// response data; the chemical endpoints return one item, the batched
// user-request endpoints return a list. A payload that is neither is treated
// as no authoritative items (the records alone still reconcile the cache).
func decodeUpdatedItems(data json.RawMessage) map[uint]workflow.Item {
	updated := make(map[uint]workflow.Item)
	if len(data) == 0 {
		return updated
	}
	var many []workflow.Item
	if err := json.Unmarshal(data, &many); err == nil {
		for _, it := range many {
			updated[it.ID] = it
		}
		return updated
	}
	var one workflow.Item
	if err := json.Unmarshal(data, &one); err == nil && one.ID != 0 {
		updated[one.ID] = one
	}
	return updated
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.roundTrip(req)
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.postAction(ctx, path, body, "")
}

func (c *Client) postAction(ctx context.Context, path string, body any, actionID string) (json.RawMessage, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actionID != "" {
		req.Header.Set("X-Action-ID", actionID)
	}
	return c.roundTrip(req)
}

func (c *Client) roundTrip(req *http.Request) (json.RawMessage, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthenticated
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", req.URL.Path, err)
	}

	var env envelope
	if len(raw) > 0 {
		// A body that is not the standard envelope still surfaces as an
		// APIError below when the status is non-2xx.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Msg
		if msg == "" {
			msg = string(raw)
		}
		return nil, &APIError{HTTPStatus: resp.StatusCode, Code: env.Code, Message: msg}
	}
	return env.Data, nil
}
