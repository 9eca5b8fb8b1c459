package client

import (
	"sync"
	"time"

	"labstock/pkg/workflow"
)

// ListKind names the list projections the client keeps in sync.
type ListKind string

const (
	ListInventory      ListKind = "inventory"
	ListNeedingReorder ListKind = "needing_reorder"
	ListOnOrder        ListKind = "on_order"
	ListExpiringSoon   ListKind = "expiring_soon"
)

// Cache holds the client's read-mostly projection of server state: one
// canonical item map plus per-list membership. The synchronizer is the single
// writer; readers go through Items/Get. One lock span covers a whole
// reconciliation, so readers never observe an item in two mutually exclusive
// lists after a completed transition.
type Cache struct {
	mu    sync.RWMutex
	items map[uint]workflow.Item
	lists map[ListKind][]uint

	expiringWindow time.Duration
	now            func() time.Time
}

// DefaultExpiringWindow mirrors the server's expiring-soon horizon.
const DefaultExpiringWindow = 30 * 24 * time.Hour

// NewCache returns an empty cache with the given expiring-soon horizon.
// window <= 0 selects DefaultExpiringWindow.
func NewCache(window time.Duration) *Cache {
	if window <= 0 {
		window = DefaultExpiringWindow
	}
	return &Cache{
		items:          make(map[uint]workflow.Item),
		lists:          make(map[ListKind][]uint),
		expiringWindow: window,
		now:            time.Now,
	}
}

// LoadList replaces one list projection with freshly fetched items and
// upserts them into the canonical map.
func (c *Cache) LoadList(kind ListKind, items []workflow.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		c.items[it.ID] = it
		ids = append(ids, it.ID)
	}
	c.lists[kind] = ids
}

// Get returns the cached snapshot of one item.
func (c *Cache) Get(id uint) (workflow.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	return it, ok
}

// Snapshot returns copies of the cached items with the given ids, keyed by
// id, for action planning. Missing ids are simply absent from the result.
func (c *Cache) Snapshot(ids []uint) map[uint]workflow.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint]workflow.Item, len(ids))
	for _, id := range ids {
		if it, ok := c.items[id]; ok {
			out[id] = it
		}
	}
	return out
}

// Items returns the current members of one list, in list order.
func (c *Cache) Items(kind ListKind) []workflow.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]workflow.Item, 0, len(c.lists[kind]))
	for _, id := range c.lists[kind] {
		if it, ok := c.items[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Reconcile applies acknowledged transition records to the cache. updated
// carries the authoritative items from the server response keyed by id; when
// an item is missing there, the record is replayed onto the cached snapshot
// instead. List membership is then recomputed for every affected item:
// removed where the new status no longer qualifies, appended where it now
// does (append rather than refetch, trading minor staleness for
// responsiveness). The whole reconciliation happens under one lock.
func (c *Cache) Reconcile(records []workflow.TransitionRecord, updated map[uint]workflow.Item) {
	if len(records) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range records {
		if it, ok := updated[rec.ItemID]; ok {
			c.items[rec.ItemID] = it
			continue
		}
		base, ok := c.items[rec.ItemID]
		if !ok {
			// Never fetched locally; build the minimal projection from the
			// record so list membership still comes out right.
			base = workflow.Item{ID: rec.ItemID, Status: rec.PreviousStatus}
		}
		c.items[rec.ItemID] = workflow.ApplyRecord(base, rec)
	}

	for _, rec := range records {
		c.reindex(rec.ItemID)
	}
}

// Upsert replaces single items (e.g. from a detail fetch) and reindexes them.
func (c *Cache) Upsert(items ...workflow.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.items[it.ID] = it
		c.reindex(it.ID)
	}
}

func (c *Cache) reindex(id uint) {
	it := c.items[id]
	for _, kind := range []ListKind{ListInventory, ListNeedingReorder, ListOnOrder, ListExpiringSoon} {
		if c.qualifies(kind, it) {
			c.appendIfMissing(kind, id)
		} else {
			c.remove(kind, id)
		}
	}
}

// qualifies is the membership predicate per list. Inventory keeps everything
// that is not archived out of sight (received items fold back into stock,
// cancelled ones drop off).
func (c *Cache) qualifies(kind ListKind, it workflow.Item) bool {
	switch kind {
	case ListInventory:
		return it.Status != workflow.StatusCancelled
	case ListNeedingReorder:
		return it.Status == workflow.StatusPending || it.Status == workflow.StatusAwaitingInfo
	case ListOnOrder:
		return it.Status == workflow.StatusOrdered
	case ListExpiringSoon:
		if it.ExpiresAt == nil || it.Status.IsTerminal() {
			return false
		}
		return it.ExpiresAt.Before(c.now().Add(c.expiringWindow))
	default:
		return false
	}
}

func (c *Cache) appendIfMissing(kind ListKind, id uint) {
	for _, existing := range c.lists[kind] {
		if existing == id {
			return
		}
	}
	c.lists[kind] = append(c.lists[kind], id)
}

func (c *Cache) remove(kind ListKind, id uint) {
	ids := c.lists[kind]
	for i, existing := range ids {
		if existing == id {
			c.lists[kind] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}
