package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labstock/pkg/workflow"
)

func writeData(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": data}))
}

// withMethod emulates the Go 1.22+ "METHOD /path" mux pattern syntax, which
// the Go 1.21 ServeMux does not understand.
func withMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)
	return c, srv
}

// Worked example: pending item 42 + mark-ordered{vendor Acme, expected
// 2024-05-01} ends up ordered with the payload attached, out of
// needing-reorder and into on-order.
func TestReorderChemical_MovesItemToOnOrder(t *testing.T) {
	expected := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var posts atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chemicals/42/reorder", withMethod("POST", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		assert.NotEmpty(t, r.Header.Get("X-Action-ID"))
		writeData(t, w, workflow.Item{
			ID: 42, Status: workflow.StatusOrdered, Vendor: "Acme", ExpectedAt: &expected,
		})
	}))

	c, _ := newTestClient(t, mux)
	c.Cache().LoadList(ListNeedingReorder, []workflow.Item{
		{ID: 42, Status: workflow.StatusPending, Vendor: "Acme"},
	})

	records, err := c.ReorderChemical(context.Background(), 42, &expected, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, workflow.StatusPending, records[0].PreviousStatus)
	assert.Equal(t, workflow.StatusOrdered, records[0].NewStatus)
	assert.Equal(t, int32(1), posts.Load(), "one action, one request")

	got, ok := c.Cache().Get(42)
	require.True(t, ok)
	assert.Equal(t, workflow.StatusOrdered, got.Status)
	assert.Equal(t, "Acme", got.Vendor)
	require.NotNil(t, got.ExpectedAt)
	assert.True(t, got.ExpectedAt.Equal(expected))

	assert.Empty(t, cacheIDs(c.Cache(), ListNeedingReorder))
	assert.Equal(t, []uint{42}, cacheIDs(c.Cache(), ListOnOrder))
}

func TestDeliverChemical_LeavesOnOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chemicals/8/deliver", withMethod("POST", func(w http.ResponseWriter, r *http.Request) {
		writeData(t, w, workflow.Item{ID: 8, Status: workflow.StatusAvailable, Quantity: 10})
	}))

	c, _ := newTestClient(t, mux)
	c.Cache().LoadList(ListOnOrder, []workflow.Item{{ID: 8, Status: workflow.StatusOrdered}})

	records, err := c.DeliverChemical(context.Background(), 8, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, workflow.StatusReceived, records[0].NewStatus)

	assert.Empty(t, cacheIDs(c.Cache(), ListOnOrder))
	got, _ := c.Cache().Get(8)
	assert.Equal(t, workflow.StatusAvailable, got.Status)
	assert.Equal(t, 10, got.Quantity)
}

// An ineligible source status is rejected locally: no request leaves the
// client.
func TestReorderChemical_InvalidTransitionMakesNoCall(t *testing.T) {
	var posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	c, _ := newTestClient(t, mux)
	c.Cache().LoadList(ListOnOrder, []workflow.Item{
		{ID: 5, Status: workflow.StatusOrdered, Vendor: "Acme"},
	})

	_, err := c.ReorderChemical(context.Background(), 5, nil, "")
	var tErr *workflow.InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, uint(5), tErr.ItemID)
	assert.Equal(t, int32(0), posts.Load())
}

// A missing vendor is a validation error before any network traffic.
func TestReorderChemical_MissingVendorMakesNoCall(t *testing.T) {
	var posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	c, _ := newTestClient(t, mux)
	c.Cache().LoadList(ListNeedingReorder, []workflow.Item{
		{ID: 6, Status: workflow.StatusPending}, // no vendor on file
	})

	_, err := c.ReorderChemical(context.Background(), 6, nil, "")
	var vErr *workflow.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "vendor", vErr.Field)
	assert.Equal(t, int32(0), posts.Load())
}

// A failed batch leaves every targeted item untouched: no partial local
// mutation.
func TestOrderRequestItems_ServerFailureLeavesCacheUntouched(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user-requests/7/items/ordered", withMethod("POST", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 500, "msg": "db down"})
	}))

	c, _ := newTestClient(t, mux)
	c.Cache().Upsert(
		workflow.Item{ID: 1, Status: workflow.StatusPending},
		workflow.Item{ID: 2, Status: workflow.StatusPending},
	)

	_, err := c.OrderRequestItems(context.Background(), 7, []uint{1, 2}, workflow.ActionPayload{Vendor: "Acme"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPStatus)
	assert.Equal(t, "db down", apiErr.Message)

	for _, id := range []uint{1, 2} {
		got, ok := c.Cache().Get(id)
		require.True(t, ok)
		assert.Equal(t, workflow.StatusPending, got.Status, "item %d must keep its pre-action status", id)
	}
	assert.Empty(t, cacheIDs(c.Cache(), ListOnOrder))
}

func TestOrderRequestItems_BatchIsOneRequest(t *testing.T) {
	var posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user-requests/3/items/ordered", withMethod("POST", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		var lines []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lines))
		assert.Len(t, lines, 2)
		writeData(t, w, []workflow.Item{
			{ID: 10, Status: workflow.StatusOrdered, Vendor: "Sigma"},
			{ID: 11, Status: workflow.StatusOrdered, Vendor: "Sigma"},
		})
	}))

	c, _ := newTestClient(t, mux)
	c.Cache().Upsert(
		workflow.Item{ID: 10, Status: workflow.StatusPending},
		workflow.Item{ID: 11, Status: workflow.StatusPending},
	)

	records, err := c.OrderRequestItems(context.Background(), 3, []uint{10, 11}, workflow.ActionPayload{Vendor: "Sigma"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(1), posts.Load())
	assert.ElementsMatch(t, []uint{10, 11}, cacheIDs(c.Cache(), ListOnOrder))
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, _ := newTestClient(t, mux)
	_, err := c.FetchNeedingReorder(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestFetchListsLoadCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chemicals/needing-reorder", withMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		writeData(t, w, []workflow.Item{
			{ID: 1, Status: workflow.StatusPending, Vendor: "Acme"},
			{ID: 2, Status: workflow.StatusPending, Vendor: "Sigma"},
		})
	}))

	c, _ := newTestClient(t, mux)
	items, err := c.FetchNeedingReorder(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, []uint{1, 2}, cacheIDs(c.Cache(), ListNeedingReorder))
}
