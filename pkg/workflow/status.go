package workflow

// Status is the closed set of states a reorderable item can be in.
// The pipeline statuses (pending/ordered/received/cancelled, plus the
// awaiting_info side channel) are driven by buyer actions; the inventory
// statuses (available/low_stock/out_of_stock/expired) are recomputed by the
// server from quantity and expiration and never change through this package.
type Status string

const (
	StatusAvailable  Status = "available"
	StatusLowStock   Status = "low_stock"
	StatusOutOfStock Status = "out_of_stock"
	StatusExpired    Status = "expired"

	StatusPending      Status = "pending"
	StatusOrdered      Status = "ordered"
	StatusReceived     Status = "received"
	StatusCancelled    Status = "cancelled"
	StatusAwaitingInfo Status = "awaiting_info"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusLowStock, StatusOutOfStock, StatusExpired,
		StatusPending, StatusOrdered, StatusReceived, StatusCancelled,
		StatusAwaitingInfo:
		return true
	default:
		return false
	}
}

// IsPipeline reports whether s belongs to the buyer-driven fulfillment
// pipeline rather than the server-computed inventory levels.
func (s Status) IsPipeline() bool {
	switch s {
	case StatusPending, StatusOrdered, StatusReceived, StatusCancelled, StatusAwaitingInfo:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further buyer action can move s.
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// AllowedNext returns the fixed successor set of the pipeline transition
// table. Pure lookup, no side effects. Statuses outside the pipeline (and the
// terminal ones) have no successors.
func AllowedNext(current Status) []Status {
	switch current {
	case StatusPending:
		return []Status{StatusOrdered, StatusCancelled, StatusAwaitingInfo}
	case StatusOrdered:
		return []Status{StatusReceived, StatusCancelled}
	case StatusAwaitingInfo:
		return []Status{StatusPending, StatusCancelled}
	default:
		return nil
	}
}

// CanTransition reports whether the table permits current -> next.
func CanTransition(current, next Status) bool {
	for _, s := range AllowedNext(current) {
		if s == next {
			return true
		}
	}
	return false
}
