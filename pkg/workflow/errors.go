package workflow

import "fmt"

// ValidationError reports a malformed action: a required payload field is
// missing or out of range. It is raised before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid action: %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports that a target item's current status is not
// in the action's accepted source set. It is raised before any network call.
type InvalidTransitionError struct {
	ItemID  uint
	Current Status
	Action  ActionKind
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: item %d is %q, %s not allowed", e.ItemID, e.Current, e.Action)
}
