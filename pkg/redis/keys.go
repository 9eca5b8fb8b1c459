package redis

import "fmt"

// SessionKey stores one login session hash.
func SessionKey(token string) string {
	return fmt.Sprintf("labstock:session:%s", token)
}

// ActionOnceKey marks a client action id (idempotency key) as already
// executed, so a resubmitted mark-ordered cannot place a second procurement
// order.
func ActionOnceKey(actionID string) string {
	return fmt.Sprintf("labstock:action:once:%s", actionID)
}

// ReorderLockKey marks a chemical as having a reorder submission in flight.
func ReorderLockKey(chemicalID uint) string {
	return fmt.Sprintf("labstock:reorder:lock:%d", chemicalID)
}

// RateLimitUserKey scopes the sliding-window limiter to one session user.
func RateLimitUserKey(userID uint) string {
	return fmt.Sprintf("labstock:rate_limit:user:%d", userID)
}

// RateLimitIPKey is the limiter fallback for unidentified callers.
func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("labstock:rate_limit:ip:%s", ip)
}
