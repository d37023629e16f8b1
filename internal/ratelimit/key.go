package ratelimit

import "fmt"

// KeyForDecision builds a limiter key for the resolved scope.
func KeyForDecision(businessID uint64, decision Decision) string {
	if businessID == 0 || decision.Limit <= 0 {
		return ""
	}
	switch decision.Scope {
	case ScopeBusiness:
		return fmt.Sprintf("b:%d", businessID)
	default:
		return ""
	}
}
