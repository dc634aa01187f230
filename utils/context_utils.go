package utils

import "golang.org/x/net/context"

// CheckContextDone checks if the provided context has indicated it has concluded.
// Returns true if the context is done, false otherwise.
func CheckContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
