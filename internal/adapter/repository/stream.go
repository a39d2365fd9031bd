package repository

import "context"

// sendLatest hands v to the single reader of out, replacing a value the
// reader has not picked up yet. Only one goroutine may send on out.
func sendLatest[T any](ctx context.Context, out chan T, v T) bool {
	select {
	case <-out:
	default:
	}
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
