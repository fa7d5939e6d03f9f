package events

import "time"

// DeferredSettled is emitted when one secondary data key resolves or fails.
// A failed key degrades its UI region only; the response itself succeeded.
type DeferredSettled struct {
	Key      string
	Failed   bool
	Err      error
	Duration time.Duration
}
