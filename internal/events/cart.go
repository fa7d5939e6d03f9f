package events

import "time"

// CartMutationStart is emitted before a lines-add mutation is dispatched to
// the cart service. Intent identifies the logical user action.
type CartMutationStart struct {
	Intent string
	Lines  int
}

// CartMutationFinish is emitted after the cart service responds or errors.
type CartMutationFinish struct {
	Intent   string
	Lines    int
	Err      error
	Duration time.Duration
}
