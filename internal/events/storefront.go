package events

import "time"

// StorefrontQueryStart is emitted before a query or mutation is sent to the
// product-data provider.
type StorefrontQueryStart struct {
	Operation string // GraphQL operation name, e.g. "Product"
	Handle    string // product handle when the operation is keyed by one
}

// StorefrontQueryFinish is emitted after the provider call completes.
type StorefrontQueryFinish struct {
	Operation string
	Handle    string
	Err       error
	Duration  time.Duration
}
