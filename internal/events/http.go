package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when a storefront page or cart request is received.
// Context carries the request context and request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler completes, including redirects and
// streamed responses (after the last chunk is written).
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}
