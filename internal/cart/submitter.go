package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calicocommerce/storefront/internal/eventbus"
	"github.com/calicocommerce/storefront/internal/events"
)

// ErrSubmissionInFlight is returned when a submission with the same intent
// token has not settled yet. The triggering control should report itself
// disabled until it does.
var ErrSubmissionInFlight = errors.New("cart: submission already in flight")

// MutationError wraps a cart-service rejection or transport failure. The
// intent's in-flight state has already been reset, so the caller may retry.
type MutationError struct {
	Intent string
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("cart mutation %s failed: %v", e.Intent, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// NewIntent mints a token identifying one logical user action, e.g. one
// add-to-cart control. Distinct intents never block each other.
func NewIntent() string { return uuid.NewString() }

// Submitter dispatches lines-add mutations with per-intent suppression:
// while a submission for an intent is in flight, repeated submissions for
// the same intent are rejected with ErrSubmissionInFlight, then allowed
// again once the first settles. Suppression is scoped to the intent token,
// never global, so concurrent distinct mutations proceed independently.
type Submitter struct {
	svc Service

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewSubmitter creates a Submitter backed by the given cart service.
func NewSubmitter(svc Service) *Submitter {
	return &Submitter{svc: svc, inFlight: make(map[string]struct{})}
}

// InFlight reports whether a submission for intent is pending. The view
// layer uses this for the disabled-control contract.
func (s *Submitter) InFlight(intent string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[intent]
	return ok
}

func (s *Submitter) acquire(intent string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[intent]; ok {
		return false
	}
	s.inFlight[intent] = struct{}{}
	return true
}

func (s *Submitter) release(intent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, intent)
}

// Submit validates lines locally, then dispatches them to the cart service
// under the given intent. Validation failures never reach the service. An
// empty intent gets a fresh token, i.e. no suppression against other calls.
func (s *Submitter) Submit(ctx context.Context, intent string, lines []Line) (*Cart, error) {
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}
	if intent == "" {
		intent = NewIntent()
	}
	if !s.acquire(intent) {
		return nil, ErrSubmissionInFlight
	}
	defer s.release(intent)

	start := time.Now()
	eventbus.Publish(ctx, events.CartMutationStart{Intent: intent, Lines: len(lines)})
	updated, err := s.svc.AddLines(ctx, lines)
	eventbus.Publish(ctx, events.CartMutationFinish{Intent: intent, Lines: len(lines), Err: err, Duration: time.Since(start)})
	if err != nil {
		return nil, &MutationError{Intent: intent, Err: err}
	}
	return updated, nil
}
