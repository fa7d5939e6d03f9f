// Package cart packages line-item changes into idempotent mutations against
// the external cart service. The core neither caches nor mirrors cart state;
// callers re-fetch the cart after a successful mutation.
package cart

import (
	"context"
	"fmt"
)

// Line is one requested line-item addition. It is ephemeral, built per
// submission.
type Line struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

// LineItem is a line as the cart service reports it back.
type LineItem struct {
	ID            string `json:"id"`
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

// Cart is the updated cart state returned by the service.
type Cart struct {
	ID            string     `json:"id"`
	TotalQuantity int        `json:"totalQuantity"`
	Lines         []LineItem `json:"lines"`
}

// Service is the external cart collaborator. AddLines submits a lines-add
// mutation and returns the updated cart.
type Service interface {
	AddLines(ctx context.Context, lines []Line) (*Cart, error)
}

// InvalidLineItemError rejects a malformed submission before it reaches the
// cart service. Index is -1 when the list as a whole is invalid.
type InvalidLineItemError struct {
	Index  int
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	if e.Index < 0 {
		return "invalid cart lines: " + e.Reason
	}
	return fmt.Sprintf("invalid cart line %d: %s", e.Index, e.Reason)
}

// ValidateLines checks a submission locally. Empty line lists, empty
// merchandise ids, and non-positive quantities are rejected.
func ValidateLines(lines []Line) error {
	if len(lines) == 0 {
		return &InvalidLineItemError{Index: -1, Reason: "no lines"}
	}
	for i, l := range lines {
		if l.MerchandiseID == "" {
			return &InvalidLineItemError{Index: i, Reason: "missing merchandise id"}
		}
		if l.Quantity <= 0 {
			return &InvalidLineItemError{Index: i, Reason: fmt.Sprintf("quantity must be positive, got %d", l.Quantity)}
		}
	}
	return nil
}
