// Package resolve decides what a product navigation becomes: a served page
// with a concrete variant, a redirect to the canonical variant URL, or a
// terminal not-found. The decision is returned as a tagged Outcome; the
// navigation boundary switches on it. No redirect ever happens through
// error control flow.
package resolve

import (
	"context"
	"errors"
	"net/url"

	"github.com/calicocommerce/storefront/internal/catalog"
	"github.com/calicocommerce/storefront/internal/storefront"
)

// OutcomeKind is the terminal state of one page resolution.
type OutcomeKind int

const (
	// Served: render the page with Outcome.Product and Outcome.Variant.
	Served OutcomeKind = iota
	// Redirected: issue a 302 to Outcome.Location, no page body.
	Redirected
	// NotFound: the handle does not exist upstream; terminal 404.
	NotFound
)

func (k OutcomeKind) String() string {
	switch k {
	case Served:
		return "served"
	case Redirected:
		return "redirected"
	case NotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// PageRequest carries the navigation inputs: the request path, the product
// handle, and the raw query parameters (tracking params included; the
// controller normalizes them itself).
type PageRequest struct {
	Pathname string
	Handle   string
	Query    url.Values
}

// Outcome is the controller's terminal result for one request.
type Outcome struct {
	Kind OutcomeKind

	// Served fields. Variant may be nil for a product with zero variants,
	// which the view renders as unavailable.
	Product   *catalog.Product
	Variant   *catalog.Variant
	Selection catalog.SelectedOptionSet

	// Redirected field.
	Location string
}

// Controller orchestrates the normalizer, the provider's critical query,
// the matcher, and the canonical URL builder.
type Controller struct {
	provider storefront.API
}

// NewController creates a Controller over the product-data provider.
func NewController(provider storefront.API) *Controller {
	return &Controller{provider: provider}
}

// Resolve runs the page state machine:
//
//  1. Normalize the raw query into a selection.
//  2. Fetch the critical product payload; the provider matches server-side.
//  3. Provider matched a variant: serve it.
//  4. Single-variant sentinel product: serve its only variant without
//     requiring a selection.
//  5. Otherwise redirect to the canonical URL of the first variant's own
//     options, preserving the original query parameters.
//
// A missing handle is NotFound. Any other provider failure is a critical
// data failure returned as an error; no partial outcome is produced.
func (c *Controller) Resolve(ctx context.Context, req PageRequest) (Outcome, error) {
	selection := catalog.NormalizeSelection(req.Query)

	product, err := c.provider.ProductByHandle(ctx, req.Handle, selection)
	if errors.Is(err, storefront.ErrProductNotFound) {
		return Outcome{Kind: NotFound, Selection: selection}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	// The provider may not have matched (or the caller may have sent no
	// options at all); the local matcher covers the sentinel default and
	// exact matches within the fetched slice.
	if product.SelectedVariant == nil {
		product.SelectedVariant = catalog.Match(product, selection)
	}
	if product.SelectedVariant != nil {
		return Outcome{Kind: Served, Product: product, Variant: product.SelectedVariant, Selection: selection}, nil
	}

	first := product.FirstVariant()
	if first == nil {
		// Nothing to redirect to; serve the page unpurchasable rather than
		// bouncing the shopper.
		return Outcome{Kind: Served, Product: product, Selection: selection}, nil
	}

	location := catalog.VariantURL(req.Pathname, product.Handle, first.SelectedOptions, req.Query)
	return Outcome{Kind: Redirected, Location: location, Selection: selection}, nil
}
