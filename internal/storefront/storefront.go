// Package storefront talks to the external product-data provider and cart
// service over their GraphQL HTTP API. The provider's schema is an opaque
// contract: this package owns the query documents and the mapping onto
// catalog types, nothing else interprets the wire shapes.
package storefront

import (
	"context"
	"errors"

	"github.com/calicocommerce/storefront/internal/catalog"
)

// ErrProductNotFound reports that the requested handle does not exist
// upstream. The navigation boundary surfaces it as a terminal 404.
var ErrProductNotFound = errors.New("product not found")

// Collection is a curated product grouping used on the home page.
type Collection struct {
	ID     string         `json:"id"`
	Handle string         `json:"handle"`
	Title  string         `json:"title"`
	Image  *catalog.Image `json:"image,omitempty"`
}

// API is the product-data provider. ProductByHandle is the critical-path
// call: it returns the product with a first-page variant slice and, when the
// provider matched the selection server-side, a SelectedVariant. The other
// calls feed secondary data and are independently awaitable.
type API interface {
	ProductByHandle(ctx context.Context, handle string, selection catalog.SelectedOptionSet) (*catalog.Product, error)
	ProductVariants(ctx context.Context, handle string) ([]catalog.Variant, error)
	RecommendedProducts(ctx context.Context) ([]catalog.Product, error)
	FeaturedCollection(ctx context.Context) (*Collection, error)
}
