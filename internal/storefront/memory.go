package storefront

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/calicocommerce/storefront/internal/cart"
	"github.com/calicocommerce/storefront/internal/catalog"
)

// Memory is an in-process provider used for local development and tests. It
// mirrors the real provider's behavior: server-side selection matching on
// the critical query, a first-page variant slice, and a cart keyed by
// merchandise id. Injected failures let tests exercise the error paths.
type Memory struct {
	mu       sync.Mutex
	products []catalog.Product
	matchers map[string]*catalog.Matcher
	featured *Collection
	failures map[string]error

	cartID    string
	cartLines map[string]*cart.LineItem
	lineOrder []string
}

// NewMemory creates a Memory provider over the given fixture products.
func NewMemory(products []catalog.Product) *Memory {
	m := &Memory{
		products:  products,
		matchers:  make(map[string]*catalog.Matcher, len(products)),
		failures:  make(map[string]error),
		cartLines: make(map[string]*cart.LineItem),
	}
	for i := range products {
		m.matchers[products[i].Handle] = catalog.NewMatcher(&products[i])
	}
	return m
}

var _ API = (*Memory)(nil)
var _ cart.Service = (*Memory)(nil)

// SetFeaturedCollection configures the home page collection.
func (m *Memory) SetFeaturedCollection(c *Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.featured = c
}

// Fail makes the named operation ("Product", "ProductVariants",
// "RecommendedProducts", "FeaturedCollection", "AddLines") return err until
// cleared with a nil err.
func (m *Memory) Fail(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, operation)
		return
	}
	m.failures[operation] = err
}

func (m *Memory) failure(operation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[operation]
}

func (m *Memory) find(handle string) (*catalog.Product, *catalog.Matcher) {
	for i := range m.products {
		if m.products[i].Handle == handle {
			return &m.products[i], m.matchers[handle]
		}
	}
	return nil, nil
}

// ProductByHandle returns the product with a first-page variant slice and a
// server-side matched SelectedVariant, like the real provider's
// variantBySelectedOptions.
func (m *Memory) ProductByHandle(ctx context.Context, handle string, selection catalog.SelectedOptionSet) (*catalog.Product, error) {
	if err := m.failure("Product"); err != nil {
		return nil, err
	}
	src, matcher := m.find(handle)
	if src == nil {
		return nil, fmt.Errorf("%q: %w", handle, ErrProductNotFound)
	}

	out := *src
	if len(src.Variants) > 0 {
		out.Variants = src.Variants[:1]
	}
	if v := matcher.Match(selection); v != nil {
		matched := *v
		out.SelectedVariant = &matched
	}
	return &out, nil
}

// ProductVariants returns the product's full variant collection.
func (m *Memory) ProductVariants(ctx context.Context, handle string) ([]catalog.Variant, error) {
	if err := m.failure("ProductVariants"); err != nil {
		return nil, err
	}
	src, _ := m.find(handle)
	if src == nil {
		return nil, fmt.Errorf("%q: %w", handle, ErrProductNotFound)
	}
	return append([]catalog.Variant(nil), src.Variants...), nil
}

// RecommendedProducts returns up to four fixture products.
func (m *Memory) RecommendedProducts(ctx context.Context) ([]catalog.Product, error) {
	if err := m.failure("RecommendedProducts"); err != nil {
		return nil, err
	}
	n := min(len(m.products), 4)
	return append([]catalog.Product(nil), m.products[:n]...), nil
}

// FeaturedCollection returns the configured collection, or nil.
func (m *Memory) FeaturedCollection(ctx context.Context) (*Collection, error) {
	if err := m.failure("FeaturedCollection"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.featured, nil
}

// AddLines implements cart.Service over an in-memory cart. Lines for the
// same merchandise id accumulate quantity.
func (m *Memory) AddLines(ctx context.Context, lines []cart.Line) (*cart.Cart, error) {
	if err := m.failure("AddLines"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cartID == "" {
		m.cartID = "gid://shop/Cart/" + uuid.NewString()
	}
	for _, l := range lines {
		if existing, ok := m.cartLines[l.MerchandiseID]; ok {
			existing.Quantity += l.Quantity
			continue
		}
		m.cartLines[l.MerchandiseID] = &cart.LineItem{
			ID:            "gid://shop/CartLine/" + uuid.NewString(),
			MerchandiseID: l.MerchandiseID,
			Quantity:      l.Quantity,
		}
		m.lineOrder = append(m.lineOrder, l.MerchandiseID)
	}

	state := &cart.Cart{ID: m.cartID}
	for _, id := range m.lineOrder {
		line := m.cartLines[id]
		state.Lines = append(state.Lines, *line)
		state.TotalQuantity += line.Quantity
	}
	return state, nil
}
