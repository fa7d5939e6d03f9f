package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/calicocommerce/storefront/internal/cart"
	"github.com/calicocommerce/storefront/internal/catalog"
	"github.com/calicocommerce/storefront/internal/eventbus"
	"github.com/calicocommerce/storefront/internal/events"
)

// Client calls the provider's GraphQL endpoint over HTTP. It is safe for
// concurrent use. The client imposes no timeouts of its own beyond the
// request context; callers own timeout and circuit-breaking policy.
type Client struct {
	endpoint string
	token    string
	httpc    *http.Client

	// cartID is the one piece of client-held state: the id of the cart the
	// first lines-add created, so later adds extend it.
	mu     sync.Mutex
	cartID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpc = h } }

// NewClient creates a Client for the given GraphQL endpoint. token is the
// provider's storefront access token and may be empty for unauthenticated
// endpoints.
func NewClient(endpoint, token string, opts ...Option) *Client {
	c := &Client{endpoint: endpoint, token: token, httpc: http.DefaultClient}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ API = (*Client)(nil)
var _ cart.Service = (*Client)(nil)

// ------------------ Wire shapes ------------------

type connection[T any] struct {
	Nodes []T `json:"nodes"`
}

type wireProduct struct {
	ID              string                      `json:"id"`
	Handle          string                      `json:"handle"`
	Title           string                      `json:"title"`
	Vendor          string                      `json:"vendor"`
	Description     string                      `json:"description"`
	DescriptionHTML string                      `json:"descriptionHtml"`
	Options         []catalog.ProductOption     `json:"options"`
	SelectedVariant *catalog.Variant            `json:"selectedVariant"`
	Variants        connection[catalog.Variant] `json:"variants"`
	PriceRange      catalog.PriceRange          `json:"priceRange"`
	Images          connection[catalog.Image]   `json:"images"`
}

func (w *wireProduct) toCatalog() *catalog.Product {
	return &catalog.Product{
		ID:              w.ID,
		Handle:          w.Handle,
		Title:           w.Title,
		Vendor:          w.Vendor,
		Description:     w.Description,
		DescriptionHTML: w.DescriptionHTML,
		Options:         w.Options,
		SelectedVariant: w.SelectedVariant,
		Variants:        w.Variants.Nodes,
		PriceRange:      w.PriceRange,
		Images:          w.Images.Nodes,
	}
}

type wireCartLine struct {
	ID          string `json:"id"`
	Quantity    int    `json:"quantity"`
	Merchandise struct {
		ID string `json:"id"`
	} `json:"merchandise"`
}

type wireCart struct {
	ID            string                   `json:"id"`
	TotalQuantity int                      `json:"totalQuantity"`
	Lines         connection[wireCartLine] `json:"lines"`
}

func (w *wireCart) toCart() *cart.Cart {
	out := &cart.Cart{ID: w.ID, TotalQuantity: w.TotalQuantity}
	for _, l := range w.Lines.Nodes {
		out.Lines = append(out.Lines, cart.LineItem{ID: l.ID, MerchandiseID: l.Merchandise.ID, Quantity: l.Quantity})
	}
	return out
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type cartMutationPayload struct {
	Cart       *wireCart   `json:"cart"`
	UserErrors []userError `json:"userErrors"`
}

// ------------------ Transport ------------------

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) do(ctx context.Context, doc document, handle string, variables map[string]any, out any) error {
	start := time.Now()
	eventbus.Publish(ctx, events.StorefrontQueryStart{Operation: doc.op, Handle: handle})
	err := c.roundTrip(ctx, doc, variables, out)
	eventbus.Publish(ctx, events.StorefrontQueryFinish{Operation: doc.op, Handle: handle, Err: err, Duration: time.Since(start)})
	return err
}

func (c *Client) roundTrip(ctx context.Context, doc document, variables map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{
		"query":         doc.src,
		"operationName": doc.op,
		"variables":     variables,
	})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", doc.op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", doc.op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Shopify-Storefront-Access-Token", c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", doc.op, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", doc.op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: provider returned status %d", doc.op, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: decode response: %w", doc.op, err)
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, len(env.Errors))
		for i, e := range env.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("%s: provider errors: %s", doc.op, strings.Join(msgs, "; "))
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", doc.op, err)
		}
	}
	return nil
}

// ------------------ API ------------------

// ProductByHandle fetches the critical product payload. The provider applies
// its own matching server-side and returns selectedVariant when the
// selection resolves to a variant.
func (c *Client) ProductByHandle(ctx context.Context, handle string, selection catalog.SelectedOptionSet) (*catalog.Product, error) {
	if selection == nil {
		selection = catalog.SelectedOptionSet{}
	}
	var data struct {
		Product *wireProduct `json:"product"`
	}
	vars := map[string]any{"handle": handle, "selectedOptions": selection}
	if err := c.do(ctx, productDoc, handle, vars, &data); err != nil {
		return nil, err
	}
	if data.Product == nil || data.Product.ID == "" {
		return nil, fmt.Errorf("%q: %w", handle, ErrProductNotFound)
	}
	return data.Product.toCatalog(), nil
}

// ProductVariants fetches the full variant page for a handle.
func (c *Client) ProductVariants(ctx context.Context, handle string) ([]catalog.Variant, error) {
	var data struct {
		Product *struct {
			Variants connection[catalog.Variant] `json:"variants"`
		} `json:"product"`
	}
	vars := map[string]any{"handle": handle}
	if err := c.do(ctx, productVariantsDoc, handle, vars, &data); err != nil {
		return nil, err
	}
	if data.Product == nil {
		return nil, fmt.Errorf("%q: %w", handle, ErrProductNotFound)
	}
	return data.Product.Variants.Nodes, nil
}

// RecommendedProducts fetches the most recently updated products for the
// recommendation rail.
func (c *Client) RecommendedProducts(ctx context.Context) ([]catalog.Product, error) {
	var data struct {
		Products connection[wireProduct] `json:"products"`
	}
	if err := c.do(ctx, recommendedDoc, "", nil, &data); err != nil {
		return nil, err
	}
	out := make([]catalog.Product, 0, len(data.Products.Nodes))
	for i := range data.Products.Nodes {
		out = append(out, *data.Products.Nodes[i].toCatalog())
	}
	return out, nil
}

// FeaturedCollection fetches the most recently updated collection, or nil
// when the shop has none.
func (c *Client) FeaturedCollection(ctx context.Context) (*Collection, error) {
	var data struct {
		Collections connection[Collection] `json:"collections"`
	}
	if err := c.do(ctx, featuredCollectionDoc, "", nil, &data); err != nil {
		return nil, err
	}
	if len(data.Collections.Nodes) == 0 {
		return nil, nil
	}
	return &data.Collections.Nodes[0], nil
}

// ------------------ Cart service ------------------

// AddLines submits a lines-add mutation. The first successful call creates
// the cart; later calls extend it by id.
func (c *Client) AddLines(ctx context.Context, lines []cart.Line) (*cart.Cart, error) {
	c.mu.Lock()
	cartID := c.cartID
	c.mu.Unlock()

	var payload cartMutationPayload
	if cartID == "" {
		var data struct {
			CartCreate cartMutationPayload `json:"cartCreate"`
		}
		vars := map[string]any{"lines": lines}
		if err := c.do(ctx, cartCreateDoc, "", vars, &data); err != nil {
			return nil, err
		}
		payload = data.CartCreate
	} else {
		var data struct {
			CartLinesAdd cartMutationPayload `json:"cartLinesAdd"`
		}
		vars := map[string]any{"cartId": cartID, "lines": lines}
		if err := c.do(ctx, cartLinesAddDoc, "", vars, &data); err != nil {
			return nil, err
		}
		payload = data.CartLinesAdd
	}

	if len(payload.UserErrors) > 0 {
		msgs := make([]string, len(payload.UserErrors))
		for i, e := range payload.UserErrors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("cart service rejected lines: %s", strings.Join(msgs, "; "))
	}
	if payload.Cart == nil {
		return nil, fmt.Errorf("cart service returned no cart")
	}

	c.mu.Lock()
	c.cartID = payload.Cart.ID
	c.mu.Unlock()
	return payload.Cart.toCart(), nil
}
