package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/calicocommerce/storefront/internal/cart"
	"github.com/calicocommerce/storefront/internal/deferred"
	"github.com/calicocommerce/storefront/internal/eventbus"
	"github.com/calicocommerce/storefront/internal/events"
	"github.com/calicocommerce/storefront/internal/reqid"
	"github.com/calicocommerce/storefront/internal/resolve"
	"github.com/calicocommerce/storefront/internal/storefront"
	"github.com/calicocommerce/storefront/internal/view"
)

// Handler is the navigation boundary: it serves progressive product and home
// pages as NDJSON streams, issues canonical-variant redirects, and accepts
// cart mutations. Responses are one JSON record per line: a "page" head with
// the critical payload and the pending deferred keys, then one "chunk" per
// key as it settles.
type Handler struct {
	provider   storefront.API
	controller *resolve.Controller
	submitter  *cart.Submitter
	mux        *http.ServeMux
	opt        Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON records (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of cart mutation bodies. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates the storefront handler over the product-data provider and the
// cart service.
func New(provider storefront.API, cartSvc cart.Service, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, MaxBodyBytes: 1 << 20}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{
		provider:   provider,
		controller: resolve.NewController(provider),
		submitter:  cart.NewSubmitter(cartSvc),
		opt:        op,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /products/{handle}", h.handleProduct)
	mux.HandleFunc("POST /cart/lines", h.handleCartLines)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, _ = reqid.NewContext(ctx)
	r = r.WithContext(ctx)

	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: rec.status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(rec, r, h.opt.CORS)
		if r.Method == http.MethodOptions {
			rec.WriteHeader(http.StatusNoContent)
			return
		}
	}

	h.mux.ServeHTTP(rec, r)
}

// ------------------ Pages ------------------

// pageHead is the first NDJSON record: the awaited critical payload plus the
// keys that will arrive later as chunks.
type pageHead struct {
	Kind     string   `json:"kind"` // "page"
	Route    string   `json:"route"`
	Critical any      `json:"critical"`
	Deferred []string `json:"deferred"`
}

// pageChunk delivers one settled deferred key.
type pageChunk struct {
	Kind  string `json:"kind"` // "chunk"
	Key   string `json:"key"`
	State string `json:"state"` // "resolved" or "failed"
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	outcome, err := h.controller.Resolve(ctx, resolve.PageRequest{
		Pathname: r.URL.Path,
		Handle:   r.PathValue("handle"),
		Query:    r.URL.Query(),
	})
	if err != nil {
		// Critical data failure: the whole request fails, nothing streamed.
		writeJSON(w, http.StatusBadGateway, errorResponse("product data unavailable"), h.opt.Pretty)
		return
	}
	switch outcome.Kind {
	case resolve.NotFound:
		writeJSON(w, http.StatusNotFound, errorResponse("product not found"), h.opt.Pretty)
		return
	case resolve.Redirected:
		http.Redirect(w, r, outcome.Location, http.StatusFound)
		return
	}

	product := outcome.Product
	selection := outcome.Selection
	if outcome.Variant != nil {
		selection = outcome.Variant.SelectedOptions
	}
	pathname, preserved := r.URL.Path, r.URL.Query()

	bundle := deferred.NewBundle(ctx)
	bundle.Defer("variants", func(ctx context.Context) (any, error) {
		variants, err := h.provider.ProductVariants(ctx, product.Handle)
		if err != nil {
			return nil, err
		}
		return view.OptionGroups(product, variants, selection, pathname, preserved), nil
	})
	bundle.Defer("recommended", func(ctx context.Context) (any, error) {
		products, err := h.provider.RecommendedProducts(ctx)
		if err != nil {
			return nil, err
		}
		return view.ProductCards(products), nil
	})

	critical := view.ProductPageView(product, outcome.Variant, outcome.Selection, pathname, preserved)
	h.streamPage(w, r, "product", critical, bundle)
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Recommended products are dispatched before the awaited collection so
	// they load concurrently with the critical fetch.
	bundle := deferred.NewBundle(ctx)
	bundle.Defer("recommended", func(ctx context.Context) (any, error) {
		products, err := h.provider.RecommendedProducts(ctx)
		if err != nil {
			return nil, err
		}
		return view.ProductCards(products), nil
	})

	featured, err := h.provider.FeaturedCollection(ctx)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse("storefront data unavailable"), h.opt.Pretty)
		return
	}
	h.streamPage(w, r, "home", view.HomePageView(featured), bundle)
}

// streamPage writes the head record, then one chunk per settled key. The
// head is not written until the critical payload is in hand, so a critical
// failure never emits a partial response. Chunk order follows settlement
// order; a failed key degrades to an error chunk without affecting others.
func (h *Handler) streamPage(w http.ResponseWriter, r *http.Request, route string, critical any, bundle *deferred.Bundle) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	flusher, _ := w.(http.Flusher)
	write := func(v any) bool {
		if err := enc.Encode(v); err != nil {
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	if !write(pageHead{Kind: "page", Route: route, Critical: critical, Deferred: bundle.Keys()}) {
		return
	}
	for s := range bundle.Settlements() {
		select {
		case <-ctx.Done():
			// Navigation superseded; drop remaining chunks.
			return
		default:
		}
		chunk := pageChunk{Kind: "chunk", Key: s.Key, State: string(s.State)}
		if s.State == deferred.Resolved {
			chunk.Data = s.Value
		} else {
			chunk.Error = "failed to load " + s.Key
		}
		if !write(chunk) {
			return
		}
	}
}

// ------------------ Cart ------------------

type cartLinesRequest struct {
	Intent string      `json:"intent,omitempty"`
	Lines  []cart.Line `json:"lines"`
}

type cartLinesResponse struct {
	Cart *cart.Cart `json:"cart"`
}

func (h *Handler) handleCartLines(w http.ResponseWriter, r *http.Request) {
	reader := io.Reader(r.Body)
	if h.opt.MaxBodyBytes > 0 {
		reader = io.LimitReader(r.Body, h.opt.MaxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("failed to read body"), h.opt.Pretty)
		return
	}
	defer r.Body.Close()
	if h.opt.MaxBodyBytes > 0 && int64(len(body)) > h.opt.MaxBodyBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("body too large"), h.opt.Pretty)
		return
	}

	var req cartLinesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid JSON"), h.opt.Pretty)
		return
	}

	updated, err := h.submitter.Submit(r.Context(), req.Intent, req.Lines)
	var invalid *cart.InvalidLineItemError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResponse(invalid.Error()), h.opt.Pretty)
	case errors.Is(err, cart.ErrSubmissionInFlight):
		writeJSON(w, http.StatusConflict, errorResponse("submission pending for this intent"), h.opt.Pretty)
	case err != nil:
		writeJSON(w, http.StatusBadGateway, errorResponse("cart service error"), h.opt.Pretty)
	default:
		writeJSON(w, http.StatusOK, cartLinesResponse{Cart: updated}, h.opt.Pretty)
	}
}

// ------------------ Plumbing ------------------

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func errorResponse(msg string) errorBody { return errorBody{Error: msg} }

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	wildcard := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			allowed, wildcard = true, true
			break
		}
		if o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
