package catalog

import (
	"github.com/shopspring/decimal"
)

// Money is an amount in a specific currency as the provider reports it.
// Amounts arrive as decimal strings and are kept exact.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// Image is a product or variant image owned by the provider's CDN.
type Image struct {
	ID      string `json:"id,omitempty"`
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// SelectedOption is one configured dimension/value pair, e.g. Color=Red.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductOption declares one configurable dimension and its valid values.
type ProductOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Variant is one concrete purchasable configuration of a product.
// Variants are owned by the provider and are never mutated here.
type Variant struct {
	ID               string            `json:"id"`
	Title            string            `json:"title,omitempty"`
	SKU              string            `json:"sku,omitempty"`
	AvailableForSale bool              `json:"availableForSale"`
	SelectedOptions  SelectedOptionSet `json:"selectedOptions"`
	Price            Money             `json:"price"`
	CompareAtPrice   *Money            `json:"compareAtPrice,omitempty"`
	Image            *Image            `json:"image,omitempty"`
}

// OnSale reports whether the variant carries a compare-at price above its
// current price.
func (v *Variant) OnSale() bool {
	return v.CompareAtPrice != nil && v.CompareAtPrice.Amount.GreaterThan(v.Price.Amount)
}

// PriceRange carries the minimum variant price for card-style listings.
type PriceRange struct {
	MinVariantPrice Money `json:"minVariantPrice"`
}

// Product is the provider's catalog record. Options enumerates every valid
// dimension; Variants may be a sparse subset of the Cartesian space and, on
// the critical path, only the first page of them.
type Product struct {
	ID              string          `json:"id"`
	Handle          string          `json:"handle"`
	Title           string          `json:"title"`
	Vendor          string          `json:"vendor,omitempty"`
	Description     string          `json:"description,omitempty"`
	DescriptionHTML string          `json:"descriptionHtml,omitempty"`
	Options         []ProductOption `json:"options"`
	Variants        []Variant       `json:"variants"`
	// SelectedVariant is set when the provider already matched the request's
	// selection server-side.
	SelectedVariant *Variant   `json:"selectedVariant,omitempty"`
	PriceRange      PriceRange `json:"priceRange"`
	Images          []Image    `json:"images,omitempty"`
}

// FirstVariant returns the product's first variant, or nil when the product
// has none.
func (p *Product) FirstVariant() *Variant {
	if len(p.Variants) == 0 {
		return nil
	}
	return &p.Variants[0]
}
