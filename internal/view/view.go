// Package view assembles the structured page payloads the server streams.
// It renders data contracts, not markup: prices, option grids with
// active/available flags and canonical links, product cards.
package view

import (
	"net/url"

	"github.com/calicocommerce/storefront/internal/catalog"
	"github.com/calicocommerce/storefront/internal/storefront"
)

// Money is a display-ready amount.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

func NewMoney(m catalog.Money) Money {
	return Money{Amount: m.Amount.StringFixed(2), CurrencyCode: m.CurrencyCode}
}

// OptionValue is one selectable value in an option grid. URL is the
// canonical link for picking it; Active marks the resolved variant's value;
// Available reflects the full variant set once it has loaded.
type OptionValue struct {
	Value     string `json:"value"`
	Active    bool   `json:"active"`
	Available bool   `json:"available"`
	URL       string `json:"url"`
}

// OptionGroup is one configurable dimension with its selectable values.
type OptionGroup struct {
	Name   string        `json:"name"`
	Values []OptionValue `json:"values"`
}

// ProductPage is the critical payload for a product route.
type ProductPage struct {
	ID                string         `json:"id"`
	Handle            string         `json:"handle"`
	Title             string         `json:"title"`
	Vendor            string         `json:"vendor,omitempty"`
	DescriptionHTML   string         `json:"descriptionHtml,omitempty"`
	Image             *catalog.Image `json:"image,omitempty"`
	Price             *Money         `json:"price,omitempty"`
	CompareAtPrice    *Money         `json:"compareAtPrice,omitempty"`
	OnSale            bool           `json:"onSale"`
	SelectedVariantID string         `json:"selectedVariantId,omitempty"`
	// CanAddToCart gates the add-to-cart control: a variant is resolved and
	// available for sale.
	CanAddToCart bool   `json:"canAddToCart"`
	CartLabel    string `json:"cartLabel"`
	// Options is built without the full variant set, so every declared value
	// renders as available until the deferred variants payload replaces it.
	Options []OptionGroup `json:"options"`
}

// ProductPageView builds the critical product payload from the resolution
// outcome. variant may be nil for an unpurchasable product.
func ProductPageView(p *catalog.Product, variant *catalog.Variant, selection catalog.SelectedOptionSet, pathname string, preserved url.Values) ProductPage {
	page := ProductPage{
		ID:              p.ID,
		Handle:          p.Handle,
		Title:           p.Title,
		Vendor:          p.Vendor,
		DescriptionHTML: p.DescriptionHTML,
		CartLabel:       "Sold out",
		Options:         OptionGroups(p, nil, activeSelection(variant, selection), pathname, preserved),
	}
	if variant != nil {
		page.SelectedVariantID = variant.ID
		page.Image = variant.Image
		price := NewMoney(variant.Price)
		page.Price = &price
		if variant.CompareAtPrice != nil {
			compare := NewMoney(*variant.CompareAtPrice)
			page.CompareAtPrice = &compare
		}
		page.OnSale = variant.OnSale()
		page.CanAddToCart = variant.AvailableForSale
		if variant.AvailableForSale {
			page.CartLabel = "Add to cart"
		}
	}
	return page
}

func activeSelection(variant *catalog.Variant, selection catalog.SelectedOptionSet) catalog.SelectedOptionSet {
	if variant != nil && len(variant.SelectedOptions) > 0 {
		return variant.SelectedOptions
	}
	return selection
}

// OptionGroups builds the option grid. fullVariants carries the complete
// deferred variant set; pass nil while it is still pending, which renders
// every declared value as available. There is a brief window where a value
// can show available when it is not; the deferred payload corrects it.
func OptionGroups(p *catalog.Product, fullVariants []catalog.Variant, selection catalog.SelectedOptionSet, pathname string, preserved url.Values) []OptionGroup {
	var matcher *catalog.Matcher
	if fullVariants != nil {
		indexed := *p
		indexed.Variants = fullVariants
		matcher = catalog.NewMatcher(&indexed)
	}

	groups := make([]OptionGroup, 0, len(p.Options))
	for _, dim := range p.Options {
		group := OptionGroup{Name: dim.Name, Values: make([]OptionValue, 0, len(dim.Values))}
		current, _ := selection.Get(dim.Name)
		for _, value := range dim.Values {
			candidate := selection.With(dim.Name, value)
			available := true
			if matcher != nil {
				matched := matcher.Match(candidate)
				available = matched != nil && matched.AvailableForSale
			}
			group.Values = append(group.Values, OptionValue{
				Value:     value,
				Active:    value == current,
				Available: available,
				URL:       catalog.VariantURL(pathname, p.Handle, candidate, preserved),
			})
		}
		groups = append(groups, group)
	}
	return groups
}

// ProductCard is one entry in a recommendation rail.
type ProductCard struct {
	ID       string         `json:"id"`
	Handle   string         `json:"handle"`
	Title    string         `json:"title"`
	URL      string         `json:"url"`
	Image    *catalog.Image `json:"image,omitempty"`
	MinPrice Money          `json:"minPrice"`
}

// ProductCards builds the recommendation rail payload.
func ProductCards(products []catalog.Product) []ProductCard {
	cards := make([]ProductCard, 0, len(products))
	for i := range products {
		p := &products[i]
		card := ProductCard{
			ID:       p.ID,
			Handle:   p.Handle,
			Title:    p.Title,
			URL:      "/products/" + p.Handle,
			MinPrice: NewMoney(p.PriceRange.MinVariantPrice),
		}
		if len(p.Images) > 0 {
			card.Image = &p.Images[0]
		}
		cards = append(cards, card)
	}
	return cards
}

// CollectionView is the awaited featured collection on the home page.
type CollectionView struct {
	Handle string         `json:"handle"`
	Title  string         `json:"title"`
	URL    string         `json:"url"`
	Image  *catalog.Image `json:"image,omitempty"`
}

// HomePage is the critical payload for the home route. FeaturedCollection
// is nil when the shop has no collections.
type HomePage struct {
	FeaturedCollection *CollectionView `json:"featuredCollection,omitempty"`
}

// HomePageView builds the home payload.
func HomePageView(featured *storefront.Collection) HomePage {
	if featured == nil {
		return HomePage{}
	}
	return HomePage{FeaturedCollection: &CollectionView{
		Handle: featured.Handle,
		Title:  featured.Title,
		URL:    "/collections/" + featured.Handle,
		Image:  featured.Image,
	}}
}
