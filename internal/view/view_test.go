package view

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/calicocommerce/storefront/internal/catalog"
	"github.com/calicocommerce/storefront/internal/storefront"
)

func money(s string) catalog.Money {
	return catalog.Money{Amount: decimal.RequireFromString(s), CurrencyCode: "EUR"}
}

func variant(color, size string, available bool) catalog.Variant {
	return catalog.Variant{
		ID:               "gid://shop/ProductVariant/" + color + "-" + size,
		AvailableForSale: available,
		SelectedOptions: catalog.SelectedOptionSet{
			{Name: "Color", Value: color},
			{Name: "Size", Value: size},
		},
		Price: money("29.99"),
	}
}

// jacket has a sparse grid: Blue/M does not exist, Blue/S is sold out.
func jacket() *catalog.Product {
	return &catalog.Product{
		ID:     "gid://shop/Product/1",
		Handle: "jacket",
		Title:  "Jacket",
		Vendor: "Calico",
		Options: []catalog.ProductOption{
			{Name: "Color", Values: []string{"Red", "Blue"}},
			{Name: "Size", Values: []string{"S", "M"}},
		},
		Variants: []catalog.Variant{
			variant("Red", "S", true),
			variant("Red", "M", true),
			variant("Blue", "S", false),
		},
		PriceRange: catalog.PriceRange{MinVariantPrice: money("29.99")},
	}
}

func TestProductPageViewWithAvailableVariant(t *testing.T) {
	p := jacket()
	v := &p.Variants[0]

	page := ProductPageView(p, v, v.SelectedOptions, "/products/jacket", nil)
	if !page.CanAddToCart || page.CartLabel != "Add to cart" {
		t.Fatalf("available variant must be purchasable: %+v", page)
	}
	if page.SelectedVariantID != v.ID {
		t.Fatalf("selected variant id = %q", page.SelectedVariantID)
	}
	if page.Price == nil || page.Price.Amount != "29.99" || page.Price.CurrencyCode != "EUR" {
		t.Fatalf("price rendered wrong: %+v", page.Price)
	}
	if page.OnSale {
		t.Fatal("no compare-at price, must not be on sale")
	}
}

func TestProductPageViewSoldOutVariant(t *testing.T) {
	p := jacket()
	v := &p.Variants[2] // Blue/S, unavailable

	page := ProductPageView(p, v, v.SelectedOptions, "/products/jacket", nil)
	if page.CanAddToCart || page.CartLabel != "Sold out" {
		t.Fatalf("sold-out variant must not be purchasable: %+v", page)
	}
}

func TestProductPageViewNilVariant(t *testing.T) {
	p := jacket()
	page := ProductPageView(p, nil, nil, "/products/jacket", nil)
	if page.CanAddToCart || page.CartLabel != "Sold out" {
		t.Fatalf("nil variant must render unpurchasable: %+v", page)
	}
	if page.Price != nil || page.SelectedVariantID != "" {
		t.Fatalf("nil variant must not carry price or id: %+v", page)
	}
}

func TestProductPageViewSalePrice(t *testing.T) {
	p := jacket()
	compare := money("39.99")
	p.Variants[0].CompareAtPrice = &compare
	v := &p.Variants[0]

	page := ProductPageView(p, v, v.SelectedOptions, "/products/jacket", nil)
	if !page.OnSale {
		t.Fatal("compare-at above price must mark the page on sale")
	}
	if page.CompareAtPrice == nil || page.CompareAtPrice.Amount != "39.99" {
		t.Fatalf("compare-at price rendered wrong: %+v", page.CompareAtPrice)
	}
}

func TestOptionGroupsPendingVariants(t *testing.T) {
	p := jacket()
	selection := p.Variants[0].SelectedOptions // Red/S

	groups := OptionGroups(p, nil, selection, "/products/jacket", nil)
	if len(groups) != 2 {
		t.Fatalf("expected 2 option groups, got %d", len(groups))
	}
	for _, g := range groups {
		for _, v := range g.Values {
			if !v.Available {
				t.Fatalf("pending variant data must render %s=%s available", g.Name, v.Value)
			}
		}
	}
}

func TestOptionGroupsFullVariants(t *testing.T) {
	p := jacket()
	full := append([]catalog.Variant(nil), p.Variants...)
	p.Variants = p.Variants[:1] // critical payload carries one variant
	selection := catalog.SelectedOptionSet{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "S"}}

	groups := OptionGroups(p, full, selection, "/products/jacket", url.Values{"ref": {"email"}})

	want := []OptionGroup{
		{Name: "Color", Values: []OptionValue{
			{Value: "Red", Active: true, Available: true, URL: "/products/jacket?Color=Red&Size=S&ref=email"},
			{Value: "Blue", Active: false, Available: false, URL: "/products/jacket?Color=Blue&Size=S&ref=email"},
		}},
		{Name: "Size", Values: []OptionValue{
			{Value: "S", Active: true, Available: true, URL: "/products/jacket?Color=Red&Size=S&ref=email"},
			{Value: "M", Active: false, Available: true, URL: "/products/jacket?Color=Red&Size=M&ref=email"},
		}},
	}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Fatalf("option grid mismatch (-want +got):\n%s", diff)
	}
}

func TestProductCards(t *testing.T) {
	p := *jacket()
	p.Images = []catalog.Image{{URL: "https://cdn.example/jacket.jpg"}}

	cards := ProductCards([]catalog.Product{p})
	if len(cards) != 1 {
		t.Fatalf("expected one card, got %d", len(cards))
	}
	card := cards[0]
	if card.URL != "/products/jacket" {
		t.Fatalf("card url = %q", card.URL)
	}
	if card.Image == nil || card.Image.URL != "https://cdn.example/jacket.jpg" {
		t.Fatalf("card image lost: %+v", card.Image)
	}
	if card.MinPrice.Amount != "29.99" {
		t.Fatalf("card price = %+v", card.MinPrice)
	}
}

func TestHomePageView(t *testing.T) {
	if got := HomePageView(nil); got.FeaturedCollection != nil {
		t.Fatalf("nil collection must render empty home page, got %+v", got)
	}

	got := HomePageView(&storefront.Collection{Handle: "summer", Title: "Summer"})
	if got.FeaturedCollection == nil || got.FeaturedCollection.URL != "/collections/summer" {
		t.Fatalf("featured collection rendered wrong: %+v", got.FeaturedCollection)
	}
}
