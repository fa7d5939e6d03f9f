package catalog

import (
	"net/url"
	"testing"
)

func TestVariantURLDeterministic(t *testing.T) {
	sel := SelectedOptionSet{{Name: "Size", Value: "M"}, {Name: "Color", Value: "Blue"}}
	preserved := url.Values{"ref": {"email"}}
	first := VariantURL("/products/jacket", "jacket", sel, preserved)
	second := VariantURL("/products/jacket", "jacket", sel, preserved)
	if first != second {
		t.Fatalf("URL not deterministic: %q vs %q", first, second)
	}
	want := "/products/jacket?Color=Blue&Size=M&ref=email"
	if first != want {
		t.Fatalf("URL = %q, want %q", first, want)
	}
}

func TestVariantURLPreservesUnrelatedParams(t *testing.T) {
	got := VariantURL("/products/jacket", "jacket",
		SelectedOptionSet{{Name: "Color", Value: "Red"}},
		url.Values{"ref": {"email"}})

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("ref") != "email" {
		t.Fatalf("lost preserved param: %q", got)
	}
	if q.Get("Color") != "Red" {
		t.Fatalf("lost selected option: %q", got)
	}
}

func TestVariantURLSelectionWinsCollision(t *testing.T) {
	got := VariantURL("/products/jacket", "jacket",
		SelectedOptionSet{{Name: "Color", Value: "Red"}},
		url.Values{"Color": {"Green"}, "ref": {"email"}})
	if got != "/products/jacket?Color=Red&ref=email" {
		t.Fatalf("selection must win collisions, got %q", got)
	}
}

func TestVariantURLAppendsProductPath(t *testing.T) {
	got := VariantURL("/en-ca", "jacket", nil, nil)
	if got != "/en-ca/products/jacket" {
		t.Fatalf("got %q", got)
	}
	got = VariantURL("/", "jacket", nil, nil)
	if got != "/products/jacket" {
		t.Fatalf("got %q", got)
	}
}

func TestVariantURLEscapesValues(t *testing.T) {
	got := VariantURL("/products/mug", "mug",
		SelectedOptionSet{{Name: "Style", Value: "Black & White"}}, nil)
	if got != "/products/mug?Style=Black+%26+White" {
		t.Fatalf("got %q", got)
	}
}
