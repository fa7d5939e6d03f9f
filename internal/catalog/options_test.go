package catalog

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeSelectionDropsTrackingParams(t *testing.T) {
	query := url.Values{
		"_pos":  {"3"},
		"_sid":  {"abc"},
		"_psq":  {"jacket"},
		"_ss":   {"e"},
		"_v":    {"1.0"},
		"Color": {"Red"},
	}
	got := NormalizeSelection(query)
	want := SelectedOptionSet{{Name: "Color", Value: "Red"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeSelectionIsIdempotent(t *testing.T) {
	query := url.Values{"Size": {"M"}, "Color": {"Blue"}, "_pos": {"1"}}
	once := NormalizeSelection(query)

	again := url.Values{}
	for _, o := range once {
		again.Set(o.Name, o.Value)
	}
	twice := NormalizeSelection(again)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("normalization not idempotent (-once +twice):\n%s", diff)
	}
}

func TestNormalizeSelectionOrderIsDeterministic(t *testing.T) {
	query := url.Values{"Size": {"M"}, "Color": {"Blue"}, "Material": {"Wool"}}
	got := NormalizeSelection(query)
	want := SelectedOptionSet{
		{Name: "Color", Value: "Blue"},
		{Name: "Material", Value: "Wool"},
		{Name: "Size", Value: "M"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expected name-lexicographic order (-want +got):\n%s", diff)
	}
}

func TestNormalizeSelectionKeepsFirstRepeatedValue(t *testing.T) {
	got := NormalizeSelection(url.Values{"Color": {"Red", "Blue"}})
	if v, ok := got.Get("Color"); !ok || v != "Red" {
		t.Fatalf("expected first value Red, got %q ok=%v", v, ok)
	}
}

func TestSelectionEqualIgnoresOrder(t *testing.T) {
	a := SelectedOptionSet{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "S"}}
	b := SelectedOptionSet{{Name: "Size", Value: "S"}, {Name: "Color", Value: "Red"}}
	if !a.Equal(b) {
		t.Fatalf("expected %v to equal %v", a, b)
	}
	c := SelectedOptionSet{{Name: "Size", Value: "M"}, {Name: "Color", Value: "Red"}}
	if a.Equal(c) {
		t.Fatalf("expected %v not to equal %v", a, c)
	}
}

func TestSelectionWith(t *testing.T) {
	base := SelectedOptionSet{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "S"}}

	replaced := base.With("Size", "M")
	if v, _ := replaced.Get("Size"); v != "M" {
		t.Fatalf("expected Size=M, got %q", v)
	}
	if v, _ := base.Get("Size"); v != "S" {
		t.Fatalf("With mutated the receiver: Size=%q", v)
	}

	extended := base.With("Material", "Wool")
	want := SelectedOptionSet{
		{Name: "Color", Value: "Red"},
		{Name: "Material", Value: "Wool"},
		{Name: "Size", Value: "S"},
	}
	if diff := cmp.Diff(want, extended); diff != "" {
		t.Fatalf("With mismatch (-want +got):\n%s", diff)
	}
}

func TestRestrict(t *testing.T) {
	options := []ProductOption{
		{Name: "Color", Values: []string{"Red", "Blue"}},
		{Name: "Size", Values: []string{"S", "M"}},
	}
	sel := SelectedOptionSet{
		{Name: "Color", Value: "Red"},
		{Name: "Size", Value: "S"},
		{Name: "ref", Value: "email"},
	}
	got := sel.Restrict(options)
	want := SelectedOptionSet{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "S"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Restrict mismatch (-want +got):\n%s", diff)
	}
	if len(sel) != 3 {
		t.Fatal("Restrict mutated the receiver")
	}
}

func TestConforms(t *testing.T) {
	options := []ProductOption{
		{Name: "Color", Values: []string{"Red", "Blue"}},
		{Name: "Size", Values: []string{"S", "M"}},
	}
	cases := []struct {
		name string
		sel  SelectedOptionSet
		want bool
	}{
		{"full valid selection", SelectedOptionSet{{"Color", "Red"}, {"Size", "M"}}, true},
		{"partial selection", SelectedOptionSet{{"Color", "Red"}}, false},
		{"undeclared value", SelectedOptionSet{{"Color", "Green"}, {"Size", "M"}}, false},
		{"undeclared dimension", SelectedOptionSet{{"Color", "Red"}, {"Fit", "Slim"}}, false},
		{"empty selection", SelectedOptionSet{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sel.Conforms(options); got != tc.want {
				t.Fatalf("Conforms(%v) = %v, want %v", tc.sel, got, tc.want)
			}
		})
	}
}
