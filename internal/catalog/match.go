package catalog

// The provider models single-variant products as one variant whose option
// set is exactly Title=Default Title. That variant is the product regardless
// of what the caller selected, including an empty selection. This is a
// schema convention of the provider, not a derivable rule; keep it in sync
// with the upstream contract.
const (
	sentinelOptionName  = "Title"
	sentinelOptionValue = "Default Title"
)

// DefaultVariant returns the product's sentinel default variant, or nil when
// the product is a real multi-option product.
func (p *Product) DefaultVariant() *Variant {
	first := p.FirstVariant()
	if first == nil {
		return nil
	}
	if len(first.SelectedOptions) != 1 {
		return nil
	}
	o := first.SelectedOptions[0]
	if o.Name != sentinelOptionName || o.Value != sentinelOptionValue {
		return nil
	}
	return first
}

// Match finds the unique variant whose option set equals selection. It is
// pure and total: nil is returned for empty variant slices, partial
// selections, and selections naming values the product does not declare.
// Selection entries whose name is not a declared dimension are ignored, the
// same way the provider's variantBySelectedOptions ignores unknown options.
// The sentinel default variant matches unconditionally.
func Match(p *Product, selection SelectedOptionSet) *Variant {
	if len(p.Variants) == 0 {
		return nil
	}
	if v := p.DefaultVariant(); v != nil {
		return v
	}
	selection = selection.Restrict(p.Options)
	if !selection.Conforms(p.Options) {
		return nil
	}
	key := selection.Key()
	for i := range p.Variants {
		if p.Variants[i].SelectedOptions.Key() == key {
			return &p.Variants[i]
		}
	}
	return nil
}

// Matcher answers repeated selection lookups against one product via a
// canonical-key index. Build one per product when matching many selections
// (option availability over the full variant set); use Match for one-shot
// calls.
type Matcher struct {
	product *Product
	byKey   map[string]*Variant
}

// NewMatcher indexes the product's variants by canonical option key.
func NewMatcher(p *Product) *Matcher {
	m := &Matcher{product: p, byKey: make(map[string]*Variant, len(p.Variants))}
	for i := range p.Variants {
		v := &p.Variants[i]
		key := v.SelectedOptions.Key()
		if _, exists := m.byKey[key]; !exists {
			m.byKey[key] = v
		}
	}
	return m
}

// Match behaves exactly like the package-level Match.
func (m *Matcher) Match(selection SelectedOptionSet) *Variant {
	if len(m.product.Variants) == 0 {
		return nil
	}
	if v := m.product.DefaultVariant(); v != nil {
		return v
	}
	selection = selection.Restrict(m.product.Options)
	if !selection.Conforms(m.product.Options) {
		return nil
	}
	return m.byKey[selection.Key()]
}
