package catalog

import (
	"net/url"
	"sort"
	"strings"
)

// SelectedOptionSet is an ordered set of dimension/value pairs with unique
// names. Order is kept name-lexicographic so that identical selections always
// serialize identically; matching itself is set-based and ignores order.
type SelectedOptionSet []SelectedOption

// trackingPrefixes are query-parameter prefixes the provider's search and
// analytics layers attach to product links. They are never option names.
var trackingPrefixes = []string{"_sid", "_pos", "_psq", "_ss", "_v"}

func isTrackingParam(name string) bool {
	for _, p := range trackingPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// NormalizeSelection extracts a SelectedOptionSet from raw request query
// parameters, dropping tracking/internal parameters. Only the first value of
// a repeated parameter is kept. Normalizing an already-normalized selection
// yields the same set.
func NormalizeSelection(query url.Values) SelectedOptionSet {
	sel := make(SelectedOptionSet, 0, len(query))
	for name, values := range query {
		if isTrackingParam(name) || len(values) == 0 {
			continue
		}
		sel = append(sel, SelectedOption{Name: name, Value: values[0]})
	}
	sort.Slice(sel, func(i, j int) bool { return sel[i].Name < sel[j].Name })
	return sel
}

// Get returns the value selected for the named dimension.
func (s SelectedOptionSet) Get(name string) (string, bool) {
	for _, o := range s {
		if o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// With returns a copy of the set with the named dimension set to value,
// replacing any existing entry. The receiver is not modified.
func (s SelectedOptionSet) With(name, value string) SelectedOptionSet {
	out := make(SelectedOptionSet, 0, len(s)+1)
	replaced := false
	for _, o := range s {
		if o.Name == name {
			out = append(out, SelectedOption{Name: name, Value: value})
			replaced = true
			continue
		}
		out = append(out, o)
	}
	if !replaced {
		out = append(out, SelectedOption{Name: name, Value: value})
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out
}

// Key returns a canonical identity for the set: pairs sorted by name and
// joined with unit separators. Two sets with equal pairs have equal keys.
func (s SelectedOptionSet) Key() string {
	pairs := make([]string, len(s))
	for i, o := range s {
		pairs[i] = o.Name + "\x1f" + o.Value
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\x1e")
}

// Equal reports set equality, ignoring order.
func (s SelectedOptionSet) Equal(other SelectedOptionSet) bool {
	return len(s) == len(other) && s.Key() == other.Key()
}

// Restrict returns the subset of the selection whose names are declared
// dimensions of options. Unrelated query parameters (campaign refs and the
// like) ride along on product URLs; they are preserved in links but must not
// participate in matching, or a full valid selection would never match.
func (s SelectedOptionSet) Restrict(options []ProductOption) SelectedOptionSet {
	out := make(SelectedOptionSet, 0, len(s))
	for _, o := range s {
		for _, dim := range options {
			if dim.Name == o.Name {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

// Conforms reports whether the set selects exactly one declared value for
// every dimension in options and contains nothing else. Partial or
// out-of-catalog selections do not conform and can never match a variant.
func (s SelectedOptionSet) Conforms(options []ProductOption) bool {
	if len(s) != len(options) {
		return false
	}
	for _, dim := range options {
		value, ok := s.Get(dim.Name)
		if !ok {
			return false
		}
		declared := false
		for _, v := range dim.Values {
			if v == value {
				declared = true
				break
			}
		}
		if !declared {
			return false
		}
	}
	return true
}
