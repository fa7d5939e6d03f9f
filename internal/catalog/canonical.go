package catalog

import (
	"net/url"
	"strings"
)

// VariantURL builds the canonical URL for a product selection: the product
// path plus one query parameter per selected dimension, merged with the
// parameters already on the request. Selected options win name collisions.
//
// Serialization is deterministic: parameters are encoded in name-lexicographic
// order, so identical selections always produce byte-identical URLs. Callers
// rely on that for caching, redirects, and link-equality checks.
func VariantURL(pathname, handle string, selection SelectedOptionSet, preserved url.Values) string {
	path := pathname
	if !strings.Contains(path, "/products/") {
		path = strings.TrimSuffix(path, "/") + "/products/" + handle
	}

	merged := url.Values{}
	for name, values := range preserved {
		merged[name] = append([]string(nil), values...)
	}
	for _, o := range selection {
		merged.Set(o.Name, o.Value)
	}
	if len(merged) == 0 {
		return path
	}
	// url.Values.Encode sorts by key, which is the documented ordering.
	return path + "?" + merged.Encode()
}
