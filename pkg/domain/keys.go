package domain

import (
	"sort"
	"strings"
)

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CompositeKey builds the node id probed by a dynamic lookup:
// the prefix followed by the recorded tokens upper-cased and joined with "_".
// A "_" separator is inserted after the prefix unless it already ends with one.
func CompositeKey(prefix string, tokens []string) string {
	upper := make([]string, len(tokens))
	for i, t := range tokens {
		upper[i] = strings.ToUpper(t)
	}
	suffix := strings.Join(upper, "_")
	if prefix == "" || strings.HasSuffix(prefix, "_") {
		return prefix + suffix
	}
	return prefix + "_" + suffix
}
