// Package resolve turns a set of requested keys into values.
//
// It holds the key/value merge used by every provider and the ordered-fallback search
// used by providers whose backend groups secrets into named containers. Nothing in this
// package logs, retries or caches.
package resolve

import "strings"

// Pair is one key/value entry as returned by a backend, in the backend's order.
type Pair struct {
	Key   string
	Value string
}

// Lookup is a key/value mapping with optional case-insensitive keys.
type Lookup struct {
	values        map[string]string
	caseSensitive bool
}

// Merge builds a Lookup from pairs.
//
// With caseSensitive set, keys are exact and a repeated key keeps the last value, like
// any map assignment. Without it, keys are grouped by their ordinal case fold and the
// first value in input order is kept, so {"Key":"v1","KEY":"v2"} resolves "key" to "v1".
// The two duplicate rules differ on purpose.
func Merge(pairs []Pair, caseSensitive bool) Lookup {
	l := Lookup{
		values:        make(map[string]string, len(pairs)),
		caseSensitive: caseSensitive,
	}
	for _, p := range pairs {
		if caseSensitive {
			l.values[p.Key] = p.Value
			continue
		}
		k := Fold(p.Key)
		if _, seen := l.values[k]; seen {
			continue
		}
		l.values[k] = p.Value
	}
	return l
}

// Get returns the value stored for key, folding key the same way Merge did.
func (l Lookup) Get(key string) (string, bool) {
	if !l.caseSensitive {
		key = Fold(key)
	}
	v, ok := l.values[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (l Lookup) Len() int {
	return len(l.values)
}

// CaseSensitive reports how keys are compared.
func (l Lookup) CaseSensitive() bool {
	return l.caseSensitive
}

// Fold is the ordinal case fold used for case-insensitive key comparison.
func Fold(key string) string {
	return strings.ToUpper(key)
}
