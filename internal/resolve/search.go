package resolve

import (
	"context"

	"github.com/systmms/secretsrc/pkg/provider"
)

// FetchFunc queries one container. It returns the container's pairs in backend order, or
// no pairs when the container is absent or empty.
type FetchFunc func(ctx context.Context, container string) ([]Pair, error)

// Search is the ordered-fallback search over a provider's containers.
//
// Containers are queried strictly one after another in declared order. Found keys are
// taken from each container, and the search stops as soon as every requested key has a
// value. Containers without data are skipped; a failing container aborts the search.
type Search struct {
	// Provider is the scheme key used in errors.
	Provider string

	// Containers is the declared preference and fallback order.
	Containers []string

	// CaseSensitive selects exact key comparison. When false, keys compare by ordinal
	// case fold and the first of several case variants in a container wins.
	CaseSensitive bool

	Fetch FetchFunc
}

// Run resolves keys.
//
// The result holds exactly the requested keys. When containers run out first, Run
// returns provider.KeyNotFoundError with the keys still missing. The context is checked
// before every container query; a cancelled search returns the context error.
func (s Search) Run(ctx context.Context, keys []string) (map[string]string, error) {
	remaining := Unique(keys, s.CaseSensitive)
	result := make(map[string]string, len(remaining))
	if len(remaining) == 0 {
		return result, nil
	}

	for _, container := range s.Containers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pairs, err := s.Fetch(ctx, container)
		if err != nil {
			return nil, provider.Backend(ctx, s.Provider, "query container", container, err)
		}
		if len(pairs) == 0 {
			continue
		}

		remaining = take(Merge(pairs, s.CaseSensitive), remaining, result)
		if len(remaining) == 0 {
			return result, nil
		}
	}

	return nil, provider.KeyNotFoundError{Provider: s.Provider, Keys: remaining}
}

// LookupAll resolves keys against a single lookup, for providers whose backend is one
// flat set of values.
func LookupAll(providerKey string, lookup Lookup, keys []string) (map[string]string, error) {
	remaining := Unique(keys, lookup.CaseSensitive())
	result := make(map[string]string, len(remaining))

	remaining = take(lookup, remaining, result)
	if len(remaining) > 0 {
		return nil, provider.KeyNotFoundError{Provider: providerKey, Keys: remaining}
	}
	return result, nil
}

// Unique returns keys without duplicates, keeping first-seen order. When caseSensitive
// is false, case variants of a key are duplicates and the first spelling is kept. The
// returned slice is always newly allocated.
func Unique(keys []string, caseSensitive bool) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		id := k
		if !caseSensitive {
			id = Fold(k)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, k)
	}
	return out
}

// take moves every key of remaining that lookup knows into result and returns the keys
// still missing. remaining is filtered in place.
func take(lookup Lookup, remaining []string, result map[string]string) []string {
	missing := remaining[:0]
	for _, key := range remaining {
		if v, ok := lookup.Get(key); ok {
			result[key] = v
			continue
		}
		missing = append(missing, key)
	}
	return missing
}
