package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/pkg/provider"
)

// FakeProvider is an in-memory provider.Provider.
//
// Secrets are matched case-insensitively unless WithCaseSensitive is used. Initialize
// accepts any URI whose scheme is the fake's key, unless WithInitError is set.
//
// Example usage:
//
//	fake := fakes.NewFakeProvider("fake").
//	    WithSecret("DB_PASSWORD", "secret123").
//	    WithResolveError(errors.New("connection failed"))
type FakeProvider struct {
	key           string
	caseSensitive bool

	secrets      []resolve.Pair
	initErr      error
	resolveErr   error
	resolveDelay time.Duration

	mu          sync.Mutex
	initialized bool
	callCount   map[string]int
	lastURI     string
}

// NewFakeProvider creates a FakeProvider selected by scheme key.
func NewFakeProvider(key string) *FakeProvider {
	return &FakeProvider{
		key:       key,
		callCount: make(map[string]int),
	}
}

// WithSecret adds a secret. Insertion order decides case-insensitive ties.
func (f *FakeProvider) WithSecret(key, value string) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets = append(f.secrets, resolve.Pair{Key: key, Value: value})
	return f
}

// WithCaseSensitive switches to exact key matching.
func (f *FakeProvider) WithCaseSensitive() *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caseSensitive = true
	return f
}

// WithInitError makes Initialize fail with err.
func (f *FakeProvider) WithInitError(err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initErr = err
	return f
}

// WithResolveError makes ResolveSecrets fail with err.
func (f *FakeProvider) WithResolveError(err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveErr = err
	return f
}

// WithDelay makes ResolveSecrets wait d, or until the context is done.
func (f *FakeProvider) WithDelay(d time.Duration) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveDelay = d
	return f
}

// CallCount returns how often method was called.
func (f *FakeProvider) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount[method]
}

// LastURI returns the URI passed to the last Initialize call.
func (f *FakeProvider) LastURI() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastURI
}

// Identity implements provider.Provider.
func (f *FakeProvider) Identity() provider.Identity {
	return provider.Identity{
		Key:         f.key,
		DisplayName: "Fake " + f.key,
		Description: "In-memory provider for tests.",
	}
}

// Options implements provider.Provider.
func (f *FakeProvider) Options() []provider.OptionDescriptor {
	return []provider.OptionDescriptor{{
		Name:             "case-sensitive",
		Type:             provider.OptionBoolean,
		ShortDescription: "Match key names exactly.",
		DefaultValue:     "false",
	}}
}

// Initialize implements provider.Provider.
func (f *FakeProvider) Initialize(ctx context.Context, configURI string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount["Initialize"]++
	f.lastURI = configURI
	f.initialized = false

	if err := ctx.Err(); err != nil {
		return err
	}
	if f.initErr != nil {
		return f.initErr
	}
	scheme := ""
	for i := 0; i < len(configURI); i++ {
		if configURI[i] == ':' {
			scheme = configURI[:i]
			break
		}
	}
	if scheme != f.key {
		return provider.ConfigurationError{
			Provider: f.key,
			Code:     provider.CodeSchemeMismatch,
			Message:  fmt.Sprintf("URI scheme %q does not select this provider", scheme),
		}
	}
	f.initialized = true
	return nil
}

// ResolveSecrets implements provider.Provider.
func (f *FakeProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	f.mu.Lock()
	f.callCount["ResolveSecrets"]++
	initialized, delay, resolveErr := f.initialized, f.resolveDelay, f.resolveErr
	lookup := resolve.Merge(f.secrets, f.caseSensitive)
	f.mu.Unlock()

	if !initialized {
		return nil, provider.NotInitializedError{Provider: f.key, Op: "resolve secrets"}
	}
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if resolveErr != nil {
		return nil, resolveErr
	}
	return resolve.LookupAll(f.key, lookup, keys)
}

var _ provider.Provider = (*FakeProvider)(nil)
