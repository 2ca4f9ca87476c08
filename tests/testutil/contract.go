// This file implements the provider contract test framework that checks every provider
// implements provider.Provider the same way.

package testutil

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsrc/pkg/provider"
)

// ProviderTestCase defines a provider under test with its test data.
type ProviderTestCase struct {
	// Name is a descriptive name for this test case (usually the provider key)
	Name string

	// New returns a fresh, uninitialized provider wired to a fake backend
	New func() provider.Provider

	// URI is a configuration URI that Initialize accepts
	URI string

	// TestData maps keys to the values the backend serves for them
	TestData map[string]string

	// SkipConcurrency skips the concurrency test if true
	SkipConcurrency bool
}

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// RunProviderContractTests runs all contract tests for a provider.
//
// The suite checks that:
//   - Identity() is stable and its key is a lowercase scheme
//   - Options() are well formed
//   - ResolveSecrets before Initialize returns NotInitializedError
//   - Initialize rejects a URI of another scheme
//   - Every test key resolves to its value in one batch
//   - An empty request returns an empty map
//   - A missing key fails the whole batch with KeyNotFoundError
//   - A cancelled context is reported as cancellation
//   - Concurrent ResolveSecrets calls are safe
//
// Example usage:
//
//	testutil.RunProviderContractTests(t, testutil.ProviderTestCase{
//	    Name:     "env",
//	    New:      func() provider.Provider { return providers.NewEnvProvider(...) },
//	    URI:      "env://",
//	    TestData: map[string]string{"HOME": "/home/test"},
//	})
func RunProviderContractTests(t *testing.T, tc ProviderTestCase) {
	t.Helper()

	require.NotNil(t, tc.New, "New cannot be nil")
	require.NotEmpty(t, tc.Name, "Test case name cannot be empty")
	require.NotEmpty(t, tc.TestData, "TestData must contain at least one secret")

	t.Run("Identity", func(t *testing.T) {
		testProviderIdentity(t, tc)
	})

	t.Run("Options", func(t *testing.T) {
		testProviderOptions(t, tc)
	})

	t.Run("NotInitialized", func(t *testing.T) {
		testProviderNotInitialized(t, tc)
	})

	t.Run("SchemeMismatch", func(t *testing.T) {
		testProviderSchemeMismatch(t, tc)
	})

	t.Run("Resolve", func(t *testing.T) {
		testProviderResolve(t, tc)
	})

	t.Run("ErrorHandling", func(t *testing.T) {
		testProviderErrorHandling(t, tc)
	})

	if !tc.SkipConcurrency {
		t.Run("Concurrency", func(t *testing.T) {
			testProviderConcurrency(t, tc)
		})
	}
}

func testProviderIdentity(t *testing.T, tc ProviderTestCase) {
	t.Helper()

	p := tc.New()
	id := p.Identity()

	assert.Regexp(t, keyPattern, id.Key, "provider key should be a lowercase scheme")
	assert.NotEmpty(t, id.DisplayName)
	assert.NotEmpty(t, id.Description)
	assert.Equal(t, id, p.Identity(), "Identity() must be stable")
	assert.Equal(t, id, tc.New().Identity(), "Identity() must not depend on the instance")
}

func testProviderOptions(t *testing.T, tc ProviderTestCase) {
	t.Helper()

	seen := make(map[string]bool)
	for _, opt := range tc.New().Options() {
		assert.NotEmpty(t, opt.Name)
		assert.NotEmpty(t, opt.ShortDescription, "option %q needs a description", opt.Name)
		assert.False(t, seen[opt.Name], "option %q declared twice", opt.Name)
		seen[opt.Name] = true

		switch opt.Type {
		case provider.OptionEnumeration:
			assert.NotEmpty(t, opt.Values, "enumeration %q lists no values", opt.Name)
			if opt.DefaultValue != "" {
				assert.Contains(t, opt.Values, opt.DefaultValue)
			}
		case provider.OptionBoolean:
			if opt.DefaultValue != "" {
				assert.Contains(t, []string{"true", "false"}, opt.DefaultValue)
			}
		case provider.OptionPassword:
			assert.Empty(t, opt.DefaultValue, "password %q must not carry a default", opt.Name)
		}
	}
}

func testProviderNotInitialized(t *testing.T, tc ProviderTestCase) {
	t.Helper()

	p := tc.New()
	_, err := p.ResolveSecrets(context.Background(), testKeys(tc))

	var notInit provider.NotInitializedError
	require.ErrorAs(t, err, &notInit)
	assert.Equal(t, p.Identity().Key, notInit.Provider)
}

func testProviderSchemeMismatch(t *testing.T, tc ProviderTestCase) {
	t.Helper()

	p := tc.New()
	err := p.Initialize(context.Background(), "no-such-scheme://somewhere")
	cfgErr := AssertConfigError(t, err, provider.CodeSchemeMismatch)
	assert.Equal(t, p.Identity().Key, cfgErr.Provider)

	_, err = p.ResolveSecrets(context.Background(), testKeys(tc))
	var notInit provider.NotInitializedError
	assert.ErrorAs(t, err, &notInit, "failed Initialize must leave the provider uninitialized")
}

func testProviderResolve(t *testing.T, tc ProviderTestCase) {
	t.Helper()

	p := initialized(t, tc)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	got, err := p.ResolveSecrets(ctx, testKeys(tc))
	require.NoError(t, err)
	assert.Equal(t, tc.TestData, got, "result must hold exactly the requested keys")

	empty, err := p.ResolveSecrets(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testProviderErrorHandling(t *testing.T, tc ProviderTestCase) {
	t.Helper()

	p := initialized(t, tc)
	missing := "secretsrc-missing-" + time.Now().Format("20060102150405")

	t.Run("Resolve_NotFound", func(t *testing.T) {
		keys := append(testKeys(tc), missing)
		got, err := p.ResolveSecrets(context.Background(), keys)
		assert.Nil(t, got, "no partial result on missing keys")
		AssertKeysNotFound(t, err, missing)
	})

	t.Run("Context_Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.ResolveSecrets(ctx, testKeys(tc))
		require.Error(t, err)
		assert.True(t, provider.IsCancellation(err), "expected cancellation, got %v", err)
	})
}

func testProviderConcurrency(t *testing.T, tc ProviderTestCase) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	p := initialized(t, tc)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const concurrency = 20
	var wg sync.WaitGroup
	errs := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			got, err := p.ResolveSecrets(ctx, testKeys(tc))
			if err != nil {
				errs <- fmt.Errorf("goroutine %d: ResolveSecrets failed: %w", id, err)
				return
			}
			for k, want := range tc.TestData {
				if got[k] != want {
					errs <- fmt.Errorf("goroutine %d: key %q = %q, want %q", id, k, got[k], want)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func initialized(t *testing.T, tc ProviderTestCase) provider.Provider {
	t.Helper()

	p := tc.New()
	require.NoError(t, p.Initialize(context.Background(), tc.URI))
	return p
}

func testKeys(tc ProviderTestCase) []string {
	keys := make([]string, 0, len(tc.TestData))
	for k := range tc.TestData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
