package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsrc/internal/providers"
	"github.com/systmms/secretsrc/pkg/provider"
	"github.com/systmms/secretsrc/tests/fakes"
	"github.com/systmms/secretsrc/tests/testutil"
)

var builtinKeys = []string{
	"env", "file-secret", "awssm", "awsps", "azkv", "gcsm", "hcv",
	"keychain", "libsecret", "pass", "wincred",
}

func TestRegistryList(t *testing.T) {
	t.Parallel()

	registry := providers.NewRegistry()
	assert.Equal(t, builtinKeys, registry.Keys())

	list := registry.List()
	require.Len(t, list, len(builtinKeys))
	for i, p := range list {
		id := p.Identity()
		assert.Equal(t, builtinKeys[i], id.Key)
		assert.NotEmpty(t, id.DisplayName, id.Key)
		assert.NotEmpty(t, id.Description, id.Key)
		assert.NotEmpty(t, p.Options(), "%s declares no options", id.Key)
	}
}

func TestRegistryFind(t *testing.T) {
	t.Parallel()

	registry := providers.NewRegistry()

	tests := []struct {
		key   string
		found bool
	}{
		{"env", true},
		{"awssm", true},
		{"hcv", true},
		{"wincred", true},
		{"ENV", false},
		{"vault", false},
		{"", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			p, ok := registry.Find(tt.key)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				require.NotNil(t, p)
				assert.Equal(t, tt.key, p.Identity().Key)
			} else {
				assert.Nil(t, p)
			}
		})
	}
}

func TestRegistryFindReturnsFreshInstances(t *testing.T) {
	t.Parallel()

	registry := providers.NewRegistry(providers.WithEnvironment(func() []string { return []string{"A=1"} }))

	first, ok := registry.Find("env")
	require.True(t, ok)
	require.NoError(t, first.Initialize(context.Background(), "env://"))

	second, ok := registry.Find("env")
	require.True(t, ok)
	assert.NotSame(t, first, second)

	_, err := second.ResolveSecrets(context.Background(), []string{"A"})
	var notInit provider.NotInitializedError
	assert.ErrorAs(t, err, &notInit, "a second instance starts uninitialized")
}

func TestRegistryOpen(t *testing.T) {
	t.Parallel()

	sm := fakes.NewFakeSecretsManagerClient()
	sm.AddSecretString("prod/app", `{"DB_USER":"admin"}`)
	keyring := fakes.NewFakeKeyringClient()
	keyring.Add("secretsrc", "token", "t0k3n")

	registry := providers.NewRegistry(
		providers.WithEnvironment(func() []string { return []string{"HOME=/home/test"} }),
		providers.WithAWSOptions(providers.WithSecretsManagerClient(sm), providers.WithSTSClient(&fakes.FakeSTSClient{})),
		providers.WithKeyring(keyring),
		providers.WithPlatform("linux"),
	)

	tests := []struct {
		uri  string
		key  string
		want map[string]string
	}{
		{"env://", "home", map[string]string{"home": "/home/test"}},
		{"awssm://?secrets=prod/app&region=us-east-1", "db_user", map[string]string{"db_user": "admin"}},
		{"libsecret://", "token", map[string]string{"token": "t0k3n"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.uri, func(t *testing.T) {
			t.Parallel()

			p, err := registry.Open(context.Background(), tt.uri)
			require.NoError(t, err)

			got, err := p.ResolveSecrets(context.Background(), []string{tt.key})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryOpenErrors(t *testing.T) {
	t.Parallel()

	registry := providers.NewRegistry(providers.WithPlatform("linux"))

	tests := []struct {
		name string
		uri  string
		code provider.ErrorCode
	}{
		{"unparseable", "::", provider.CodeInvalidURI},
		{"no scheme", "just-a-path", provider.CodeInvalidURI},
		{"unknown scheme", "doppler://?project=x", provider.CodeUnknownProvider},
		{"initialize failure", "awssm://?region=us-east-1", provider.CodeMissingOption},
		{"platform gate", "keychain://", provider.CodeUnsupportedPlatform},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := registry.Open(context.Background(), tt.uri)
			assert.Nil(t, p)
			testutil.AssertConfigError(t, err, tt.code)
		})
	}
}

func TestRegistryPlatformGates(t *testing.T) {
	t.Parallel()

	registry := providers.NewRegistry(providers.WithPlatform("windows"))

	supported := map[string]bool{}
	for _, p := range registry.List() {
		if gate, ok := p.(provider.PlatformGate); ok {
			supported[p.Identity().Key] = gate.IsSupported()
		}
	}
	assert.Equal(t, map[string]bool{
		"keychain":  false,
		"libsecret": false,
		"pass":      false,
		"wincred":   true,
	}, supported)
}

type recordingWrapper struct {
	provider.Provider
	wrapped *[]string
}

func TestRegistryWrapper(t *testing.T) {
	t.Parallel()

	var wrapped []string
	registry := providers.NewRegistry(
		providers.WithEnvironment(func() []string { return []string{"A=1"} }),
		providers.WithWrapper(func(p provider.Provider) provider.Provider {
			wrapped = append(wrapped, p.Identity().Key)
			return recordingWrapper{Provider: p, wrapped: &wrapped}
		}),
	)

	_ = registry.List()
	assert.Empty(t, wrapped, "List is not decorated")

	p, err := registry.Open(context.Background(), "env://")
	require.NoError(t, err)
	_, ok := p.(recordingWrapper)
	assert.True(t, ok)
	assert.Equal(t, []string{"env"}, wrapped)

	got, err := p.ResolveSecrets(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, got)
}
