package providers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsrc/internal/providers"
	"github.com/systmms/secretsrc/pkg/provider"
	"github.com/systmms/secretsrc/tests/fakes"
	"github.com/systmms/secretsrc/tests/testutil"
)

func TestCredentialStoreProvidersContract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		goos string
		new  func(opts ...providers.CredentialStoreOption) *providers.CredentialStoreProvider
	}{
		{"keychain", "darwin", providers.NewKeychainProvider},
		{"libsecret", "linux", providers.NewLibsecretProvider},
		{"wincred", "windows", providers.NewWincredProvider},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			client := fakes.NewFakeKeyringClient()
			client.Add("secretsrc", "api-key", "sk-123")
			client.Add("secretsrc", "db-pass", "hunter2")

			testutil.RunProviderContractTests(t, testutil.ProviderTestCase{
				Name: tt.key,
				New: func() provider.Provider {
					return tt.new(providers.WithKeyringClient(client), providers.WithGOOS(tt.goos))
				},
				URI:      tt.key + "://",
				TestData: map[string]string{"api-key": "sk-123", "db-pass": "hunter2"},
			})
		})
	}
}

func TestCredentialStoreProviderPlatformGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    *providers.CredentialStoreProvider
		uri  string
		want bool
	}{
		{"keychain on darwin", providers.NewKeychainProvider(providers.WithGOOS("darwin")), "keychain://", true},
		{"keychain on linux", providers.NewKeychainProvider(providers.WithGOOS("linux")), "keychain://", false},
		{"libsecret on windows", providers.NewLibsecretProvider(providers.WithGOOS("windows")), "libsecret://", false},
		{"wincred on windows", providers.NewWincredProvider(providers.WithGOOS("windows")), "wincred://", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.p.IsSupported())
			if tt.want {
				return
			}
			err := tt.p.Initialize(context.Background(), tt.uri)
			testutil.AssertConfigError(t, err, provider.CodeUnsupportedPlatform)
		})
	}
}

func TestCredentialStoreProviderService(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeKeyringClient()
	client.Add("secretsrc", "token", "default-service")
	client.Add("billing", "token", "billing-service")

	p := providers.NewLibsecretProvider(providers.WithKeyringClient(client), providers.WithGOOS("linux"))
	require.NoError(t, p.Initialize(context.Background(), "libsecret://?service=billing"))

	got, err := p.ResolveSecrets(context.Background(), []string{"token"})
	require.NoError(t, err)
	assert.Equal(t, "billing-service", got["token"])

	err = p.Initialize(context.Background(), "libsecret://?service=")
	cfgErr := testutil.AssertConfigError(t, err, provider.CodeMissingOption)
	assert.Equal(t, "service", cfgErr.Field)
}

func TestCredentialStoreProviderResolveErrors(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeKeyringClient()
	client.Add("secretsrc", "present", "v")

	p := providers.NewLibsecretProvider(providers.WithKeyringClient(client), providers.WithGOOS("linux"))
	require.NoError(t, p.Initialize(context.Background(), "libsecret://"))

	_, err := p.ResolveSecrets(context.Background(), []string{"a", "present", "b"})
	testutil.AssertKeysNotFound(t, err, "a", "b")
	assert.Equal(t, []string{"a", "present", "b"}, client.Gets(), "all keys are looked up before reporting")

	locked := errors.New("secret service is locked")
	client.GetErr = locked
	_, err = p.ResolveSecrets(context.Background(), []string{"present"})
	be := testutil.AssertBackendError(t, err)
	assert.Equal(t, "present", be.Container)
	assert.ErrorIs(t, err, locked)
}

func TestCredentialStoreProviderSetSecret(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeKeyringClient()
	client.Add("secretsrc", "existing", "old")
	client.Add("secretsrc", "other", "untouched")

	p := providers.NewKeychainProvider(providers.WithKeyringClient(client), providers.WithGOOS("darwin"))

	err := p.SetSecret(context.Background(), "k", "v", false)
	var notInit provider.NotInitializedError
	require.ErrorAs(t, err, &notInit)

	require.NoError(t, p.Initialize(context.Background(), "keychain://"))

	require.NoError(t, p.SetSecret(context.Background(), "fresh", "new-value", false))

	err = p.SetSecret(context.Background(), "existing", "replacement", false)
	assert.ErrorIs(t, err, provider.ErrSecretExists)

	require.NoError(t, p.SetSecret(context.Background(), "existing", "replacement", true))

	got, err := p.ResolveSecrets(context.Background(), []string{"fresh", "existing", "other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"fresh": "new-value", "existing": "replacement", "other": "untouched"}, got)

	client.SetErr = errors.New("write denied")
	err = p.SetSecret(context.Background(), "fresh", "x", true)
	testutil.AssertBackendError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.SetSecret(ctx, "fresh", "x", true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCredentialStoreProviderNeverLogsValues(t *testing.T) {
	t.Parallel()

	logger := testutil.NewTestLogger(t)
	client := fakes.NewFakeKeyringClient()
	p := providers.NewWincredProvider(
		providers.WithKeyringClient(client),
		providers.WithGOOS("windows"),
		providers.WithCredentialStoreLogger(logger.Logger()),
	)
	require.NoError(t, p.Initialize(context.Background(), "wincred://"))
	require.NoError(t, p.SetSecret(context.Background(), "api-key", "sk-live-999", false))

	testutil.AssertNoSecretLeak(t, logger.GetOutput(), []string{"sk-live-999"})
}
