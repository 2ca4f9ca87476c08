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

func TestAzureKeyVaultProviderContract(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAzureKeyVaultClient()
	client.AddSecretString("db-user", "admin")
	client.AddSecretString("db-pass", "hunter2")

	testutil.RunProviderContractTests(t, testutil.ProviderTestCase{
		Name: "azkv",
		New: func() provider.Provider {
			return providers.NewAzureKeyVaultProvider(providers.WithAzureKeyVaultClient(client))
		},
		URI:      "azkv://?keyvault-name=test-vault",
		TestData: map[string]string{"db-user": "admin", "db-pass": "hunter2"},
	})
}

func TestAzureKeyVaultProviderResolve(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAzureKeyVaultClient()
	client.AddSecretString("api-key", "sk-123")
	client.AddSecretString("db-pass", "hunter2")
	client.AddError("locked", fakes.AzureForbiddenError())

	p := providers.NewAzureKeyVaultProvider(providers.WithAzureKeyVaultClient(client))
	require.NoError(t, p.Initialize(context.Background(), "azkv://?vault-uri=https://test-vault.vault.azure.net"))

	t.Run("found", func(t *testing.T) {
		got, err := p.ResolveSecrets(context.Background(), []string{"api-key", "db-pass", "api-key"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"api-key": "sk-123", "db-pass": "hunter2"}, got)
	})

	t.Run("every missing key is reported", func(t *testing.T) {
		got, err := p.ResolveSecrets(context.Background(), []string{"nope", "api-key", "also-nope"})
		assert.Nil(t, got)
		testutil.AssertKeysNotFound(t, err, "nope", "also-nope")
	})

	t.Run("forbidden is a backend error", func(t *testing.T) {
		_, err := p.ResolveSecrets(context.Background(), []string{"api-key", "locked"})
		be := testutil.AssertBackendError(t, err)
		assert.Equal(t, "locked", be.Container)
		assert.Equal(t, "azkv", be.Provider)
	})
}

func TestAzureKeyVaultProviderProbe(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeAzureKeyVaultClient()
	client.ListErr = fakes.AzureForbiddenError()

	p := providers.NewAzureKeyVaultProvider(providers.WithAzureKeyVaultClient(client))
	err := p.Initialize(context.Background(), "azkv://?keyvault-name=test-vault")
	testutil.AssertConfigError(t, err, provider.CodeConnectivityFailed)

	_, err = p.ResolveSecrets(context.Background(), []string{"a"})
	var notInit provider.NotInitializedError
	assert.ErrorAs(t, err, &notInit)
}

func TestAzureKeyVaultProviderInitializeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		uri   string
		code  provider.ErrorCode
		field string
	}{
		{"no vault", "azkv://", provider.CodeMissingOption, "vault-uri"},
		{"both vault options", "azkv://?vault-uri=https://a.vault.azure.net&keyvault-name=a", provider.CodeConflictingOptions, "vault-uri"},
		{"plain http", "azkv://?vault-uri=http://a.vault.azure.net", provider.CodeInvalidOption, "vault-uri"},
		{"unknown auth type", "azkv://?keyvault-name=a&auth-type=kerberos", provider.CodeInvalidOption, "auth-type"},
		{"client secret without tenant", "azkv://?keyvault-name=a&auth-type=client-secret&client-id=c&client-secret=s", provider.CodeMissingCredentials, "tenant-id"},
		{"client secret without client id", "azkv://?keyvault-name=a&auth-type=client-secret&tenant-id=t&client-secret=s", provider.CodeMissingCredentials, "client-id"},
		{"client secret without secret", "azkv://?keyvault-name=a&auth-type=client-secret&tenant-id=t&client-id=c", provider.CodeMissingCredentials, "client-secret"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := providers.NewAzureKeyVaultProvider()
			err := p.Initialize(context.Background(), tt.uri)
			cfgErr := testutil.AssertConfigError(t, err, tt.code)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
