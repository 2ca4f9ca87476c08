package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeAzureKeyVaultClient is a fake of the azsecrets client
type FakeAzureKeyVaultClient struct {
	mu sync.Mutex

	// Secrets maps secret names to values
	Secrets map[string]string
	// Errors maps secret names to errors to return
	Errors map[string]error
	// ListErr is returned by the first page of NewListSecretPropertiesPager
	ListErr error

	calls []string
}

// NewFakeAzureKeyVaultClient creates a new fake Azure Key Vault client
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		Secrets: make(map[string]string),
		Errors:  make(map[string]error),
	}
}

// AddSecretString adds a secret
func (f *FakeAzureKeyVaultClient) AddSecretString(name, value string) {
	f.Secrets[name] = value
}

// AddError configures the fake to return an error for a specific secret
func (f *FakeAzureKeyVaultClient) AddError(name string, err error) {
	f.Errors[name] = err
}

// Calls returns the secret names requested so far, in order.
func (f *FakeAzureKeyVaultClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// GetSecret fakes the GetSecret operation
func (f *FakeAzureKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return azsecrets.GetSecretResponse{}, err
	}
	if err, ok := f.Errors[name]; ok {
		return azsecrets.GetSecretResponse{}, err
	}
	value, ok := f.Secrets[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
	}

	id := azsecrets.ID(fmt.Sprintf("https://test-vault.vault.azure.net/secrets/%s/1", name))
	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:    &id,
			Value: to.Ptr(value),
		},
	}, nil
}

// NewListSecretPropertiesPager returns a single page listing every secret name
func (f *FakeAzureKeyVaultClient) NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse] {
	done := false
	return runtime.NewPager(runtime.PagingHandler[azsecrets.ListSecretPropertiesResponse]{
		More: func(azsecrets.ListSecretPropertiesResponse) bool {
			return false
		},
		Fetcher: func(ctx context.Context, _ *azsecrets.ListSecretPropertiesResponse) (azsecrets.ListSecretPropertiesResponse, error) {
			if done {
				return azsecrets.ListSecretPropertiesResponse{}, fmt.Errorf("no more pages")
			}
			done = true
			if f.ListErr != nil {
				return azsecrets.ListSecretPropertiesResponse{}, f.ListErr
			}
			var resp azsecrets.ListSecretPropertiesResponse
			for name := range f.Secrets {
				id := azsecrets.ID(fmt.Sprintf("https://test-vault.vault.azure.net/secrets/%s", name))
				resp.Value = append(resp.Value, &azsecrets.SecretProperties{ID: &id})
			}
			return resp, nil
		},
	})
}

// AzureNotFoundError creates a fake Azure not found error
func AzureNotFoundError(secretName string) error {
	return &azcore.ResponseError{
		StatusCode: 404,
		ErrorCode:  "SecretNotFound",
	}
}

// AzureForbiddenError creates a fake Azure forbidden error
func AzureForbiddenError() error {
	return &azcore.ResponseError{
		StatusCode: 403,
		ErrorCode:  "Forbidden",
	}
}
