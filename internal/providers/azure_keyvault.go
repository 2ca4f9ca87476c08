package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/pkg/provider"
)

const azureKeyVaultKey = "azkv"

// Azure auth types accepted by the auth-type option.
const (
	azureAuthDefault         = "default"
	azureAuthManagedIdentity = "managed-identity"
	azureAuthClientSecret    = "client-secret"
)

// AzureKeyVaultClientAPI defines the interface for Azure Key Vault operations.
// This allows for mocking in tests.
type AzureKeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse]
}

// AzureKeyVaultProvider resolves every key as a secret of the same name in one vault.
type AzureKeyVaultProvider struct {
	logger *logging.Logger
	client AzureKeyVaultClientAPI

	initialized bool
	vaultURL    string
}

type azureKeyVaultOptions struct {
	VaultURI     string `uri:"vault-uri"`
	KeyVaultName string `uri:"keyvault-name"`
	AuthType     string `uri:"auth-type"`
	TenantID     string `uri:"tenant-id"`
	ClientID     string `uri:"client-id"`
	ClientSecret string `uri:"client-secret"`
}

// AzureProviderOption is a functional option for configuring the Azure provider.
type AzureProviderOption func(*AzureKeyVaultProvider)

// WithAzureKeyVaultClient sets a custom Azure Key Vault client (for testing).
func WithAzureKeyVaultClient(client AzureKeyVaultClientAPI) AzureProviderOption {
	return func(p *AzureKeyVaultProvider) {
		p.client = client
	}
}

// WithAzureLogger sets the logger.
func WithAzureLogger(logger *logging.Logger) AzureProviderOption {
	return func(p *AzureKeyVaultProvider) {
		p.logger = logger
	}
}

// NewAzureKeyVaultProvider creates an uninitialized Key Vault provider.
func NewAzureKeyVaultProvider(opts ...AzureProviderOption) *AzureKeyVaultProvider {
	p := &AzureKeyVaultProvider{logger: logging.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Identity implements provider.Provider.
func (p *AzureKeyVaultProvider) Identity() provider.Identity {
	return provider.Identity{
		Key:         azureKeyVaultKey,
		DisplayName: "Azure Key Vault",
		Description: "Reads each key from the Key Vault secret of the same name.",
	}
}

// Options implements provider.Provider.
func (p *AzureKeyVaultProvider) Options() []provider.OptionDescriptor {
	return []provider.OptionDescriptor{
		{
			Name:             "vault-uri",
			Type:             provider.OptionString,
			ShortDescription: "Vault URL, e.g. https://myvault.vault.azure.net",
		},
		{
			Name:             "keyvault-name",
			Type:             provider.OptionString,
			ShortDescription: "Vault name; expands to https://<name>.vault.azure.net",
			LongDescription:  "Exactly one of vault-uri and keyvault-name must be given.",
		},
		{
			Name:             "auth-type",
			Type:             provider.OptionEnumeration,
			ShortDescription: "How to authenticate",
			DefaultValue:     azureAuthDefault,
			Values:           []string{azureAuthDefault, azureAuthManagedIdentity, azureAuthClientSecret},
		},
		{
			Name:             "tenant-id",
			Type:             provider.OptionString,
			ShortDescription: "Tenant for client-secret auth",
		},
		{
			Name:             "client-id",
			Type:             provider.OptionString,
			ShortDescription: "Application ID, or user-assigned identity for managed-identity auth",
		},
		{
			Name:             "client-secret",
			Type:             provider.OptionPassword,
			ShortDescription: "Secret for client-secret auth",
		},
	}
}

// Initialize implements provider.Provider.
func (p *AzureKeyVaultProvider) Initialize(ctx context.Context, configURI string) error {
	opts := azureKeyVaultOptions{AuthType: azureAuthDefault}
	if _, err := configuri.Load(azureKeyVaultKey, configURI, &opts); err != nil {
		return err
	}

	vaultURL, err := opts.vaultURL()
	if err != nil {
		return err
	}

	client := p.client
	if client == nil {
		cred, err := opts.credential()
		if err != nil {
			return err
		}
		c, err := azsecrets.NewClient(vaultURL, cred, nil)
		if err != nil {
			return invalidOption(azureKeyVaultKey, "vault-uri", err.Error())
		}
		client = c
	}

	pager := client.NewListSecretPropertiesPager(nil)
	if pager.More() {
		if _, err := pager.NextPage(ctx); err != nil {
			return provider.ProbeFailed(ctx, azureKeyVaultKey, err)
		}
	}
	p.logger.Debug("azkv: connected to %s", vaultURL)

	p.client = client
	p.vaultURL = vaultURL
	p.initialized = true
	return nil
}

func (o azureKeyVaultOptions) vaultURL() (string, error) {
	switch {
	case o.VaultURI != "" && o.KeyVaultName != "":
		return "", conflictingOptions(azureKeyVaultKey, "vault-uri", "keyvault-name")
	case o.VaultURI == "" && o.KeyVaultName == "":
		return "", missingOption(azureKeyVaultKey, "vault-uri", "one of vault-uri or keyvault-name is required")
	case o.KeyVaultName != "":
		return fmt.Sprintf("https://%s.vault.azure.net", o.KeyVaultName), nil
	}

	u, err := url.Parse(o.VaultURI)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return "", invalidOption(azureKeyVaultKey, "vault-uri", "must be an https URL")
	}
	return o.VaultURI, nil
}

func (o azureKeyVaultOptions) credential() (azcore.TokenCredential, error) {
	var (
		cred azcore.TokenCredential
		err  error
	)
	switch o.AuthType {
	case azureAuthDefault:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	case azureAuthManagedIdentity:
		var miOpts *azidentity.ManagedIdentityCredentialOptions
		if o.ClientID != "" {
			miOpts = &azidentity.ManagedIdentityCredentialOptions{ID: azidentity.ClientID(o.ClientID)}
		}
		cred, err = azidentity.NewManagedIdentityCredential(miOpts)
	case azureAuthClientSecret:
		required := []struct{ field, value string }{
			{"tenant-id", o.TenantID},
			{"client-id", o.ClientID},
			{"client-secret", o.ClientSecret},
		}
		for _, r := range required {
			if r.value == "" {
				return nil, provider.ConfigurationError{
					Provider: azureKeyVaultKey,
					Code:     provider.CodeMissingCredentials,
					Field:    r.field,
					Message:  "client-secret auth needs tenant-id, client-id and client-secret",
				}
			}
		}
		cred, err = azidentity.NewClientSecretCredential(o.TenantID, o.ClientID, o.ClientSecret, nil)
	default:
		return nil, invalidOption(azureKeyVaultKey, "auth-type", fmt.Sprintf("unknown auth type %q", o.AuthType))
	}
	if err != nil {
		return nil, provider.ConfigurationError{
			Provider: azureKeyVaultKey,
			Code:     provider.CodeMissingCredentials,
			Message:  "cannot build Azure credential",
			Err:      err,
		}
	}
	return cred, nil
}

// ResolveSecrets implements provider.Provider. Secrets that do not exist are collected
// and reported together.
func (p *AzureKeyVaultProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if !p.initialized {
		return nil, provider.NotInitializedError{Provider: azureKeyVaultKey, Op: "ResolveSecrets"}
	}

	result := make(map[string]string, len(keys))
	var missing []string
	for _, key := range resolve.Unique(keys, true) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := p.client.GetSecret(ctx, key, "", nil)
		if err != nil {
			if isAzureNotFound(err) {
				missing = append(missing, key)
				continue
			}
			return nil, provider.Backend(ctx, azureKeyVaultKey, "get secret", key, err)
		}
		if resp.Value == nil {
			missing = append(missing, key)
			continue
		}
		result[key] = *resp.Value
	}

	if len(missing) > 0 {
		return nil, provider.KeyNotFoundError{Provider: azureKeyVaultKey, Keys: missing}
	}
	p.logger.Debug("azkv: resolved %d secrets from %s", len(result), p.vaultURL)
	return result, nil
}

func isAzureNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
