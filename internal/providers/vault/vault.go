// Package vault is the HashiCorp Vault adapter, selected by the hcv scheme.
//
// Secrets are read from a KV mount (version 1 or 2). Every secret path listed in the
// secrets option is a container whose fields are searched in order. Responses are decoded
// in document order so the case-insensitive tie-break is the same on every run.
package vault

import (
	"context"
	"os"

	"github.com/hashicorp/vault/api"

	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/pkg/provider"
)

// Key is the URI scheme of the adapter.
const Key = "hcv"

const (
	connectionHTTPS = "https"
	connectionHTTP  = "http"
	defaultMount    = "secret"
	defaultKV       = 2
)

// VaultProvider implements provider.Provider for HashiCorp Vault.
type VaultProvider struct {
	logger *logging.Logger

	initialized bool
	client      *api.Client
	mount       string
	kvVersion   int
	search      resolve.Search
}

// Config holds the URI options of the hcv scheme.
type Config struct {
	ConnectionType string   `uri:"connection-type"`
	Token          string   `uri:"token"`
	RoleID         string   `uri:"role-id"`
	SecretID       string   `uri:"secret-id"`
	Namespace      string   `uri:"namespace"`
	Mount          string   `uri:"mount"`
	KVVersion      int      `uri:"kv-version"`
	Secrets        []string `uri:"secrets"`
	CaseSensitive  bool     `uri:"case-sensitive"`
}

// NewVaultProvider creates an uninitialized Vault provider.
func NewVaultProvider(logger *logging.Logger) *VaultProvider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &VaultProvider{logger: logger}
}

// Identity implements provider.Provider.
func (v *VaultProvider) Identity() provider.Identity {
	return provider.Identity{
		Key:         Key,
		DisplayName: "HashiCorp Vault",
		Description: "Reads keys from KV secrets in HashiCorp Vault, searching the listed secret paths in order.",
	}
}

// Options implements provider.Provider.
func (v *VaultProvider) Options() []provider.OptionDescriptor {
	return []provider.OptionDescriptor{
		{
			Name:             "secrets",
			Type:             provider.OptionString,
			ShortDescription: "Comma separated secret paths below the mount, searched in order",
		},
		{
			Name:             "connection-type",
			Type:             provider.OptionEnumeration,
			ShortDescription: "Protocol used to reach the server given as URI authority",
			DefaultValue:     connectionHTTPS,
			Values:           []string{connectionHTTPS, connectionHTTP},
		},
		{
			Name:             "token",
			Type:             provider.OptionPassword,
			ShortDescription: "Vault token",
			LongDescription:  "Defaults to VAULT_TOKEN. Cannot be combined with AppRole credentials.",
		},
		{
			Name:             "role-id",
			Type:             provider.OptionString,
			ShortDescription: "AppRole role ID",
		},
		{
			Name:             "secret-id",
			Type:             provider.OptionPassword,
			ShortDescription: "AppRole secret ID",
		},
		{
			Name:             "namespace",
			Type:             provider.OptionString,
			ShortDescription: "Vault Enterprise namespace",
		},
		{
			Name:             "mount",
			Type:             provider.OptionString,
			ShortDescription: "KV mount path",
			DefaultValue:     defaultMount,
		},
		{
			Name:             "kv-version",
			Type:             provider.OptionEnumeration,
			ShortDescription: "KV engine version of the mount",
			DefaultValue:     "2",
			Values:           []string{"1", "2"},
		},
		{
			Name:             "case-sensitive",
			Type:             provider.OptionBoolean,
			ShortDescription: "Compare keys exactly",
			DefaultValue:     "false",
		},
	}
}

// Initialize implements provider.Provider. It authenticates and checks the token.
func (v *VaultProvider) Initialize(ctx context.Context, configURI string) error {
	cfg := Config{
		ConnectionType: connectionHTTPS,
		Mount:          defaultMount,
		KVVersion:      defaultKV,
	}
	u, err := configuri.Load(Key, configURI, &cfg)
	if err != nil {
		return err
	}
	if err := cfg.validate(u.Authority); err != nil {
		return err
	}
	if cfg.Token == "" && cfg.RoleID == "" {
		cfg.Token = os.Getenv("VAULT_TOKEN")
	}
	if cfg.Token == "" && cfg.RoleID == "" {
		return provider.ConfigurationError{
			Provider: Key,
			Code:     provider.CodeMissingCredentials,
			Field:    "token",
			Message:  "no token and no AppRole credentials given",
		}
	}

	client, err := newClient(cfg.ConnectionType+"://"+u.Authority, cfg.Namespace)
	if err != nil {
		return provider.ConfigurationError{Provider: Key, Code: provider.CodeInvalidURI, Message: "cannot create client", Err: err}
	}
	if err := authenticate(ctx, client, cfg); err != nil {
		return provider.ProbeFailed(ctx, Key, err)
	}
	v.logger.Debug("hcv: authenticated against %s", client.Address())

	v.client = client
	v.mount = cfg.Mount
	v.kvVersion = cfg.KVVersion
	v.search = resolve.Search{
		Provider:      Key,
		Containers:    cfg.Secrets,
		CaseSensitive: cfg.CaseSensitive,
		Fetch:         v.fetch,
	}
	v.initialized = true
	return nil
}

func (c Config) validate(authority string) error {
	switch {
	case authority == "":
		return provider.ConfigurationError{Provider: Key, Code: provider.CodeMissingOption, Field: "authority", Message: "the server must be given as host[:port]"}
	case c.ConnectionType != connectionHTTPS && c.ConnectionType != connectionHTTP:
		return provider.ConfigurationError{Provider: Key, Code: provider.CodeInvalidOption, Field: "connection-type", Message: "must be https or http"}
	case c.KVVersion != 1 && c.KVVersion != 2:
		return provider.ConfigurationError{Provider: Key, Code: provider.CodeInvalidOption, Field: "kv-version", Message: "must be 1 or 2"}
	case c.Mount == "":
		return provider.ConfigurationError{Provider: Key, Code: provider.CodeInvalidOption, Field: "mount", Message: "must not be empty"}
	case len(c.Secrets) == 0:
		return provider.ConfigurationError{Provider: Key, Code: provider.CodeMissingOption, Field: "secrets", Message: "at least one secret path is required"}
	case c.Token != "" && (c.RoleID != "" || c.SecretID != ""):
		return provider.ConfigurationError{Provider: Key, Code: provider.CodeConflictingOptions, Field: "token", Message: "token cannot be combined with role-id or secret-id"}
	case c.RoleID != "" && c.SecretID == "":
		return provider.ConfigurationError{Provider: Key, Code: provider.CodeMissingCredentials, Field: "secret-id", Message: "role-id was given without secret-id"}
	case c.RoleID == "" && c.SecretID != "":
		return provider.ConfigurationError{Provider: Key, Code: provider.CodeMissingCredentials, Field: "role-id", Message: "secret-id was given without role-id"}
	}
	return nil
}

// ResolveSecrets implements provider.Provider.
func (v *VaultProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if !v.initialized {
		return nil, provider.NotInitializedError{Provider: Key, Op: "ResolveSecrets"}
	}
	return v.search.Run(ctx, keys)
}

func (v *VaultProvider) fetch(ctx context.Context, secretPath string) ([]resolve.Pair, error) {
	pairs, err := readKV(ctx, v.client, v.mount, v.kvVersion, secretPath)
	if err != nil {
		return nil, err
	}
	v.logger.Debug("hcv: secret %s holds %d keys", secretPath, len(pairs))
	return pairs, nil
}
