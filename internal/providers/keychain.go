package providers

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/providers/contracts"
	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/pkg/provider"
)

const defaultKeyringService = "secretsrc"

// CredentialStoreProvider resolves keys from the credential store of the operating
// system. Keys are account names under one service. The same type backs the keychain
// (macOS), libsecret (Linux) and wincred (Windows) schemes; each instance only works on
// its own platform.
type CredentialStoreProvider struct {
	identity provider.Identity
	platform string
	goos     string
	client   contracts.KeyringClient
	logger   *logging.Logger

	initialized bool
	service     string
}

// CredentialStoreOption configures a CredentialStoreProvider.
type CredentialStoreOption func(*CredentialStoreProvider)

// WithKeyringClient sets a custom credential store client (for testing).
func WithKeyringClient(client contracts.KeyringClient) CredentialStoreOption {
	return func(p *CredentialStoreProvider) {
		p.client = client
	}
}

// WithGOOS overrides runtime.GOOS for the platform check.
func WithGOOS(goos string) CredentialStoreOption {
	return func(p *CredentialStoreProvider) {
		p.goos = goos
	}
}

// WithCredentialStoreLogger sets the logger.
func WithCredentialStoreLogger(logger *logging.Logger) CredentialStoreOption {
	return func(p *CredentialStoreProvider) {
		p.logger = logger
	}
}

// NewKeychainProvider creates the macOS Keychain provider.
func NewKeychainProvider(opts ...CredentialStoreOption) *CredentialStoreProvider {
	return newCredentialStoreProvider(provider.Identity{
		Key:         "keychain",
		DisplayName: "macOS Keychain",
		Description: "Reads generic passwords from the login keychain of the current user.",
	}, "darwin", opts)
}

// NewLibsecretProvider creates the Linux Secret Service provider.
func NewLibsecretProvider(opts ...CredentialStoreOption) *CredentialStoreProvider {
	return newCredentialStoreProvider(provider.Identity{
		Key:         "libsecret",
		DisplayName: "Secret Service (libsecret)",
		Description: "Reads secrets from the freedesktop Secret Service, e.g. GNOME Keyring or KWallet.",
	}, "linux", opts)
}

// NewWincredProvider creates the Windows Credential Manager provider.
func NewWincredProvider(opts ...CredentialStoreOption) *CredentialStoreProvider {
	return newCredentialStoreProvider(provider.Identity{
		Key:         "wincred",
		DisplayName: "Windows Credential Manager",
		Description: "Reads generic credentials from the Windows Credential Manager.",
	}, "windows", opts)
}

func newCredentialStoreProvider(identity provider.Identity, platform string, opts []CredentialStoreOption) *CredentialStoreProvider {
	p := &CredentialStoreProvider{
		identity: identity,
		platform: platform,
		goos:     runtime.GOOS,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = newOSKeyringClient()
	}
	return p
}

// Identity implements provider.Provider.
func (p *CredentialStoreProvider) Identity() provider.Identity {
	return p.identity
}

// Options implements provider.Provider.
func (p *CredentialStoreProvider) Options() []provider.OptionDescriptor {
	return []provider.OptionDescriptor{{
		Name:             "service",
		Type:             provider.OptionString,
		ShortDescription: "Service name the secrets are stored under",
		DefaultValue:     defaultKeyringService,
	}}
}

// IsSupported implements provider.PlatformGate.
func (p *CredentialStoreProvider) IsSupported() bool {
	return p.goos == p.platform
}

// Initialize implements provider.Provider.
func (p *CredentialStoreProvider) Initialize(ctx context.Context, configURI string) error {
	opts := struct {
		Service string `uri:"service"`
	}{Service: defaultKeyringService}

	if _, err := configuri.Load(p.identity.Key, configURI, &opts); err != nil {
		return err
	}
	if !p.IsSupported() {
		return provider.ConfigurationError{
			Provider: p.identity.Key,
			Code:     provider.CodeUnsupportedPlatform,
			Message:  fmt.Sprintf("only available on %s, running on %s", p.platform, p.goos),
		}
	}
	if opts.Service == "" {
		return missingOption(p.identity.Key, "service", "service must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.service = opts.Service
	p.initialized = true
	return nil
}

// ResolveSecrets implements provider.Provider. Items that do not exist are collected and
// reported together.
func (p *CredentialStoreProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if !p.initialized {
		return nil, provider.NotInitializedError{Provider: p.identity.Key, Op: "ResolveSecrets"}
	}

	result := make(map[string]string, len(keys))
	var missing []string
	for _, key := range resolve.Unique(keys, true) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		secret, err := p.client.Get(p.service, key)
		if err != nil {
			if errors.Is(err, contracts.ErrKeyringItemNotFound) {
				missing = append(missing, key)
				continue
			}
			return nil, provider.Backend(ctx, p.identity.Key, "read item", key, err)
		}
		result[key] = secret
	}

	if len(missing) > 0 {
		return nil, provider.KeyNotFoundError{Provider: p.identity.Key, Keys: missing}
	}
	p.logger.Debug("%s: resolved %d items of service %s", p.identity.Key, len(result), p.service)
	return result, nil
}

// SetSecret implements provider.SecretSetter.
func (p *CredentialStoreProvider) SetSecret(ctx context.Context, key, value string, overwrite bool) error {
	if !p.initialized {
		return provider.NotInitializedError{Provider: p.identity.Key, Op: "SetSecret"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !overwrite {
		_, err := p.client.Get(p.service, key)
		switch {
		case err == nil:
			return fmt.Errorf("%s: %q: %w", p.identity.Key, key, provider.ErrSecretExists)
		case !errors.Is(err, contracts.ErrKeyringItemNotFound):
			return provider.Backend(ctx, p.identity.Key, "read item", key, err)
		}
	}

	if err := p.client.Set(p.service, key, value); err != nil {
		return provider.Backend(ctx, p.identity.Key, "write item", key, err)
	}
	p.logger.Debug("%s: stored %s", p.identity.Key, logging.Secret(key))
	return nil
}
