package providers

import (
	"context"
	"fmt"

	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/providers/contracts"
	"github.com/systmms/secretsrc/internal/providers/vault"
	pkgexec "github.com/systmms/secretsrc/pkg/exec"
	"github.com/systmms/secretsrc/pkg/provider"
)

// Registry knows every built-in provider by its scheme key. It is built once by
// NewRegistry and never changes afterwards.
type Registry struct {
	order     []string
	factories map[string]ProviderFactory
	wrap      func(provider.Provider) provider.Provider
}

// ProviderFactory creates a fresh, uninitialized provider instance
type ProviderFactory func() provider.Provider

// RegistryOption configures the providers a Registry creates.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	logger   *logging.Logger
	environ  func() []string
	aws      []AWSOption
	azure    AzureKeyVaultClientAPI
	gcp      GCPSecretManagerClientAPI
	keyring  contracts.KeyringClient
	executor pkgexec.CommandExecutor
	goos     string
	wrap     func(provider.Provider) provider.Provider
}

// WithLogger sets the logger handed to every provider.
func WithLogger(logger *logging.Logger) RegistryOption {
	return func(c *registryConfig) {
		c.logger = logger
	}
}

// WithEnvironment replaces os.Environ for the env provider.
func WithEnvironment(environ func() []string) RegistryOption {
	return func(c *registryConfig) {
		c.environ = environ
	}
}

// WithAWSOptions passes options, typically injected clients, to the AWS providers.
func WithAWSOptions(opts ...AWSOption) RegistryOption {
	return func(c *registryConfig) {
		c.aws = append(c.aws, opts...)
	}
}

// WithAzureClient injects the Key Vault client.
func WithAzureClient(client AzureKeyVaultClientAPI) RegistryOption {
	return func(c *registryConfig) {
		c.azure = client
	}
}

// WithGCPClient injects the Secret Manager client.
func WithGCPClient(client GCPSecretManagerClientAPI) RegistryOption {
	return func(c *registryConfig) {
		c.gcp = client
	}
}

// WithKeyring injects the credential store client used by keychain, libsecret and wincred.
func WithKeyring(client contracts.KeyringClient) RegistryOption {
	return func(c *registryConfig) {
		c.keyring = client
	}
}

// WithCommandExecutor injects the executor used by CLI-backed providers.
func WithCommandExecutor(executor pkgexec.CommandExecutor) RegistryOption {
	return func(c *registryConfig) {
		c.executor = executor
	}
}

// WithPlatform overrides runtime.GOOS for platform gated providers.
func WithPlatform(goos string) RegistryOption {
	return func(c *registryConfig) {
		c.goos = goos
	}
}

// WithWrapper decorates every instance returned by Find and Open, for example with
// metrics.Instrument. List returns undecorated instances.
func WithWrapper(wrap func(provider.Provider) provider.Provider) RegistryOption {
	return func(c *registryConfig) {
		c.wrap = wrap
	}
}

// NewRegistry creates the registry of built-in providers
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := registryConfig{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Registry{factories: make(map[string]ProviderFactory), wrap: cfg.wrap}

	r.register(envKey, func() provider.Provider {
		envOpts := []EnvOption{WithEnvLogger(cfg.logger)}
		if cfg.environ != nil {
			envOpts = append(envOpts, WithEnviron(cfg.environ))
		}
		return NewEnvProvider(envOpts...)
	})
	r.register(fileSecretKey, func() provider.Provider {
		return NewFileSecretProvider(cfg.logger)
	})
	r.register(awsSecretsManagerKey, func() provider.Provider {
		return NewAWSSecretsManagerProvider(append([]AWSOption{WithAWSLogger(cfg.logger)}, cfg.aws...)...)
	})
	r.register(awsParameterStoreKey, func() provider.Provider {
		return NewAWSSSMProvider(append([]AWSOption{WithAWSLogger(cfg.logger)}, cfg.aws...)...)
	})
	r.register(azureKeyVaultKey, func() provider.Provider {
		azOpts := []AzureProviderOption{WithAzureLogger(cfg.logger)}
		if cfg.azure != nil {
			azOpts = append(azOpts, WithAzureKeyVaultClient(cfg.azure))
		}
		return NewAzureKeyVaultProvider(azOpts...)
	})
	r.register(gcpSecretManagerKey, func() provider.Provider {
		gcpOpts := []GCPProviderOption{WithGCPLogger(cfg.logger)}
		if cfg.gcp != nil {
			gcpOpts = append(gcpOpts, WithGCPSecretManagerClient(cfg.gcp))
		}
		return NewGCPSecretManagerProvider(gcpOpts...)
	})
	r.register(vault.Key, func() provider.Provider {
		return vault.NewVaultProvider(cfg.logger)
	})
	r.register("keychain", func() provider.Provider {
		return NewKeychainProvider(cfg.credentialStoreOptions()...)
	})
	r.register("libsecret", func() provider.Provider {
		return NewLibsecretProvider(cfg.credentialStoreOptions()...)
	})
	r.register(passKey, func() provider.Provider {
		passOpts := []PassOption{WithPassLogger(cfg.logger)}
		if cfg.executor != nil {
			passOpts = append(passOpts, WithPassExecutor(cfg.executor))
		}
		if cfg.goos != "" {
			passOpts = append(passOpts, WithPassGOOS(cfg.goos))
		}
		return NewPassProvider(passOpts...)
	})
	r.register("wincred", func() provider.Provider {
		return NewWincredProvider(cfg.credentialStoreOptions()...)
	})

	return r
}

func (c registryConfig) credentialStoreOptions() []CredentialStoreOption {
	opts := []CredentialStoreOption{WithCredentialStoreLogger(c.logger)}
	if c.keyring != nil {
		opts = append(opts, WithKeyringClient(c.keyring))
	}
	if c.goos != "" {
		opts = append(opts, WithGOOS(c.goos))
	}
	return opts
}

func (r *Registry) register(key string, factory ProviderFactory) {
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("provider %q registered twice", key))
	}
	r.order = append(r.order, key)
	r.factories[key] = factory
}

// Keys returns the scheme keys of all providers in registration order
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

// List returns one uninitialized instance of every provider in registration order. The
// instances are meant for describing providers; use Find or Open to get one to resolve
// with.
func (r *Registry) List() []provider.Provider {
	out := make([]provider.Provider, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.factories[key]())
	}
	return out
}

// Find returns a new uninitialized instance of the provider selected by key.
func (r *Registry) Find(key string) (provider.Provider, bool) {
	factory, ok := r.factories[key]
	if !ok {
		return nil, false
	}
	p := factory()
	if r.wrap != nil {
		p = r.wrap(p)
	}
	return p, true
}

// Open creates the provider selected by the scheme of configURI and initializes it.
func (r *Registry) Open(ctx context.Context, configURI string) (provider.Provider, error) {
	u, err := configuri.Parse(configURI)
	if err != nil {
		return nil, provider.ConfigurationError{
			Code:    provider.CodeInvalidURI,
			Message: "cannot parse configuration URI",
			Err:     err,
		}
	}

	p, ok := r.Find(u.Scheme)
	if !ok {
		return nil, provider.ConfigurationError{
			Provider: u.Scheme,
			Code:     provider.CodeUnknownProvider,
			Message:  fmt.Sprintf("no provider is registered for scheme %q", u.Scheme),
		}
	}
	if err := p.Initialize(ctx, configURI); err != nil {
		return nil, err
	}
	return p, nil
}
