package provider

import (
	"context"
)

// Provider is the surface every secret backend exposes.
//
// Implementations declare their identity and options statically, build their backend
// client in Initialize and answer batches of keys in ResolveSecrets. A generic caller never
// needs backend-specific code.
type Provider interface {
	// Identity returns the immutable identity of the provider. Identity().Key is the URI
	// scheme that selects this provider.
	Identity() Identity

	// Options describes the URI query options understood by Initialize. The list is used
	// for help output only; it is not consulted during resolution.
	Options() []OptionDescriptor

	// Initialize configures the instance from a configuration URI.
	//
	// Implementations should:
	//   - Return ConfigurationError with a stable ErrorCode for missing, conflicting or
	//     invalid options and for failed connectivity probes
	//   - Leave the instance uninitialized when an error is returned
	//   - Honour context cancellation during the probe
	Initialize(ctx context.Context, configURI string) error

	// ResolveSecrets returns a value for every requested key.
	//
	// The result contains exactly the requested keys. Resolution is all-or-nothing: if any
	// key cannot be found a KeyNotFoundError listing the missing keys is returned and no
	// partial map. Requesting zero keys returns an empty map without contacting the backend.
	ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error)
}

// PlatformGate is implemented by providers that only work on some platforms.
type PlatformGate interface {
	// IsSupported reports whether the provider can run on the current platform.
	IsSupported() bool
}

// SecretSetter is the optional write path of local credential stores.
//
// SetSecret is independent of resolution and must not change what ResolveSecrets returns
// for keys other than the one written.
type SecretSetter interface {
	// SetSecret stores value under key. When overwrite is false and the key already exists,
	// ErrSecretExists is returned.
	SetSecret(ctx context.Context, key, value string, overwrite bool) error
}

// Identity names a provider.
type Identity struct {
	// Key is the short scheme identifier, e.g. "env" or "awssm".
	Key string

	// DisplayName is a human readable name, e.g. "AWS Secrets Manager".
	DisplayName string

	// Description is a one paragraph summary used in help output.
	Description string
}

// OptionType classifies a configuration option.
type OptionType int

const (
	// OptionString is a free-form string.
	OptionString OptionType = iota
	// OptionPassword is a string that must never be echoed or logged.
	OptionPassword
	// OptionBoolean accepts true/false (also 1/0).
	OptionBoolean
	// OptionEnumeration accepts one of OptionDescriptor.Values.
	OptionEnumeration
)

// String returns the lowercase name of the option type.
func (t OptionType) String() string {
	switch t {
	case OptionString:
		return "string"
	case OptionPassword:
		return "password"
	case OptionBoolean:
		return "boolean"
	case OptionEnumeration:
		return "enumeration"
	default:
		return "unknown"
	}
}

// OptionDescriptor describes one URI query option of a provider.
type OptionDescriptor struct {
	Name             string
	Type             OptionType
	ShortDescription string
	LongDescription  string
	DefaultValue     string

	// Values lists the accepted values of an OptionEnumeration.
	Values []string
}
