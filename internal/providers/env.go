package providers

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/pkg/provider"
)

const envKey = "env"

// EnvProvider resolves keys from the process environment, optionally merged with a
// dotenv file. Variables present in the environment take precedence over the file.
type EnvProvider struct {
	logger  *logging.Logger
	environ func() []string

	initialized bool
	opts        envOptions
	dotenv      []resolve.Pair
}

type envOptions struct {
	Prefix        string `uri:"prefix"`
	Dotenv        string `uri:"dotenv"`
	CaseSensitive bool   `uri:"case-sensitive"`
}

// EnvOption configures an EnvProvider.
type EnvOption func(*EnvProvider)

// WithEnviron replaces os.Environ, mostly for tests.
func WithEnviron(environ func() []string) EnvOption {
	return func(p *EnvProvider) {
		p.environ = environ
	}
}

// WithEnvLogger sets the logger.
func WithEnvLogger(logger *logging.Logger) EnvOption {
	return func(p *EnvProvider) {
		p.logger = logger
	}
}

// NewEnvProvider creates an uninitialized environment provider.
func NewEnvProvider(opts ...EnvOption) *EnvProvider {
	p := &EnvProvider{
		logger:  logging.Discard(),
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Identity implements provider.Provider.
func (p *EnvProvider) Identity() provider.Identity {
	return provider.Identity{
		Key:         envKey,
		DisplayName: "Environment",
		Description: "Reads secrets from environment variables of the current process and an optional dotenv file.",
	}
}

// Options implements provider.Provider.
func (p *EnvProvider) Options() []provider.OptionDescriptor {
	return []provider.OptionDescriptor{
		{
			Name:             "prefix",
			Type:             provider.OptionString,
			ShortDescription: "Only consider variables starting with this prefix",
			LongDescription:  "The prefix is stripped before keys are compared, so prefix=APP_ exposes APP_DB_USER as DB_USER.",
		},
		{
			Name:             "dotenv",
			Type:             provider.OptionString,
			ShortDescription: "Path of a dotenv file to read as well",
		},
		caseSensitiveOption,
	}
}

// Initialize implements provider.Provider.
func (p *EnvProvider) Initialize(ctx context.Context, configURI string) error {
	var opts envOptions
	if _, err := configuri.Load(envKey, configURI, &opts); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var dotenv []resolve.Pair
	if opts.Dotenv != "" {
		values, err := godotenv.Read(opts.Dotenv)
		if err != nil {
			return provider.ConfigurationError{
				Provider: envKey,
				Code:     provider.CodeInvalidOption,
				Field:    "dotenv",
				Message:  "cannot read dotenv file",
				Err:      err,
			}
		}
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			dotenv = append(dotenv, resolve.Pair{Key: name, Value: values[name]})
		}
		p.logger.Debug("env: loaded %d entries from %s", len(dotenv), opts.Dotenv)
	}

	p.opts = opts
	p.dotenv = dotenv
	p.initialized = true
	return nil
}

// ResolveSecrets implements provider.Provider. The environment is read on every call.
func (p *EnvProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if !p.initialized {
		return nil, provider.NotInitializedError{Provider: envKey, Op: "ResolveSecrets"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pairs := make([]resolve.Pair, 0, len(p.dotenv))
	present := make(map[string]struct{})
	for _, kv := range p.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		present[name] = struct{}{}
		if key, ok := p.stripPrefix(name); ok {
			pairs = append(pairs, resolve.Pair{Key: key, Value: value})
		}
	}
	for _, pair := range p.dotenv {
		if _, shadowed := present[pair.Key]; shadowed {
			continue
		}
		if key, ok := p.stripPrefix(pair.Key); ok {
			pairs = append(pairs, resolve.Pair{Key: key, Value: pair.Value})
		}
	}

	lookup := resolve.Merge(pairs, p.opts.CaseSensitive)
	p.logger.Debug("env: %d distinct variables visible", lookup.Len())
	return resolve.LookupAll(envKey, lookup, keys)
}

func (p *EnvProvider) stripPrefix(name string) (string, bool) {
	prefix := p.opts.Prefix
	if prefix == "" {
		return name, true
	}
	if len(name) <= len(prefix) {
		return "", false
	}
	head := name[:len(prefix)]
	if !p.opts.CaseSensitive {
		head, prefix = resolve.Fold(head), resolve.Fold(prefix)
	}
	if head != prefix {
		return "", false
	}
	return name[len(p.opts.Prefix):], true
}
