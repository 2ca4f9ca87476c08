package providers

import (
	"context"
	"errors"
	"os"

	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/filecrypt"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/internal/secure"
	"github.com/systmms/secretsrc/pkg/provider"
)

const fileSecretKey = "file-secret"

// FileSecretProvider resolves keys from a local JSON object file. The file may be
// sealed with filecrypt, in which case a passphrase is required.
type FileSecretProvider struct {
	logger *logging.Logger

	initialized   bool
	path          string
	passphrase    *secure.SecureString
	caseSensitive bool
}

type fileSecretOptions struct {
	Path          string `uri:"path"`
	Passphrase    string `uri:"passphrase"`
	CaseSensitive bool   `uri:"case-sensitive"`
}

// NewFileSecretProvider creates an uninitialized file provider.
func NewFileSecretProvider(logger *logging.Logger) *FileSecretProvider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FileSecretProvider{logger: logger}
}

// Identity implements provider.Provider.
func (p *FileSecretProvider) Identity() provider.Identity {
	return provider.Identity{
		Key:         fileSecretKey,
		DisplayName: "Secret file",
		Description: "Reads secrets from a JSON object file, optionally sealed with 'secretsrc seal'.",
	}
}

// Options implements provider.Provider.
func (p *FileSecretProvider) Options() []provider.OptionDescriptor {
	return []provider.OptionDescriptor{
		{
			Name:             "path",
			Type:             provider.OptionString,
			ShortDescription: "Path of the secret file",
			LongDescription:  "May also be given as the URI location, e.g. file-secret:///etc/app/secrets.json.",
		},
		{
			Name:             "passphrase",
			Type:             provider.OptionPassword,
			ShortDescription: "Passphrase of a sealed file",
		},
		caseSensitiveOption,
	}
}

// Initialize implements provider.Provider. The file must exist; its content is read on
// every ResolveSecrets call.
func (p *FileSecretProvider) Initialize(ctx context.Context, configURI string) error {
	var opts fileSecretOptions
	u, err := configuri.Load(fileSecretKey, configURI, &opts)
	if err != nil {
		return err
	}

	path := u.Location()
	switch {
	case path != "" && opts.Path != "":
		return conflictingOptions(fileSecretKey, "path", "URI location")
	case path == "" && opts.Path == "":
		return missingOption(fileSecretKey, "path", "a file path is required")
	case path == "":
		path = opts.Path
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return provider.ProbeFailed(ctx, fileSecretKey, err)
	}
	if filecrypt.IsSealed(data) && opts.Passphrase == "" {
		return provider.ConfigurationError{
			Provider: fileSecretKey,
			Code:     provider.CodeMissingCredentials,
			Field:    "passphrase",
			Message:  "the file is sealed",
		}
	}

	p.passphrase.Destroy()
	p.path = path
	p.passphrase = secure.NewSecureString(opts.Passphrase)
	p.caseSensitive = opts.CaseSensitive
	p.initialized = true
	p.logger.Debug("file-secret: using %s", path)
	return nil
}

// ResolveSecrets implements provider.Provider.
func (p *FileSecretProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if !p.initialized {
		return nil, provider.NotInitializedError{Provider: fileSecretKey, Op: "ResolveSecrets"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, provider.Backend(ctx, fileSecretKey, "read file", p.path, err)
	}

	if filecrypt.IsSealed(data) {
		passphrase, err := p.passphrase.Reveal()
		if err != nil {
			return nil, provider.Backend(ctx, fileSecretKey, "unseal passphrase", p.path, err)
		}
		if passphrase == "" {
			return nil, provider.Backend(ctx, fileSecretKey, "open sealed file", p.path, errors.New("no passphrase configured"))
		}
		data, err = filecrypt.Open(data, passphrase)
		if err != nil {
			return nil, provider.Backend(ctx, fileSecretKey, "open sealed file", p.path, err)
		}
	}

	pairs, err := resolve.DecodeObject(data)
	if err != nil {
		return nil, provider.Backend(ctx, fileSecretKey, "decode file", p.path, err)
	}
	lookup := resolve.Merge(pairs, p.caseSensitive)
	p.logger.Debug("file-secret: %s holds %d distinct keys", p.path, lookup.Len())
	return resolve.LookupAll(fileSecretKey, lookup, keys)
}
