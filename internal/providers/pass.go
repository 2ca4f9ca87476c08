package providers

import (
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"path"
	"runtime"
	"strings"

	dserrors "github.com/systmms/secretsrc/internal/errors"
	"github.com/systmms/secretsrc/internal/configuri"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/internal/resolve"
	pkgexec "github.com/systmms/secretsrc/pkg/exec"
	"github.com/systmms/secretsrc/pkg/provider"
)

const passKey = "pass"

// PassProvider resolves keys with the pass CLI (zx2c4). The value of a key is the first
// line of its entry.
type PassProvider struct {
	logger   *logging.Logger
	executor pkgexec.CommandExecutor
	goos     string

	initialized bool
	opts        passOptions
}

type passOptions struct {
	PasswordStore string `uri:"password-store"`
	Prefix        string `uri:"prefix"`
}

// PassOption configures a PassProvider.
type PassOption func(*PassProvider)

// WithPassExecutor sets a custom executor (for testing).
func WithPassExecutor(executor pkgexec.CommandExecutor) PassOption {
	return func(p *PassProvider) {
		p.executor = executor
	}
}

// WithPassGOOS overrides runtime.GOOS for the platform check.
func WithPassGOOS(goos string) PassOption {
	return func(p *PassProvider) {
		p.goos = goos
	}
}

// WithPassLogger sets the logger.
func WithPassLogger(logger *logging.Logger) PassOption {
	return func(p *PassProvider) {
		p.logger = logger
	}
}

// NewPassProvider creates an uninitialized pass provider.
func NewPassProvider(opts ...PassOption) *PassProvider {
	p := &PassProvider{
		logger:   logging.Discard(),
		executor: pkgexec.DefaultExecutor(),
		goos:     runtime.GOOS,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Identity implements provider.Provider.
func (p *PassProvider) Identity() provider.Identity {
	return provider.Identity{
		Key:         passKey,
		DisplayName: "pass",
		Description: "Reads the first line of entries of the standard unix password manager.",
	}
}

// Options implements provider.Provider.
func (p *PassProvider) Options() []provider.OptionDescriptor {
	return []provider.OptionDescriptor{
		{
			Name:             "password-store",
			Type:             provider.OptionString,
			ShortDescription: "Password store directory",
			LongDescription:  "Sets PASSWORD_STORE_DIR for every pass invocation. Defaults to ~/.password-store.",
		},
		{
			Name:             "prefix",
			Type:             provider.OptionString,
			ShortDescription: "Folder prepended to every key, e.g. work/db",
		},
	}
}

// IsSupported implements provider.PlatformGate.
func (p *PassProvider) IsSupported() bool {
	return p.goos != "windows"
}

// Initialize implements provider.Provider. It runs 'pass ls' to check that the CLI works
// and the store exists.
func (p *PassProvider) Initialize(ctx context.Context, configURI string) error {
	var opts passOptions
	if _, err := configuri.Load(passKey, configURI, &opts); err != nil {
		return err
	}
	if !p.IsSupported() {
		return provider.ConfigurationError{
			Provider: passKey,
			Code:     provider.CodeUnsupportedPlatform,
			Message:  "pass is not available on windows",
		}
	}
	opts.Prefix = strings.Trim(opts.Prefix, "/")

	_, stderr, err := p.executor.Execute(ctx, pkgexec.Command{
		Name: "pass",
		Args: []string{"ls"},
		Env:  opts.env(),
	})
	if err != nil {
		if errors.Is(err, osexec.ErrNotFound) {
			err = dserrors.WrapCommandNotFound("pass", err)
		} else {
			err = passFailure(err, stderr)
		}
		return provider.ProbeFailed(ctx, passKey, err)
	}

	p.opts = opts
	p.initialized = true
	return nil
}

// ResolveSecrets implements provider.Provider. Entries that do not exist are collected
// and reported together.
func (p *PassProvider) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	if !p.initialized {
		return nil, provider.NotInitializedError{Provider: passKey, Op: "ResolveSecrets"}
	}

	result := make(map[string]string, len(keys))
	var missing []string
	for _, key := range resolve.Unique(keys, true) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, ok := p.opts.entry(key)
		if !ok {
			p.logger.Debug("pass: key %q leaves the password store scope", key)
			missing = append(missing, key)
			continue
		}

		stdout, stderr, err := p.executor.Execute(ctx, pkgexec.Command{
			Name: "pass",
			Args: []string{"show", entry},
			Env:  p.opts.env(),
		})
		if err != nil {
			if strings.Contains(string(stderr), "is not in the password store") {
				missing = append(missing, key)
				continue
			}
			return nil, provider.Backend(ctx, passKey, "show entry", entry, passFailure(err, stderr))
		}

		value, _, _ := strings.Cut(string(stdout), "\n")
		result[key] = strings.TrimSuffix(value, "\r")
		p.logger.Debug("pass: read %s", logging.Secret(entry))
	}

	if len(missing) > 0 {
		return nil, provider.KeyNotFoundError{Provider: passKey, Keys: missing}
	}
	return result, nil
}

// entry maps a key to its pass entry name. Keys that resolve outside the prefix, or
// outside the store when there is no prefix, have no entry.
func (o passOptions) entry(key string) (string, bool) {
	clean := path.Join(o.Prefix, key)
	if o.Prefix == "" {
		if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
			return "", false
		}
		return key, true
	}
	if !strings.HasPrefix(clean, path.Clean(o.Prefix)+"/") {
		return "", false
	}
	return clean, true
}

func (o passOptions) env() []string {
	if o.PasswordStore == "" {
		return nil
	}
	return []string{"PASSWORD_STORE_DIR=" + o.PasswordStore}
}

// passFailure attaches the CLI's stderr to err.
func passFailure(err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return err
	}
	exitCode := 0
	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return fmt.Errorf("%w: %w", dserrors.CommandError{Command: "pass", ExitCode: exitCode, Message: msg}, err)
}
