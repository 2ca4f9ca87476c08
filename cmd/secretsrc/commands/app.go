// Package commands holds the secretsrc subcommands.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/systmms/secretsrc/internal/config"
	serrors "github.com/systmms/secretsrc/internal/errors"
	"github.com/systmms/secretsrc/internal/filecrypt"
	"github.com/systmms/secretsrc/internal/providers"
	"github.com/systmms/secretsrc/pkg/provider"
)

const defaultTimeout = 30 * time.Second

// App is what every command needs. Tests swap NewRegistry for one backed by fakes.
type App struct {
	Config      *config.Config
	NewRegistry func() *providers.Registry
	Gatherer    prometheus.Gatherer

	// Getenv and Seal default to os.Getenv and filecrypt.Seal.
	Getenv func(string) string
	Seal   func(plaintext []byte, passphrase string) ([]byte, error)
}

func (a *App) getenv(key string) string {
	if a.Getenv != nil {
		return a.Getenv(key)
	}
	return os.Getenv(key)
}

func (a *App) seal(plaintext []byte, passphrase string) ([]byte, error) {
	if a.Seal != nil {
		return a.Seal(plaintext, passphrase)
	}
	return filecrypt.Seal(plaintext, passphrase)
}

// target is a provider URI plus the keys resolved when none are given.
type target struct {
	name    string
	uri     string
	keys    []string
	timeout time.Duration
}

// selectTarget picks --uri or --source. Exactly one must be set.
func (a *App) selectTarget(uri, source string, timeout time.Duration) (target, error) {
	switch {
	case uri != "" && source != "":
		return target{}, serrors.UserError{
			Message:    "--uri and --source cannot be combined",
			Suggestion: "Pick either a provider URI or a source from secretsrc.yaml",
		}
	case uri != "":
		return target{name: uri, uri: uri, timeout: timeout}, nil
	case source != "":
		if err := a.Config.Load(); err != nil {
			return target{}, err
		}
		src, err := a.Config.GetSource(source)
		if err != nil {
			return target{}, err
		}
		return target{name: source, uri: src.URI, keys: src.Keys, timeout: src.Timeout()}, nil
	default:
		return target{}, serrors.UserError{
			Message:    "No provider selected",
			Suggestion: "Use --uri scheme://... or --source <name>",
		}
	}
}

// open creates and initializes the provider for t. The returned cancel func must be
// called once the provider is no longer used.
func (a *App) open(ctx context.Context, t target) (provider.Provider, context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	a.Config.Logger.Debug("Opening %s", t.name)

	p, err := a.NewRegistry().Open(ctx, t.uri)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("open %s: %w", t.name, err)
	}
	return p, ctx, cancel, nil
}
