package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	serrors "github.com/systmms/secretsrc/internal/errors"
	"github.com/systmms/secretsrc/internal/logging"
	"github.com/systmms/secretsrc/pkg/provider"
)

func NewSetCommand(app *App) *cobra.Command {
	var (
		uri       string
		overwrite bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "set KEY",
		Short: "Store a single secret read from stdin",
		Long: `Store one secret in a provider that supports writing, such as the OS
credential stores. The value is read from stdin so it never appears in the shell
history or the process list. A single trailing newline is removed.

Examples:
  printf '%s' "$TOKEN" | secretsrc set --uri keychain://?service=myapp API_TOKEN
  secretsrc set --uri libsecret:// --overwrite DB_PASSWORD < password.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if uri == "" {
				return serrors.UserError{
					Message:    "Provider URI is required",
					Suggestion: "Use --uri scheme://... to select the provider to write to",
				}
			}

			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read value from stdin: %w", err)
			}
			value := strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
			if value == "" {
				return serrors.UserError{
					Message:    "No value given on stdin",
					Suggestion: "Pipe the secret into the command, e.g. printf '%s' \"$VALUE\" | secretsrc set ...",
				}
			}

			p, ctx, cancel, err := app.open(cmd.Context(), target{name: uri, uri: uri, timeout: timeout})
			if err != nil {
				return err
			}
			defer cancel()

			setter, ok := p.(provider.SecretSetter)
			if !ok {
				return serrors.UserError{
					Message:    fmt.Sprintf("Provider %s is read-only", p.Identity().Key),
					Suggestion: "Secrets can be stored in keychain, libsecret and wincred",
				}
			}

			if err := setter.SetSecret(ctx, key, value, overwrite); err != nil {
				if errors.Is(err, provider.ErrSecretExists) {
					return serrors.UserError{
						Message:    fmt.Sprintf("Secret %q already exists", key),
						Suggestion: "Use --overwrite to replace it",
						Err:        err,
					}
				}
				return fmt.Errorf("store %s: %w", logging.Secret(key), err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s in %s\n", key, p.Identity().Key)
			return nil
		},
	}

	cmd.Flags().StringVar(&uri, "uri", "", "Provider configuration URI")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing secret")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for the provider")

	return cmd
}
