package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	serrors "github.com/systmms/secretsrc/internal/errors"
)

func NewResolveCommand(app *App) *cobra.Command {
	var (
		uri     string
		source  string
		format  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve [KEY...]",
		Short: "Resolve secrets and print them",
		Long: `Resolve the given keys from one provider and print them to stdout.

The provider is either given directly with --uri or taken from a named source in
secretsrc.yaml with --source. Without keys, the source's default keys are resolved.
Either every key resolves or nothing is printed.

Examples:
  # Resolve from AWS Secrets Manager, searching two secrets in order
  secretsrc resolve --uri 'awssm://?secrets=prod/app,prod/shared' DB_USER DB_PASSWORD

  # Resolve the default keys of a configured source as JSON
  secretsrc resolve --source prod --format json

  # Use in scripts
  eval "$(secretsrc resolve --source prod)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "env" && format != "json" {
				return serrors.UserError{
					Message:    fmt.Sprintf("Unknown output format %q", format),
					Suggestion: "Use --format env or --format json",
				}
			}

			t, err := app.selectTarget(uri, source, timeout)
			if err != nil {
				return err
			}
			keys := args
			if len(keys) == 0 {
				keys = t.keys
			}
			if len(keys) == 0 {
				return serrors.UserError{
					Message:    "No keys to resolve",
					Suggestion: "Pass the keys as arguments or list them under 'keys:' of the source",
				}
			}

			p, ctx, cancel, err := app.open(cmd.Context(), t)
			if err != nil {
				return err
			}
			defer cancel()

			values, err := p.ResolveSecrets(ctx, keys)
			if err != nil {
				return fmt.Errorf("resolve from %s: %w", t.name, err)
			}
			app.Config.Logger.Debug("Resolved %d keys from %s", len(values), p.Identity().Key)

			return writeValues(cmd, format, values)
		},
	}

	cmd.Flags().StringVar(&uri, "uri", "", "Provider configuration URI")
	cmd.Flags().StringVar(&source, "source", "", "Source name from secretsrc.yaml")
	cmd.Flags().StringVar(&format, "format", "env", "Output format: env or json")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for --uri providers")

	return cmd
}

func writeValues(cmd *cobra.Command, format string, values map[string]string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		data, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	default:
		content, err := godotenv.Marshal(values)
		if err != nil {
			return fmt.Errorf("format values: %w", err)
		}
		_, err = fmt.Fprintln(out, strings.TrimRight(content, "\n"))
		return err
	}
}
