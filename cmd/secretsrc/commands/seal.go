package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	serrors "github.com/systmms/secretsrc/internal/errors"
	"github.com/systmms/secretsrc/internal/filecrypt"
	"github.com/systmms/secretsrc/internal/resolve"
	"github.com/systmms/secretsrc/internal/secure"
)

// PassphraseEnv names the variable holding the passphrase for seal.
const PassphraseEnv = "SECRETSRC_PASSPHRASE"

func NewSealCommand(app *App) *cobra.Command {
	var (
		in    string
		out   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Encrypt a JSON secrets file for the file-secret provider",
		Long: `Encrypt a JSON secrets file with a passphrase taken from SECRETSRC_PASSPHRASE.

The sealed file is read by the file-secret provider when its URI carries the same
passphrase, for example file-secret:///etc/app/secrets.sealed?passphrase=...

Examples:
  SECRETSRC_PASSPHRASE=... secretsrc seal --in secrets.json --out secrets.sealed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" || out == "" {
				return serrors.UserError{
					Message:    "Both --in and --out are required",
					Suggestion: "secretsrc seal --in secrets.json --out secrets.sealed",
				}
			}

			passphrase := secure.NewSecureString(app.getenv(PassphraseEnv))
			defer passphrase.Destroy()
			if passphrase.IsEmpty() {
				return serrors.UserError{
					Message:    "No passphrase given",
					Suggestion: fmt.Sprintf("Set %s to the passphrase to seal with", PassphraseEnv),
				}
			}

			plaintext, err := os.ReadFile(in)
			if err != nil {
				return serrors.UserError{
					Message:    fmt.Sprintf("Cannot read %s", in),
					Suggestion: "Check that the file exists and is readable",
					Err:        err,
				}
			}
			if filecrypt.IsSealed(plaintext) {
				return serrors.UserError{
					Message:    fmt.Sprintf("%s is already sealed", in),
					Suggestion: "Seal the plain JSON file instead",
				}
			}

			if _, err := resolve.DecodeObject(plaintext); err != nil {
				return serrors.UserError{
					Message:    fmt.Sprintf("%s is not a JSON object", in),
					Details:    err.Error(),
					Suggestion: `The file-secret provider expects {"KEY": "value", ...}`,
				}
			}

			if !force {
				if _, err := os.Stat(out); err == nil {
					return serrors.UserError{
						Message:    fmt.Sprintf("%s already exists", out),
						Suggestion: "Use --force to replace it",
					}
				}
			}

			pass, err := passphrase.Reveal()
			if err != nil {
				return fmt.Errorf("read passphrase: %w", err)
			}
			sealed, err := app.seal(plaintext, pass)
			if err != nil {
				return fmt.Errorf("seal %s: %w", in, err)
			}

			if err := os.WriteFile(out, sealed, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			app.Config.Logger.Info("Sealed %s into %s", in, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Plain JSON secrets file")
	cmd.Flags().StringVar(&out, "out", "", "Sealed output file")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing output file")

	return cmd
}
