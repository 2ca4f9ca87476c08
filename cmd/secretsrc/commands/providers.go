package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsrc/pkg/provider"
)

func NewProvidersCommand(app *App) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List available providers",
		Long: `Display the built-in secret providers, the URI scheme selecting each one and
whether it runs on this platform. With --verbose the options every provider
accepts in its URI are listed too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			list := app.NewRegistry().List()

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "SCHEME\tNAME\tSUPPORTED\tDESCRIPTION\n")
			for _, p := range list {
				id := p.Identity()
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id.Key, id.DisplayName, supported(p), id.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if !verbose {
				return nil
			}
			for _, p := range list {
				_, _ = fmt.Fprintf(out, "\n%s:\n", p.Identity().Key)
				for _, opt := range p.Options() {
					_, _ = fmt.Fprintf(out, "  %s\n", describeOption(opt))
					if opt.LongDescription != "" {
						_, _ = fmt.Fprintf(out, "      %s\n", opt.LongDescription)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the options of every provider")

	return cmd
}

func supported(p provider.Provider) string {
	if gate, ok := p.(provider.PlatformGate); ok && !gate.IsSupported() {
		return "no"
	}
	return "yes"
}

func describeOption(opt provider.OptionDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", opt.Name, opt.Type)
	if len(opt.Values) > 0 {
		fmt.Fprintf(&b, " one of %s", strings.Join(opt.Values, "|"))
	}
	if opt.DefaultValue != "" {
		fmt.Fprintf(&b, " default %q", opt.DefaultValue)
	}
	if opt.ShortDescription != "" {
		b.WriteString(": " + opt.ShortDescription)
	}
	return b.String()
}
