package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	serrors "github.com/systmms/secretsrc/internal/errors"
	"github.com/systmms/secretsrc/internal/metrics"
)

func NewCheckCommand(app *App) *cobra.Command {
	var metricsOut string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check every configured source",
		Long: `Initialize every source of secretsrc.yaml and resolve its default keys.

Initializing a cloud provider probes its credentials and connectivity, so a passing
check means the source can be used. With --metrics-out the provider metrics are
written in the Prometheus text format for the node exporter textfile collector.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Config.Load(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			names := app.Config.Definition.SourceNames()
			if len(names) == 0 {
				_, _ = fmt.Fprintln(out, "No sources configured")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "SOURCE\tPROVIDER\tKEYS\tSTATUS\n")

			failed := 0
			for _, name := range names {
				src := app.Config.Definition.Sources[name]
				status := "ok"
				if err := app.checkSource(cmd.Context(), name); err != nil {
					failed++
					status = "FAIL: " + err.Error()
					app.Config.Logger.Debug("Source %s failed: %v", name, err)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, src.Scheme(), len(src.Keys), status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if metricsOut != "" && app.Gatherer != nil {
				if err := metrics.WriteTextfile(metricsOut, app.Gatherer); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}

			if failed > 0 {
				return serrors.UserError{
					Message:    fmt.Sprintf("%d of %d sources failed", failed, len(names)),
					Suggestion: "Run with --debug for details, or resolve a single source with 'secretsrc resolve --source <name>'",
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write provider metrics to this file")

	return cmd
}

func (a *App) checkSource(ctx context.Context, name string) error {
	src, err := a.Config.GetSource(name)
	if err != nil {
		return err
	}

	t := target{name: name, uri: src.URI, keys: src.Keys, timeout: src.Timeout()}
	p, ctx, cancel, err := a.open(ctx, t)
	if err != nil {
		return err
	}
	defer cancel()

	if len(t.keys) == 0 {
		return nil
	}
	_, err = p.ResolveSecrets(ctx, t.keys)
	return err
}
