package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/logging"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Fold annotation keys that name the same video",
		Long: "Reconcile normalizes every annotation key and reports keys that are aliases of one video.\n" +
			"Without --apply nothing is written. With --apply the current document is backed up first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				result, err := a.service.Reconcile(cmd.Context(), apply)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				report := result.Report
				fmt.Fprintf(out, "Keys: %d -> %d\n", report.KeysBefore, report.KeysAfter)
				fmt.Fprintf(out, "Duplicate ranges dropped: %d\n", report.DuplicatesDropped)

				if len(report.Merged) > 0 {
					rows := make([][]string, 0, len(report.Merged))
					for _, g := range report.Merged {
						rows = append(rows, []string{g.Identity.String(), strings.Join(g.Folded, "\n")})
					}
					fmt.Fprintln(out, "Merged:")
					fmt.Fprint(out, renderTable(out, []string{"Video", "Folded keys"}, rows, nil))
				}
				if len(report.Renamed) > 0 {
					rows := make([][]string, 0, len(report.Renamed))
					for _, r := range report.Renamed {
						rows = append(rows, []string{r.From, r.To.String()})
					}
					fmt.Fprintln(out, "Renamed:")
					fmt.Fprint(out, renderTable(out, []string{"From", "To"}, rows, nil))
				}
				if len(report.Unresolved) > 0 {
					fmt.Fprintf(out, "Unresolved keys kept verbatim: %d\n", len(report.Unresolved))
					for _, k := range report.Unresolved {
						fmt.Fprintf(out, "  %q\n", k)
					}
				}

				switch {
				case !report.Changed():
					fmt.Fprintln(out, "Nothing to reconcile")
				case !result.Applied:
					fmt.Fprintln(out, "Dry run, re-run with --apply to write the changes")
				case result.Saved:
					fmt.Fprintf(out, "Saved. Backup written to %s\n", logging.SanitizePath(result.BackupPath))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Write the reconciled document")
	return cmd
}
