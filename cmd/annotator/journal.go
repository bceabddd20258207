package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newJournalCommand(ctx *commandContext) *cobra.Command {
	var video string
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent annotation changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				filter := ""
				if video != "" {
					id, err := a.reconciler.Normalizer().Normalize(video)
					if err != nil {
						return err
					}
					filter = id.String()
				}

				entries, err := a.service.Journal(cmd.Context(), filter, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No journal entries")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.CreatedAt.Local().Format(time.DateTime),
						e.Action,
						e.Video,
						formatOptionalFloat(e.Start),
						formatOptionalFloat(e.End),
						e.Detail,
					})
				}
				fmt.Fprint(out, renderTable(out, []string{"Time", "Action", "Video", "Start", "End", "Detail"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&video, "video", "", "Only show changes to this video path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show")
	return cmd
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
