package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/identity"
)

func newAnnotationsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "annotations",
		Aliases: []string{"ann"},
		Short:   "Show and edit the annotations of one video",
	}
	cmd.AddCommand(newAnnotationsListCommand(ctx))
	cmd.AddCommand(newAnnotationsAddCommand(ctx))
	cmd.AddCommand(newAnnotationsDeleteCommand(ctx))
	return cmd
}

func newAnnotationsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <video>",
		Short: "List the annotations of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				id, err := a.reconciler.Normalizer().Normalize(args[0])
				if err != nil {
					return err
				}
				ranges, err := a.service.GetAnnotations(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printRanges(cmd, ctx, id, ranges)
			})
		},
	}
}

func newAnnotationsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <video> <start> <end>",
		Short: "Annotate a time range, in seconds",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid start %q: %w", args[1], err)
			}
			end, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid end %q: %w", args[2], err)
			}
			return ctx.withApp(func(a *app) error {
				id, err := a.reconciler.Normalizer().Normalize(args[0])
				if err != nil {
					return err
				}
				ranges, err := a.service.AddAnnotation(cmd.Context(), id, start, end)
				if err != nil {
					return err
				}
				return printRanges(cmd, ctx, id, ranges)
			})
		},
	}
}

func newAnnotationsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <video> <index>",
		Short: "Delete the annotation at a zero-based index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}
			return ctx.withApp(func(a *app) error {
				id, err := a.reconciler.Normalizer().Normalize(args[0])
				if err != nil {
					return err
				}
				ranges, err := a.service.DeleteAnnotation(cmd.Context(), id, index)
				if err != nil {
					return err
				}
				return printRanges(cmd, ctx, id, ranges)
			})
		},
	}
}

func printRanges(cmd *cobra.Command, ctx *commandContext, id identity.VideoIdentity, ranges []annotation.Range) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, map[string]any{
			"id":          identity.Encode(id),
			"name":        id.Name(),
			"annotations": ranges,
		})
	}

	out := cmd.OutOrStdout()
	if len(ranges) == 0 {
		fmt.Fprintf(out, "%s has no annotations\n", id.Name())
		return nil
	}
	rows := make([][]string, 0, len(ranges))
	for i, r := range ranges {
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.FormatFloat(r.Start, 'f', -1, 64),
			strconv.FormatFloat(r.End, 'f', -1, 64),
			strconv.FormatFloat(r.Duration(), 'f', 3, 64),
		})
	}
	fmt.Fprint(out, renderTable(out, []string{"#", "Start", "End", "Duration"}, rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight}))
	return nil
}
