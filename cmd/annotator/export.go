package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/export"
	"github.com/heimdex/heimdex-annotator/internal/logging"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var fps float64

	cmd := &cobra.Command{
		Use:   "export <video>",
		Short: "Write a video's annotations as a CMX3600 EDL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fps <= 0 || fps > export.MaxFrameRate {
				return fmt.Errorf("invalid --fps %v: must be in (0, %v]", fps, export.MaxFrameRate)
			}
			dir, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("resolve output directory: %w", err)
			}

			return ctx.withApp(func(a *app) error {
				id, err := a.reconciler.Normalizer().Normalize(args[0])
				if err != nil {
					return err
				}
				ranges, err := a.service.GetAnnotations(cmd.Context(), id)
				if err != nil {
					return err
				}

				result, err := export.WriteEDL(dir, id.Name(), export.ClipsFromAnnotations(id, ranges), fps)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d clips to %s\n", result.ClipCount, logging.SanitizePath(result.OutputPath))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().Float64Var(&fps, "fps", export.DefaultFrameRate, "Timecode frame rate")
	return cmd
}
