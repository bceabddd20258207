package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/logging"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var filter string
	var query string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List videos with their annotation counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				videos, err := listAllVideos(cmd, a, catalog.ParseFilter(filter), query)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, videos)
				}

				out := cmd.OutOrStdout()
				if len(videos) == 0 {
					fmt.Fprintf(out, "No videos in %s\n", logging.SanitizePath(a.cfg.VideosDir()))
					return nil
				}
				rows := make([][]string, 0, len(videos))
				for _, v := range videos {
					rows = append(rows, []string{v.Name, strconv.Itoa(v.AnnotationCount), v.ID})
				}
				fmt.Fprint(out, renderTable(out, []string{"Name", "Annotations", "ID"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(catalog.FilterAll), "Filter: all, annotated, not_annotated")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive name search")
	return cmd
}

// listAllVideos walks every page of the index.
func listAllVideos(cmd *cobra.Command, a *app, filter catalog.FilterMode, query string) ([]catalog.VideoSummary, error) {
	var all []catalog.VideoSummary
	for page := 1; ; page++ {
		p, err := a.service.ListVideos(cmd.Context(), catalog.ListOptions{
			Filter:  filter,
			Query:   query,
			Page:    page,
			PerPage: catalog.MaxPerPage,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, p.Videos...)
		if p.Page >= p.Pages {
			return all, nil
		}
	}
}

func newOrphansCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List annotated videos that are no longer in the videos directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				orphans, err := a.service.Orphans(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, orphans)
				}

				out := cmd.OutOrStdout()
				if len(orphans) == 0 {
					fmt.Fprintln(out, "No orphaned annotations")
					return nil
				}
				rows := make([][]string, 0, len(orphans))
				for _, o := range orphans {
					rows = append(rows, []string{o.Name, strconv.Itoa(o.AnnotationCount), o.Path})
				}
				fmt.Fprint(out, renderTable(out, []string{"Name", "Annotations", "Path"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}
}
