package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"assetserve/internal/config"
	"assetserve/internal/handler"
	"assetserve/internal/repository/sqlite"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath  string
		journalPath string
		limit       int
	)
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "Show recently served requests from the journal",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if journalPath == "" {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				journalPath = cfg.Journal
			}
			if journalPath == "" {
				return fmt.Errorf("no journal configured; pass --journal")
			}
			if _, err := os.Stat(journalPath); err != nil {
				return fmt.Errorf("open journal: %w", err)
			}

			repo, err := sqlite.New(journalPath, zap.NewNop())
			if err != nil {
				return err
			}
			defer repo.Close()

			return printHistory(cmd.Context(), cmd.OutOrStdout(), repo, limit, time.Now())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file to read the journal path from")
	cmd.Flags().StringVar(&journalPath, "journal", "", "request journal database")
	cmd.Flags().IntVarP(&limit, "limit", "n", handler.DefaultHistoryLimit, "number of requests to show")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, _, err := config.LoadFromPath(path)
		return cfg, err
	}
	cfg, _, err := config.Load()
	return cfg, err
}

func printHistory(ctx context.Context, out io.Writer, repo *sqlite.Repository, limit int, now time.Time) error {
	records, err := repo.Recent(ctx, limit)
	if err != nil {
		return err
	}
	summary, err := repo.Summarize(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"When", "Method", "Status", "Size", "Latency", "Path"})
	for _, rec := range records {
		t.AppendRow(table.Row{
			humanize.RelTime(rec.At, now, "ago", "from now"),
			rec.Method,
			rec.Status,
			humanize.Bytes(uint64(rec.Bytes)),
			rec.Duration.Round(time.Microsecond).String(),
			rec.Path,
		})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()

	if summary.Total == 0 {
		fmt.Fprintln(out, "\nno requests recorded")
		return nil
	}
	fmt.Fprintf(out, "\n%s requests, %s served since %s\n",
		humanize.Comma(int64(summary.Total)),
		humanize.Bytes(uint64(summary.Bytes)),
		humanize.RelTime(summary.First, now, "ago", "from now"))

	statuses := make([]int, 0, len(summary.ByStatus))
	for status := range summary.ByStatus {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)
	for _, status := range statuses {
		fmt.Fprintf(out, "  %d  %s\n", status, humanize.Comma(int64(summary.ByStatus[status])))
	}
	return nil
}
