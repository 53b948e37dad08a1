package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vintner/internal/config"
	"vintner/internal/ingest"
	"vintner/internal/winestore"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ingest [source...]",
		Short: "Load configured rating sources into the wine store",
		Long: "Load configured rating sources into the wine store.\n\n" +
			"Without arguments every configured source is processed. Source files\n" +
			"already ingested (by content hash) are skipped unless --force is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *winestore.Store) error {
				runner := ingest.NewRunner(store, cfg, nil)

				sources, err := selectSources(cfg, args)
				if err != nil {
					return err
				}
				if len(sources) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No ingestion sources configured")
					return nil
				}

				summaries := make([]ingest.Summary, 0, len(sources))
				for _, src := range sources {
					summary, err := runner.Run(cmd.Context(), ingest.NewCSVAdapter(src), force)
					if err != nil {
						return fmt.Errorf("ingest source %s: %w", src.Name, err)
					}
					summaries = append(summaries, summary)
				}

				if jsonOut {
					return writeJSON(cmd, summaries)
				}
				printIngestSummaries(cmd, summaries)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-ingest sources even when the file hash is unchanged")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit summaries as JSON")
	return cmd
}

func selectSources(cfg *config.Config, names []string) ([]config.IngestSource, error) {
	if len(names) == 0 {
		return cfg.Ingest.Sources, nil
	}
	byName := make(map[string]config.IngestSource, len(cfg.Ingest.Sources))
	for _, src := range cfg.Ingest.Sources {
		byName[src.Name] = src
	}
	selected := make([]config.IngestSource, 0, len(names))
	for _, name := range names {
		src, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown ingestion source %q", name)
		}
		selected = append(selected, src)
	}
	return selected, nil
}

func printIngestSummaries(cmd *cobra.Command, summaries []ingest.Summary) {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		outcome := "ingested"
		if s.AlreadyIngested {
			outcome = "unchanged"
		}
		rows = append(rows, []string{
			s.SourceName,
			outcome,
			strconv.Itoa(s.Processed),
			strconv.Itoa(s.Added),
			strconv.Itoa(s.Updated),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Dropped),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Source", "Outcome", "Processed", "Added", "Updated", "Skipped", "Dropped"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
}
