package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vintner/internal/config"
	"vintner/internal/textutil"
	"vintner/internal/winestore"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect the wine store",
	}

	storeCmd.AddCommand(newStoreSearchCommand(ctx))
	storeCmd.AddCommand(newStoreShowCommand(ctx))
	storeCmd.AddCommand(newStoreStatsCommand(ctx))

	return storeCmd
}

func newStoreSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search wines by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *winestore.Store) error {
				query := textutil.Normalize(strings.Join(args, " "), cfg.Matching.Stoplist)
				if query == "" {
					return errors.New("query normalizes to nothing searchable")
				}

				wines, err := store.SearchCandidates(cmd.Context(), query, limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, wines)
				}
				if len(wines) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches")
					return nil
				}
				printWineTable(cmd, wines)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit results as JSON")
	return cmd
}

func newStoreShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show one wine in full detail",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *winestore.Store) error {
				wine, err := lookupWine(cmd, ctx, store, cfg, args)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, wine)
				}
				printWineDetail(cmd, wine)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the record as JSON")
	return cmd
}

func lookupWine(cmd *cobra.Command, ctx *commandContext, store *winestore.Store, cfg *config.Config, args []string) (*winestore.WineRecord, error) {
	arg := strings.TrimSpace(strings.Join(args, " "))
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
		wine, err := store.GetByID(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		if wine == nil {
			return nil, fmt.Errorf("no wine with id %d", id)
		}
		return wine, nil
	}

	normalized := textutil.Normalize(arg, cfg.Matching.Stoplist)
	wine, err := store.FindExact(cmd.Context(), normalized)
	if err != nil {
		return nil, err
	}
	if wine == nil {
		return nil, fmt.Errorf("no wine named %q", arg)
	}
	return wine, nil
}

func newStoreStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show wine store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *winestore.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Store:   %s\n", store.Path())
				fmt.Fprintf(out, "Wines:   %d (%d rated)\n", stats.Wines, stats.Rated)
				fmt.Fprintf(out, "Aliases: %d\n", stats.Aliases)
				fmt.Fprintf(out, "Runs:    %d\n", stats.Runs)

				for _, src := range cfg.Ingest.Sources {
					run, err := store.LatestRun(cmd.Context(), src.Name)
					if err != nil {
						return err
					}
					if run == nil {
						fmt.Fprintf(out, "Source %s: never ingested\n", src.Name)
						continue
					}
					fmt.Fprintf(out, "Source %s: %d records on %s\n",
						src.Name, run.RecordsProcessed, run.CreatedAt.Local().Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
}

func printWineTable(cmd *cobra.Command, wines []*winestore.WineRecord) {
	rows := make([][]string, 0, len(wines))
	for _, wine := range wines {
		rows = append(rows, []string{
			strconv.FormatInt(wine.ID, 10),
			wine.CanonicalName,
			formatRating(wine.Rating),
			strconv.Itoa(len(wine.Aliases)),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Name", "Rating", "Aliases"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
	))
}

func printWineDetail(cmd *cobra.Command, wine *winestore.WineRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:         %d\n", wine.ID)
	fmt.Fprintf(out, "Name:       %s\n", wine.CanonicalName)
	fmt.Fprintf(out, "Normalized: %s\n", wine.NormalizedName)
	fmt.Fprintf(out, "Rating:     %s\n", formatRating(wine.Rating))
	if wine.WineType != "" {
		fmt.Fprintf(out, "Type:       %s\n", wine.WineType)
	}
	if wine.Region != "" {
		fmt.Fprintf(out, "Region:     %s\n", wine.Region)
	}
	if len(wine.Aliases) > 0 {
		fmt.Fprintf(out, "Aliases:    %s\n", strings.Join(wine.Aliases, ", "))
	}
	for _, source := range wine.SourceRatings {
		fmt.Fprintf(out, "  - %s: %.2f on %.0f-%.0f scale\n",
			source.SourceName, source.Rating, source.ScaleMin, source.ScaleMax)
	}
}

func formatRating(rating *float64) string {
	if rating == nil {
		return "-"
	}
	return strconv.FormatFloat(*rating, 'f', 2, 64)
}
