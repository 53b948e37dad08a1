package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the rating cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached score lookups",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.ratingCache()
			if err != nil {
				return err
			}

			entries := cache.List()
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Rating cache is empty")
				return nil
			}

			sort.Slice(entries, func(i, j int) bool {
				return entries[i].CachedAt.After(entries[j].CachedAt)
			})
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rating := "-"
				if entry.Rating != nil {
					rating = strconv.FormatFloat(*entry.Rating, 'f', 2, 64)
				}
				rows = append(rows, []string{
					entry.WineName,
					rating,
					strconv.FormatFloat(entry.Confidence, 'f', 2, 64),
					entry.Source,
					entry.CachedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Wine", "Rating", "Confidence", "Source", "Cached"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit entries as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached score lookups",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.ratingCache()
			if err != nil {
				return err
			}
			count := cache.Count()
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached entries\n", count)
			return nil
		},
	}
}
