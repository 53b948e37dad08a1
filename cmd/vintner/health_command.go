package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

type healthReport struct {
	Status       string             `json:"status"`
	Dependencies []healthDependency `json:"dependencies"`
}

type healthDependency struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check daemon and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}

			report, err := fetchHealth(cmd, base)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if err != nil {
				if jsonOut {
					return err
				}
				fmt.Fprintln(out, renderStatusLine("daemon", statusError, err.Error(), colorize))
				return fmt.Errorf("daemon unreachable at %s", base)
			}

			if jsonOut {
				return writeJSON(cmd, report)
			}

			daemonKind := statusOK
			if report.Status != "ok" {
				daemonKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("daemon", daemonKind, report.Status, colorize))

			sort.Slice(report.Dependencies, func(i, j int) bool {
				return report.Dependencies[i].Name < report.Dependencies[j].Name
			})
			for _, dep := range report.Dependencies {
				kind := statusOK
				message := "available"
				if !dep.Available {
					kind = statusError
					message = dep.Error
				}
				fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the health report as JSON")
	return cmd
}

func fetchHealth(cmd *cobra.Command, base string) (*healthReport, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, base+"/api/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("health endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &report, nil
}
