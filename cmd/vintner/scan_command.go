package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vintner/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Submit a shelf photo to the daemon and print recognized wines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}

			response, err := submitScan(cmd, base, image)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, response)
			}
			printScanResponse(cmd, response)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw scan response as JSON")
	return cmd
}

func submitScan(cmd *cobra.Command, base string, image []byte) (*scan.Response, error) {
	client := &http.Client{Timeout: 2 * time.Minute}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, base+"/api/scan", bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit scan: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scan endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var response scan.Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode scan response: %w", err)
	}
	return &response, nil
}

func printScanResponse(cmd *cobra.Command, response *scan.Response) {
	out := cmd.OutOrStdout()
	if len(response.Results) == 0 && len(response.Fallback) == 0 {
		fmt.Fprintln(out, "No wines recognized")
		return
	}

	if len(response.Results) > 0 {
		rows := make([][]string, 0, len(response.Results))
		for _, result := range response.Results {
			rows = append(rows, []string{
				result.WineName,
				formatRating(result.Rating),
				strconv.FormatFloat(result.Confidence, 'f', 2, 64),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Wine", "Rating", "Confidence"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight},
		))
	}

	if len(response.Fallback) > 0 {
		fmt.Fprintln(out, "Possible matches:")
		for _, entry := range response.Fallback {
			fmt.Fprintf(out, "  - %s (%s)\n", entry.WineName, formatRating(entry.Rating))
		}
	}
}
