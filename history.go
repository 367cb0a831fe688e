package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytpush/ytpush/internal/ledger"
)

var flagHistoryLimit int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent upload runs",
		RunE:  runHistory,
	}

	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "maximum number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	if !resolvedCfg.History {
		return fmt.Errorf("upload history is disabled (set history = true in %s)", resolvedCfg.ConfigPath)
	}

	store, err := ledger.Open(resolvedCfg.HistoryFile, logger)
	if err != nil {
		return fmt.Errorf("opening upload history: %w", err)
	}
	defer store.Close()

	runs, err := store.Recent(ctx, flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("reading upload history: %w", err)
	}

	if flagJSON {
		return printHistoryJSON(runs)
	}

	printHistoryTable(runs)

	return nil
}

// historyJSONRun is the JSON output schema for a single run.
type historyJSONRun struct {
	ID             string `json:"id"`
	Path           string `json:"path"`
	Title          string `json:"title"`
	Privacy        string `json:"privacy"`
	Size           int64  `json:"size"`
	State          string `json:"state"`
	VideoID        string `json:"video_id,omitempty"`
	RetryHighWater int    `json:"retry_high_water"`
	Error          string `json:"error,omitempty"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at,omitempty"`
}

func printHistoryJSON(runs []ledger.Run) error {
	out := make([]historyJSONRun, 0, len(runs))
	for i := range runs {
		r := historyJSONRun{
			ID:             runs[i].ID,
			Path:           runs[i].Path,
			Title:          runs[i].Title,
			Privacy:        runs[i].Privacy,
			Size:           runs[i].Size,
			State:          runs[i].State,
			VideoID:        runs[i].VideoID,
			RetryHighWater: runs[i].RetryHighWater,
			Error:          runs[i].Error,
			StartedAt:      runs[i].StartedAt.UTC().Format(time.RFC3339),
		}

		if !runs[i].FinishedAt.IsZero() {
			r.FinishedAt = runs[i].FinishedAt.UTC().Format(time.RFC3339)
		}

		out = append(out, r)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func printHistoryTable(runs []ledger.Run) {
	if len(runs) == 0 {
		statusf("No uploads recorded yet.\n")

		return
	}

	headers := []string{"STARTED", "STATE", "SIZE", "TITLE", "VIDEO"}
	rows := make([][]string, 0, len(runs))

	for i := range runs {
		video := runs[i].VideoID
		if video == "" && runs[i].Error != "" {
			video = truncate(runs[i].Error, 40)
		}

		rows = append(rows, []string{
			formatTime(runs[i].StartedAt),
			runs[i].State,
			formatSize(runs[i].Size),
			truncate(runs[i].Title, 32),
			video,
		})
	}

	printTable(os.Stdout, headers, rows)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n-3]) + "..."
}
