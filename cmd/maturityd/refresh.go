package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/maturity-tools/maturityd/internal/cache"
	"github.com/maturity-tools/maturityd/internal/config"
	"github.com/maturity-tools/maturityd/internal/database"
	"github.com/maturity-tools/maturityd/internal/gh"
	"github.com/maturity-tools/maturityd/internal/timerange"
)

func newRefreshCmd() *cobra.Command {
	var (
		owner         string
		repo          string
		timeRangeFlag string
		noFullHistory bool
		forceRefresh  bool
		format        string
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh cached repository data and record a metrics snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger := newLogger(verbose)

			tr, err := timerange.Parse(timeRangeFlag)
			if err != nil {
				return err
			}

			owners := []string{owner}
			if owner == "" {
				if repo != "" {
					return errors.New("--repo requires --owner")
				}
				owners = cfg.Owners
				if len(owners) == 0 {
					return errors.New("no --owner given and MATURITYD_OWNERS is empty")
				}
			}

			if cfg.GitHubToken == "" {
				return errors.New("GITHUB_TOKEN is not set")
			}
			fetcher, err := gh.NewClient(cfg.GitHubToken, logger)
			if err != nil {
				return err
			}

			dbCtx, err := database.CreateDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.CloseDatabase(dbCtx)
			}()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch := cache.NewOrchestrator(dbCtx, fetcher, logger)

			var outcomes []cache.Outcome
			for _, o := range owners {
				batch, err := orch.Refresh(ctx, cache.Options{
					Owner:        o,
					Repo:         repo,
					TimeRange:    tr,
					FullHistory:  !noFullHistory,
					ForceRefresh: forceRefresh,
				})
				outcomes = append(outcomes, batch...)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						break
					}
					return err
				}
			}

			switch format {
			case "json":
				if err := outputOutcomesJSON(cmd, outcomes); err != nil {
					return err
				}
			case "table":
				outputOutcomesTable(cmd, outcomes)
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}

			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
				}
			}
			if len(outcomes) > 0 && failed == len(outcomes) {
				return fmt.Errorf("all %d repositories failed to refresh", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner (defaults to MATURITYD_OWNERS)")
	cmd.Flags().StringVar(&repo, "repo", "", "Restrict the refresh to a single repository")
	cmd.Flags().StringVar(&timeRangeFlag, "time-range", string(timerange.OneYear), "Time window: 6mo, 1y, 2y, 3y, or all")
	cmd.Flags().BoolVar(&noFullHistory, "no-full-history", false, "Bound upstream fetches to the time window")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "Refetch even when the cache is fresh")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

type refreshOutputEntry struct {
	Owner   string   `json:"owner"`
	Repo    string   `json:"repo"`
	RunID   int64    `json:"run_id,omitempty"`
	Fetched []string `json:"fetched,omitempty"`
	Reused  []string `json:"reused,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func outputOutcomesJSON(cmd *cobra.Command, outcomes []cache.Outcome) error {
	output := make([]refreshOutputEntry, 0, len(outcomes))
	for _, o := range outcomes {
		entry := refreshOutputEntry{
			Owner:   o.Owner,
			Repo:    o.Repo,
			RunID:   o.RunID,
			Fetched: entityNames(o.Fetched),
			Reused:  entityNames(o.Reused),
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		output = append(output, entry)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func outputOutcomesTable(cmd *cobra.Command, outcomes []cache.Outcome) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Repository", "Run", "Fetched", "Reused", "Status"})

	for _, o := range outcomes {
		status := "ok"
		runID := fmt.Sprintf("%d", o.RunID)
		if o.Err != nil {
			status = o.Err.Error()
			runID = "-"
		}
		t.AppendRow(table.Row{
			o.Owner + "/" + o.Repo,
			runID,
			len(o.Fetched),
			len(o.Reused),
			status,
		})
	}
	t.Render()
}

func entityNames(entities []database.EntityType) []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, string(e))
	}
	return names
}
