package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/maturity-tools/maturityd/internal/config"
	"github.com/maturity-tools/maturityd/internal/database"
)

func newReposCmd() *cobra.Command {
	var (
		owner  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List cached repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()

			owners := []string{owner}
			if owner == "" {
				owners = cfg.Owners
				if len(owners) == 0 {
					return fmt.Errorf("no --owner given and MATURITYD_OWNERS is empty")
				}
			}

			dbCtx, err := database.CreateDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.CloseDatabase(dbCtx)
			}()

			ctx := context.Background()
			repoRepo := database.NewRepoRepository(dbCtx)

			var repos []database.RepoRecord
			for _, o := range owners {
				list, err := repoRepo.List(ctx, o)
				if err != nil {
					return err
				}
				repos = append(repos, list...)
			}

			switch format {
			case "json":
				return outputReposJSON(cmd, repos)
			case "table":
				outputReposTable(cmd, repos)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner (defaults to MATURITYD_OWNERS)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

type repoOutputEntry struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Created       string `json:"created"`
}

func outputReposJSON(cmd *cobra.Command, repos []database.RepoRecord) error {
	output := make([]repoOutputEntry, 0, len(repos))
	for _, r := range repos {
		output = append(output, repoOutputEntry{
			Owner:         r.Owner,
			Name:          r.Name,
			DefaultBranch: r.DefaultBranch,
			Created:       r.CreatedAt.Format(time.RFC3339),
		})
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func outputReposTable(cmd *cobra.Command, repos []database.RepoRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Owner", "Name", "Default Branch", "Created"})

	for _, r := range repos {
		t.AppendRow(table.Row{
			r.Owner,
			r.Name,
			r.DefaultBranch,
			r.CreatedAt.Format("2006-01-02"),
		})
	}
	t.Render()
}
