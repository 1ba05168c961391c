package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "maturityd",
	Short: "maturityd - a cache and metrics store for repository activity",
	Long: "maturityd caches GitHub repository activity (commits, branches, issues,\n" +
		"pull requests, releases) and records versioned maturity-metric snapshots\n" +
		"that downstream dashboards and agents read without hitting the API.",
}

func init() {
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newReposCmd())
	rootCmd.AddCommand(newMCPCmd())
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
