package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/worklog/internal/ingest"
	"github.com/runger/worklog/internal/period"
	"github.com/runger/worklog/internal/sanitize"
)

var importDate string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import activity from external sources",
}

var importClaudeCmd = &cobra.Command{
	Use:   "claude",
	Short: "Import Claude Code conversation history",
	Long: `Import Claude Code conversation history.

Walks the conversation directory (tracking.claude_history, defaulting
to ~/.claude/projects) and upserts one prompt per user turn. Imports
are idempotent: turns already stored are skipped.`,
	Args: cobra.NoArgs,
	RunE: runImportClaude,
}

func init() {
	importClaudeCmd.Flags().StringVar(&importDate, "date", "", "only import turns from this day (YYYY-MM-DD)")
	importCmd.AddCommand(importClaudeCmd)
	rootCmd.AddCommand(importCmd)
}

func runImportClaude(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := noteDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	var window *period.Period
	if importDate != "" {
		day, err := period.ParseDay(importDate, time.Local)
		if err != nil {
			return err
		}
		window = &day
	}

	var filter *sanitize.Filter
	if cfg.Privacy.MaskBeforePersist {
		filter = newFilter(cfg, logger)
	}

	importer := ingest.NewClaudeImporter(store, filter, newResolver(cfg), cfg.ClaudeHistoryDir(), window, logger)
	stats, err := importer.Import(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, stats)
	return nil
}
