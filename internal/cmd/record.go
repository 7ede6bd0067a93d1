package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/worklog/internal/ingest"
	"github.com/runger/worklog/internal/sanitize"
)

var (
	recordType     string
	recordPath     string
	recordApp      string
	recordSummary  string
	recordData     string
	recordDuration int
	recordFiles    []string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append one activity event from an external collector",
	Long: `Append one activity event from an external collector.

Meant for shell hooks and scripts: window pollers, git post-commit
hooks, manual entries. The event is masked, resolved to a project via
the configured watch roots, and stored. With --type git_commit each
--file also records a coalesced file event tied to the commit.

Examples:
  worklog record --type git_commit --path "$PWD" \
    --summary "$(git log -1 --format=%s)" \
    $(git diff-tree --no-commit-id --name-only -r HEAD | sed 's/^/--file /')
  worklog record --type window_focus --path ~/work/worklog --app kitty --duration-seconds 300`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordType, "type", "", "event type (git_commit, window_focus, manual, ...)")
	recordCmd.Flags().StringVar(&recordPath, "path", "", "directory the event happened in, resolved to a project")
	recordCmd.Flags().StringVar(&recordApp, "app", "", "application name")
	recordCmd.Flags().StringVar(&recordSummary, "summary", "", "one-line description")
	recordCmd.Flags().StringVar(&recordData, "data", "", "extra payload, stored as-is after masking")
	recordCmd.Flags().IntVar(&recordDuration, "duration-seconds", 0, "event duration")
	recordCmd.Flags().StringArrayVar(&recordFiles, "file", nil, "file touched by the event (repeatable)")
	_ = recordCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := noteDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	var filter *sanitize.Filter
	if cfg.Privacy.MaskBeforePersist {
		filter = newFilter(cfg, logger)
	}
	window := time.Duration(cfg.Tracking.CoalesceWindowMs) * time.Millisecond
	rec := ingest.NewActivityRecorder(store, filter, newResolver(cfg), window, logger)

	raw := ingest.RawActivity{
		Ts:        time.Now(),
		EventType: recordType,
		Path:      recordPath,
		App:       recordApp,
		Summary:   recordSummary,
		Data:      recordData,
		DurationS: int64(recordDuration),
	}
	for _, f := range recordFiles {
		raw.Files = append(raw.Files, ingest.RawFileChange{Path: f})
	}

	ev, err := rec.Record(cmd.Context(), raw)
	if err != nil {
		return err
	}

	detail := ""
	if len(raw.Files) > 0 {
		detail = fmt.Sprintf(", %d file(s)", len(raw.Files))
	}
	fmt.Printf("%s✓%s recorded %s #%d%s\n", colorGreen, colorReset, recordType, ev.ID, detail)
	return nil
}
