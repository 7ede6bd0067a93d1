package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/worklog/internal/detect"
	"github.com/runger/worklog/internal/period"
	"github.com/runger/worklog/internal/vault"
)

var (
	stuckThresholdMins int
	stuckMinEdits      int
	stuckNoNote        bool
)

var stuckCmd = &cobra.Command{
	Use:   "stuck",
	Short: "Find files being edited repeatedly without a commit",
	Long: `Find files being edited repeatedly without a commit.

A file counts as stuck when it collects at least --min-edits edits
inside the trailing --threshold-minutes window and no commit mentions
it in that span. Related past AI sessions are listed when found.`,
	Args: cobra.NoArgs,
	RunE: runStuck,
}

func init() {
	stuckCmd.Flags().IntVar(&stuckThresholdMins, "threshold-minutes", 0, "look-back window (0 = configured value)")
	stuckCmd.Flags().IntVar(&stuckMinEdits, "min-edits", 0, "edits before a file counts as stuck (0 = configured value)")
	stuckCmd.Flags().BoolVar(&stuckNoNote, "no-note", false, "report only, do not write the briefing note")
	rootCmd.AddCommand(stuckCmd)
}

func runStuck(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := noteDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	threshold := detect.DefaultStuckThreshold
	switch {
	case stuckThresholdMins > 0:
		threshold = time.Duration(stuckThresholdMins) * time.Minute
	case cfg.Tracking.StuckThresholdMins > 0:
		threshold = time.Duration(cfg.Tracking.StuckThresholdMins) * time.Minute
	}
	minEdits := detect.DefaultStuckMinEdits
	switch {
	case stuckMinEdits > 0:
		minEdits = stuckMinEdits
	case cfg.Tracking.StuckMinEdits > 0:
		minEdits = cfg.Tracking.StuckMinEdits
	}

	ctx := cmd.Context()
	now := time.Now()
	hints, err := detect.NewStuckDetector(store, logger).Detect(ctx, now, threshold, minEdits)
	if err != nil {
		return err
	}

	if len(hints) == 0 {
		fmt.Printf("%s✓%s nothing looks stuck in the last %d minutes\n",
			colorGreen, colorReset, int(threshold.Minutes()))
		return nil
	}

	for _, h := range hints {
		fmt.Printf("%s%s%s  %d edits over %d min, no commit\n",
			colorBold, h.FilePath, colorReset, h.EditCount, h.ElapsedMinutes)
		for _, r := range h.Related {
			fmt.Printf("  %s[%s] %s%s\n", colorDim, r.Tool, r.PromptPreview, colorReset)
		}
	}

	if stuckNoNote {
		return nil
	}

	day := period.Day(now)
	data := &vault.NoteData{Label: day.Label, Period: day, Items: briefingItems(hints)}
	data.MaskWith(newFilter(cfg, logger))
	res, err := vault.NewWriter(cfg, logger).Write(ctx, vault.KindBriefing, data)
	if err != nil {
		return err
	}
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, writeDetail(res))
	return nil
}
