package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/worklog/internal/config"
	"github.com/runger/worklog/internal/detect"
	"github.com/runger/worklog/internal/ingest"
	"github.com/runger/worklog/internal/period"
	"github.com/runger/worklog/internal/sanitize"
	"github.com/runger/worklog/internal/storage"
	"github.com/runger/worklog/internal/vault"
)

var (
	syncDate       string
	syncImportOnly bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import new activity and refresh vault notes",
	Long: `Import new activity and refresh vault notes.

Runs the full pipeline: import Claude Code conversations, then render
the daily, weekly and monthly notes, per-project notes, and the stuck
briefing. Every step is idempotent, so re-running sync is always safe.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncDate, "date", "", "render notes for this day (YYYY-MM-DD, default today)")
	syncCmd.Flags().BoolVar(&syncImportOnly, "import-only", false, "import activity without rendering notes")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	filter := newFilter(cfg, logger)

	day := period.Day(time.Now())
	if syncDate != "" {
		day, err = period.ParseDay(syncDate, time.Local)
		if err != nil {
			return err
		}
	}

	importFilter := filter
	if !cfg.Privacy.MaskBeforePersist {
		importFilter = nil
	}
	importer := ingest.NewClaudeImporter(store, importFilter, newResolver(cfg), cfg.ClaudeHistoryDir(), nil, logger)

	steps := []ingest.Step{importer}
	if !syncImportOnly {
		steps = append(steps, noteSteps(cfg, store, logger, filter, day)...)
	}

	results := ingest.NewPipeline(logger, steps...).Run(cmd.Context())

	failed := 0
	for _, r := range results {
		switch r.Status {
		case ingest.StatusOK:
			fmt.Printf("%s✓%s %-16s %s\n", colorGreen, colorReset, r.Step, r.Detail)
		case ingest.StatusSkipped:
			fmt.Printf("%s-%s %-16s %s\n", colorDim, colorReset, r.Step, r.Detail)
		case ingest.StatusError:
			failed++
			fmt.Printf("%s✗%s %-16s %s\n", colorRed, colorReset, r.Step, r.Detail)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d sync step(s) failed", failed)
	}
	return nil
}

// syncStep adapts a closure to the pipeline Step interface.
type syncStep struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func (s syncStep) Name() string                            { return s.name }
func (s syncStep) Run(ctx context.Context) (string, error) { return s.run(ctx) }

func noteSteps(cfg *config.Config, store storage.Store, logger *slog.Logger, filter *sanitize.Filter, day period.Period) []ingest.Step {
	writer := vault.NewWriter(cfg, logger)

	renderPeriod := func(kind vault.Kind, p period.Period) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			data, err := vault.CollectNoteData(ctx, store, p)
			if err != nil {
				return "", err
			}
			data.MaskWith(filter)
			res, err := writer.Write(ctx, kind, data)
			if errors.Is(err, vault.ErrNoteBusy) {
				return "note busy, left for next cycle", nil
			}
			if err != nil {
				return "", err
			}
			return writeDetail(res), nil
		}
	}

	week := period.WeekOf(day.Start)
	month := period.Month(day.Start.Year(), day.Start.Month(), day.Start.Location())

	return []ingest.Step{
		syncStep{name: "render-daily", run: renderPeriod(vault.KindDaily, day)},
		syncStep{name: "render-weekly", run: renderPeriod(vault.KindWeekly, week)},
		syncStep{name: "render-monthly", run: renderPeriod(vault.KindMonthly, month)},
		syncStep{name: "render-projects", run: func(ctx context.Context) (string, error) {
			return renderProjectNotes(ctx, store, writer, filter)
		}},
		syncStep{name: "stuck-briefing", run: func(ctx context.Context) (string, error) {
			return renderBriefing(ctx, cfg, store, logger, writer, filter, day)
		}},
	}
}

func writeDetail(res *vault.WriteResult) string {
	switch {
	case res.Created:
		return "created " + res.Path
	case res.Changed:
		return "updated " + res.Path
	default:
		return "unchanged " + res.Path
	}
}

const projectNoteWindow = 14 * 24 * time.Hour

func renderProjectNotes(ctx context.Context, store storage.Store, writer *vault.Writer, filter *sanitize.Filter) (string, error) {
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now()
	written, busy := 0, 0
	for _, p := range projects {
		if p.Status == "completed" {
			continue
		}
		data, err := vault.CollectProjectNoteData(ctx, store, p.Name, now, projectNoteWindow)
		if err != nil {
			return "", err
		}
		data.MaskWith(filter)
		_, err = writer.Write(ctx, vault.KindProject, data)
		if errors.Is(err, vault.ErrNoteBusy) {
			busy++
			continue
		}
		if err != nil {
			return "", err
		}
		written++
	}
	detail := fmt.Sprintf("%d project note(s)", written)
	if busy > 0 {
		detail += fmt.Sprintf(", %d busy", busy)
	}
	return detail, nil
}

func renderBriefing(ctx context.Context, cfg *config.Config, store storage.Store, logger *slog.Logger, writer *vault.Writer, filter *sanitize.Filter, day period.Period) (string, error) {
	threshold := detect.DefaultStuckThreshold
	if cfg.Tracking.StuckThresholdMins > 0 {
		threshold = time.Duration(cfg.Tracking.StuckThresholdMins) * time.Minute
	}
	minEdits := cfg.Tracking.StuckMinEdits
	if minEdits <= 0 {
		minEdits = detect.DefaultStuckMinEdits
	}

	hints, err := detect.NewStuckDetector(store, logger).Detect(ctx, time.Now(), threshold, minEdits)
	if err != nil {
		return "", err
	}
	if len(hints) == 0 {
		return "nothing stuck", nil
	}

	data := &vault.NoteData{Label: day.Label, Period: day, Items: briefingItems(hints)}
	data.MaskWith(filter)
	res, err := writer.Write(ctx, vault.KindBriefing, data)
	if errors.Is(err, vault.ErrNoteBusy) {
		return fmt.Sprintf("%d stuck file(s), briefing busy", len(hints)), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d stuck file(s), %s", len(hints), writeDetail(res)), nil
}

func briefingItems(hints []detect.StuckHint) []vault.BriefingItem {
	items := make([]vault.BriefingItem, 0, len(hints))
	for _, h := range hints {
		related := make([]string, 0, len(h.Related))
		for _, r := range h.Related {
			related = append(related, r.PromptPreview)
		}
		items = append(items, vault.BriefingItem{
			FilePath:       h.FilePath,
			EditCount:      h.EditCount,
			ElapsedMinutes: h.ElapsedMinutes,
			Related:        related,
		})
	}
	return items
}
