package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/worklog/internal/config"
	"github.com/runger/worklog/internal/period"
	"github.com/runger/worklog/internal/storage"
	"github.com/runger/worklog/internal/vault"
)

var (
	noteDryRun     bool
	noteDate       string
	noteWeek       string
	noteMonth      string
	noteWindowDays int
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Render a single vault note",
	Long: `Render a single vault note from the event store.

Owned sections and frontmatter fields are regenerated; everything else
in an existing note is left untouched. With --dry-run the rendered
note is printed instead of written.`,
}

var noteDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Render the daily note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day := period.Day(time.Now())
		if noteDate != "" {
			var err error
			day, err = period.ParseDay(noteDate, time.Local)
			if err != nil {
				return err
			}
		}
		return writeNote(cmd.Context(), vault.KindDaily, day)
	},
}

var noteWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Render the weekly note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		week := period.WeekOf(time.Now())
		if noteWeek != "" {
			var err error
			week, err = period.ParseWeek(noteWeek, time.Local)
			if err != nil {
				return err
			}
		}
		return writeNote(cmd.Context(), vault.KindWeekly, week)
	},
}

var noteMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Render the monthly note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		month := period.Month(now.Year(), now.Month(), now.Location())
		if noteMonth != "" {
			var err error
			month, err = period.ParseMonth(noteMonth, time.Local)
			if err != nil {
				return err
			}
		}
		return writeNote(cmd.Context(), vault.KindMonthly, month)
	},
}

var noteProjectCmd = &cobra.Command{
	Use:   "project <name>",
	Short: "Render a project note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeProjectNote(cmd.Context(), args[0])
	},
}

func init() {
	noteCmd.PersistentFlags().BoolVar(&noteDryRun, "dry-run", false, "print the note instead of writing it")
	noteDailyCmd.Flags().StringVar(&noteDate, "date", "", "day to render (YYYY-MM-DD, default today)")
	noteWeeklyCmd.Flags().StringVar(&noteWeek, "week", "", "week to render (YYYY-Www, default this week)")
	noteMonthlyCmd.Flags().StringVar(&noteMonth, "month", "", "month to render (YYYY-MM, default this month)")
	noteProjectCmd.Flags().IntVar(&noteWindowDays, "window-days", 14, "trailing activity window in days")

	noteCmd.AddCommand(noteDailyCmd)
	noteCmd.AddCommand(noteWeeklyCmd)
	noteCmd.AddCommand(noteMonthlyCmd)
	noteCmd.AddCommand(noteProjectCmd)
	rootCmd.AddCommand(noteCmd)
}

func writeNote(ctx context.Context, kind vault.Kind, p period.Period) error {
	cfg, logger, store, err := noteDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := vault.CollectNoteData(ctx, store, p)
	if err != nil {
		return err
	}
	data.MaskWith(newFilter(cfg, logger))
	return emitNote(ctx, vault.NewWriter(cfg, logger), kind, data)
}

func writeProjectNote(ctx context.Context, name string) error {
	cfg, logger, store, err := noteDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	window := time.Duration(noteWindowDays) * 24 * time.Hour
	data, err := vault.CollectProjectNoteData(ctx, store, name, time.Now(), window)
	if err != nil {
		return err
	}
	data.MaskWith(newFilter(cfg, logger))
	return emitNote(ctx, vault.NewWriter(cfg, logger), vault.KindProject, data)
}

func emitNote(ctx context.Context, writer *vault.Writer, kind vault.Kind, data *vault.NoteData) error {
	if noteDryRun {
		text, err := writer.Render(kind, data)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}

	res, err := writer.Write(ctx, kind, data)
	if err != nil {
		return err
	}
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, writeDetail(res))
	return nil
}

func noteDeps() (*config.Config, *slog.Logger, storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, store, nil
}
