package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/runger/worklog/internal/detect"
)

var focusDays int

var (
	focusTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	focusStatStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	focusBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	focusPeakStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	focusDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Report peak hours, weekday rhythm and context switches",
	Args:  cobra.NoArgs,
	RunE:  runFocus,
}

func init() {
	focusCmd.Flags().IntVar(&focusDays, "days", 0, "trailing window in days (0 = configured value)")
	rootCmd.AddCommand(focusCmd)
}

func runFocus(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := noteDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	days := detect.DefaultFocusDays
	switch {
	case focusDays > 0:
		days = focusDays
	case cfg.Tracking.FocusWindowDays > 0:
		days = cfg.Tracking.FocusWindowDays
	}

	report, err := detect.NewFocusAnalyzer(store, logger).Analyze(cmd.Context(), time.Now(), days)
	if err != nil {
		return err
	}

	fmt.Println(focusTitleStyle.Render(fmt.Sprintf("Focus report, last %d days", report.Days)))
	if report.TotalEvents == 0 {
		fmt.Println(focusDimStyle.Render("no activity recorded in this window"))
		return nil
	}
	fmt.Printf("%s events\n\n", focusStatStyle.Render(fmt.Sprintf("%d", report.TotalEvents)))

	printHourHistogram(report)
	printWeekdays(report)
	printSwitches(report)
	return nil
}

func printHourHistogram(r *detect.FocusReport) {
	fmt.Println(focusTitleStyle.Render("Hours"))

	max := 0
	for _, c := range r.HourCounts {
		if c > max {
			max = c
		}
	}
	for hour, count := range r.HourCounts {
		if count == 0 {
			continue
		}
		bar := strings.Repeat("█", barWidth(count, max))
		label := fmt.Sprintf("%02d:00", hour)
		if r.HasPeak && inPeakBlock(hour, r.PeakBlockStart) {
			fmt.Printf("  %s %s %d\n", focusPeakStyle.Render(label), focusPeakStyle.Render(bar), count)
		} else {
			fmt.Printf("  %s %s %d\n", label, focusBarStyle.Render(bar), count)
		}
	}
	if r.HasPeak {
		fmt.Printf("  peak block %s (%.0f%% of activity), average start %s\n",
			focusPeakStyle.Render(r.PeakBlock), r.PeakShare, focusStatStyle.Render(fmt.Sprintf("%.1f", r.AvgStartHour)))
	}
	fmt.Println()
}

// inPeakBlock reports whether hour falls in the 2-hour block starting at
// start, wrapping past midnight.
func inPeakBlock(hour, start int) bool {
	return hour == start || hour == (start+1)%24
}

func barWidth(count, max int) int {
	const maxBar = 40
	if max <= 0 {
		return 0
	}
	w := count * maxBar / max
	if w < 1 {
		w = 1
	}
	return w
}

var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func printWeekdays(r *detect.FocusReport) {
	fmt.Println(focusTitleStyle.Render("Weekdays"))
	for i, name := range weekdayNames {
		if r.WeekdayCounts[i] == 0 {
			continue
		}
		line := fmt.Sprintf("  %s %5.1f%% (%d)", name, r.WeekdayShares[i], r.WeekdayCounts[i])
		if i == r.BestWeekday {
			fmt.Println(focusPeakStyle.Render(line))
		} else {
			fmt.Println(line)
		}
	}
	fmt.Println()
}

func printSwitches(r *detect.FocusReport) {
	fmt.Println(focusTitleStyle.Render("Context switches"))
	fmt.Printf("  %.1f project switches per active day\n", r.AvgSwitches)
	if r.MaxSwitchDay != "" {
		fmt.Printf("  busiest: %s with %d switches\n", focusStatStyle.Render(r.MaxSwitchDay), r.MaxSwitchCount)
	}
}
