package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List tracked projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var projectsStatusCmd = &cobra.Command{
	Use:   "set-status <name> <active|paused|completed>",
	Short: "Change a project's status",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectsStatus,
}

func init() {
	projectsCmd.AddCommand(projectsStatusCmd)
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	_, _, store, err := noteDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	projects, err := store.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Printf("%sno projects yet, run worklog sync first%s\n", colorDim, colorReset)
		return nil
	}

	for _, p := range projects {
		status := p.Status
		switch status {
		case "active":
			status = colorGreen + status + colorReset
		case "paused":
			status = colorYellow + status + colorReset
		case "completed":
			status = colorDim + status + colorReset
		}
		path := ""
		if p.Path != nil {
			path = *p.Path
		}
		created := time.UnixMilli(p.CreatedAtUnixMs).Format("2006-01-02")
		fmt.Printf("  %s%-20s%s %-10s %s %s(since %s)%s\n",
			colorBold, p.Name, colorReset, status, path, colorDim, created, colorReset)
	}
	return nil
}

func runProjectsStatus(cmd *cobra.Command, args []string) error {
	name, status := args[0], args[1]
	switch status {
	case "active", "paused", "completed":
	default:
		return fmt.Errorf("invalid status %q (use active, paused or completed)", status)
	}

	_, _, store, err := noteDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetProjectStatus(cmd.Context(), name, status); err != nil {
		return err
	}
	fmt.Printf("%s✓%s %s is now %s\n", colorGreen, colorReset, name, status)
	return nil
}
