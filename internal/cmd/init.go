package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/worklog/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config, database and vault directories",
	Long: `Prepare worklog for first use.

Creates the XDG config and data directories, writes a default config
file (unless one exists), and opens the database once so the schema is
migrated. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: runInitCmd,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	paths := config.DefaultPaths()
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(paths.ConfigFile()); os.IsNotExist(err) {
		if err := cfg.SaveToFile(paths.ConfigFile()); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("%s✓%s wrote %s\n", colorGreen, colorReset, paths.ConfigFile())
	} else {
		fmt.Printf("%s-%s config exists at %s\n", colorDim, colorReset, paths.ConfigFile())
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	// Opening the store runs schema migrations.
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	fmt.Printf("%s✓%s database ready at %s\n", colorGreen, colorReset, cfg.DBPath())

	if err := os.MkdirAll(cfg.VaultRoot(), 0755); err != nil {
		return fmt.Errorf("failed to create vault root: %w", err)
	}
	fmt.Printf("%s✓%s vault root at %s\n", colorGreen, colorReset, cfg.VaultRoot())

	return nil
}
