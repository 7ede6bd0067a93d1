package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	maskText   string
	maskScanDB bool
	maskClean  bool
	maskDryRun bool
)

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Mask or audit sensitive content",
	Long: `Mask or audit sensitive content.

Modes (pick one):
  --text <s>   mask a string and print the result
  --scan-db    report sensitive matches in stored prompts
  --clean-db   rewrite stored prompts with matches masked

--clean-db with --dry-run reports what would change without writing.`,
	Args: cobra.NoArgs,
	RunE: runMask,
}

func init() {
	maskCmd.Flags().StringVar(&maskText, "text", "", "text to mask")
	maskCmd.Flags().BoolVar(&maskScanDB, "scan-db", false, "scan stored prompts for sensitive content")
	maskCmd.Flags().BoolVar(&maskClean, "clean-db", false, "mask sensitive content in stored prompts")
	maskCmd.Flags().BoolVar(&maskDryRun, "dry-run", false, "with --clean-db, report without writing")
	rootCmd.AddCommand(maskCmd)
}

func runMask(cmd *cobra.Command, args []string) error {
	modes := 0
	if maskText != "" {
		modes++
	}
	if maskScanDB {
		modes++
	}
	if maskClean {
		modes++
	}
	if modes != 1 {
		return fmt.Errorf("pick exactly one of --text, --scan-db, --clean-db")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	filter := newFilter(cfg, logger)

	if maskText != "" {
		masked, labels := filter.Mask(maskText)
		fmt.Println(masked)
		if len(labels) > 0 {
			fmt.Printf("%smasked: %s%s\n", colorDim, strings.Join(labels, ", "), colorReset)
		}
		return nil
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	prompts, err := store.AllPrompts(ctx)
	if err != nil {
		return err
	}

	if maskScanDB {
		hits := 0
		for _, p := range prompts {
			findings := filter.Scan(p.PromptText)
			findings = append(findings, filter.Scan(p.ResponseText)...)
			for _, f := range findings {
				hits++
				fmt.Printf("  %s#%d%s %s: %s\n", colorCyan, p.ID, colorReset, f.Label, f.Preview)
			}
		}
		if hits == 0 {
			fmt.Printf("%s✓%s no sensitive content in %d prompt(s)\n", colorGreen, colorReset, len(prompts))
		} else {
			fmt.Printf("%s%d match(es) across %d prompt(s)%s\n", colorYellow, hits, len(prompts), colorReset)
		}
		return nil
	}

	// --clean-db
	changed := 0
	for _, p := range prompts {
		maskedPrompt, _ := filter.Mask(p.PromptText)
		maskedResponse, _ := filter.Mask(p.ResponseText)
		if maskedPrompt == p.PromptText && maskedResponse == p.ResponseText {
			continue
		}
		changed++
		if maskDryRun {
			fmt.Printf("  would rewrite prompt #%d\n", p.ID)
			continue
		}
		if err := store.UpdatePromptTexts(ctx, p.ID, maskedPrompt, maskedResponse); err != nil {
			return fmt.Errorf("failed to rewrite prompt #%d: %w", p.ID, err)
		}
	}

	verb := "rewrote"
	if maskDryRun {
		verb = "would rewrite"
	}
	fmt.Printf("%s✓%s %s %d of %d prompt(s)\n", colorGreen, colorReset, verb, changed, len(prompts))
	return nil
}
