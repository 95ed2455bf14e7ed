package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/filegirl/filegirl/internal/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to the --config path (./config.yml by
default). Edit protected_dirs and backup_dir before running the guard.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	out := cmd.OutOrStdout()

	if _, err := os.Stat(cfgFile); err == nil && !force {
		return fmt.Errorf("configuration already exists at %s. Use --force to overwrite", cfgFile)
	}

	if dir := filepath.Dir(cfgFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create configuration directory: %w", err)
		}
	}

	if err := os.WriteFile(cfgFile, []byte(config.DefaultYAML), 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(out, "✅ Configuration written to %s\n", cfgFile)
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Next steps:\n")
	fmt.Fprintf(out, "1. Set protected_dirs and backup_dir in %s\n", cfgFile)
	fmt.Fprintf(out, "2. Run 'filegirl config validate' to check it\n")
	fmt.Fprintf(out, "3. Run 'filegirl run' to start protecting\n")

	return nil
}
