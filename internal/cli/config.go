package cli

import (
	"fmt"

	"github.com/filegirl/filegirl/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the filegirl configuration",
	Long:  `Display or validate the configuration file, including environment overrides.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without starting the guard",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📋 FileGirl Configuration\n")
	fmt.Fprintf(out, "═══════════════════════════════════════\n\n")
	fmt.Fprintf(out, "📁 Config File: %s\n\n", cfgFile)

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	fmt.Fprintln(out, string(yamlData))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ %s is valid\n", cfgFile)
	fmt.Fprintf(out, "🛡️  Protected directories: %d\n", len(cfg.Directories()))
	for _, dir := range cfg.Directories() {
		fmt.Fprintf(out, "   - %s\n", dir)
	}
	for _, warning := range cfg.Warnings() {
		fmt.Fprintf(out, "⚠️  %s\n", warning)
	}
	return nil
}
