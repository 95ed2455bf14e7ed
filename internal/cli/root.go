// Package cli implements the command-line interface for filegirl
package cli

import (
	"fmt"

	"github.com/filegirl/filegirl/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	version   string
	buildDate string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "filegirl",
	Short: "FileGirl - Keep protected directories exactly as you left them",
	Long: `FileGirl snapshots the directories you protect, backs them up, and
then watches them. Files created without authorization are removed,
modified files are rolled back and deleted files are restored from the
backup, unless their name matches a white_names pattern.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, bd string) {
	version = v
	buildDate = bd
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildDate)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(incidentsCmd)
}
