package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/filegirl/filegirl/internal/config"
	"github.com/filegirl/filegirl/internal/database"
	"github.com/filegirl/filegirl/internal/database/repositories"
	"github.com/filegirl/filegirl/pkg/models"
	"github.com/spf13/cobra"
)

// incidentsCmd represents the incidents command
var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List reactions recorded in the incident journal",
	Long: `Display the reactions recorded in journal_path, newest first.

The journal is locked while the guard runs; query GET /api/incidents on the
status server instead, or stop the guard first.`,
	RunE: runIncidents,
}

func init() {
	incidentsCmd.Flags().String("dir", "", "Filter by protected directory")
	incidentsCmd.Flags().String("outcome", "", "Filter by outcome (succeeded, failed)")
	incidentsCmd.Flags().Int("limit", 50, "Limit number of results (0 for all)")
	incidentsCmd.Flags().Bool("json", false, "Output incidents in JSON format")
	incidentsCmd.Flags().Bool("clear", false, "Remove every recorded incident")
}

func runIncidents(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	outcome, _ := cmd.Flags().GetString("outcome")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	clearAll, _ := cmd.Flags().GetBool("clear")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cfg.JournalPath == "" {
		return fmt.Errorf("journal_path is not set in %s", cfgFile)
	}

	if _, err := os.Stat(cfg.JournalPath); os.IsNotExist(err) {
		return fmt.Errorf("no incident journal at %s; it is created the first time the guard runs", cfg.JournalPath)
	}

	if dir != "" {
		dir = filepath.Clean(dir)
	}

	opts := database.DefaultOptions(cfg.JournalPath)
	opts.ReadOnly = !clearAll

	db, err := database.NewManager(opts)
	if err != nil {
		return err
	}
	if err := db.Open(); err != nil {
		return fmt.Errorf("%w (is the guard running?)", err)
	}
	defer db.Close()

	repo := repositories.NewIncidentRepository(db)
	out := cmd.OutOrStdout()

	if clearAll {
		count, err := repo.Count()
		if err != nil {
			return err
		}
		if err := repo.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(out, "🗑️  Removed %d incidents\n", count)
		return nil
	}

	incidents, err := repo.List(&models.IncidentFilter{
		Directory: dir,
		Outcome:   models.Outcome(outcome),
		Limit:     limit,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if incidents == nil {
			incidents = []*models.Incident{}
		}
		return enc.Encode(incidents)
	}

	fmt.Fprintf(out, "📜 FileGirl Incidents\n")
	fmt.Fprintf(out, "═══════════════════════════════════════\n\n")

	if dir != "" {
		fmt.Fprintf(out, "📁 Directory: %s\n", dir)
	}
	if outcome != "" {
		fmt.Fprintf(out, "🔍 Outcome: %s\n", outcome)
	}

	if len(incidents) == 0 {
		fmt.Fprintf(out, "No incidents recorded\n")
		return nil
	}

	fmt.Fprintf(out, "%-20s %-9s %-9s %-50s\n", "Time", "Action", "Outcome", "Path")
	fmt.Fprintf(out, "%-20s %-9s %-9s %-50s\n", "────", "──────", "───────", "────")

	failed := 0
	for _, i := range incidents {
		status := "✅"
		if !i.Succeeded() {
			status = "❌"
			failed++
		}
		fmt.Fprintf(out, "%-20s %-9s %s %-6s %-50s\n",
			i.Timestamp.Local().Format(time.DateTime), i.Action, status, i.Outcome, i.Path)
		if i.Error != "" {
			fmt.Fprintf(out, "%20s └─ %s\n", "", i.Error)
		}
		if i.QuarantinePath != "" {
			fmt.Fprintf(out, "%20s └─ quarantined at %s\n", "", i.QuarantinePath)
		}
	}

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "═══════════════════════════════════════\n")
	fmt.Fprintf(out, "📊 Summary: %d incidents | ❌ Failed: %d\n", len(incidents), failed)

	return nil
}
