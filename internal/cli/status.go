package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/filegirl/filegirl/internal/config"
	"github.com/filegirl/filegirl/internal/guard"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the watch sessions of a running guard",
	Long: `Query the status server of a running guard (http_addr) and display
every protected directory with its session state and snapshot size.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("addr", "", "Status server address (defaults to http_addr)")
	statusCmd.Flags().Bool("json", false, "Output status in JSON format")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if addr == "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		addr = cfg.HTTPAddr
	}
	if addr == "" {
		return fmt.Errorf("http_addr is not set; start the guard with a status server or pass --addr")
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/sessions")
	if err != nil {
		return fmt.Errorf("failed to reach guard at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("guard at %s answered %s", addr, resp.Status)
	}

	var sessions []guard.SessionStatus
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}

	fmt.Fprintf(out, "🎯 FileGirl Status\n")
	fmt.Fprintf(out, "═══════════════════════════════════════\n\n")

	active := 0
	for _, s := range sessions {
		state := "🔴 Stopped"
		if s.Active {
			state = "🟢 Active"
			active++
		}
		fmt.Fprintf(out, "  %s  %s (%d entries)\n", state, s.Dir, s.SnapshotEntries)
	}

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "═══════════════════════════════════════\n")
	fmt.Fprintf(out, "📊 %d of %d directories protected\n", active, len(sessions))

	return nil
}
