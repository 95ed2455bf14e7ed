package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filegirl/filegirl/internal/config"
	"github.com/filegirl/filegirl/internal/database"
	"github.com/filegirl/filegirl/internal/database/repositories"
	"github.com/filegirl/filegirl/internal/guard"
	"github.com/filegirl/filegirl/internal/metrics"
	"github.com/filegirl/filegirl/internal/server"
	"github.com/filegirl/filegirl/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runCmd represents the run command (main protection command)
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start protecting the configured directories",
	Long: `Snapshot and back up every protected directory, then watch them and
revert unauthorized changes until interrupted with Ctrl+C or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runGuard,
}

func runGuard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	zapLogger := logger.Get()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	deps := guard.Dependencies{Logger: zapLogger, Metrics: m}

	var incidents *repositories.IncidentRepository
	if cfg.JournalPath != "" {
		db, err := database.NewManager(database.DefaultOptions(cfg.JournalPath))
		if err != nil {
			return err
		}
		if err := db.Open(); err != nil {
			return err
		}
		defer db.Close()

		incidents = repositories.NewIncidentRepository(db)
		deps.Recorder = incidents
	}

	g, err := guard.New(cfg, deps)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🚀 Starting FileGirl\n")
	for _, dir := range cfg.Directories() {
		fmt.Fprintf(out, "🛡️  Protecting: %s\n", dir)
	}
	fmt.Fprintf(out, "💾 Backup Directory: %s\n", cfg.BackupDir)
	if len(cfg.WhiteNames) > 0 {
		fmt.Fprintf(out, "✅ White Names: %v\n", cfg.WhiteNames)
	}
	if cfg.QuarantineDir != "" {
		fmt.Fprintf(out, "🧪 Quarantine: %s\n", cfg.QuarantineDir)
	}
	if cfg.JournalPath != "" {
		fmt.Fprintf(out, "📜 Incident Journal: %s\n", cfg.JournalPath)
	}
	if cfg.HTTPAddr != "" {
		fmt.Fprintf(out, "📡 Status Server: http://%s\n", cfg.HTTPAddr)
	}
	fmt.Fprintf(out, "\n")

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return g.Run(egCtx)
	})

	if cfg.HTTPAddr != "" {
		srvCfg := server.Config{
			Addr:    cfg.HTTPAddr,
			Status:  g,
			Metrics: m,
			Logger:  zapLogger,
		}
		if incidents != nil {
			srvCfg.Incidents = incidents
		}
		srv := server.New(srvCfg)
		eg.Go(func() error {
			return srv.Start(egCtx)
		})
	}

	fmt.Fprintf(out, "[%s] 👀 Watching for changes... Press Ctrl+C to stop\n", time.Now().Format("15:04:05"))

	err = eg.Wait()
	fmt.Fprintf(out, "\n[%s] 🛑 FileGirl stopped\n", time.Now().Format("15:04:05"))
	if err != nil {
		zapLogger.Error("Guard exited with error", zap.Error(err))
		return err
	}
	return nil
}
