package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fieldops/missiond/config"
	"github.com/fieldops/missiond/logger"
	"github.com/fieldops/missiond/tick"
)

// ServeCmd runs the orchestrator daemon.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tick loop",
	Long: `Run the orchestrator daemon: schedule daily mission tasks, execute due
tasks in bounded batches, and promote contacted leads into evaluation, on a
fixed interval until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		loop := tick.NewLoop(context.Background(), a.driver, tick.LoopConfig{
			Interval:        time.Duration(a.cfg.Tick.IntervalSeconds) * time.Second,
			StaleProcessing: time.Duration(a.cfg.Tick.StaleProcessingMinutes) * time.Minute,
			Retention:       time.Duration(a.cfg.Tick.RetentionDays) * 24 * time.Hour,
			RecoveryLimit:   a.cfg.Tick.BatchSize * 4,
		})

		// Hot-reload keeps long-running daemons on current limits without a
		// restart. Batch size and dwell apply on the next tick; database
		// path, service endpoints and the tick interval still need a restart.
		if path := config.Path(); path != "" {
			watcher, err := config.NewWatcher(path)
			if err != nil {
				logger.Named("serve").Warnw("config watcher unavailable", "error", err)
			} else {
				watcher.OnReload(func(cfg *config.Config) error {
					config.Replace(cfg)
					a.driver.Retune(cfg.Tick.BatchSize,
						time.Duration(cfg.Evaluate.DwellHours)*time.Hour)
					return nil
				})
				watcher.Start()
				defer watcher.Stop()
			}
		}

		loop.Start()
		pterm.Success.Printf("missiond serving (interval %ds, batch %d)\n",
			a.cfg.Tick.IntervalSeconds, a.cfg.Tick.BatchSize)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		pterm.Info.Println("\nShutting down gracefully...")
		loop.Stop()
		pterm.Success.Println("Stopped cleanly")
		return nil
	},
}
