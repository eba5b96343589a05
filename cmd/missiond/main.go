package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldops/missiond/cmd/missiond/commands"
	"github.com/fieldops/missiond/config"
	"github.com/fieldops/missiond/logger"
)

var rootCmd = &cobra.Command{
	Use:   "missiond",
	Short: "missiond - Mission task orchestration daemon",
	Long: `missiond - Outbound lead-generation mission orchestrator.

missiond drives long-running prospecting missions through a durable task
pipeline: searching for leads, enriching and researching them, contacting
them at their local morning, and evaluating engagement.

Available commands:
  serve    - Run the tick loop (the daemon)
  tick     - Run a single tick and exit
  status   - Show task queue and usage status
  missions - Import and inspect missions
  config   - Manage missiond configuration
  version  - Show version information

Examples:
  missiond serve                      # Start the orchestrator
  missiond tick                       # One tick, useful from cron
  missiond status                     # Queue and quota overview
  missiond missions import goals.yaml # Bootstrap missions from YAML
  missiond config set tick.batch_size 10`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Initialize(cfg.Log.JSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.TickCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.MissionsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
