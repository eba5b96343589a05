package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// TickCmd runs one tick and exits, for cron-style or manual driving.
var TickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run a single tick and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.driver.RunOnce(context.Background())
		if err != nil {
			return err
		}

		pterm.Success.Printf("tick done: scheduled=%d claimed=%d completed=%d failed=%d promoted=%d\n",
			summary.Scheduled, summary.Claimed, summary.Completed, summary.Failed, summary.Promoted)
		return nil
	},
}
