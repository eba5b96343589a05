package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/sym"
)

var statusOrgID string

// StatusCmd shows queue depth, per-mission progress, and today's usage.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show task queue and usage status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.tasks.GetStats()
		if err != nil {
			return err
		}

		pterm.DefaultSection.Println("Task queue")
		if err := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"Pending", "Processing", "Completed", "Failed", "Total"},
			{
				fmt.Sprint(stats.Pending), fmt.Sprint(stats.Processing),
				fmt.Sprint(stats.Completed), fmt.Sprint(stats.Failed),
				fmt.Sprint(stats.Total),
			},
		}).Render(); err != nil {
			return err
		}

		missions, err := a.missions.ListActive()
		if err != nil {
			return err
		}
		pterm.DefaultSection.Println("Active missions")
		if len(missions) == 0 {
			pterm.Info.Println("No active missions")
		} else {
			rows := pterm.TableData{{"ID", "Title", "Org", "Campaign", "Enrichment"}}
			for _, m := range missions {
				rows = append(rows, []string{m.ID, m.Title, m.OrgID, m.Goal.CampaignName, m.Goal.EnrichmentLevel})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
				return err
			}
		}

		if statusOrgID != "" {
			usage, err := a.quota.GetDailyUsage(statusOrgID)
			if err != nil {
				return err
			}
			pterm.DefaultSection.Printf(sym.Quota+" Today's usage for %s\n", statusOrgID)
			rows := pterm.TableData{{"Resource", "Used"}}
			for _, kind := range []quota.Kind{
				quota.LeadsSearched, quota.SearchExecutions, quota.LeadsEnriched,
				quota.LeadsInvestigated, quota.LeadsContacted,
			} {
				rows = append(rows, []string{string(kind), fmt.Sprint(usage.Count(kind))})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	StatusCmd.Flags().StringVarP(&statusOrgID, "org", "o", "", "Show daily usage for this organization")
}
