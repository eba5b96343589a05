package commands

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fieldops/missiond/errors"
	"github.com/fieldops/missiond/mission"
)

// MissionsCmd groups mission management subcommands.
var MissionsCmd = &cobra.Command{
	Use:   "missions",
	Short: "Import and inspect missions",
}

// missionsFile is the YAML bootstrap format consumed by `missions import`.
type missionsFile struct {
	Missions []struct {
		ID          string `yaml:"id"`
		OrgID       string `yaml:"org_id"`
		OwnerUserID string `yaml:"owner_user_id"`
		Title       string `yaml:"title"`
		Goal        struct {
			JobTitle        string `yaml:"job_title"`
			Location        string `yaml:"location"`
			Industry        string `yaml:"industry"`
			CompanySize     string `yaml:"company_size"`
			Seniority       string `yaml:"seniority"`
			EnrichmentLevel string `yaml:"enrichment_level"`
			CampaignName    string `yaml:"campaign_name"`
		} `yaml:"goal"`
		Limits struct {
			DailySearch      int `yaml:"daily_search"`
			DailyEnrich      int `yaml:"daily_enrich"`
			DailyInvestigate int `yaml:"daily_investigate"`
			DailyContact     int `yaml:"daily_contact"`
		} `yaml:"limits"`
	} `yaml:"missions"`
	OrgSettings []struct {
		OrgID                 string `yaml:"org_id"`
		DailySearchExecutions int    `yaml:"daily_search_executions"`
		NotifyEmail           string `yaml:"notify_email"`
		CompanyProfile        string `yaml:"company_profile"`
	} `yaml:"org_settings"`
}

var missionsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import missions and org settings from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", args[0])
		}
		var file missionsFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return errors.Wrapf(err, "failed to parse %s", args[0])
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, s := range file.OrgSettings {
			if err := a.missions.UpsertOrgSettings(&mission.OrgSettings{
				OrgID:                 s.OrgID,
				DailySearchExecutions: s.DailySearchExecutions,
				NotifyEmail:           s.NotifyEmail,
				CompanyProfile:        s.CompanyProfile,
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for _, entry := range file.Missions {
			id := entry.ID
			if id == "" {
				id = "msn_" + uuid.NewString()
			}
			m := &mission.Mission{
				ID:          id,
				OrgID:       entry.OrgID,
				OwnerUserID: entry.OwnerUserID,
				Title:       entry.Title,
				Status:      mission.StatusActive,
				Goal: mission.Goal{
					JobTitle:        entry.Goal.JobTitle,
					Location:        entry.Goal.Location,
					Industry:        entry.Goal.Industry,
					CompanySize:     entry.Goal.CompanySize,
					Seniority:       entry.Goal.Seniority,
					EnrichmentLevel: entry.Goal.EnrichmentLevel,
					CampaignName:    entry.Goal.CampaignName,
				},
				Limits: mission.Limits{
					DailySearch:      entry.Limits.DailySearch,
					DailyEnrich:      entry.Limits.DailyEnrich,
					DailyInvestigate: entry.Limits.DailyInvestigate,
					DailyContact:     entry.Limits.DailyContact,
				},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := a.missions.Create(m); err != nil {
				return err
			}
			pterm.Success.Printf("imported mission %s (%s)\n", m.ID, m.Title)
		}

		return nil
	},
}

var missionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active missions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		missions, err := a.missions.ListActive()
		if err != nil {
			return err
		}
		if len(missions) == 0 {
			pterm.Info.Println("No active missions")
			return nil
		}
		rows := pterm.TableData{{"ID", "Org", "Title", "Campaign", "Location"}}
		for _, m := range missions {
			rows = append(rows, []string{m.ID, m.OrgID, m.Title, m.Goal.CampaignName, m.Goal.Location})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	MissionsCmd.AddCommand(missionsImportCmd)
	MissionsCmd.AddCommand(missionsListCmd)
}
