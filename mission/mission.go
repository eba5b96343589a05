// Package mission provides missions and organization settings.
//
// Missions are created and paused/resumed by the (out-of-scope) dashboard.
// The orchestrator reads them for scheduling, limits and audience goals, and
// mutates status only to flip a mission to completed once a qualified lead
// finishes its campaign sequence.
package mission

import (
	"time"

	"github.com/fieldops/missiond/errors"
)

// Status of a mission.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Enrichment levels. Basic reveals contact data only; deep additionally
// routes leads through per-lead research before contact.
const (
	EnrichmentBasic = "basic"
	EnrichmentDeep  = "deep"
)

// Goal holds the target-audience definition for a mission.
type Goal struct {
	JobTitle        string `json:"job_title"`
	Location        string `json:"location"`
	Industry        string `json:"industry"`
	CompanySize     string `json:"company_size"`
	Seniority       string `json:"seniority"`
	EnrichmentLevel string `json:"enrichment_level"` // "" | basic | deep
	CampaignName    string `json:"campaign_name"`
}

// Limits holds the per-mission daily ceilings.
type Limits struct {
	DailySearch      int `json:"daily_search_limit"`
	DailyEnrich      int `json:"daily_enrich_limit"`
	DailyInvestigate int `json:"daily_investigate_limit"`
	DailyContact     int `json:"daily_contact_limit"`
}

// Mission is a long-running outbound prospecting campaign.
type Mission struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	OwnerUserID string    `json:"owner_user_id"`
	Title       string    `json:"title"`
	Status      Status    `json:"status"`
	Goal        Goal      `json:"goal"`
	Limits      Limits    `json:"limits"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EnrichmentRequested reports whether the mission wants leads enriched
// before contact.
func (m *Mission) EnrichmentRequested() bool {
	return m.Goal.EnrichmentLevel != ""
}

// Validate rejects missions the pipeline cannot execute.
func (m *Mission) Validate() error {
	if m.OrgID == "" {
		return errors.New("mission org_id is required")
	}
	if m.Title == "" {
		return errors.New("mission title is required")
	}
	switch m.Goal.EnrichmentLevel {
	case "", EnrichmentBasic, EnrichmentDeep:
	default:
		return errors.Newf("unknown enrichment level %q", m.Goal.EnrichmentLevel)
	}
	return nil
}

// OrgSettings holds per-organization configuration the orchestrator reads.
type OrgSettings struct {
	OrgID                 string `json:"org_id"`
	DailySearchExecutions int    `json:"daily_search_executions"`
	NotifyEmail           string `json:"notify_email"`
	CompanyProfile        string `json:"company_profile"` // JSON, forwarded to the research service
}
