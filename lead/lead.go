// Package lead holds prospect records as they move through the pipeline:
// saved by SEARCH, enriched with contact data, investigated with a research
// report, then contacted. Contacted leads carry engagement state for the
// evaluation cycle.
package lead

import (
	"time"

	"github.com/google/uuid"
)

// Lead statuses, in pipeline order.
const (
	StatusSaved        = "saved"
	StatusEnriched     = "enriched"
	StatusInvestigated = "investigated"
	StatusContacted    = "contacted"
)

// Evaluation statuses for contacted leads.
const (
	EvalPending        = "pending"
	EvalEvaluating     = "evaluating"
	EvalQualified      = "qualified"
	EvalDisqualified   = "disqualified"
	EvalActionRequired = "action_required"
)

// Lead is a prospect inside a mission's pipeline.
type Lead struct {
	ID            string
	OrgID         string
	MissionID     string
	SourceID      string
	FullName      string
	Title         string
	CompanyName   string
	CompanyDomain string
	LinkedInURL   string
	Location      string
	Email         string
	Phone         string
	Status        string
	Research      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ContactedLead tracks a lead after its initial outreach. The external
// engagement tracker bumps EngagementScore and Replied; the promotion scan
// and EVALUATE move EvaluationStatus.
type ContactedLead struct {
	ID                string
	OrgID             string
	MissionID         string
	LeadID            string
	Email             string
	EngagementScore   int
	Replied           bool
	EvaluationStatus  string
	LastInteractionAt time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewID() string {
	return "led_" + uuid.NewString()
}

func NewContactedID() string {
	return "cld_" + uuid.NewString()
}
