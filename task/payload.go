package task

import (
	"github.com/fieldops/missiond/errors"
)

// Payload is the tagged union carried by a task. Exactly one variant must be
// set, and it must match the task type; Validate enforces the pairing so the
// chaining contract between stages is checkable before a row is written.
//
// Each variant carries only what its stage and the next chained stage need.
// Stages never read back arbitrary mission state beyond their payload plus
// mission limits and org settings.
type Payload struct {
	GenerateCampaign *GenerateCampaignPayload `json:"generate_campaign,omitempty"`
	Search           *SearchPayload           `json:"search,omitempty"`
	Enrich           *EnrichPayload           `json:"enrich,omitempty"`
	Investigate      *InvestigatePayload      `json:"investigate,omitempty"`
	Contact          *ContactPayload          `json:"contact,omitempty"`
	Evaluate         *EvaluatePayload         `json:"evaluate,omitempty"`
	ContactCampaign  *ContactCampaignPayload  `json:"contact_campaign,omitempty"`
	Report           *ReportPayload           `json:"report,omitempty"`
}

// GenerateCampaignPayload seeds campaign creation. The campaign name is
// derived from the mission; a draft subject/body may be supplied by an
// external generation call upstream.
type GenerateCampaignPayload struct {
	Subject  string `json:"subject,omitempty"`
	BodyHTML string `json:"body_html,omitempty"`
}

// SearchPayload carries the campaign linkage forward into the search stage.
// Audience filters live on the mission itself.
type SearchPayload struct {
	CampaignName string `json:"campaign_name"`
}

// EnrichPayload names the leads to enrich and at what depth.
type EnrichPayload struct {
	LeadIDs      []string `json:"lead_ids"`
	Level        string   `json:"level"` // basic | deep
	CampaignName string   `json:"campaign_name"`
	// FromSavedQueue marks leads pulled by the SEARCH fallback rather than
	// freshly discovered ones.
	FromSavedQueue bool `json:"from_saved_queue,omitempty"`
}

// InvestigatePayload names the leads to research.
type InvestigatePayload struct {
	LeadIDs      []string `json:"lead_ids"`
	CampaignName string   `json:"campaign_name"`
}

// ContactPayload carries the recipients for one contact batch. Tasks chained
// from INVESTIGATE hold a single lead each with a personalized draft; batch
// contacts from the SEARCH fallback hold several with campaign content.
type ContactPayload struct {
	LeadIDs      []string `json:"lead_ids"`
	CampaignName string   `json:"campaign_name"`
	Subject      string   `json:"subject,omitempty"`
	BodyHTML     string   `json:"body_html,omitempty"`
}

// EvaluatePayload names the contacted leads due for engagement evaluation.
type EvaluatePayload struct {
	ContactedLeadIDs []string `json:"contacted_lead_ids"`
}

// ContactCampaignPayload drives a campaign send to one qualified lead.
type ContactCampaignPayload struct {
	ContactedLeadID string `json:"contacted_lead_id"`
	CampaignName    string `json:"campaign_name"`
}

// ReportPayload addresses a mission summary report.
type ReportPayload struct {
	Recipient string `json:"recipient,omitempty"` // defaults to org notify email
}

// Validate checks that exactly the variant matching typ is set.
func (p Payload) Validate(typ Type) error {
	variants := 0
	for _, set := range []bool{
		p.GenerateCampaign != nil, p.Search != nil, p.Enrich != nil,
		p.Investigate != nil, p.Contact != nil, p.Evaluate != nil,
		p.ContactCampaign != nil, p.Report != nil,
	} {
		if set {
			variants++
		}
	}
	if variants != 1 {
		return errors.Wrapf(errors.ErrInvalidPayload, "expected exactly one payload variant, got %d", variants)
	}

	ok := false
	switch typ {
	case TypeGenerateCampaign:
		ok = p.GenerateCampaign != nil
	case TypeSearch:
		ok = p.Search != nil
	case TypeEnrich:
		ok = p.Enrich != nil
	case TypeInvestigate:
		ok = p.Investigate != nil
	case TypeContact, TypeContactInitial:
		ok = p.Contact != nil
	case TypeEvaluate:
		ok = p.Evaluate != nil
	case TypeContactCampaign:
		ok = p.ContactCampaign != nil
	case TypeGenerateReport:
		ok = p.Report != nil
	default:
		return errors.Newf("unknown task type: %s", typ)
	}
	if !ok {
		return errors.Wrapf(errors.ErrInvalidPayload, "payload variant does not match task type %s", typ)
	}
	return nil
}
