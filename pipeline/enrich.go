package pipeline

import (
	"context"

	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/mission"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/task"
)

// EnrichExecutor reveals contact data for a batch of leads. Deep enrichment
// chains into per-lead research; basic enrichment goes straight to contact.
// Per-lead provider failures are excluded from the batch, not fatal to it.
type EnrichExecutor struct {
	env *Env
}

func (x *EnrichExecutor) Type() task.Type { return task.TypeEnrich }

func (x *EnrichExecutor) Execute(ctx context.Context, t *task.Task) (*Result, error) {
	log := x.env.logger().With("task", t.ID, "mission", t.MissionID)
	p := t.Payload.Enrich

	if len(p.LeadIDs) == 0 {
		return Skip(ReasonNoLeads), nil
	}

	m, err := x.env.Missions.Get(t.MissionID)
	if err != nil {
		return nil, err
	}

	leads, err := x.env.Leads.GetMany(p.LeadIDs)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return Skip(ReasonNoLeads), nil
	}

	// Trim the batch to whatever quota is left, then reserve atomically.
	usage, err := x.env.Quota.GetDailyUsage(t.OrgID)
	if err != nil {
		return nil, err
	}
	remaining := m.Limits.DailyEnrich - usage.Count(quota.LeadsEnriched)
	if remaining <= 0 {
		log.Infow("enrich skipped", "reason", ReasonDailyLimit, "limit", m.Limits.DailyEnrich)
		return Skip(ReasonDailyLimit), nil
	}
	if len(leads) > remaining {
		leads = leads[:remaining]
	}
	ok, err := x.env.Quota.TryReserve(t.OrgID, quota.LeadsEnriched, m.Limits.DailyEnrich, len(leads))
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Infow("enrich skipped", "reason", ReasonDailyLimit, "limit", m.Limits.DailyEnrich)
		return Skip(ReasonDailyLimit), nil
	}

	inputs := make([]client.EnrichInput, len(leads))
	for i, l := range leads {
		inputs[i] = client.EnrichInput{
			SourceID:    l.SourceID,
			FullName:    l.FullName,
			CompanyName: l.CompanyName,
			LinkedInURL: l.LinkedInURL,
		}
	}

	revealPhone := p.Level == mission.EnrichmentDeep
	results, err := x.env.Enricher.Enrich(ctx, inputs, true, revealPhone)
	if err != nil {
		// Nothing was enriched, give the whole reservation back.
		if relErr := x.env.Quota.Release(t.OrgID, quota.LeadsEnriched, len(leads)); relErr != nil {
			log.Warnw("failed to release enrich reservation", "error", relErr)
		}
		return nil, err
	}

	res := &Result{CampaignName: p.CampaignName}
	var succeeded []string
	for i, r := range results {
		l := leads[i]
		if r.Err != nil {
			log.Warnw("lead enrichment failed", "lead", l.ID, "error", r.Err)
			res.ItemFailures++
			continue
		}
		if err := x.env.Leads.UpdateEnrichment(l.ID, r.Email, r.Phone, r.LinkedInURL); err != nil {
			log.Warnw("failed to store enrichment", "lead", l.ID, "error", err)
			res.ItemFailures++
			continue
		}
		succeeded = append(succeeded, l.ID)
	}
	res.Enriched = len(succeeded)

	if res.ItemFailures > 0 {
		if err := x.env.Quota.Release(t.OrgID, quota.LeadsEnriched, res.ItemFailures); err != nil {
			log.Warnw("failed to release enrich reservation", "error", err)
		}
	}

	if len(succeeded) == 0 {
		return res, nil
	}

	nextType := task.TypeContact
	payload := task.Payload{Contact: &task.ContactPayload{LeadIDs: succeeded, CampaignName: p.CampaignName}}
	if p.Level == mission.EnrichmentDeep {
		nextType = task.TypeInvestigate
		payload = task.Payload{Investigate: &task.InvestigatePayload{LeadIDs: succeeded, CampaignName: p.CampaignName}}
	}
	next, err := x.env.chain(t, m.ID, nextType, payload)
	if err != nil {
		return nil, err
	}
	res.ChainedTasks = []string{next.ID}
	return res, nil
}
