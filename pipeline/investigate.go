package pipeline

import (
	"context"
	"encoding/json"

	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/task"
)

// InvestigateExecutor runs per-lead research sequentially and chains one
// individually scheduled CONTACT task per researched lead, so each send
// lands in its recipient's approximate local morning.
type InvestigateExecutor struct {
	env *Env
}

func (x *InvestigateExecutor) Type() task.Type { return task.TypeInvestigate }

func (x *InvestigateExecutor) Execute(ctx context.Context, t *task.Task) (*Result, error) {
	log := x.env.logger().With("task", t.ID, "mission", t.MissionID)
	p := t.Payload.Investigate

	if len(p.LeadIDs) == 0 {
		return Skip(ReasonNoLeads), nil
	}

	m, err := x.env.Missions.Get(t.MissionID)
	if err != nil {
		return nil, err
	}
	settings, err := x.env.Missions.GetOrgSettings(t.OrgID, x.env.DefaultDailySearches)
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

	usage, err := x.env.Quota.GetDailyUsage(t.OrgID)
	if err != nil {
		return nil, err
	}
	remaining := m.Limits.DailyInvestigate - usage.Count(quota.LeadsInvestigated)
	if remaining <= 0 {
		log.Infow("investigate skipped", "reason", ReasonDailyLimit, "limit", m.Limits.DailyInvestigate)
		return Skip(ReasonDailyLimit), nil
	}
	if len(leads) > remaining {
		leads = leads[:remaining]
	}
	ok, err := x.env.Quota.TryReserve(t.OrgID, quota.LeadsInvestigated, m.Limits.DailyInvestigate, len(leads))
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Infow("investigate skipped", "reason", ReasonDailyLimit, "limit", m.Limits.DailyInvestigate)
		return Skip(ReasonDailyLimit), nil
	}

	res := &Result{CampaignName: p.CampaignName}
	now := x.env.now()
	for _, l := range leads {
		report, err := x.env.Researcher.Research(ctx, client.Person{
			SourceID:      l.SourceID,
			FullName:      l.FullName,
			Title:         l.Title,
			CompanyName:   l.CompanyName,
			CompanyDomain: l.CompanyDomain,
			LinkedInURL:   l.LinkedInURL,
			Location:      l.Location,
			Email:         l.Email,
		}, settings.CompanyProfile)
		if err != nil {
			log.Warnw("lead research failed", "lead", l.ID, "error", err)
			res.ItemFailures++
			if relErr := x.env.Quota.Release(t.OrgID, quota.LeadsInvestigated, 1); relErr != nil {
				log.Warnw("failed to release investigate reservation", "error", relErr)
			}
			continue
		}

		raw, err := json.Marshal(report)
		if err != nil {
			return nil, err
		}
		if err := x.env.Leads.SaveResearch(l.ID, raw); err != nil {
			return nil, err
		}
		res.Investigated++

		sendAt := x.env.SendTimes.ComputeScheduledSend(l.Location, now)
		next, err := x.env.chain(t, m.ID, task.TypeContact, task.Payload{
			Contact: &task.ContactPayload{
				LeadIDs:      []string{l.ID},
				CampaignName: p.CampaignName,
				BodyHTML:     report.DraftEmail,
			},
		}, task.WithScheduledFor(sendAt))
		if err != nil {
			return nil, err
		}
		res.ChainedTasks = append(res.ChainedTasks, next.ID)
		log.Debugw("contact scheduled", "lead", l.ID, "location", l.Location, "scheduled_for", sendAt)
	}

	return res, nil
}
