package pipeline

import (
	"context"

	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/sym"
	"github.com/fieldops/missiond/task"
)

// ContactCampaignExecutor sends the named campaign's content to a qualified
// contacted lead and closes out the owning mission. A missing campaign is
// fatal: there is nothing sensible to send.
type ContactCampaignExecutor struct {
	env *Env
}

func (x *ContactCampaignExecutor) Type() task.Type { return task.TypeContactCampaign }

func (x *ContactCampaignExecutor) Execute(ctx context.Context, t *task.Task) (*Result, error) {
	log := x.env.logger().With("task", t.ID, "mission", t.MissionID)
	p := t.Payload.ContactCampaign

	cl, err := x.env.Leads.GetContacted(p.ContactedLeadID)
	if err != nil {
		return nil, err
	}
	m, err := x.env.Missions.Get(cl.MissionID)
	if err != nil {
		return nil, err
	}
	c, err := x.env.Campaigns.GetByName(t.OrgID, p.CampaignName)
	if err != nil {
		return nil, err
	}

	ok, err := x.env.Quota.TryReserve(t.OrgID, quota.LeadsContacted, m.Limits.DailyContact, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Infow("campaign contact skipped", "reason", ReasonDailyLimit, "limit", m.Limits.DailyContact)
		return Skip(ReasonDailyLimit), nil
	}

	sent, err := x.env.Mailer.Send(ctx, client.Message{
		To:       cl.Email,
		From:     x.env.FromAddress,
		Subject:  c.Subject,
		BodyHTML: c.BodyHTML,
	})
	if err != nil {
		if relErr := x.env.Quota.Release(t.OrgID, quota.LeadsContacted, 1); relErr != nil {
			log.Warnw("failed to release contact reservation", "error", relErr)
		}
		return nil, err
	}
	if err := x.env.Leads.TouchInteraction(cl.ID, x.env.now()); err != nil {
		return nil, err
	}

	// The designed cycle closes here: a qualified lead finishing the
	// campaign sequence completes its mission.
	if err := x.env.Missions.Complete(m.ID); err != nil {
		return nil, err
	}
	log.Infow(sym.Mission+" mission completed", "mission", m.ID, "contacted_lead", cl.ID, "message_id", sent.MessageID)

	if x.env.Notifier != nil {
		settings, err := x.env.Missions.GetOrgSettings(t.OrgID, x.env.DefaultDailySearches)
		if err == nil {
			x.env.Notifier.MissionCompleted(ctx, m, settings.NotifyEmail)
		} else {
			log.Warnw("failed to load org settings for completion notice", "error", err)
		}
	}

	return &Result{Contacted: 1, CampaignName: c.Name}, nil
}
