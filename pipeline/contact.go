package pipeline

import (
	"context"

	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/lead"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/sym"
	"github.com/fieldops/missiond/task"
)

// ContactExecutor sends the initial outreach email to a batch of leads.
// Content precedence: a personalized draft on the payload wins, otherwise
// the named campaign's template is used. A per-recipient send failure is
// recorded against that recipient only.
type ContactExecutor struct {
	env *Env
}

func (x *ContactExecutor) Type() task.Type { return task.TypeContact }

func (x *ContactExecutor) Execute(ctx context.Context, t *task.Task) (*Result, error) {
	log := x.env.logger().With("task", t.ID, "mission", t.MissionID)
	p := t.Payload.Contact

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
	contactable := leads[:0]
	for _, l := range leads {
		if l.Email == "" || l.Status == lead.StatusContacted {
			continue
		}
		contactable = append(contactable, l)
	}
	if len(contactable) == 0 {
		return Skip(ReasonNoLeads), nil
	}

	usage, err := x.env.Quota.GetDailyUsage(t.OrgID)
	if err != nil {
		return nil, err
	}
	remaining := m.Limits.DailyContact - usage.Count(quota.LeadsContacted)
	if remaining <= 0 {
		log.Infow("contact skipped", "reason", ReasonDailyLimit, "limit", m.Limits.DailyContact)
		return Skip(ReasonDailyLimit), nil
	}
	if len(contactable) > remaining {
		contactable = contactable[:remaining]
	}
	ok, err := x.env.Quota.TryReserve(t.OrgID, quota.LeadsContacted, m.Limits.DailyContact, len(contactable))
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Infow("contact skipped", "reason", ReasonDailyLimit, "limit", m.Limits.DailyContact)
		return Skip(ReasonDailyLimit), nil
	}

	subject, body := p.Subject, p.BodyHTML
	if subject == "" || body == "" {
		c, err := x.env.Campaigns.GetByName(t.OrgID, p.CampaignName)
		if err != nil {
			if relErr := x.env.Quota.Release(t.OrgID, quota.LeadsContacted, len(contactable)); relErr != nil {
				log.Warnw("failed to release contact reservation", "error", relErr)
			}
			return nil, err
		}
		if subject == "" {
			subject = c.Subject
		}
		if body == "" {
			body = c.BodyHTML
		}
	}

	res := &Result{CampaignName: p.CampaignName}
	for _, l := range contactable {
		_, err := x.env.Mailer.Send(ctx, client.Message{
			To:       l.Email,
			From:     x.env.FromAddress,
			Subject:  subject,
			BodyHTML: body,
		})
		if err != nil {
			log.Warnw("send failed", "lead", l.ID, "to", l.Email, "error", err)
			res.ItemFailures++
			if relErr := x.env.Quota.Release(t.OrgID, quota.LeadsContacted, 1); relErr != nil {
				log.Warnw("failed to release contact reservation", "error", relErr)
			}
			continue
		}
		if _, err := x.env.Leads.MarkContacted(l); err != nil {
			return nil, err
		}
		res.Contacted++
		log.Infow(sym.Mail+" lead contacted", "lead", l.ID, "to", l.Email)
	}

	return res, nil
}
