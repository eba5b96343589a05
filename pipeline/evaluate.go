package pipeline

import (
	"context"

	"github.com/fieldops/missiond/errors"
	"github.com/fieldops/missiond/lead"
	"github.com/fieldops/missiond/task"
)

// EvaluateExecutor classifies contacted leads the promotion scan flipped to
// evaluating. Replies always take priority and go to a human; otherwise the
// engagement score decides between a campaign follow-up and disqualification.
type EvaluateExecutor struct {
	env *Env
}

func (x *EvaluateExecutor) Type() task.Type { return task.TypeEvaluate }

func (x *EvaluateExecutor) Execute(ctx context.Context, t *task.Task) (*Result, error) {
	log := x.env.logger().With("task", t.ID, "org", t.OrgID)
	p := t.Payload.Evaluate

	if len(p.ContactedLeadIDs) == 0 {
		return Skip(ReasonNoLeads), nil
	}

	res := &Result{}
	for _, id := range p.ContactedLeadIDs {
		cl, err := x.env.Leads.GetContacted(id)
		if errors.IsNotFoundError(err) {
			log.Warnw("contacted lead vanished before evaluation", "contacted_lead", id)
			res.ItemFailures++
			continue
		}
		if err != nil {
			return nil, err
		}

		verdict := lead.EvalDisqualified
		switch {
		case cl.Replied:
			verdict = lead.EvalActionRequired
		case cl.EngagementScore > x.env.EngagementThreshold:
			verdict = lead.EvalQualified
		}

		if err := x.env.Leads.SetEvaluationStatus(cl.ID, verdict); err != nil {
			return nil, err
		}
		res.Evaluated++

		switch verdict {
		case lead.EvalActionRequired:
			res.ActionRequired++
			log.Infow("lead replied, needs human follow-up", "contacted_lead", cl.ID, "mission", cl.MissionID)
		case lead.EvalDisqualified:
			res.Disqualified++
		case lead.EvalQualified:
			res.Qualified++
			m, err := x.env.Missions.Get(cl.MissionID)
			if err != nil {
				return nil, err
			}
			next, err := x.env.chain(t, cl.MissionID, task.TypeContactCampaign, task.Payload{
				ContactCampaign: &task.ContactCampaignPayload{
					ContactedLeadID: cl.ID,
					CampaignName:    m.Goal.CampaignName,
				},
			})
			if err != nil {
				return nil, err
			}
			res.ChainedTasks = append(res.ChainedTasks, next.ID)
		}
	}

	return res, nil
}
