package pipeline

import (
	"context"
	"fmt"

	"github.com/fieldops/missiond/errors"
	"github.com/fieldops/missiond/task"
)

// GenerateCampaignExecutor creates the mission's email campaign and kicks
// off the first search. Campaign creation is idempotent by name, so a
// replayed task converges on the first writer's template.
type GenerateCampaignExecutor struct {
	env *Env
}

func (x *GenerateCampaignExecutor) Type() task.Type { return task.TypeGenerateCampaign }

func (x *GenerateCampaignExecutor) Execute(ctx context.Context, t *task.Task) (*Result, error) {
	m, err := x.env.Missions.Get(t.MissionID)
	if err != nil {
		return nil, err
	}

	name := m.Goal.CampaignName
	if name == "" {
		name = "mission-" + m.ID
	}

	p := t.Payload.GenerateCampaign
	subject := p.Subject
	if subject == "" {
		subject = m.Title
	}
	body := p.BodyHTML
	if body == "" {
		body = fmt.Sprintf("<p>Hello,</p><p>Reaching out about %s.</p>", m.Title)
	}

	c, err := x.env.Campaigns.CreateIfAbsent(t.OrgID, name, subject, body)
	if err != nil {
		return nil, err
	}
	if m.Goal.CampaignName != c.Name {
		if err := x.env.Missions.SetCampaignName(m.ID, c.Name); err != nil {
			return nil, err
		}
	}

	next, err := x.env.chain(t, m.ID, task.TypeSearch, task.Payload{
		Search: &task.SearchPayload{CampaignName: c.Name},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to chain search")
	}

	return &Result{CampaignName: c.Name, ChainedTasks: []string{next.ID}}, nil
}
