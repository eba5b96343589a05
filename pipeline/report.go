package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldops/missiond/lead"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/task"
)

// ReportExecutor aggregates a mission's pipeline state into an HTML summary
// and mails it. A missing mission is fatal; there is nothing to report on.
type ReportExecutor struct {
	env *Env
}

func (x *ReportExecutor) Type() task.Type { return task.TypeGenerateReport }

func (x *ReportExecutor) Execute(ctx context.Context, t *task.Task) (*Result, error) {
	log := x.env.logger().With("task", t.ID, "mission", t.MissionID)

	m, err := x.env.Missions.Get(t.MissionID)
	if err != nil {
		return nil, err
	}
	settings, err := x.env.Missions.GetOrgSettings(t.OrgID, x.env.DefaultDailySearches)
	if err != nil {
		return nil, err
	}

	recipient := t.Payload.Report.Recipient
	if recipient == "" {
		recipient = settings.NotifyEmail
	}
	if recipient == "" {
		log.Infow("report skipped, no recipient configured")
		return Skip("no_recipient"), nil
	}

	leadCounts, err := x.env.Leads.CountsByStatus(m.ID)
	if err != nil {
		return nil, err
	}
	evalCounts, err := x.env.Leads.EvaluationCounts(m.ID)
	if err != nil {
		return nil, err
	}
	usage, err := x.env.Quota.GetDailyUsage(t.OrgID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Mission report: %s</h2>", m.Title)
	fmt.Fprintf(&b, "<p>Status: %s</p>", m.Status)
	b.WriteString("<h3>Pipeline</h3><ul>")
	for _, status := range []string{lead.StatusSaved, lead.StatusEnriched, lead.StatusInvestigated, lead.StatusContacted} {
		fmt.Fprintf(&b, "<li>%s: %d</li>", status, leadCounts[status])
	}
	b.WriteString("</ul><h3>Evaluation</h3><ul>")
	for _, status := range []string{lead.EvalPending, lead.EvalEvaluating, lead.EvalQualified, lead.EvalDisqualified, lead.EvalActionRequired} {
		fmt.Fprintf(&b, "<li>%s: %d</li>", status, evalCounts[status])
	}
	b.WriteString("</ul><h3>Today's usage</h3><ul>")
	for _, kind := range []quota.Kind{quota.LeadsSearched, quota.SearchExecutions, quota.LeadsEnriched, quota.LeadsInvestigated, quota.LeadsContacted} {
		fmt.Fprintf(&b, "<li>%s: %d</li>", kind, usage.Count(kind))
	}
	b.WriteString("</ul>")

	subject := fmt.Sprintf("Mission report: %s", m.Title)
	if err := x.env.Notifier.SendReport(ctx, recipient, subject, b.String()); err != nil {
		return nil, err
	}
	log.Infow("report sent", "to", recipient)

	return &Result{}, nil
}
