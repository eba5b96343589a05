// Package notify sends operator alerts and mission notifications. Delivery
// goes through the same mail provider the pipeline contacts leads with, but
// alerts are best-effort: a failed alert is logged, never propagated.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/logger"
	"github.com/fieldops/missiond/mission"
	"github.com/fieldops/missiond/sym"
	"github.com/fieldops/missiond/task"
)

// Notifier delivers operator alerts and mission lifecycle mail.
type Notifier struct {
	mailer        client.Mailer
	from          string
	operatorEmail string
	log           *zap.SugaredLogger
}

func New(mailer client.Mailer, from, operatorEmail string) *Notifier {
	return &Notifier{
		mailer:        mailer,
		from:          from,
		operatorEmail: operatorEmail,
		log:           logger.Named("notify"),
	}
}

// TaskFailed alerts the operator about a terminally failed task. Failures
// have no automatic retry, so this is the main recovery signal.
func (n *Notifier) TaskFailed(ctx context.Context, t *task.Task, taskErr error) {
	if n.operatorEmail == "" {
		return
	}
	subject := fmt.Sprintf("%s task failed: %s %s", sym.Alert, t.Type, t.ID)
	body := fmt.Sprintf(
		"<p>Task <code>%s</code> (%s) failed for org <code>%s</code>.</p><p>Error: %s</p>",
		t.ID, t.Type, t.OrgID, taskErr,
	)
	n.send(ctx, n.operatorEmail, subject, body)
}

// MissionCompleted notifies the mission owner's org that a qualified lead
// finished the campaign sequence.
func (n *Notifier) MissionCompleted(ctx context.Context, m *mission.Mission, notifyEmail string) {
	to := notifyEmail
	if to == "" {
		to = n.operatorEmail
	}
	if to == "" {
		return
	}
	subject := fmt.Sprintf("%s mission completed: %s", sym.Mission, m.Title)
	body := fmt.Sprintf(
		"<p>Mission <strong>%s</strong> (<code>%s</code>) completed after a qualified lead finished its campaign sequence.</p>",
		m.Title, m.ID,
	)
	n.send(ctx, to, subject, body)
}

// SendReport delivers a generated report. Unlike alerts, report delivery
// failures matter to the caller.
func (n *Notifier) SendReport(ctx context.Context, recipient, subject, bodyHTML string) error {
	_, err := n.mailer.Send(ctx, client.Message{
		To:       recipient,
		From:     n.from,
		Subject:  subject,
		BodyHTML: bodyHTML,
	})
	return err
}

func (n *Notifier) send(ctx context.Context, to, subject, body string) {
	_, err := n.mailer.Send(ctx, client.Message{
		To:       to,
		From:     n.from,
		Subject:  subject,
		BodyHTML: body,
	})
	if err != nil {
		n.log.Warnw("failed to send notification", "to", to, "subject", subject, "error", err)
	}
}
