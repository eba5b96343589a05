package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/mission"
	"github.com/fieldops/missiond/notify"
	"github.com/fieldops/missiond/task"
)

func TestReportMailsPipelineSummary(t *testing.T) {
	f := newFixtures(t)
	f.env.Notifier = notify.New(f.mailer, "outreach@example.com", "ops@example.com")
	f.createMission(t, "msn-1", "basic", "camp-1")
	require.NoError(t, f.env.Missions.UpsertOrgSettings(&mission.OrgSettings{
		OrgID:                 "org-1",
		DailySearchExecutions: 3,
		NotifyEmail:           "owner@example.com",
		CompanyProfile:        "{}",
	}))

	f.insertLead(t, "msn-1", "src-1", "Ana Díaz", "Bogotá, Colombia")
	l := f.insertEnrichedLead(t, "msn-1", "src-2", "Luis Rojas", "luis@example.com")
	f.contactLead(t, l, 0, false)

	tk := f.createTask(t, "msn-1", task.TypeGenerateReport, task.Payload{
		Report: &task.ReportPayload{},
	})

	res, err := (&ReportExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, "owner@example.com", msg.To, "recipient defaults to the org notify address")
	assert.Contains(t, msg.Subject, "CTOs in LatAm fintech")
	assert.Contains(t, msg.BodyHTML, "saved: 1")
	assert.Contains(t, msg.BodyHTML, "contacted: 1")
	assert.Contains(t, msg.BodyHTML, "pending: 1")
}

func TestReportSkipsWithoutRecipient(t *testing.T) {
	f := newFixtures(t)
	f.env.Notifier = notify.New(f.mailer, "outreach@example.com", "")
	f.createMission(t, "msn-1", "basic", "camp-1")

	tk := f.createTask(t, "msn-1", task.TypeGenerateReport, task.Payload{
		Report: &task.ReportPayload{},
	})

	res, err := (&ReportExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "no_recipient", res.Reason)
	assert.Empty(t, f.mailer.sent)
}

func TestReportExplicitRecipientWins(t *testing.T) {
	f := newFixtures(t)
	f.env.Notifier = notify.New(f.mailer, "outreach@example.com", "ops@example.com")
	f.createMission(t, "msn-1", "basic", "camp-1")

	tk := f.createTask(t, "msn-1", task.TypeGenerateReport, task.Payload{
		Report: &task.ReportPayload{Recipient: "analyst@example.com"},
	})

	_, err := (&ReportExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "analyst@example.com", f.mailer.sent[0].To)
}
