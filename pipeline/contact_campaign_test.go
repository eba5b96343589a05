package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/errors"
	"github.com/fieldops/missiond/mission"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/task"
)

func TestContactCampaignSendsAndCompletesMission(t *testing.T) {
	f := newFixtures(t)
	m := f.createMission(t, "msn-1", "basic", "camp-1")
	f.createCampaign(t, "camp-1")
	l := f.insertEnrichedLead(t, "msn-1", "src-1", "Ana Díaz", "ana@example.com")
	clID := f.contactLead(t, l, 2, false)

	tk := f.createTask(t, "msn-1", task.TypeContactCampaign, task.Payload{
		ContactCampaign: &task.ContactCampaignPayload{ContactedLeadID: clID, CampaignName: "camp-1"},
	})

	res, err := (&ContactCampaignExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Contacted)
	assert.Equal(t, "camp-1", res.CampaignName)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "ana@example.com", f.mailer.sent[0].To)
	assert.Equal(t, "Quick question", f.mailer.sent[0].Subject)

	done, err := f.env.Missions.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, mission.StatusCompleted, done.Status)

	// The send refreshes the engagement clock.
	cl, err := f.env.Leads.GetContacted(clID)
	require.NoError(t, err)
	assert.WithinDuration(t, fixedNow, cl.LastInteractionAt, time.Second)
}

func TestContactCampaignMissingCampaignIsFatal(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "basic", "ghost")
	l := f.insertEnrichedLead(t, "msn-1", "src-1", "Ana Díaz", "ana@example.com")
	clID := f.contactLead(t, l, 2, false)

	tk := f.createTask(t, "msn-1", task.TypeContactCampaign, task.Payload{
		ContactCampaign: &task.ContactCampaignPayload{ContactedLeadID: clID, CampaignName: "ghost"},
	})

	_, err := (&ContactCampaignExecutor{env: f.env}).Execute(context.Background(), tk)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCampaignNotFound))
	assert.Empty(t, f.mailer.sent)
}

func TestContactCampaignSkipsWhenQuotaExhausted(t *testing.T) {
	f := newFixtures(t)
	m := f.createMission(t, "msn-1", "basic", "camp-1")
	f.createCampaign(t, "camp-1")
	l := f.insertEnrichedLead(t, "msn-1", "src-1", "Ana Díaz", "ana@example.com")
	clID := f.contactLead(t, l, 2, false)

	require.NoError(t, f.env.Quota.IncrementUsage("org-1", quota.LeadsContacted, 10))

	tk := f.createTask(t, "msn-1", task.TypeContactCampaign, task.Payload{
		ContactCampaign: &task.ContactCampaignPayload{ContactedLeadID: clID, CampaignName: "camp-1"},
	})

	res, err := (&ContactCampaignExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonDailyLimit, res.Reason)
	assert.Empty(t, f.mailer.sent)

	// The mission stays open for another day.
	still, err := f.env.Missions.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, mission.StatusActive, still.Status)
}

func TestContactCampaignSendFailureReleasesQuota(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "basic", "camp-1")
	f.createCampaign(t, "camp-1")
	l := f.insertEnrichedLead(t, "msn-1", "src-1", "Ana Díaz", "ana@example.com")
	clID := f.contactLead(t, l, 2, false)
	f.mailer.err = assert.AnError

	tk := f.createTask(t, "msn-1", task.TypeContactCampaign, task.Payload{
		ContactCampaign: &task.ContactCampaignPayload{ContactedLeadID: clID, CampaignName: "camp-1"},
	})

	_, err := (&ContactCampaignExecutor{env: f.env}).Execute(context.Background(), tk)
	require.Error(t, err)

	usage, err := f.env.Quota.GetDailyUsage("org-1")
	require.NoError(t, err)
	assert.Zero(t, usage.Count(quota.LeadsContacted))
}
