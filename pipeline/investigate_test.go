package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/lead"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/task"
)

func TestInvestigateSchedulesContactPerRecipientMorning(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "deep", "camp-1")
	bogota := f.insertLead(t, "msn-1", "src-1", "Ana Díaz", "Bogotá, Colombia")
	santiago := f.insertLead(t, "msn-1", "src-2", "Luis Rojas", "Santiago, Chile")

	tk := f.createTask(t, "msn-1", task.TypeInvestigate, task.Payload{
		Investigate: &task.InvestigatePayload{LeadIDs: []string{bogota.ID, santiago.ID}, CampaignName: "camp-1"},
	})

	res, err := (&InvestigateExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Investigated)
	require.Len(t, res.ChainedTasks, 2)

	// Both leads are researched and hold a report.
	for _, id := range []string{bogota.ID, santiago.ID} {
		stored, err := f.env.Leads.Get(id)
		require.NoError(t, err)
		assert.Equal(t, lead.StatusInvestigated, stored.Status)
		assert.Contains(t, stored.Research, "manual prospecting")
	}

	// With now at 14:00 UTC both locations are past their 08:00 local
	// window, so each send lands tomorrow morning in its own offset.
	first, err := f.env.Tasks.Get(res.ChainedTasks[0])
	require.NoError(t, err)
	second, err := f.env.Tasks.Get(res.ChainedTasks[1])
	require.NoError(t, err)

	require.NotNil(t, first.ScheduledFor)
	require.NotNil(t, second.ScheduledFor)
	assert.Equal(t, time.Date(2026, 1, 16, 13, 15, 0, 0, time.UTC), first.ScheduledFor.UTC())
	assert.Equal(t, time.Date(2026, 1, 16, 11, 15, 0, 0, time.UTC), second.ScheduledFor.UTC())
	assert.NotEqual(t, first.ScheduledFor.UTC(), second.ScheduledFor.UTC())

	// Each chained contact carries the personalized draft for one lead.
	assert.Equal(t, task.TypeContact, first.Type)
	require.NotNil(t, first.Payload.Contact)
	assert.Equal(t, []string{bogota.ID}, first.Payload.Contact.LeadIDs)
	assert.Contains(t, first.Payload.Contact.BodyHTML, "Ana Díaz")
}

func TestInvestigateToleratesSingleResearchFailure(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "deep", "camp-1")
	l1 := f.insertLead(t, "msn-1", "src-1", "Ana Díaz", "Bogotá, Colombia")
	l2 := f.insertLead(t, "msn-1", "src-2", "Luis Rojas", "Santiago, Chile")
	f.researcher.failFor = map[string]bool{"Ana Díaz": true}

	tk := f.createTask(t, "msn-1", task.TypeInvestigate, task.Payload{
		Investigate: &task.InvestigatePayload{LeadIDs: []string{l1.ID, l2.ID}, CampaignName: "camp-1"},
	})

	res, err := (&InvestigateExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Investigated)
	assert.Equal(t, 1, res.ItemFailures)
	require.Len(t, res.ChainedTasks, 1)

	usage, err := f.env.Quota.GetDailyUsage("org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Count(quota.LeadsInvestigated))
}

func TestInvestigateSkipsWhenQuotaExhausted(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "deep", "camp-1")
	l := f.insertLead(t, "msn-1", "src-1", "Ana Díaz", "Bogotá, Colombia")

	// The mission allows 5 investigations per day.
	require.NoError(t, f.env.Quota.IncrementUsage("org-1", quota.LeadsInvestigated, 5))

	tk := f.createTask(t, "msn-1", task.TypeInvestigate, task.Payload{
		Investigate: &task.InvestigatePayload{LeadIDs: []string{l.ID}, CampaignName: "camp-1"},
	})

	res, err := (&InvestigateExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonDailyLimit, res.Reason)
	assert.Zero(t, f.researcher.calls)
}
