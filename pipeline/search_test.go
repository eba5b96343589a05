package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/task"
)

func TestSearchSkipsWhenExecutionQuotaExhausted(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "basic", "camp-1")

	// Org has no settings row, so the default of 3 executions applies.
	require.NoError(t, f.env.Quota.IncrementUsage("org-1", quota.SearchExecutions, 3))

	tk := f.createTask(t, "msn-1", task.TypeSearch, task.Payload{
		Search: &task.SearchPayload{CampaignName: "camp-1"},
	})

	res, err := (&SearchExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonDailyLimit, res.Reason)
	assert.Zero(t, f.searcher.calls, "provider must not be called past the limit")

	var count int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&count))
	assert.Zero(t, count)
}

func TestSearchProviderFailureReleasesExecution(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "basic", "camp-1")
	f.searcher.err = assert.AnError

	tk := f.createTask(t, "msn-1", task.TypeSearch, task.Payload{
		Search: &task.SearchPayload{CampaignName: "camp-1"},
	})

	_, err := (&SearchExecutor{env: f.env}).Execute(context.Background(), tk)
	require.Error(t, err)

	// A failed call must not burn one of the day's executions.
	usage, err := f.env.Quota.GetDailyUsage("org-1")
	require.NoError(t, err)
	assert.Zero(t, usage.Count(quota.SearchExecutions))
}

func TestSearchSavesLeadsAndChainsEnrich(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "deep", "camp-1")
	f.searcher.people = []client.Person{
		{SourceID: "src-1", FullName: "Ana Díaz", Title: "CTO", Location: "Bogotá, Colombia"},
		{SourceID: "src-2", FullName: "Luis Rojas", Title: "CTO", Location: "Santiago, Chile"},
	}

	tk := f.createTask(t, "msn-1", task.TypeSearch, task.Payload{
		Search: &task.SearchPayload{CampaignName: "camp-1"},
	})

	res, err := (&SearchExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.LeadsFound)
	assert.Equal(t, 2, res.LeadsSaved)
	require.Len(t, res.ChainedTasks, 1)

	usage, err := f.env.Quota.GetDailyUsage("org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Count(quota.SearchExecutions))
	assert.Equal(t, 2, usage.Count(quota.LeadsSearched))

	next, err := f.env.Tasks.Get(res.ChainedTasks[0])
	require.NoError(t, err)
	assert.Equal(t, task.TypeEnrich, next.Type)
	assert.Equal(t, tk.ID, next.ParentTaskID)
	require.NotNil(t, next.Payload.Enrich)
	assert.Equal(t, "deep", next.Payload.Enrich.Level)
	assert.Len(t, next.Payload.Enrich.LeadIDs, 2)
	assert.False(t, next.Payload.Enrich.FromSavedQueue)
}

func TestSearchWithoutEnrichmentDoesNotChain(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "", "camp-1")
	f.searcher.people = []client.Person{
		{SourceID: "src-1", FullName: "Ana Díaz"},
	}

	tk := f.createTask(t, "msn-1", task.TypeSearch, task.Payload{
		Search: &task.SearchPayload{CampaignName: "camp-1"},
	})

	res, err := (&SearchExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LeadsSaved)
	assert.Empty(t, res.ChainedTasks)
	assert.Empty(t, f.tasksOfType(t, task.TypeEnrich))
}

func TestSearchEmptyFallsBackToSavedQueue(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "", "camp-1")
	saved := f.insertLead(t, "msn-1", "src-9", "Marta Gil", "Bogotá, Colombia")

	tk := f.createTask(t, "msn-1", task.TypeSearch, task.Payload{
		Search: &task.SearchPayload{CampaignName: "camp-1"},
	})

	res, err := (&SearchExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Zero(t, res.LeadsFound)
	require.Len(t, res.ChainedTasks, 1)

	next, err := f.env.Tasks.Get(res.ChainedTasks[0])
	require.NoError(t, err)
	assert.Equal(t, task.TypeEnrich, next.Type)
	require.NotNil(t, next.Payload.Enrich)
	assert.True(t, next.Payload.Enrich.FromSavedQueue)
	assert.Equal(t, "basic", next.Payload.Enrich.Level, "mission without a level enriches basic")
	assert.Equal(t, []string{saved.ID}, next.Payload.Enrich.LeadIDs)
}

func TestSearchEmptyFallsBackToUncontactedEnriched(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "basic", "camp-1")
	l := f.insertLead(t, "msn-1", "src-5", "Pedro Lima", "Lima, Peru")
	require.NoError(t, f.env.Leads.UpdateEnrichment(l.ID, "pedro@example.com", "", ""))

	tk := f.createTask(t, "msn-1", task.TypeSearch, task.Payload{
		Search: &task.SearchPayload{CampaignName: "camp-1"},
	})

	res, err := (&SearchExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	require.Len(t, res.ChainedTasks, 1)

	next, err := f.env.Tasks.Get(res.ChainedTasks[0])
	require.NoError(t, err)
	assert.Equal(t, task.TypeContact, next.Type)
	require.NotNil(t, next.Payload.Contact)
	assert.Equal(t, []string{l.ID}, next.Payload.Contact.LeadIDs)
}

func TestSearchEmptyPipelineSkips(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "basic", "camp-1")

	tk := f.createTask(t, "msn-1", task.TypeSearch, task.Payload{
		Search: &task.SearchPayload{CampaignName: "camp-1"},
	})

	res, err := (&SearchExecutor{env: f.env}).Execute(context.Background(), tk)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonEmptyPipeline, res.Reason)
	assert.Empty(t, res.ChainedTasks)
}
