package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/task"
)

func TestCanChain(t *testing.T) {
	allowed := []struct{ from, to task.Type }{
		{task.TypeGenerateCampaign, task.TypeSearch},
		{task.TypeSearch, task.TypeEnrich},
		{task.TypeSearch, task.TypeContact},
		{task.TypeEnrich, task.TypeInvestigate},
		{task.TypeEnrich, task.TypeContact},
		{task.TypeInvestigate, task.TypeContact},
		{task.TypeEvaluate, task.TypeContactCampaign},
	}
	for _, tc := range allowed {
		assert.True(t, CanChain(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to task.Type }{
		{task.TypeSearch, task.TypeInvestigate},
		{task.TypeContact, task.TypeContact},
		{task.TypeContact, task.TypeEvaluate},
		{task.TypeContactCampaign, task.TypeContact},
		{task.TypeGenerateReport, task.TypeSearch},
		{task.TypeEvaluate, task.TypeContact},
	}
	for _, tc := range denied {
		assert.False(t, CanChain(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidateTransitionError(t *testing.T) {
	err := ValidateTransition(task.TypeContact, task.TypeSearch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transition")
}

func TestChainRejectsInvalidTransition(t *testing.T) {
	f := newFixtures(t)
	f.createMission(t, "msn-1", "basic", "camp-1")

	parent := f.createTask(t, "msn-1", task.TypeContact, task.Payload{
		Contact: &task.ContactPayload{LeadIDs: []string{"led_x"}, CampaignName: "camp-1"},
	})

	_, err := f.env.chain(parent, "msn-1", task.TypeSearch, task.Payload{
		Search: &task.SearchPayload{CampaignName: "camp-1"},
	})
	require.Error(t, err)
	assert.Empty(t, f.tasksOfType(t, task.TypeSearch))
}

func TestRegistryRoutesEveryType(t *testing.T) {
	f := newFixtures(t)
	r := NewRegistry(f.env)

	for _, typ := range []task.Type{
		task.TypeGenerateCampaign, task.TypeSearch, task.TypeEnrich,
		task.TypeInvestigate, task.TypeContact, task.TypeContactInitial,
		task.TypeEvaluate, task.TypeContactCampaign, task.TypeGenerateReport,
	} {
		h, err := r.Get(typ)
		require.NoError(t, err, "type %s", typ)
		require.NotNil(t, h)
	}

	// The legacy initial-contact type rides the contact executor.
	initial, err := r.Get(task.TypeContactInitial)
	require.NoError(t, err)
	contact, err := r.Get(task.TypeContact)
	require.NoError(t, err)
	assert.Same(t, contact, initial)

	_, err = r.Get(task.Type("UNKNOWN"))
	require.Error(t, err)
}
