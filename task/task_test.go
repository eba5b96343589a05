package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/errors"
)

func TestNewValidatesPayload(t *testing.T) {
	_, err := New("org-1", "msn-1", TypeSearch, Payload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidPayload))

	// Variant must match the type.
	_, err = New("org-1", "msn-1", TypeSearch, Payload{
		Enrich: &EnrichPayload{LeadIDs: []string{"led-1"}, Level: "basic"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidPayload))

	// Exactly one variant allowed.
	_, err = New("org-1", "msn-1", TypeSearch, Payload{
		Search: &SearchPayload{CampaignName: "c"},
		Report: &ReportPayload{},
	})
	require.Error(t, err)

	tk, err := New("org-1", "msn-1", TypeSearch, Payload{
		Search: &SearchPayload{CampaignName: "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, tk.Status)
	assert.NotEmpty(t, tk.ID)
}

func TestContactInitialSharesContactPayload(t *testing.T) {
	payload := Payload{Contact: &ContactPayload{LeadIDs: []string{"led-1"}, CampaignName: "c"}}

	_, err := New("org-1", "msn-1", TypeContact, payload)
	require.NoError(t, err)
	_, err = New("org-1", "msn-1", TypeContactInitial, payload)
	require.NoError(t, err)
}

func TestNewRequiresOrg(t *testing.T) {
	_, err := New("", "msn-1", TypeSearch, Payload{Search: &SearchPayload{}})
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	at := time.Date(2026, 1, 2, 13, 0, 0, 0, time.UTC)
	tk, err := New("org-1", "", TypeEvaluate,
		Payload{Evaluate: &EvaluatePayload{ContactedLeadIDs: []string{"cld-1"}}},
		WithScheduledFor(at), WithIdempotencyKey("k"), WithParent("tsk-parent"))
	require.NoError(t, err)

	require.NotNil(t, tk.ScheduledFor)
	assert.Equal(t, at, *tk.ScheduledFor)
	assert.Equal(t, "k", tk.IdempotencyKey)
	assert.Equal(t, "tsk-parent", tk.ParentTaskID)
	assert.Empty(t, tk.MissionID)
}

func TestDue(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	tk, err := New("org-1", "msn-1", TypeSearch, Payload{Search: &SearchPayload{}})
	require.NoError(t, err)
	assert.True(t, tk.Due(now), "nil scheduled_for is due immediately")

	later := now.Add(time.Hour)
	tk.ScheduledFor = &later
	assert.False(t, tk.Due(now))
	assert.True(t, tk.Due(later))

	tk.ScheduledFor = nil
	tk.Status = StatusProcessing
	assert.False(t, tk.Due(now))
}
