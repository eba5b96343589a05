package mission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/errors"
	internaltesting "github.com/fieldops/missiond/internal/testing"
)

func testMission(id string) *Mission {
	now := time.Now().UTC()
	return &Mission{
		ID:          id,
		OrgID:       "org-1",
		OwnerUserID: "usr-1",
		Title:       "CTOs in LatAm fintech",
		Status:      StatusActive,
		Goal: Goal{
			JobTitle:        "CTO",
			Location:        "Colombia",
			Industry:        "fintech",
			EnrichmentLevel: EnrichmentDeep,
		},
		Limits: Limits{
			DailySearch:      25,
			DailyEnrich:      10,
			DailyInvestigate: 5,
			DailyContact:     10,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateGetAndComplete(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	m := testMission("msn-1")
	require.NoError(t, store.Create(m))

	got, err := store.Get("msn-1")
	require.NoError(t, err)
	assert.Equal(t, "CTOs in LatAm fintech", got.Title)
	assert.Equal(t, EnrichmentDeep, got.Goal.EnrichmentLevel)
	assert.True(t, got.EnrichmentRequested())
	assert.Equal(t, 10, got.Limits.DailyContact)

	require.NoError(t, store.SetCampaignName("msn-1", "spring-outreach"))
	got, err = store.Get("msn-1")
	require.NoError(t, err)
	assert.Equal(t, "spring-outreach", got.Goal.CampaignName)

	require.NoError(t, store.Complete("msn-1"))
	got, err = store.Get("msn-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	active, err := store.ListActive()
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestGetMissingMission(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	_, err := store.Get("msn-missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissionNotFound))

	err = store.Complete("msn-missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissionNotFound))
}

func TestHasActiveForOrg(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	active, err := store.HasActiveForOrg("org-1")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, store.Create(testMission("msn-1")))
	active, err = store.HasActiveForOrg("org-1")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestGetOrgSettingsDefaults(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	settings, err := store.GetOrgSettings("org-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, settings.DailySearchExecutions)
	assert.Equal(t, "{}", settings.CompanyProfile)

	require.NoError(t, store.UpsertOrgSettings(&OrgSettings{
		OrgID:                 "org-1",
		DailySearchExecutions: 7,
		NotifyEmail:           "ops@example.com",
		CompanyProfile:        `{"product":"recruiting"}`,
	}))

	settings, err = store.GetOrgSettings("org-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, settings.DailySearchExecutions)
	assert.Equal(t, "ops@example.com", settings.NotifyEmail)
	assert.Contains(t, settings.CompanyProfile, "recruiting")
}

func TestCreateRejectsInvalidMission(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	m := testMission("msn-1")
	m.Goal.EnrichmentLevel = "forensic"
	err := store.Create(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown enrichment level")

	m = testMission("msn-2")
	m.OrgID = ""
	require.Error(t, store.Create(m))
}
