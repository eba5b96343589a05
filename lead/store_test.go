package lead

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaltesting "github.com/fieldops/missiond/internal/testing"
)

func testLead(missionID, sourceID, name string) *Lead {
	return &Lead{
		OrgID:     "org-1",
		MissionID: missionID,
		SourceID:  sourceID,
		FullName:  name,
		Location:  "Bogotá, Colombia",
	}
}

func TestInsertLeadsDedupesBySource(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	n, err := store.InsertLeads([]*Lead{
		testLead("msn-1", "src-1", "Ada Vargas"),
		testLead("msn-1", "src-2", "Luis Prieto"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-running the same search must not duplicate the saved queue.
	n, err = store.InsertLeads([]*Lead{
		testLead("msn-1", "src-1", "Ada Vargas"),
		testLead("msn-1", "src-3", "Eva Duarte"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	saved, err := store.SavedForMission("msn-1", 10)
	require.NoError(t, err)
	assert.Len(t, saved, 3)

	// Same source in a different mission is a distinct lead.
	n, err = store.InsertLeads([]*Lead{testLead("msn-2", "src-1", "Ada Vargas")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnrichmentFlow(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	l := testLead("msn-1", "src-1", "Ada Vargas")
	_, err := store.InsertLeads([]*Lead{l})
	require.NoError(t, err)

	require.NoError(t, store.UpdateEnrichment(l.ID, "ada@example.com", "", "https://linkedin.com/in/ada"))

	got, err := store.Get(l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusEnriched, got.Status)
	assert.Equal(t, "ada@example.com", got.Email)

	// Empty fields never overwrite previously revealed data.
	require.NoError(t, store.UpdateEnrichment(l.ID, "", "+57 300", ""))
	got, err = store.Get(l.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "+57 300", got.Phone)

	require.NoError(t, store.SaveResearch(l.ID, []byte(`{"pains":["slow hiring"]}`)))
	got, err = store.Get(l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInvestigated, got.Status)
	assert.Contains(t, got.Research, "slow hiring")
}

func TestEnrichedNeverContactedExcludesContacted(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	a := testLead("msn-1", "src-a", "Ada Vargas")
	b := testLead("msn-1", "src-b", "Luis Prieto")
	_, err := store.InsertLeads([]*Lead{a, b})
	require.NoError(t, err)
	require.NoError(t, store.UpdateEnrichment(a.ID, "ada@example.com", "", ""))
	require.NoError(t, store.UpdateEnrichment(b.ID, "luis@example.com", "", ""))

	got, err := store.Get(a.ID)
	require.NoError(t, err)
	_, err = store.MarkContacted(got)
	require.NoError(t, err)

	stranded, err := store.EnrichedNeverContacted("msn-1", 10)
	require.NoError(t, err)
	require.Len(t, stranded, 1)
	assert.Equal(t, b.ID, stranded[0].ID)
}

func TestMarkContactedIsIdempotent(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	l := testLead("msn-1", "src-1", "Ada Vargas")
	_, err := store.InsertLeads([]*Lead{l})
	require.NoError(t, err)
	require.NoError(t, store.UpdateEnrichment(l.ID, "ada@example.com", "", ""))

	got, err := store.Get(l.ID)
	require.NoError(t, err)

	first, err := store.MarkContacted(got)
	require.NoError(t, err)
	second, err := store.MarkContacted(got)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cl, err := store.GetContacted(first)
	require.NoError(t, err)
	assert.Equal(t, EvalPending, cl.EvaluationStatus)
	assert.Equal(t, "ada@example.com", cl.Email)
}

func TestDueForEvaluationAndPromotion(t *testing.T) {
	db := internaltesting.CreateTestDB(t)
	store := NewStore(db)

	l := testLead("msn-1", "src-1", "Ada Vargas")
	_, err := store.InsertLeads([]*Lead{l})
	require.NoError(t, err)
	require.NoError(t, store.UpdateEnrichment(l.ID, "ada@example.com", "", ""))
	got, err := store.Get(l.ID)
	require.NoError(t, err)
	clID, err := store.MarkContacted(got)
	require.NoError(t, err)

	// Fresh contact is not due yet.
	due, err := store.DueForEvaluation(time.Now().UTC().Add(-48*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, store.TouchInteraction(clID, time.Now().UTC().Add(-72*time.Hour)))
	due, err = store.DueForEvaluation(time.Now().UTC().Add(-48*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, MarkEvaluatingTx(tx, []string{clID}))
	require.NoError(t, tx.Commit())

	// Evaluating rows are not re-selected.
	due, err = store.DueForEvaluation(time.Now().UTC().Add(-48*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, store.SetEvaluationStatus(clID, EvalQualified))
	cl, err := store.GetContacted(clID)
	require.NoError(t, err)
	assert.Equal(t, EvalQualified, cl.EvaluationStatus)
}
