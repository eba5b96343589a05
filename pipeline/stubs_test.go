package pipeline

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldops/missiond/campaign"
	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/errors"
	internaltesting "github.com/fieldops/missiond/internal/testing"
	"github.com/fieldops/missiond/lead"
	"github.com/fieldops/missiond/mission"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/sendtime"
	"github.com/fieldops/missiond/task"
)

type stubSearcher struct {
	people []client.Person
	err    error
	calls  int
}

func (s *stubSearcher) Search(ctx context.Context, filters client.SearchFilters, limit int) ([]client.Person, error) {
	s.calls++
	return s.people, s.err
}

type stubEnricher struct {
	err     error
	failFor map[string]bool // keyed by full name
}

func (s *stubEnricher) Enrich(ctx context.Context, inputs []client.EnrichInput, revealEmail, revealPhone bool) ([]client.EnrichResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	results := make([]client.EnrichResult, len(inputs))
	for i, in := range inputs {
		if s.failFor[in.FullName] {
			results[i].Err = errors.New("no match found")
			continue
		}
		results[i].Email = in.SourceID + "@example.com"
		if revealPhone {
			results[i].Phone = "+1 555 0100"
		}
	}
	return results, nil
}

type stubResearcher struct {
	err     error
	failFor map[string]bool
	calls   int
}

func (s *stubResearcher) Research(ctx context.Context, person client.Person, companyProfile string) (*client.Report, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.failFor[person.FullName] {
		return nil, errors.New("research provider returned 502")
	}
	return &client.Report{
		Pains:      []string{"manual prospecting"},
		DraftEmail: "<p>Hi " + person.FullName + "</p>",
	}, nil
}

type stubMailer struct {
	sent   []client.Message
	err    error
	failTo map[string]bool
}

func (s *stubMailer) Send(ctx context.Context, msg client.Message) (*client.SendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.failTo[msg.To] {
		return nil, errors.New("mailbox unavailable")
	}
	s.sent = append(s.sent, msg)
	return &client.SendResult{MessageID: "msg-1", ThreadID: "thr-1"}, nil
}

// fixedNow keeps scheduled_for assertions deterministic.
var fixedNow = time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)

type fixtures struct {
	db         *sql.DB
	env        *Env
	searcher   *stubSearcher
	enricher   *stubEnricher
	researcher *stubResearcher
	mailer     *stubMailer
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	db := internaltesting.CreateTestDB(t)

	f := &fixtures{
		db:         db,
		searcher:   &stubSearcher{},
		enricher:   &stubEnricher{},
		researcher: &stubResearcher{},
		mailer:     &stubMailer{},
	}
	f.env = &Env{
		Tasks:     task.NewStore(db),
		Missions:  mission.NewStore(db),
		Campaigns: campaign.NewStore(db),
		Leads:     lead.NewStore(db),
		Quota:     quota.NewGovernor(db),
		SendTimes: sendtime.NewWithRand(8, 30, -5, func(n int) int { return 15 }),

		Searcher:   f.searcher,
		Enricher:   f.enricher,
		Researcher: f.researcher,
		Mailer:     f.mailer,

		DefaultDailySearches: 3,
		EngagementThreshold:  1,
		FromAddress:          "outreach@example.com",

		Clock: func() time.Time { return fixedNow },
		Log:   zap.NewNop().Sugar(),
	}
	return f
}

func (f *fixtures) createMission(t *testing.T, id, enrichmentLevel, campaignName string) *mission.Mission {
	t.Helper()
	now := fixedNow
	m := &mission.Mission{
		ID:          id,
		OrgID:       "org-1",
		OwnerUserID: "usr-1",
		Title:       "CTOs in LatAm fintech",
		Status:      mission.StatusActive,
		Goal: mission.Goal{
			JobTitle:        "CTO",
			Location:        "Colombia",
			Industry:        "fintech",
			EnrichmentLevel: enrichmentLevel,
			CampaignName:    campaignName,
		},
		Limits: mission.Limits{
			DailySearch:      25,
			DailyEnrich:      10,
			DailyInvestigate: 5,
			DailyContact:     10,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.env.Missions.Create(m))
	return m
}

func (f *fixtures) createCampaign(t *testing.T, name string) *campaign.Campaign {
	t.Helper()
	c, err := f.env.Campaigns.CreateIfAbsent("org-1", name, "Quick question", "<p>Hello</p>")
	require.NoError(t, err)
	return c
}

// createTask builds and persists a parent task so chained rows carry real
// causal context.
func (f *fixtures) createTask(t *testing.T, missionID string, typ task.Type, payload task.Payload) *task.Task {
	t.Helper()
	tk, err := task.New("org-1", missionID, typ, payload)
	require.NoError(t, err)
	_, err = f.env.Tasks.Create(tk)
	require.NoError(t, err)
	return tk
}

func (f *fixtures) insertLead(t *testing.T, missionID, sourceID, name, location string) *lead.Lead {
	t.Helper()
	l := &lead.Lead{
		OrgID:     "org-1",
		MissionID: missionID,
		SourceID:  sourceID,
		FullName:  name,
		Location:  location,
	}
	n, err := f.env.Leads.InsertLeads([]*lead.Lead{l})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	return l
}

func (f *fixtures) tasksOfType(t *testing.T, typ task.Type) []*task.Task {
	t.Helper()
	rows, err := f.db.Query(`SELECT id FROM tasks WHERE type = ?`, typ)
	require.NoError(t, err)
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		tk, err := f.env.Tasks.Get(id)
		require.NoError(t, err)
		out = append(out, tk)
	}
	require.NoError(t, rows.Err())
	return out
}
