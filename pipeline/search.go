package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/lead"
	"github.com/fieldops/missiond/mission"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/sym"
	"github.com/fieldops/missiond/task"
)

// SearchExecutor discovers new prospects for a mission. When the provider
// comes up empty it falls back to the saved queue, then to enriched leads
// that were never contacted, before declaring the pipeline empty.
type SearchExecutor struct {
	env *Env
}

func (x *SearchExecutor) Type() task.Type { return task.TypeSearch }

func (x *SearchExecutor) Execute(ctx context.Context, t *task.Task) (*Result, error) {
	log := x.env.logger().With("task", t.ID, "mission", t.MissionID)

	m, err := x.env.Missions.Get(t.MissionID)
	if err != nil {
		return nil, err
	}
	settings, err := x.env.Missions.GetOrgSettings(t.OrgID, x.env.DefaultDailySearches)
	if err != nil {
		return nil, err
	}

	ok, err := x.env.Quota.TryReserve(t.OrgID, quota.SearchExecutions, settings.DailySearchExecutions, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Infow("search skipped", "reason", ReasonDailyLimit, "limit", settings.DailySearchExecutions)
		return Skip(ReasonDailyLimit), nil
	}

	campaignName := t.Payload.Search.CampaignName
	maxResults := m.Limits.DailySearch
	if maxResults <= 0 {
		maxResults = 25
	}

	people, err := x.env.Searcher.Search(ctx, client.SearchFilters{
		JobTitle:    m.Goal.JobTitle,
		Location:    m.Goal.Location,
		Industry:    m.Goal.Industry,
		CompanySize: m.Goal.CompanySize,
		Seniority:   m.Goal.Seniority,
	}, maxResults)
	if err != nil {
		// The execution never happened, give the slot back.
		if relErr := x.env.Quota.Release(t.OrgID, quota.SearchExecutions, 1); relErr != nil {
			log.Warnw("failed to release search reservation", "error", relErr)
		}
		return nil, err
	}

	if len(people) == 0 {
		return x.fallback(log, t, m, campaignName)
	}

	leads := make([]*lead.Lead, 0, len(people))
	for _, p := range people {
		leads = append(leads, &lead.Lead{
			OrgID:         t.OrgID,
			MissionID:     m.ID,
			SourceID:      p.SourceID,
			FullName:      p.FullName,
			Title:         p.Title,
			CompanyName:   p.CompanyName,
			CompanyDomain: p.CompanyDomain,
			LinkedInURL:   p.LinkedInURL,
			Location:      p.Location,
			Email:         p.Email,
			Phone:         p.Phone,
		})
	}
	saved, err := x.env.Leads.InsertLeads(leads)
	if err != nil {
		return nil, err
	}
	if saved > 0 {
		if err := x.env.Quota.IncrementUsage(t.OrgID, quota.LeadsSearched, saved); err != nil {
			return nil, err
		}
	}
	log.Infow(sym.Search+" search completed", "found", len(people), "saved", saved)

	res := &Result{LeadsFound: len(people), LeadsSaved: saved, CampaignName: campaignName}
	if !m.EnrichmentRequested() {
		return res, nil
	}

	ids := make([]string, 0, len(leads))
	for _, l := range leads {
		ids = append(ids, l.ID)
	}
	next, err := x.env.chain(t, m.ID, task.TypeEnrich, task.Payload{
		Enrich: &task.EnrichPayload{
			LeadIDs:      ids,
			Level:        m.Goal.EnrichmentLevel,
			CampaignName: campaignName,
		},
	})
	if err != nil {
		return nil, err
	}
	res.ChainedTasks = []string{next.ID}
	return res, nil
}

// fallback keeps the pipeline moving on a dry search. Order matters: first
// exhaust the saved queue through enrichment, then contact stranded enriched
// leads, then give up for the day.
func (x *SearchExecutor) fallback(log *zap.SugaredLogger, t *task.Task, m *mission.Mission, campaignName string) (*Result, error) {
	batch := m.Limits.DailyEnrich
	if batch <= 0 {
		batch = 10
	}

	savedLeads, err := x.env.Leads.SavedForMission(m.ID, batch)
	if err != nil {
		return nil, err
	}
	if len(savedLeads) > 0 {
		level := m.Goal.EnrichmentLevel
		if level == "" {
			level = mission.EnrichmentBasic
		}
		ids := leadIDs(savedLeads)
		next, err := x.env.chain(t, m.ID, task.TypeEnrich, task.Payload{
			Enrich: &task.EnrichPayload{
				LeadIDs:        ids,
				Level:          level,
				CampaignName:   campaignName,
				FromSavedQueue: true,
			},
		})
		if err != nil {
			return nil, err
		}
		log.Infow("search empty, falling back to saved queue", "leads", len(ids))
		return &Result{LeadsFound: 0, CampaignName: campaignName, ChainedTasks: []string{next.ID}}, nil
	}

	contactBatch := m.Limits.DailyContact
	if contactBatch <= 0 {
		contactBatch = 10
	}
	stranded, err := x.env.Leads.EnrichedNeverContacted(m.ID, contactBatch)
	if err != nil {
		return nil, err
	}
	if len(stranded) > 0 {
		next, err := x.env.chain(t, m.ID, task.TypeContact, task.Payload{
			Contact: &task.ContactPayload{
				LeadIDs:      leadIDs(stranded),
				CampaignName: campaignName,
			},
		})
		if err != nil {
			return nil, err
		}
		log.Infow("search empty, falling back to uncontacted enriched leads", "leads", len(stranded))
		return &Result{LeadsFound: 0, CampaignName: campaignName, ChainedTasks: []string{next.ID}}, nil
	}

	log.Infow("search empty and no fallback leads available", "reason", ReasonEmptyPipeline)
	return Skip(ReasonEmptyPipeline), nil
}

func leadIDs(leads []*lead.Lead) []string {
	ids := make([]string, 0, len(leads))
	for _, l := range leads {
		ids = append(ids, l.ID)
	}
	return ids
}
