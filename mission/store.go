package mission

import (
	"database/sql"
	"time"

	"github.com/fieldops/missiond/errors"
)

// Store handles persistence of missions and organization settings.
type Store struct {
	db *sql.DB
}

// NewStore creates a new mission store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const missionColumns = `id, org_id, owner_user_id, title, status,
	job_title, location, industry, company_size, seniority,
	enrichment_level, campaign_name,
	daily_search_limit, daily_enrich_limit, daily_investigate_limit, daily_contact_limit,
	created_at, updated_at`

// Create inserts a mission. Normally the dashboard does this; the CLI's
// `missions import` uses it for bootstrap and testing.
func (s *Store) Create(m *Mission) error {
	if err := m.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO missions (
			id, org_id, owner_user_id, title, status,
			job_title, location, industry, company_size, seniority,
			enrichment_level, campaign_name,
			daily_search_limit, daily_enrich_limit, daily_investigate_limit, daily_contact_limit,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.OrgID, m.OwnerUserID, m.Title, m.Status,
		m.Goal.JobTitle, m.Goal.Location, m.Goal.Industry, m.Goal.CompanySize, m.Goal.Seniority,
		m.Goal.EnrichmentLevel, m.Goal.CampaignName,
		m.Limits.DailySearch, m.Limits.DailyEnrich, m.Limits.DailyInvestigate, m.Limits.DailyContact,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create mission %s", m.ID)
	}
	return nil
}

// Get retrieves a mission by ID.
func (s *Store) Get(id string) (*Mission, error) {
	row := s.db.QueryRow(`SELECT `+missionColumns+` FROM missions WHERE id = ?`, id)
	m, err := scanMission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrMissionNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get mission %s", id)
	}
	return m, nil
}

// ListActive returns all active missions.
func (s *Store) ListActive() ([]*Mission, error) {
	rows, err := s.db.Query(`SELECT `+missionColumns+` FROM missions WHERE status = ? ORDER BY created_at ASC`, StatusActive)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active missions")
	}
	defer rows.Close()

	var missions []*Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan mission")
		}
		missions = append(missions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating active missions")
	}
	return missions, nil
}

// HasActiveForOrg reports whether the organization has at least one active
// mission. Used by the promotion scan to decide whether evaluation work is
// worth creating.
func (s *Store) HasActiveForOrg(orgID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM missions WHERE org_id = ? AND status = ?)`,
		orgID, StatusActive,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check active missions for org %s", orgID)
	}
	return exists, nil
}

// SetCampaignName records the campaign linkage after GENERATE_CAMPAIGN.
func (s *Store) SetCampaignName(missionID, campaignName string) error {
	res, err := s.db.Exec(`
		UPDATE missions SET campaign_name = ?, updated_at = ? WHERE id = ?
	`, campaignName, time.Now().UTC(), missionID)
	if err != nil {
		return errors.Wrapf(err, "failed to set campaign name on mission %s", missionID)
	}
	return requireMission(res, missionID)
}

// Complete flips a mission to completed. Only CONTACT_CAMPAIGN finishing a
// qualified lead's sequence does this.
func (s *Store) Complete(missionID string) error {
	res, err := s.db.Exec(`
		UPDATE missions SET status = ?, updated_at = ? WHERE id = ?
	`, StatusCompleted, time.Now().UTC(), missionID)
	if err != nil {
		return errors.Wrapf(err, "failed to complete mission %s", missionID)
	}
	return requireMission(res, missionID)
}

// GetOrgSettings returns the organization settings row, or defaults when the
// dashboard has not created one yet.
func (s *Store) GetOrgSettings(orgID string, defaultDailySearches int) (*OrgSettings, error) {
	settings := &OrgSettings{
		OrgID:                 orgID,
		DailySearchExecutions: defaultDailySearches,
		CompanyProfile:        "{}",
	}

	err := s.db.QueryRow(`
		SELECT daily_search_executions, notify_email, company_profile
		FROM org_settings WHERE org_id = ?
	`, orgID).Scan(&settings.DailySearchExecutions, &settings.NotifyEmail, &settings.CompanyProfile)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get org settings for %s", orgID)
	}
	return settings, nil
}

// UpsertOrgSettings writes an organization settings row, replacing any
// existing one. Used by the CLI import; the dashboard owns this table in
// production.
func (s *Store) UpsertOrgSettings(settings *OrgSettings) error {
	profile := settings.CompanyProfile
	if profile == "" {
		profile = "{}"
	}
	_, err := s.db.Exec(`
		INSERT INTO org_settings (org_id, daily_search_executions, notify_email, company_profile)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(org_id) DO UPDATE SET
			daily_search_executions = excluded.daily_search_executions,
			notify_email = excluded.notify_email,
			company_profile = excluded.company_profile
	`, settings.OrgID, settings.DailySearchExecutions, settings.NotifyEmail, profile)
	if err != nil {
		return errors.Wrapf(err, "failed to upsert org settings for %s", settings.OrgID)
	}
	return nil
}

func requireMission(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrMissionNotFound, "%s", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMission(row scanner) (*Mission, error) {
	var m Mission
	err := row.Scan(
		&m.ID, &m.OrgID, &m.OwnerUserID, &m.Title, &m.Status,
		&m.Goal.JobTitle, &m.Goal.Location, &m.Goal.Industry, &m.Goal.CompanySize, &m.Goal.Seniority,
		&m.Goal.EnrichmentLevel, &m.Goal.CampaignName,
		&m.Limits.DailySearch, &m.Limits.DailyEnrich, &m.Limits.DailyInvestigate, &m.Limits.DailyContact,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
