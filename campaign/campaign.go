// Package campaign stores the email campaigns missions send through.
package campaign

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/missiond/errors"
)

// Campaign is an email template shared by all CONTACT sends of a mission.
// Names are unique per organization.
type Campaign struct {
	ID        string
	OrgID     string
	Name      string
	Subject   string
	BodyHTML  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewID() string {
	return "cmp_" + uuid.NewString()
}

// Store handles campaign persistence.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateIfAbsent inserts a campaign unless one with the same name already
// exists for the organization. Returns the stored campaign either way, so
// re-runs of GENERATE_CAMPAIGN converge on the first writer's template.
func (s *Store) CreateIfAbsent(orgID, name, subject, bodyHTML string) (*Campaign, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO campaigns (id, org_id, name, subject, body_html, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, NewID(), orgID, name, subject, bodyHTML, now, now)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create campaign %q for org %s", name, orgID)
	}
	return s.GetByName(orgID, name)
}

// GetByName retrieves a campaign by organization and name.
func (s *Store) GetByName(orgID, name string) (*Campaign, error) {
	var c Campaign
	err := s.db.QueryRow(`
		SELECT id, org_id, name, subject, body_html, created_at, updated_at
		FROM campaigns WHERE org_id = ? AND name = ?
	`, orgID, name).Scan(&c.ID, &c.OrgID, &c.Name, &c.Subject, &c.BodyHTML, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrCampaignNotFound, "%q for org %s", name, orgID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get campaign %q for org %s", name, orgID)
	}
	return &c, nil
}
