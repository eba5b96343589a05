package lead

import (
	"database/sql"
	"time"

	"github.com/fieldops/missiond/errors"
)

// Store handles lead and contacted-lead persistence.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const leadColumns = `id, org_id, mission_id, source_id, full_name, title,
	company_name, company_domain, linkedin_url, location, email, phone,
	status, research, created_at, updated_at`

// InsertLeads stores freshly searched leads. Duplicate source IDs within the
// mission are dropped silently so re-running a search does not double up the
// saved queue. Returns the number actually inserted.
func (s *Store) InsertLeads(leads []*Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	inserted := 0
	now := time.Now().UTC()
	for _, l := range leads {
		if l.ID == "" {
			l.ID = NewID()
		}
		if l.Status == "" {
			l.Status = StatusSaved
		}
		res, err := tx.Exec(`
			INSERT INTO leads (
				id, org_id, mission_id, source_id, full_name, title,
				company_name, company_domain, linkedin_url, location, email, phone,
				status, research, created_at, updated_at
			)
			SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
			WHERE NOT EXISTS (
				SELECT 1 FROM leads WHERE mission_id = ? AND source_id = ? AND source_id != ''
			)
		`,
			l.ID, l.OrgID, l.MissionID, l.SourceID, l.FullName, l.Title,
			l.CompanyName, l.CompanyDomain, l.LinkedInURL, l.Location, l.Email, l.Phone,
			l.Status, nullString(l.Research), now, now,
			l.MissionID, l.SourceID,
		)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to insert lead %s", l.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "failed to get rows affected")
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit lead inserts")
	}
	return inserted, nil
}

// Get retrieves a single lead.
func (s *Store) Get(id string) (*Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "lead %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get lead %s", id)
	}
	return l, nil
}

// GetMany retrieves the listed leads, skipping IDs that no longer exist.
func (s *Store) GetMany(ids []string) ([]*Lead, error) {
	leads := make([]*Lead, 0, len(ids))
	for _, id := range ids {
		l, err := s.Get(id)
		if errors.IsNotFoundError(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, nil
}

// SavedForMission returns saved-but-unenriched leads for a mission, oldest
// first, up to limit. This is the fallback queue when searches come up empty.
func (s *Store) SavedForMission(missionID string, limit int) ([]*Lead, error) {
	rows, err := s.db.Query(`
		SELECT `+leadColumns+` FROM leads
		WHERE mission_id = ? AND status = ?
		ORDER BY created_at ASC LIMIT ?
	`, missionID, StatusSaved, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list saved leads for mission %s", missionID)
	}
	return scanLeads(rows)
}

// EnrichedNeverContacted returns enriched or investigated leads that have a
// usable email and no contacted_leads row yet, oldest first.
func (s *Store) EnrichedNeverContacted(missionID string, limit int) ([]*Lead, error) {
	rows, err := s.db.Query(`
		SELECT `+leadColumns+` FROM leads
		WHERE mission_id = ?
		  AND status IN (?, ?)
		  AND email != ''
		  AND NOT EXISTS (SELECT 1 FROM contacted_leads WHERE contacted_leads.lead_id = leads.id)
		ORDER BY created_at ASC LIMIT ?
	`, missionID, StatusEnriched, StatusInvestigated, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list uncontacted leads for mission %s", missionID)
	}
	return scanLeads(rows)
}

// UpdateEnrichment writes the contact data an enrichment provider revealed
// and promotes the lead to enriched.
func (s *Store) UpdateEnrichment(id, email, phone, linkedinURL string) error {
	res, err := s.db.Exec(`
		UPDATE leads SET
			email = CASE WHEN ? != '' THEN ? ELSE email END,
			phone = CASE WHEN ? != '' THEN ? ELSE phone END,
			linkedin_url = CASE WHEN ? != '' THEN ? ELSE linkedin_url END,
			status = ?,
			updated_at = ?
		WHERE id = ?
	`, email, email, phone, phone, linkedinURL, linkedinURL, StatusEnriched, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to update enrichment for lead %s", id)
	}
	return requireLead(res, id)
}

// SaveResearch stores the cross-analysis report and promotes the lead to
// investigated.
func (s *Store) SaveResearch(id string, researchJSON []byte) error {
	res, err := s.db.Exec(`
		UPDATE leads SET research = ?, status = ?, updated_at = ? WHERE id = ?
	`, string(researchJSON), StatusInvestigated, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to save research for lead %s", id)
	}
	return requireLead(res, id)
}

// MarkContacted flips the lead to contacted and creates its contacted_leads
// row in one transaction. Idempotent on the lead: a second call for the same
// lead returns the existing contacted-lead ID.
func (s *Store) MarkContacted(l *Lead) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRow(`SELECT id FROM contacted_leads WHERE lead_id = ?`, l.ID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(err, "failed to check contacted lead for %s", l.ID)
	}

	now := time.Now().UTC()
	id := NewContactedID()
	_, err = tx.Exec(`
		INSERT INTO contacted_leads (
			id, org_id, mission_id, lead_id, email,
			engagement_score, replied, evaluation_status,
			last_interaction_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?)
	`, id, l.OrgID, l.MissionID, l.ID, l.Email, EvalPending, now, now, now)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create contacted lead for %s", l.ID)
	}

	_, err = tx.Exec(`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
		StatusContacted, now, l.ID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to mark lead %s contacted", l.ID)
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "failed to commit contact")
	}
	return id, nil
}

// GetContacted retrieves a contacted lead by ID.
func (s *Store) GetContacted(id string) (*ContactedLead, error) {
	row := s.db.QueryRow(`
		SELECT id, org_id, mission_id, lead_id, email,
			engagement_score, replied, evaluation_status,
			last_interaction_at, created_at, updated_at
		FROM contacted_leads WHERE id = ?
	`, id)
	cl, err := scanContacted(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "contacted lead %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get contacted lead %s", id)
	}
	return cl, nil
}

// DueForEvaluation returns pending contacted leads whose last interaction is
// older than the cutoff, grouped by org by the caller.
func (s *Store) DueForEvaluation(cutoff time.Time, limit int) ([]*ContactedLead, error) {
	rows, err := s.db.Query(`
		SELECT id, org_id, mission_id, lead_id, email,
			engagement_score, replied, evaluation_status,
			last_interaction_at, created_at, updated_at
		FROM contacted_leads
		WHERE evaluation_status = ? AND last_interaction_at <= ?
		ORDER BY last_interaction_at ASC LIMIT ?
	`, EvalPending, cutoff, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contacted leads due for evaluation")
	}
	defer rows.Close()

	var due []*ContactedLead
	for rows.Next() {
		cl, err := scanContacted(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan contacted lead")
		}
		due = append(due, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating contacted leads")
	}
	return due, nil
}

// MarkEvaluatingTx flips pending rows to evaluating inside the caller's
// transaction so the rows and their EVALUATE task commit together.
func MarkEvaluatingTx(tx *sql.Tx, ids []string) error {
	now := time.Now().UTC()
	for _, id := range ids {
		_, err := tx.Exec(`
			UPDATE contacted_leads SET evaluation_status = ?, updated_at = ?
			WHERE id = ? AND evaluation_status = ?
		`, EvalEvaluating, now, id, EvalPending)
		if err != nil {
			return errors.Wrapf(err, "failed to mark contacted lead %s evaluating", id)
		}
	}
	return nil
}

// SetEvaluationStatus records the EVALUATE verdict for a contacted lead.
func (s *Store) SetEvaluationStatus(id, status string) error {
	res, err := s.db.Exec(`
		UPDATE contacted_leads SET evaluation_status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to set evaluation status for %s", id)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "contacted lead %s", id)
	}
	return nil
}

// TouchInteraction refreshes last_interaction_at, used when a follow-up send
// restarts the dwell clock.
func (s *Store) TouchInteraction(id string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE contacted_leads SET last_interaction_at = ?, updated_at = ? WHERE id = ?
	`, at.UTC(), time.Now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to touch interaction for %s", id)
	}
	return nil
}

// CountsByStatus aggregates a mission's leads per pipeline status.
func (s *Store) CountsByStatus(missionID string) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT status, COUNT(*) FROM leads WHERE mission_id = ? GROUP BY status
	`, missionID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count leads for mission %s", missionID)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan lead count")
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating lead counts")
	}
	return counts, nil
}

// EvaluationCounts aggregates a mission's contacted leads per evaluation
// status.
func (s *Store) EvaluationCounts(missionID string) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT evaluation_status, COUNT(*) FROM contacted_leads
		WHERE mission_id = ? GROUP BY evaluation_status
	`, missionID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count contacted leads for mission %s", missionID)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan evaluation count")
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating evaluation counts")
	}
	return counts, nil
}

func requireLead(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "lead %s", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (*Lead, error) {
	var l Lead
	var research sql.NullString
	err := row.Scan(
		&l.ID, &l.OrgID, &l.MissionID, &l.SourceID, &l.FullName, &l.Title,
		&l.CompanyName, &l.CompanyDomain, &l.LinkedInURL, &l.Location, &l.Email, &l.Phone,
		&l.Status, &research, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Research = research.String
	return &l, nil
}

func scanLeads(rows *sql.Rows) ([]*Lead, error) {
	defer rows.Close()
	var leads []*Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan lead")
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating leads")
	}
	return leads, nil
}

func scanContacted(row scanner) (*ContactedLead, error) {
	var cl ContactedLead
	var replied int
	err := row.Scan(
		&cl.ID, &cl.OrgID, &cl.MissionID, &cl.LeadID, &cl.Email,
		&cl.EngagementScore, &replied, &cl.EvaluationStatus,
		&cl.LastInteractionAt, &cl.CreatedAt, &cl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cl.Replied = replied != 0
	return &cl, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
