// Package quota enforces per-organization daily resource ceilings.
//
// Counters live in the daily_usage table keyed by (org, calendar day).
// Check-and-increment is one conditional UPDATE with the limit in the WHERE
// clause, so two overlapping tick drivers cannot both slip under the same
// last slot. A naive read-then-upsert loses updates under that interleaving
// (last writer wins); the governor's statements are the replacement.
package quota

import (
	"database/sql"
	"time"

	"github.com/fieldops/missiond/errors"
)

// Kind names one metered resource class.
type Kind string

const (
	LeadsSearched     Kind = "leads_searched"
	SearchExecutions  Kind = "search_executions"
	LeadsEnriched     Kind = "leads_enriched"
	LeadsInvestigated Kind = "leads_investigated"
	LeadsContacted    Kind = "leads_contacted"
)

// column maps a Kind onto its daily_usage column. Kinds are a closed set;
// anything else is a programming error, not operator input.
func (k Kind) column() (string, error) {
	switch k {
	case LeadsSearched, SearchExecutions, LeadsEnriched, LeadsInvestigated, LeadsContacted:
		return string(k), nil
	default:
		return "", errors.Newf("unknown quota kind: %s", k)
	}
}

// Usage holds one organization's counters for a single day.
type Usage struct {
	OrgID             string `json:"org_id"`
	Day               string `json:"day"`
	LeadsSearched     int    `json:"leads_searched"`
	SearchExecutions  int    `json:"search_executions"`
	LeadsEnriched     int    `json:"leads_enriched"`
	LeadsInvestigated int    `json:"leads_investigated"`
	LeadsContacted    int    `json:"leads_contacted"`
}

// Count returns the counter for the given kind.
func (u Usage) Count(kind Kind) int {
	switch kind {
	case LeadsSearched:
		return u.LeadsSearched
	case SearchExecutions:
		return u.SearchExecutions
	case LeadsEnriched:
		return u.LeadsEnriched
	case LeadsInvestigated:
		return u.LeadsInvestigated
	case LeadsContacted:
		return u.LeadsContacted
	default:
		return 0
	}
}

// Governor tracks and enforces daily usage limits.
type Governor struct {
	db      *sql.DB
	timeNow func() time.Time // injectable for testing
}

// NewGovernor creates a governor with real time.
func NewGovernor(db *sql.DB) *Governor {
	return NewGovernorWithClock(db, time.Now)
}

// NewGovernorWithClock creates a governor with an injectable clock.
func NewGovernorWithClock(db *sql.DB, timeNow func() time.Time) *Governor {
	return &Governor{db: db, timeNow: timeNow}
}

// Day returns the current calendar day (UTC) used as counter key.
func (g *Governor) Day() string {
	return g.timeNow().UTC().Format("2006-01-02")
}

// GetDailyUsage returns today's counters for the organization, defaulting to
// zero when no row exists yet.
func (g *Governor) GetDailyUsage(orgID string) (*Usage, error) {
	day := g.Day()
	u := &Usage{OrgID: orgID, Day: day}

	err := g.db.QueryRow(`
		SELECT leads_searched, search_executions, leads_enriched,
		       leads_investigated, leads_contacted
		FROM daily_usage
		WHERE org_id = ? AND day = ?
	`, orgID, day).Scan(
		&u.LeadsSearched, &u.SearchExecutions, &u.LeadsEnriched,
		&u.LeadsInvestigated, &u.LeadsContacted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get daily usage for org %s", orgID)
	}
	return u, nil
}

// IncrementUsage adds delta to the named counter for today. The UPSERT is a
// single atomic statement: concurrent increments for the same org/day never
// lose an update.
func (g *Governor) IncrementUsage(orgID string, kind Kind, delta int) error {
	col, err := kind.column()
	if err != nil {
		return err
	}

	_, err = g.db.Exec(`
		INSERT INTO daily_usage (org_id, day, `+col+`, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(org_id, day) DO UPDATE SET
			`+col+` = `+col+` + excluded.`+col+`,
			updated_at = excluded.updated_at
	`, orgID, g.Day(), delta, g.timeNow().UTC())
	if err != nil {
		return errors.Wrapf(err, "failed to increment %s for org %s", kind, orgID)
	}
	return nil
}

// TryReserve atomically increments the counter by delta only if the result
// stays within limit. Returns false when the limit is already met - the
// caller should skip the stage, not fail it. The quota check and the
// increment form one indivisible conditional update.
func (g *Governor) TryReserve(orgID string, kind Kind, limit, delta int) (bool, error) {
	col, err := kind.column()
	if err != nil {
		return false, err
	}
	if limit <= 0 {
		return false, nil
	}

	day := g.Day()
	now := g.timeNow().UTC()

	// Ensure the row exists so the conditional UPDATE has a target.
	if _, err := g.db.Exec(`
		INSERT OR IGNORE INTO daily_usage (org_id, day, updated_at) VALUES (?, ?, ?)
	`, orgID, day, now); err != nil {
		return false, errors.Wrapf(err, "failed to ensure usage row for org %s", orgID)
	}

	res, err := g.db.Exec(`
		UPDATE daily_usage
		SET `+col+` = `+col+` + ?, updated_at = ?
		WHERE org_id = ? AND day = ? AND `+col+` + ? <= ?
	`, delta, now, orgID, day, delta, limit)
	if err != nil {
		return false, errors.Wrapf(err, "failed to reserve %s for org %s", kind, orgID)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows == 1, nil
}

// Release returns a previously reserved allocation, e.g. when the external
// call that justified the reservation never happened.
func (g *Governor) Release(orgID string, kind Kind, delta int) error {
	return g.IncrementUsage(orgID, kind, -delta)
}
