// Package task provides the durable task table that coordinates the mission
// pipeline. The table is the only cross-process coordination surface: every
// tick driver and stage executor goes through this store, and claims are
// atomic so overlapping drivers never execute the same task twice.
package task

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/missiond/errors"
)

// Status represents the current state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsValidStatus returns true if the status string is a valid Status.
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Type identifies the pipeline stage a task belongs to.
type Type string

const (
	TypeGenerateCampaign Type = "GENERATE_CAMPAIGN"
	TypeSearch           Type = "SEARCH"
	TypeEnrich           Type = "ENRICH"
	TypeInvestigate      Type = "INVESTIGATE"
	TypeContact          Type = "CONTACT"
	// TypeContactInitial is an alias stage: first-touch contact created by
	// the daily pipeline rather than a campaign follow-up. Routed to the
	// same executor as TypeContact.
	TypeContactInitial  Type = "CONTACT_INITIAL"
	TypeEvaluate        Type = "EVALUATE"
	TypeContactCampaign Type = "CONTACT_CAMPAIGN"
	TypeGenerateReport  Type = "GENERATE_REPORT"
)

// Types lists every task type in pipeline order.
func Types() []Type {
	return []Type{
		TypeGenerateCampaign, TypeSearch, TypeEnrich, TypeInvestigate,
		TypeContact, TypeContactInitial, TypeEvaluate, TypeContactCampaign,
		TypeGenerateReport,
	}
}

// Task is one unit of pipeline work, persisted until claimed and resolved.
type Task struct {
	ID                  string          `json:"id"`
	OrgID               string          `json:"org_id"`
	MissionID           string          `json:"mission_id,omitempty"` // empty for org-scoped tasks
	ParentTaskID        string          `json:"parent_task_id,omitempty"`
	Type                Type            `json:"type"`
	Status              Status          `json:"status"`
	Payload             Payload         `json:"payload"`
	Result              json.RawMessage `json:"result,omitempty"`
	Error               string          `json:"error,omitempty"`
	IdempotencyKey      string          `json:"idempotency_key,omitempty"`
	ScheduledFor        *time.Time      `json:"scheduled_for,omitempty"` // nil = eligible immediately
	ProcessingStartedAt *time.Time      `json:"processing_started_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Option customizes a task at construction time.
type Option func(*Task)

// WithScheduledFor defers eligibility until the given time.
func WithScheduledFor(at time.Time) Option {
	return func(t *Task) { t.ScheduledFor = &at }
}

// WithIdempotencyKey makes creation a silent no-op if a task with the same
// key already exists.
func WithIdempotencyKey(key string) Option {
	return func(t *Task) { t.IdempotencyKey = key }
}

// WithParent records the chaining parent as causal context.
func WithParent(parentID string) Option {
	return func(t *Task) { t.ParentTaskID = parentID }
}

// New creates a pending task. missionID may be empty for org-scoped tasks.
func New(orgID, missionID string, typ Type, payload Payload, opts ...Option) (*Task, error) {
	if orgID == "" {
		return nil, errors.New("orgID cannot be empty")
	}
	if err := payload.Validate(typ); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &Task{
		ID:        "tsk_" + uuid.NewString(),
		OrgID:     orgID,
		MissionID: missionID,
		Type:      typ,
		Status:    StatusPending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Due reports whether the task is eligible to run at the given time.
func (t *Task) Due(now time.Time) bool {
	return t.Status == StatusPending &&
		(t.ScheduledFor == nil || !t.ScheduledFor.After(now))
}
