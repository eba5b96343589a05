// Package pipeline contains the stage executors that consume mission tasks.
// Each executor performs one stage's work against an external provider,
// persists results, and chains follow-on tasks through a validated
// transition table.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/missiond/campaign"
	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/errors"
	"github.com/fieldops/missiond/lead"
	"github.com/fieldops/missiond/logger"
	"github.com/fieldops/missiond/mission"
	"github.com/fieldops/missiond/notify"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/sendtime"
	"github.com/fieldops/missiond/task"
)

// Skip reasons. A skip is a successful terminal outcome, not an error.
const (
	ReasonDailyLimit    = "daily_limit_reached"
	ReasonNoLeads       = "no_leads"
	ReasonEmptyPipeline = "empty_pipeline"
)

// Result is the structured outcome persisted on a completed task. Counts are
// partial-success aware: item failures within a batch are recorded here
// without failing the enclosing task.
type Result struct {
	Skipped        bool     `json:"skipped,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	CampaignName   string   `json:"campaign_name,omitempty"`
	LeadsFound     int      `json:"leads_found,omitempty"`
	LeadsSaved     int      `json:"leads_saved,omitempty"`
	Enriched       int      `json:"enriched,omitempty"`
	Investigated   int      `json:"investigated,omitempty"`
	Contacted      int      `json:"contacted,omitempty"`
	Evaluated      int      `json:"evaluated,omitempty"`
	Qualified      int      `json:"qualified,omitempty"`
	Disqualified   int      `json:"disqualified,omitempty"`
	ActionRequired int      `json:"action_required,omitempty"`
	ItemFailures   int      `json:"item_failures,omitempty"`
	ChainedTasks   []string `json:"chained_tasks,omitempty"`
}

// Skip builds the canonical skipped result.
func Skip(reason string) *Result {
	return &Result{Skipped: true, Reason: reason}
}

// Handler executes one task type.
type Handler interface {
	Type() task.Type
	Execute(ctx context.Context, t *task.Task) (*Result, error)
}

// Env bundles the stores, providers, and tunables the executors share.
type Env struct {
	Tasks     *task.Store
	Missions  *mission.Store
	Campaigns *campaign.Store
	Leads     *lead.Store
	Quota     *quota.Governor
	SendTimes *sendtime.Scheduler

	Searcher   client.Searcher
	Enricher   client.Enricher
	Researcher client.Researcher
	Mailer     client.Mailer
	Notifier   *notify.Notifier

	// DefaultDailySearches applies when an org has no settings row.
	DefaultDailySearches int
	// EngagementThreshold is the score above which an unanswered lead is
	// considered qualified.
	EngagementThreshold int
	FromAddress         string

	Clock func() time.Time
	Log   *zap.SugaredLogger
}

func (e *Env) now() time.Time {
	if e.Clock != nil {
		return e.Clock().UTC()
	}
	return time.Now().UTC()
}

func (e *Env) logger() *zap.SugaredLogger {
	if e.Log != nil {
		return e.Log
	}
	return logger.Named("pipeline")
}

// chain inserts a follow-on task after validating the transition. missionID
// may differ from the parent's when the parent is org-scoped. A duplicate
// idempotency key is a silent no-op, consistent with task creation anywhere
// else.
func (e *Env) chain(parent *task.Task, missionID string, typ task.Type, payload task.Payload, opts ...task.Option) (*task.Task, error) {
	if err := ValidateTransition(parent.Type, typ); err != nil {
		return nil, err
	}
	opts = append(opts, task.WithParent(parent.ID))
	next, err := task.New(parent.OrgID, missionID, typ, payload, opts...)
	if err != nil {
		return nil, err
	}
	created, err := e.Tasks.Create(next)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to chain %s from %s", typ, parent.ID)
	}
	if !created {
		e.logger().Debugw("chained task deduplicated", "parent", parent.ID, "type", typ, "key", next.IdempotencyKey)
	}
	return next, nil
}

// Registry routes tasks to their stage executor.
type Registry struct {
	handlers map[task.Type]Handler
}

// NewRegistry wires every stage executor against the environment.
// CONTACT_INITIAL shares the CONTACT executor.
func NewRegistry(env *Env) *Registry {
	r := &Registry{handlers: make(map[task.Type]Handler)}
	contact := &ContactExecutor{env: env}
	for _, h := range []Handler{
		&GenerateCampaignExecutor{env: env},
		&SearchExecutor{env: env},
		&EnrichExecutor{env: env},
		&InvestigateExecutor{env: env},
		contact,
		&EvaluateExecutor{env: env},
		&ContactCampaignExecutor{env: env},
		&ReportExecutor{env: env},
	} {
		r.handlers[h.Type()] = h
	}
	r.handlers[task.TypeContactInitial] = contact
	return r
}

// Get returns the handler for a task type.
func (r *Registry) Get(typ task.Type) (Handler, error) {
	h, ok := r.handlers[typ]
	if !ok {
		return nil, errors.Newf("no handler registered for task type %s", typ)
	}
	return h, nil
}
