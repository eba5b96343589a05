// Package tick drives the pipeline. Every invocation schedules the day's
// mission tasks idempotently, claims and fans out a bounded batch of due
// tasks, and promotes contacted leads that sat in pending evaluation past
// the dwell threshold. Multiple drivers may overlap safely: every execution
// goes through the task store's atomic claim.
package tick

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/missiond/errors"
	"github.com/fieldops/missiond/lead"
	"github.com/fieldops/missiond/logger"
	"github.com/fieldops/missiond/mission"
	"github.com/fieldops/missiond/notify"
	"github.com/fieldops/missiond/pipeline"
	"github.com/fieldops/missiond/sym"
	"github.com/fieldops/missiond/task"
)

// promotionBatchLimit caps how many contacted leads one scan pulls.
const promotionBatchLimit = 100

// Driver runs one tick of orchestration work.
type Driver struct {
	db       *sql.DB
	tasks    *task.Store
	missions *mission.Store
	leads    *lead.Store
	registry *pipeline.Registry
	notifier *notify.Notifier

	// batchSize and dwell may be retuned by a config reload between ticks.
	mu        sync.RWMutex
	batchSize int
	dwell     time.Duration

	clock func() time.Time
	log   *zap.SugaredLogger
}

// NewDriver wires a tick driver. clock may be nil for wall time.
func NewDriver(db *sql.DB, tasks *task.Store, missions *mission.Store, leads *lead.Store,
	registry *pipeline.Registry, notifier *notify.Notifier,
	batchSize int, dwell time.Duration, clock func() time.Time) *Driver {
	if clock == nil {
		clock = time.Now
	}
	return &Driver{
		db:        db,
		tasks:     tasks,
		missions:  missions,
		leads:     leads,
		registry:  registry,
		notifier:  notifier,
		batchSize: batchSize,
		dwell:     dwell,
		clock:     clock,
		log:       logger.Named("tick"),
	}
}

// Retune applies reloaded limits that are safe to change between ticks.
func (d *Driver) Retune(batchSize int, dwell time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batchSize = batchSize
	d.dwell = dwell
}

func (d *Driver) limits() (batchSize int, dwell time.Duration) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.batchSize, d.dwell
}

// Summary reports what one tick did.
type Summary struct {
	Scheduled int `json:"scheduled"`
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Promoted  int `json:"promoted"`
}

// RunOnce performs one full tick. Step failures are logged and do not stop
// the remaining steps; only a broken task listing aborts the tick.
func (d *Driver) RunOnce(ctx context.Context) (*Summary, error) {
	now := d.clock().UTC()
	summary := &Summary{}

	scheduled, err := d.ScheduleDailyTasks(now)
	if err != nil {
		d.log.Warnw("daily scheduling failed", "error", err)
	}
	summary.Scheduled = scheduled

	claimed, completed, failed, err := d.processBatch(ctx, now)
	if err != nil {
		return summary, err
	}
	summary.Claimed = claimed
	summary.Completed = completed
	summary.Failed = failed

	promoted, err := d.PromotionScan(now)
	if err != nil {
		d.log.Warnw("promotion scan failed", "error", err)
	}
	summary.Promoted = promoted

	return summary, nil
}

// ScheduleDailyTasks creates at most one pipeline kickoff task per active
// mission per calendar day, plus one report task per ISO week. Idempotency
// lives in the date-scoped key, not in this driver, so overlapping drivers
// converge on the same rows.
func (d *Driver) ScheduleDailyTasks(now time.Time) (int, error) {
	missions, err := d.missions.ListActive()
	if err != nil {
		return 0, err
	}

	day := now.UTC().Format("2006-01-02")
	year, week := now.UTC().ISOWeek()
	created := 0

	for _, m := range missions {
		typ := task.TypeSearch
		payload := task.Payload{Search: &task.SearchPayload{CampaignName: m.Goal.CampaignName}}
		if m.Goal.CampaignName == "" {
			typ = task.TypeGenerateCampaign
			payload = task.Payload{GenerateCampaign: &task.GenerateCampaignPayload{}}
		}

		t, err := task.New(m.OrgID, m.ID, typ, payload,
			task.WithIdempotencyKey(fmt.Sprintf("daily:%s:%s", m.ID, day)))
		if err != nil {
			d.log.Errorw("failed to build daily task", "mission", m.ID, "error", err)
			continue
		}
		ok, err := d.tasks.Create(t)
		if err != nil {
			d.log.Errorw("failed to create daily task", "mission", m.ID, "error", err)
			continue
		}
		if ok {
			created++
			d.log.Infow(sym.Task+" daily task scheduled", "mission", m.ID, "type", typ, "task", t.ID)
		}

		report, err := task.New(m.OrgID, m.ID, task.TypeGenerateReport,
			task.Payload{Report: &task.ReportPayload{}},
			task.WithIdempotencyKey(fmt.Sprintf("report:%s:%d-W%02d", m.ID, year, week)))
		if err != nil {
			d.log.Errorw("failed to build report task", "mission", m.ID, "error", err)
			continue
		}
		ok, err = d.tasks.Create(report)
		if err != nil {
			d.log.Errorw("failed to create report task", "mission", m.ID, "error", err)
			continue
		}
		if ok {
			created++
		}
	}

	return created, nil
}

// processBatch claims up to batchSize due tasks and executes them
// concurrently. Each task is claimed individually; a lost claim means
// another driver got there first and is not an error.
func (d *Driver) processBatch(ctx context.Context, now time.Time) (claimed, completed, failed int, err error) {
	batchSize, _ := d.limits()
	due, err := d.tasks.ListDue(now, batchSize)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "failed to list due tasks")
	}
	if len(due) == 0 {
		return 0, 0, 0, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, t := range due {
		ok, err := d.tasks.Claim(t.ID, now)
		if err != nil {
			d.log.Errorw("failed to claim task", "task", t.ID, "error", err)
			continue
		}
		if !ok {
			d.log.Debugw("task already claimed elsewhere", "task", t.ID)
			continue
		}
		claimed++

		wg.Add(1)
		go func(t *task.Task) {
			defer wg.Done()
			if d.executeTask(ctx, t) {
				mu.Lock()
				completed++
				mu.Unlock()
			} else {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(t)
	}
	wg.Wait()

	return claimed, completed, failed, nil
}

// executeTask runs one claimed task to a terminal state. Returns true when
// the task completed (including skips), false when it failed.
func (d *Driver) executeTask(ctx context.Context, t *task.Task) bool {
	log := d.log.With("task", t.ID, "type", t.Type, "org", t.OrgID, "mission", t.MissionID)
	started := d.clock()

	handler, err := d.registry.Get(t.Type)
	if err != nil {
		d.failTask(ctx, t, err)
		return false
	}

	res, err := handler.Execute(ctx, t)
	duration := d.clock().Sub(started)
	if err != nil {
		log.Errorw(sym.Alert+" task failed", "error", err, "duration", duration.Round(time.Millisecond))
		d.failTask(ctx, t, err)
		return false
	}

	raw, err := json.Marshal(res)
	if err != nil {
		d.failTask(ctx, t, errors.Wrap(err, "failed to marshal result"))
		return false
	}
	if err := d.tasks.Complete(t.ID, raw); err != nil {
		log.Errorw("failed to mark task completed", "error", err)
		return false
	}

	if res.Skipped {
		log.Infow(sym.Task+" task skipped", "reason", res.Reason, "duration", duration.Round(time.Millisecond))
	} else {
		log.Infow(sym.Task+" task completed", "chained", len(res.ChainedTasks), "duration", duration.Round(time.Millisecond))
	}
	return true
}

func (d *Driver) failTask(ctx context.Context, t *task.Task, taskErr error) {
	if err := d.tasks.Fail(t.ID, taskErr); err != nil {
		d.log.Errorw("failed to mark task failed", "task", t.ID, "error", err)
	}
	if d.notifier != nil {
		d.notifier.TaskFailed(ctx, t, taskErr)
	}
}

// PromotionScan moves contacted leads that dwelled in pending evaluation
// into one EVALUATE task per organization. The status flip and the task
// insert share a transaction so leads are never stranded in evaluating
// without a task, nor re-selected on the next tick.
func (d *Driver) PromotionScan(now time.Time) (int, error) {
	_, dwell := d.limits()
	cutoff := now.Add(-dwell)
	due, err := d.leads.DueForEvaluation(cutoff, promotionBatchLimit)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	byOrg := make(map[string][]string)
	for _, cl := range due {
		byOrg[cl.OrgID] = append(byOrg[cl.OrgID], cl.ID)
	}

	promoted := 0
	for orgID, ids := range byOrg {
		active, err := d.missions.HasActiveForOrg(orgID)
		if err != nil {
			d.log.Errorw("failed to check active missions", "org", orgID, "error", err)
			continue
		}
		if !active {
			continue
		}

		if err := d.promoteOrg(orgID, ids); err != nil {
			d.log.Errorw("failed to promote contacted leads", "org", orgID, "error", err)
			continue
		}
		promoted += len(ids)
		d.log.Infow(sym.Task+" contacted leads promoted to evaluation", "org", orgID, "leads", len(ids))
	}

	return promoted, nil
}

func (d *Driver) promoteOrg(orgID string, contactedLeadIDs []string) error {
	t, err := task.New(orgID, "", task.TypeEvaluate, task.Payload{
		Evaluate: &task.EvaluatePayload{ContactedLeadIDs: contactedLeadIDs},
	})
	if err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin promotion transaction")
	}
	defer tx.Rollback()

	if err := lead.MarkEvaluatingTx(tx, contactedLeadIDs); err != nil {
		return err
	}
	if _, err := d.tasks.CreateTx(tx, t); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit promotion")
}
