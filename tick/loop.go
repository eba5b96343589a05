package tick

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/missiond/logger"
	"github.com/fieldops/missiond/sym"
)

// metricsEvery controls how often the loop logs a memory snapshot.
const metricsEvery = 60

// LoopConfig tunes the serve loop.
type LoopConfig struct {
	Interval        time.Duration // time between ticks
	StaleProcessing time.Duration // processing tasks older than this are recovered at startup
	Retention       time.Duration // terminal tasks older than this are cleaned up daily
	RecoveryLimit   int           // max tasks recovered per startup pass
}

// Loop runs the driver on a fixed interval until stopped.
type Loop struct {
	driver *Driver
	cfg    LoopConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zap.SugaredLogger

	mu         sync.Mutex
	lastTickAt time.Time
	tickCount  int64
}

// NewLoop creates a serve loop around the driver.
func NewLoop(ctx context.Context, driver *Driver, cfg LoopConfig) *Loop {
	loopCtx, cancel := context.WithCancel(ctx)
	return &Loop{
		driver: driver,
		cfg:    cfg,
		ctx:    loopCtx,
		cancel: cancel,
		log:    logger.Named("tick"),
	}
}

// Start recovers stale tasks left behind by a crashed driver, then begins
// ticking.
func (l *Loop) Start() {
	recovered, err := l.driver.tasks.RecoverStale(l.cfg.StaleProcessing, l.cfg.RecoveryLimit)
	if err != nil {
		l.log.Warnw("stale task recovery failed", "error", err)
	} else if recovered > 0 {
		l.log.Infow(sym.Task+" stale tasks recovered", "count", recovered)
	}

	l.wg.Add(1)
	go l.run()
	l.log.Infow(sym.Tick+" tick loop started", "interval", l.cfg.Interval)
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (l *Loop) Stop() {
	l.cancel()
	l.wg.Wait()
	l.log.Infow(sym.Tick + " tick loop stopped")
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	var lastCleanup time.Time
	for {
		select {
		case <-l.ctx.Done():
			return
		case tickTime := <-ticker.C:
			l.mu.Lock()
			l.lastTickAt = tickTime
			l.tickCount++
			count := l.tickCount
			l.mu.Unlock()

			summary, err := l.driver.RunOnce(l.ctx)
			if err != nil {
				l.log.Warnw("tick error", "error", err, "tick", count)
				continue
			}
			if summary.Claimed > 0 || summary.Scheduled > 0 || summary.Promoted > 0 {
				l.log.Infow(sym.Tick+" tick",
					"scheduled", summary.Scheduled,
					"claimed", summary.Claimed,
					"completed", summary.Completed,
					"failed", summary.Failed,
					"promoted", summary.Promoted)
			}

			if count%metricsEvery == 0 {
				l.logMetrics()
			}
			if l.cfg.Retention > 0 && tickTime.Sub(lastCleanup) >= 24*time.Hour {
				lastCleanup = tickTime
				l.cleanup()
			}
		}
	}
}

func (l *Loop) logMetrics() {
	snap, err := readMemory()
	if err != nil {
		l.log.Debugw("memory snapshot unavailable", "error", err)
		return
	}
	stats, err := l.driver.tasks.GetStats()
	if err != nil {
		l.log.Warnw("failed to get task stats", "error", err)
		return
	}
	l.log.Infow(sym.Tick+" driver health",
		"pending", stats.Pending,
		"processing", stats.Processing,
		"completed", stats.Completed,
		"failed", stats.Failed,
		"mem_used_gb", snap.UsedGB,
		"mem_total_gb", snap.TotalGB,
		"mem_percent", snap.Percent)
}

func (l *Loop) cleanup() {
	removed, err := l.driver.tasks.CleanupOld(l.cfg.Retention)
	if err != nil {
		l.log.Warnw("task cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		l.log.Infow(sym.DB+" old tasks cleaned up", "removed", removed, "retention", l.cfg.Retention)
	}
}

// Stats exposes loop counters for the status surface.
func (l *Loop) Stats() (lastTickAt time.Time, ticks int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastTickAt, l.tickCount
}
