package commands

import (
	"database/sql"
	"time"

	"github.com/fieldops/missiond/campaign"
	"github.com/fieldops/missiond/client"
	"github.com/fieldops/missiond/config"
	"github.com/fieldops/missiond/db"
	"github.com/fieldops/missiond/errors"
	"github.com/fieldops/missiond/lead"
	"github.com/fieldops/missiond/logger"
	"github.com/fieldops/missiond/mission"
	"github.com/fieldops/missiond/notify"
	"github.com/fieldops/missiond/pipeline"
	"github.com/fieldops/missiond/quota"
	"github.com/fieldops/missiond/sendtime"
	"github.com/fieldops/missiond/task"
	"github.com/fieldops/missiond/tick"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	tasks    *task.Store
	missions *mission.Store
	leads    *lead.Store
	quota    *quota.Governor
	driver   *tick.Driver
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// openApp loads config, opens and migrates the database, and wires the full
// pipeline environment.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.Named("app")
	conn, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn, log); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	tasks := task.NewStore(conn)
	missions := mission.NewStore(conn)
	leads := lead.NewStore(conn)
	campaigns := campaign.NewStore(conn)
	governor := quota.NewGovernor(conn)

	mailer := client.NewMailer(cfg.Services.Mail)
	notifier := notify.New(mailer, cfg.Notify.FromAddress, cfg.Notify.OperatorEmail)

	env := &pipeline.Env{
		Tasks:     tasks,
		Missions:  missions,
		Campaigns: campaigns,
		Leads:     leads,
		Quota:     governor,
		SendTimes: sendtime.New(cfg.SendTime.TargetHour, cfg.SendTime.JitterMinutes, cfg.SendTime.DefaultUTCOffset),

		Searcher:   client.NewSearcher(cfg.Services.Search),
		Enricher:   client.NewEnricher(cfg.Services.Enrich),
		Researcher: client.NewResearcher(cfg.Services.Research),
		Mailer:     mailer,
		Notifier:   notifier,

		DefaultDailySearches: cfg.Quota.DefaultDailySearchExecutions,
		EngagementThreshold:  cfg.Evaluate.EngagementThreshold,
		FromAddress:          cfg.Notify.FromAddress,
	}

	driver := tick.NewDriver(conn, tasks, missions, leads,
		pipeline.NewRegistry(env), notifier,
		cfg.Tick.BatchSize,
		time.Duration(cfg.Evaluate.DwellHours)*time.Hour,
		nil)

	return &app{
		cfg:      cfg,
		db:       conn,
		tasks:    tasks,
		missions: missions,
		leads:    leads,
		quota:    governor,
		driver:   driver,
	}, nil
}
