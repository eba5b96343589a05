package config

import (
	"github.com/Masterminds/semver/v3"

	"github.com/fieldops/missiond/errors"
)

// Validate checks a loaded configuration for values the orchestrator cannot
// run with. It is called by Load and LoadFromFile before the config is
// handed out.
func Validate(cfg *Config) error {
	if cfg.SchemaVersion != "" {
		fileVer, err := semver.NewVersion(cfg.SchemaVersion)
		if err != nil {
			return errors.Wrapf(err, "invalid schema_version %q", cfg.SchemaVersion)
		}
		minVer := semver.MustParse(MinSchemaVersion)
		if fileVer.LessThan(minVer) {
			return errors.Newf("config schema_version %s is older than minimum supported %s",
				cfg.SchemaVersion, MinSchemaVersion)
		}
	}

	if cfg.Tick.BatchSize <= 0 {
		return errors.Newf("tick.batch_size must be positive, got %d", cfg.Tick.BatchSize)
	}
	if cfg.Tick.IntervalSeconds <= 0 {
		return errors.Newf("tick.interval_seconds must be positive, got %d", cfg.Tick.IntervalSeconds)
	}

	if cfg.SendTime.TargetHour < 0 || cfg.SendTime.TargetHour > 23 {
		return errors.Newf("send_time.target_hour must be 0-23, got %d", cfg.SendTime.TargetHour)
	}
	if cfg.SendTime.JitterMinutes < 0 {
		return errors.Newf("send_time.jitter_minutes must not be negative, got %d", cfg.SendTime.JitterMinutes)
	}

	if cfg.Evaluate.DwellHours <= 0 {
		return errors.Newf("evaluate.dwell_hours must be positive, got %d", cfg.Evaluate.DwellHours)
	}

	return nil
}
