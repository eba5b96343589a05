package config

import (
	"github.com/spf13/viper"
)

// CurrentSchemaVersion is written to new config files and checked against
// the minimum supported version on load.
const CurrentSchemaVersion = "1.1.0"

// MinSchemaVersion is the oldest config file layout this build can read.
const MinSchemaVersion = "1.0.0"

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("schema_version", CurrentSchemaVersion)

	// Database defaults
	v.SetDefault("database.path", "missiond.db")

	// Tick driver defaults
	v.SetDefault("tick.interval_seconds", 60) // external trigger cadence
	v.SetDefault("tick.batch_size", 5)        // tasks claimed per tick
	v.SetDefault("tick.stale_processing_minutes", 30)
	v.SetDefault("tick.retention_days", 30)

	// Quota defaults (applied when org_settings has no row for the org)
	v.SetDefault("quota.default_daily_search_executions", 3)

	// Send-time scheduler heuristic
	v.SetDefault("send_time.target_hour", 8) // recipient-local morning
	v.SetDefault("send_time.jitter_minutes", 30)
	v.SetDefault("send_time.default_utc_offset", -5)

	// Promotion scan / evaluation
	v.SetDefault("evaluate.dwell_hours", 48)
	v.SetDefault("evaluate.engagement_threshold", 1)

	// External collaborator services
	for _, svc := range []string{"search", "enrich", "research", "mail"} {
		v.SetDefault("services."+svc+".timeout_seconds", 30)
		v.SetDefault("services."+svc+".rate_per_minute", 30.0)
	}

	// Notifications
	v.SetDefault("notify.operator_email", "")
	v.SetDefault("notify.from_address", "missiond@localhost")

	// Logging
	v.SetDefault("log.json", false)
}
