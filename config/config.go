// Package config loads and validates missiond configuration.
//
// Configuration is read from missiond.toml (working directory or
// ~/.config/missiond/), with MISSIOND_* environment variables taking
// precedence. Limits can be hot-reloaded via the fsnotify watcher and
// written back with rotating backups.
package config

// Config is the root missiond configuration.
type Config struct {
	SchemaVersion string         `mapstructure:"schema_version"`
	Database      DatabaseConfig `mapstructure:"database"`
	Tick          TickConfig     `mapstructure:"tick"`
	Quota         QuotaConfig    `mapstructure:"quota"`
	SendTime      SendTimeConfig `mapstructure:"send_time"`
	Evaluate      EvaluateConfig `mapstructure:"evaluate"`
	Services      ServicesConfig `mapstructure:"services"`
	Notify        NotifyConfig   `mapstructure:"notify"`
	Log           LogConfig      `mapstructure:"log"`
}

// DatabaseConfig controls the SQLite store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// TickConfig controls the tick driver.
type TickConfig struct {
	IntervalSeconds        int `mapstructure:"interval_seconds"`
	BatchSize              int `mapstructure:"batch_size"`
	StaleProcessingMinutes int `mapstructure:"stale_processing_minutes"`
	RetentionDays          int `mapstructure:"retention_days"`
}

// QuotaConfig holds org-level defaults applied when org_settings has no row.
type QuotaConfig struct {
	DefaultDailySearchExecutions int `mapstructure:"default_daily_search_executions"`
}

// SendTimeConfig controls the send-time scheduler heuristic.
type SendTimeConfig struct {
	TargetHour       int `mapstructure:"target_hour"`
	JitterMinutes    int `mapstructure:"jitter_minutes"`
	DefaultUTCOffset int `mapstructure:"default_utc_offset"`
}

// EvaluateConfig controls the promotion scan and EVALUATE classification.
type EvaluateConfig struct {
	DwellHours          int `mapstructure:"dwell_hours"`
	EngagementThreshold int `mapstructure:"engagement_threshold"`
}

// ServiceConfig is one external collaborator endpoint.
type ServiceConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RatePerMinute  float64 `mapstructure:"rate_per_minute"`
}

// ServicesConfig groups the external collaborator endpoints.
type ServicesConfig struct {
	Search   ServiceConfig `mapstructure:"search"`
	Enrich   ServiceConfig `mapstructure:"enrich"`
	Research ServiceConfig `mapstructure:"research"`
	Mail     ServiceConfig `mapstructure:"mail"`
}

// NotifyConfig controls operator notifications.
type NotifyConfig struct {
	OperatorEmail string `mapstructure:"operator_email"`
	FromAddress   string `mapstructure:"from_address"`
}

// LogConfig controls logging output.
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}
