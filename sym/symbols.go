// Package sym defines canonical log glyphs for missiond subsystems.
// These symbols are stable across CLI output and structured logs.
package sym

// System markers used as log prefixes.
const (
	Tick    = "❉" // tick driver heartbeat
	DB      = "⛁" // database operations
	Task    = "▣" // task lifecycle transitions
	Quota   = "⟠" // quota governor decisions
	Mail    = "✉" // outbound email delivery
	Search  = "⌕" // lead search
	Mission = "⚑" // mission lifecycle
	Alert   = "‼" // operator notifications
)
