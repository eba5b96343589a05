// Package errors provides error handling for missiond.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Structured details surfaced in logs and alerts
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrMissionNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
)

// Sentinel errors for use across missiond.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrMissionNotFound indicates a task referenced a mission that no longer exists.
	// Fatal for the referencing task: the entity it points at is gone.
	ErrMissionNotFound = New("mission not found")

	// ErrCampaignNotFound indicates a CONTACT_CAMPAIGN task named a campaign
	// that was never generated. Fatal for the referencing task.
	ErrCampaignNotFound = New("campaign not found")

	// ErrTaskNotFound indicates a task id has no row in the task table
	ErrTaskNotFound = New("task not found")

	// ErrInvalidPayload indicates a task payload does not carry the variant
	// its task type requires
	ErrInvalidPayload = New("invalid task payload")
)

// IsNotFoundError checks if an error is or wraps any not-found sentinel.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrNotFound) || Is(err, ErrMissionNotFound) ||
		Is(err, ErrCampaignNotFound) || Is(err, ErrTaskNotFound)
}
