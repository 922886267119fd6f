package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a scrape run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSuccess   RunStatus = "SUCCESS"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

func (s RunStatus) String() string { return string(s) }

func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSuccess, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// ScrapeRun is the audit record of one job runner cycle.
// At most one run holds RunStatusRunning at any instant; the scheduler's
// state machine enforces this.
type ScrapeRun struct {
	ID            uuid.UUID
	Status        RunStatus
	GamesScraped  int
	NewGamesFound int
	// Errors aggregates per-game failure messages; empty when clean.
	Errors      string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Duration returns the elapsed wall time of a completed run,
// or zero if the run has not completed.
func (r ScrapeRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
