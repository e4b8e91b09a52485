// internal/domain/crowd/analyzer.go

package crowd

import (
	"context"
	"time"
)

// Analyzer produces crowd verdicts for locations.
type Analyzer interface {
	// Analyze runs the full pipeline for a location: aggregate evidence,
	// classify it, and expand nearby points of interest.
	Analyze(ctx context.Context, q Query) (*Verdict, error)

	// Snapshot runs aggregation and classification only, skipping the
	// neighborhood expansion. Used by the batch updater.
	Snapshot(ctx context.Context, q Query) (*Verdict, error)
}

// SchedulerStatus describes the scheduler's current configuration.
// IntervalMinutes is omitted while the scheduler is stopped.
type SchedulerStatus struct {
	IsRunning       bool `json:"isRunning"`
	IntervalMinutes int  `json:"intervalMinutes,omitempty"`
}

// Scheduler re-runs the full-batch crowd update on a fixed interval.
type Scheduler interface {
	// Start arms the repeating timer and triggers one detached initial run.
	// Calling Start while already running is a no-op.
	Start(interval time.Duration)

	// Stop cancels the timer. Calling Stop while stopped is a no-op.
	Stop()

	// RunManualUpdate executes one batch update outside the timer cadence.
	// Unlike scheduled runs, its error propagates to the caller.
	RunManualUpdate(ctx context.Context) error

	// Status returns the current scheduler state.
	Status() SchedulerStatus
}
