// internal/service/scheduler/scheduler.go

package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crowdwatch/internal/domain/crowd"
)

// CrowdAnalyzer is the slice of the analyzer the batch updater needs.
type CrowdAnalyzer interface {
	Snapshot(ctx context.Context, q crowd.Query) (*crowd.Verdict, error)
}

// VerdictStore persists batch verdicts for later reads.
type VerdictStore interface {
	SaveVerdict(ctx context.Context, v crowd.Verdict) error
}

// Publisher publishes crowd-update events. *nats.Conn satisfies this.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Config contains configuration for the scheduler
type Config struct {
	// Locations is the fixed list of popular spots refreshed each run.
	Locations []string

	// EventsTopic is the subject prefix for published update events.
	EventsTopic string
}

// Scheduler re-runs the full-batch crowd update on a fixed interval. One
// instance exists per process, owned by the composition root. The running
// flag and timer handle are its only mutable state and are guarded so two
// near-simultaneous Start calls can never arm two timers.
type Scheduler struct {
	analyzer CrowdAnalyzer
	store    VerdictStore
	events   Publisher
	config   Config
	logger   zerolog.Logger

	mu       sync.Mutex
	running  bool
	interval time.Duration
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
}

// New creates a new scheduler. Store and events may be nil; verdicts are
// then neither persisted nor published, only logged.
func New(analyzer CrowdAnalyzer, store VerdictStore, events Publisher, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.EventsTopic == "" {
		cfg.EventsTopic = "crowd"
	}

	return &Scheduler{
		analyzer: analyzer,
		store:    store,
		events:   events,
		config:   cfg,
		logger:   logger,
	}
}

// Start arms the repeating timer and fires one detached initial run whose
// failure is logged, not propagated. Calling Start while already running
// is a no-op.
func (s *Scheduler) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Info().Msg("scheduler is already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	s.running = true
	s.interval = interval
	s.cancel = cancel
	s.wg = wg

	s.logger.Info().Dur("interval", interval).Msg("starting crowd data scheduler")

	wg.Add(1)
	go s.run(ctx, wg, interval)

	// Initial run, detached from the Start call.
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info().Msg("running initial crowd data update")
		if err := s.updateBatch(ctx); err != nil {
			s.logger.Error().Err(err).Msg("initial crowd data update failed")
			return
		}
		s.logger.Info().Msg("initial crowd data update completed")
	}()
}

// run drives the timer until the scheduler is stopped. Scheduled-run
// failures are logged only; the timer keeps running for the next tick.
func (s *Scheduler) run(ctx context.Context, wg *sync.WaitGroup, interval time.Duration) {
	defer wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logger.Info().Msg("running scheduled crowd data update")
			if err := s.updateBatch(ctx); err != nil {
				s.logger.Error().Err(err).Msg("scheduled crowd data update failed")
				continue
			}
			s.logger.Info().Msg("scheduled crowd data update completed")
		}
	}
}

// Stop cancels the timer and waits for in-flight runs to settle. Calling
// Stop while stopped is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	cancel := s.cancel
	wg := s.wg
	s.running = false
	s.interval = 0
	s.cancel = nil
	s.wg = nil
	s.mu.Unlock()

	cancel()
	wg.Wait()

	s.logger.Info().Msg("crowd data scheduler stopped")
}

// RunManualUpdate executes one batch update outside the timer cadence.
// Unlike scheduled runs, its error propagates so an operator-triggered
// action gets feedback.
func (s *Scheduler) RunManualUpdate(ctx context.Context) error {
	s.logger.Info().Msg("running manual crowd data update")

	if err := s.updateBatch(ctx); err != nil {
		s.logger.Error().Err(err).Msg("manual crowd data update failed")
		return err
	}

	s.logger.Info().Msg("manual crowd data update completed")
	return nil
}

// Status returns the current scheduler state. IntervalMinutes is unset
// while stopped regardless of the last-used value.
func (s *Scheduler) Status() crowd.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := crowd.SchedulerStatus{IsRunning: s.running}
	if s.running {
		status.IntervalMinutes = int(s.interval.Minutes())
	}

	return status
}

// updateBatch refreshes every configured location. Per-location failures
// are logged and skipped; the batch only errors when no location at all
// could be updated.
func (s *Scheduler) updateBatch(ctx context.Context) error {
	runID := uuid.New().String()

	var errs []error
	updated := 0

	for _, location := range s.config.Locations {
		verdict, err := s.analyzer.Snapshot(ctx, crowd.Query{Name: location})
		if err != nil {
			s.logger.Error().Err(err).Str("location", location).Msg("error updating crowd data")
			errs = append(errs, fmt.Errorf("%s: %w", location, err))
			continue
		}

		if s.store != nil {
			if err := s.store.SaveVerdict(ctx, *verdict); err != nil {
				s.logger.Warn().Err(err).Str("location", location).Msg("error saving crowd verdict")
			}
		}

		s.publishVerdict(runID, *verdict)

		s.logger.Info().
			Str("location", location).
			Str("crowd_level", string(verdict.Level)).
			Msg("updated crowd data")
		updated++
	}

	s.publishBatchCompleted(runID, updated, len(errs))

	if updated == 0 && len(errs) > 0 {
		return fmt.Errorf("crowd update failed for all %d locations: %w", len(errs), errors.Join(errs...))
	}

	return nil
}

// publishVerdict publishes one updated verdict on the event bus.
func (s *Scheduler) publishVerdict(runID string, v crowd.Verdict) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn().Err(err).Str("location", v.Location).Msg("error marshaling verdict event")
		return
	}

	subject := fmt.Sprintf("%s.updated.%s", s.config.EventsTopic, subjectToken(v.Location))
	if err := s.events.Publish(subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("error publishing verdict event")
	}
}

// publishBatchCompleted publishes a summary event for one batch run.
func (s *Scheduler) publishBatchCompleted(runID string, updated, failed int) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"runId":       runID,
		"updated":     updated,
		"failed":      failed,
		"completedAt": time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("error marshaling batch event")
		return
	}

	subject := s.config.EventsTopic + ".batch.completed"
	if err := s.events.Publish(subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("error publishing batch event")
	}
}

// subjectToken normalizes a location name into a NATS subject token.
func subjectToken(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	token := strings.TrimSuffix(b.String(), "-")
	if token == "" {
		return "unknown"
	}
	return token
}
