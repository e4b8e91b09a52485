// internal/server/handlers/scheduler.go

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"crowdwatch/internal/domain/crowd"
)

// SchedulerHandler handles scheduler control HTTP requests
type SchedulerHandler struct {
	scheduler       crowd.Scheduler
	defaultInterval time.Duration
	logger          zerolog.Logger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler crowd.Scheduler, defaultInterval time.Duration, logger zerolog.Logger) *SchedulerHandler {
	if defaultInterval <= 0 {
		defaultInterval = 15 * time.Minute
	}

	return &SchedulerHandler{
		scheduler:       scheduler,
		defaultInterval: defaultInterval,
		logger:          logger,
	}
}

// GetStatus returns the scheduler's current state.
func (h *SchedulerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.scheduler.Status())
}

// Start starts the scheduler. The request body may carry an interval in
// minutes; anything missing or unparseable falls back to the default.
func (h *SchedulerHandler) Start(w http.ResponseWriter, r *http.Request) {
	interval := h.defaultInterval

	var body struct {
		IntervalMinutes int `json:"intervalMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.IntervalMinutes > 0 {
		interval = time.Duration(body.IntervalMinutes) * time.Minute
	}

	h.scheduler.Start(interval)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Scheduler started",
		"status":  h.scheduler.Status(),
	})
}

// Stop stops the scheduler.
func (h *SchedulerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Scheduler stopped",
		"status":  h.scheduler.Status(),
	})
}

// Update forces one manual batch run. Its error propagates to the caller,
// unlike scheduled runs which only log.
func (h *SchedulerHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.RunManualUpdate(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("manual update failed")
		respondWithJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Manual update failed",
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Manual update completed",
	})
}
