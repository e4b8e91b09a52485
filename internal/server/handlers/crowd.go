// internal/server/handlers/crowd.go

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"crowdwatch/internal/domain/crowd"
)

// VerdictReader serves cached batch verdicts.
type VerdictReader interface {
	LatestVerdicts(ctx context.Context) ([]crowd.Verdict, error)
	GetVerdict(ctx context.Context, location string) (*crowd.Verdict, error)
}

// analysisResponse is the envelope every crowd endpoint responds with.
// Success is always set; exactly one of Data and Error is present.
type analysisResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CrowdHandler handles crowd-analysis HTTP requests
type CrowdHandler struct {
	analyzer crowd.Analyzer
	verdicts VerdictReader
	logger   zerolog.Logger
}

// NewCrowdHandler creates a new crowd handler
func NewCrowdHandler(analyzer crowd.Analyzer, verdicts VerdictReader, logger zerolog.Logger) *CrowdHandler {
	return &CrowdHandler{
		analyzer: analyzer,
		verdicts: verdicts,
		logger:   logger,
	}
}

// GetAnalysis runs a live crowd analysis for the requested location. The
// location comes from the URL path or the query string; coordinate-only
// requests are accepted.
func (h *CrowdHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	verdict, err := h.analyzer.Analyze(r.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, crowd.ErrMissingLocation):
			respondWithJSON(w, http.StatusBadRequest, analysisResponse{
				Success: false,
				Error:   "Location parameter or coordinates are required",
			})
		case errors.Is(err, crowd.ErrNoEvidence):
			respondWithJSON(w, http.StatusNotFound, analysisResponse{
				Success: false,
				Error:   "No data found for the specified location.",
			})
		default:
			h.logger.Error().Err(err).Str("location", query.DisplayName()).Msg("crowd analysis failed")
			respondWithJSON(w, http.StatusInternalServerError, analysisResponse{
				Success: false,
				Error:   "Failed to analyze crowd data",
			})
		}
		return
	}

	respondWithJSON(w, http.StatusOK, analysisResponse{Success: true, Data: verdict})
}

// GetLatest returns the cached verdicts from the most recent batch runs.
func (h *CrowdHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	verdicts, err := h.verdicts.LatestVerdicts(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("error reading cached verdicts")
		respondWithJSON(w, http.StatusInternalServerError, analysisResponse{
			Success: false,
			Error:   "Failed to read crowd data",
		})
		return
	}

	respondWithJSON(w, http.StatusOK, analysisResponse{Success: true, Data: verdicts})
}

// GetLatestByLocation returns the cached verdict for one location.
func (h *CrowdHandler) GetLatestByLocation(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	if strings.TrimSpace(location) == "" {
		respondWithJSON(w, http.StatusBadRequest, analysisResponse{
			Success: false,
			Error:   "Location parameter or coordinates are required",
		})
		return
	}

	verdict, err := h.verdicts.GetVerdict(r.Context(), location)
	if err != nil {
		h.logger.Error().Err(err).Str("location", location).Msg("error reading cached verdict")
		respondWithJSON(w, http.StatusInternalServerError, analysisResponse{
			Success: false,
			Error:   "Failed to read crowd data",
		})
		return
	}
	if verdict == nil {
		respondWithJSON(w, http.StatusNotFound, analysisResponse{
			Success: false,
			Error:   "No data found for the specified location.",
		})
		return
	}

	respondWithJSON(w, http.StatusOK, analysisResponse{Success: true, Data: verdict})
}

// parseQuery builds the location query from the request. It writes the
// validation error response itself and reports whether parsing succeeded,
// so no source call happens for malformed input.
func (h *CrowdHandler) parseQuery(w http.ResponseWriter, r *http.Request) (crowd.Query, bool) {
	query := crowd.Query{
		Name: chi.URLParam(r, "location"),
	}
	if query.Name == "" {
		query.Name = r.URL.Query().Get("location")
	}

	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	if latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			respondWithJSON(w, http.StatusBadRequest, analysisResponse{
				Success: false,
				Error:   "Invalid coordinates",
			})
			return crowd.Query{}, false
		}
		query.Coordinates = &crowd.Coordinates{Latitude: lat, Longitude: lng}
	}

	if radiusStr := r.URL.Query().Get("radius"); radiusStr != "" {
		if radius, err := strconv.Atoi(radiusStr); err == nil {
			query.RadiusMeters = radius
		}
	}

	if err := query.Validate(); err != nil {
		respondWithJSON(w, http.StatusBadRequest, analysisResponse{
			Success: false,
			Error:   "Location parameter or coordinates are required",
		})
		return crowd.Query{}, false
	}

	return query, true
}
