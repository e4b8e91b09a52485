// internal/server/handlers/crowd_test.go

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdwatch/internal/domain/crowd"
)

type mockAnalyzer struct {
	verdict *crowd.Verdict
	err     error
	calls   int
	lastQ   crowd.Query
}

func (m *mockAnalyzer) Analyze(ctx context.Context, q crowd.Query) (*crowd.Verdict, error) {
	m.calls++
	m.lastQ = q
	return m.verdict, m.err
}

func (m *mockAnalyzer) Snapshot(ctx context.Context, q crowd.Query) (*crowd.Verdict, error) {
	m.calls++
	m.lastQ = q
	return m.verdict, m.err
}

type mockVerdictReader struct {
	verdicts []crowd.Verdict
	verdict  *crowd.Verdict
	err      error
}

func (m *mockVerdictReader) LatestVerdicts(ctx context.Context) ([]crowd.Verdict, error) {
	return m.verdicts, m.err
}

func (m *mockVerdictReader) GetVerdict(ctx context.Context, location string) (*crowd.Verdict, error) {
	return m.verdict, m.err
}

func newCrowdRouter(analyzer crowd.Analyzer, verdicts VerdictReader) *chi.Mux {
	h := NewCrowdHandler(analyzer, verdicts, zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/api/v1/crowd/analysis", h.GetAnalysis)
	r.Get("/api/v1/crowd/analysis/{location}", h.GetAnalysis)
	r.Get("/api/v1/crowd/latest", h.GetLatest)
	r.Get("/api/v1/crowd/latest/{location}", h.GetLatestByLocation)
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) analysisResponse {
	t.Helper()
	var envelope analysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func sampleVerdict() *crowd.Verdict {
	return &crowd.Verdict{
		Location:    "Tokyo Tower",
		Level:       crowd.LevelHigh,
		Confidence:  0.85,
		Sources:     []string{crowd.SourcePlaces, crowd.SourceSocial},
		LastUpdated: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestGetAnalysis(t *testing.T) {
	analyzer := &mockAnalyzer{verdict: sampleVerdict()}
	router := newCrowdRouter(analyzer, &mockVerdictReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/analysis/Tokyo%20Tower", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)
	assert.Empty(t, envelope.Error)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Tokyo Tower", data["location"])
	assert.Equal(t, "high", data["crowdLevel"])
	assert.Equal(t, 0.85, data["confidence"])

	assert.Equal(t, "Tokyo Tower", analyzer.lastQ.Name)
}

func TestGetAnalysisFromQueryString(t *testing.T) {
	analyzer := &mockAnalyzer{verdict: sampleVerdict()}
	router := newCrowdRouter(analyzer, &mockVerdictReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/analysis?location=Ginza&radius=800", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ginza", analyzer.lastQ.Name)
	assert.Equal(t, 800, analyzer.lastQ.RadiusMeters)
}

func TestGetAnalysisWithCoordinates(t *testing.T) {
	analyzer := &mockAnalyzer{verdict: sampleVerdict()}
	router := newCrowdRouter(analyzer, &mockVerdictReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/analysis?lat=35.6586&lng=139.7454", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, analyzer.lastQ.Coordinates)
	assert.Equal(t, 35.6586, analyzer.lastQ.Coordinates.Latitude)
	assert.Equal(t, 139.7454, analyzer.lastQ.Coordinates.Longitude)
}

func TestGetAnalysisRejectsMissingLocation(t *testing.T) {
	analyzer := &mockAnalyzer{verdict: sampleVerdict()}
	router := newCrowdRouter(analyzer, &mockVerdictReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/analysis", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, "Location parameter or coordinates are required", envelope.Error)
	assert.Zero(t, analyzer.calls, "no analysis for a request without a location")
}

func TestGetAnalysisRejectsMalformedCoordinates(t *testing.T) {
	analyzer := &mockAnalyzer{verdict: sampleVerdict()}
	router := newCrowdRouter(analyzer, &mockVerdictReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/analysis?lat=north&lng=139.7", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, "Invalid coordinates", envelope.Error)
	assert.Zero(t, analyzer.calls)
}

func TestGetAnalysisMapsNoEvidenceToNotFound(t *testing.T) {
	analyzer := &mockAnalyzer{err: crowd.ErrNoEvidence}
	router := newCrowdRouter(analyzer, &mockVerdictReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/analysis/Nowhere", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, "No data found for the specified location.", envelope.Error)
}

func TestGetAnalysisMapsUnknownErrorToInternal(t *testing.T) {
	analyzer := &mockAnalyzer{err: errors.New("pool exhausted")}
	router := newCrowdRouter(analyzer, &mockVerdictReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/analysis/Ginza", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, "Failed to analyze crowd data", envelope.Error)
}

func TestGetLatest(t *testing.T) {
	reader := &mockVerdictReader{verdicts: []crowd.Verdict{*sampleVerdict()}}
	router := newCrowdRouter(&mockAnalyzer{}, reader)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)

	data, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 1)
}

func TestGetLatestByLocation(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		reader := &mockVerdictReader{verdict: sampleVerdict()}
		router := newCrowdRouter(&mockAnalyzer{}, reader)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/latest/Tokyo%20Tower", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeEnvelope(t, rec).Success)
	})

	t.Run("not cached", func(t *testing.T) {
		router := newCrowdRouter(&mockAnalyzer{}, &mockVerdictReader{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/latest/Nowhere", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		envelope := decodeEnvelope(t, rec)
		assert.False(t, envelope.Success)
		assert.Equal(t, "No data found for the specified location.", envelope.Error)
	})

	t.Run("store failure", func(t *testing.T) {
		reader := &mockVerdictReader{err: errors.New("db down")}
		router := newCrowdRouter(&mockAnalyzer{}, reader)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crowd/latest/Ginza", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to read crowd data", decodeEnvelope(t, rec).Error)
	})
}
