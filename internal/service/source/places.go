// internal/service/source/places.go

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"crowdwatch/internal/domain/crowd"
)

// maxReviewSnippets caps the review snippets carried in places evidence.
const maxReviewSnippets = 5

// PlacesConfig contains configuration for the Google Places client
type PlacesConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// PlacesClient fetches place details and reviews from the Google Places API.
// It is an evidence source for the aggregator and the proximity backend for
// the neighborhood expander. Ordinary failures (missing key, network error,
// non-2xx response, empty result set) degrade to absent evidence with a
// logged warning; they are never surfaced to the caller as errors.
type PlacesClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	logger     zerolog.Logger
}

// NewPlacesClient creates a new Google Places client
func NewPlacesClient(cfg PlacesConfig, logger zerolog.Logger) *PlacesClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:     "google-places",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &PlacesClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
		logger:     logger.With().Str("source", "google_places").Logger(),
	}
}

// Name returns the source name as reported in verdict contributors.
func (c *PlacesClient) Name() string {
	return crowd.SourcePlaces
}

// Fetch returns places evidence for the query, or nil when the source is
// unavailable or has nothing for this location.
func (c *PlacesClient) Fetch(ctx context.Context, q crowd.Query) (*crowd.PlacesEvidence, error) {
	if c.apiKey == "" {
		c.logger.Warn().Msg("Google Places API key not configured")
		return nil, nil
	}

	placeID, _, _, err := c.textSearch(ctx, q)
	if err != nil {
		c.logger.Warn().Err(err).Str("location", q.DisplayName()).Msg("places search failed")
		return nil, nil
	}
	if placeID == "" {
		c.logger.Warn().Str("location", q.DisplayName()).Msg("no places found for query")
		return nil, nil
	}

	evidence, err := c.details(ctx, placeID)
	if err != nil {
		c.logger.Warn().Err(err).Str("place_id", placeID).Msg("places details failed")
		return nil, nil
	}

	return evidence, nil
}

// Locate resolves a place name to coordinates via text search.
func (c *PlacesClient) Locate(ctx context.Context, name string) (crowd.Coordinates, error) {
	if c.apiKey == "" {
		return crowd.Coordinates{}, fmt.Errorf("Google Places API key not configured")
	}

	placeID, coords, _, err := c.textSearch(ctx, crowd.Query{Name: name})
	if err != nil {
		return crowd.Coordinates{}, err
	}
	if placeID == "" {
		return crowd.Coordinates{}, fmt.Errorf("no places found for %q", name)
	}

	return coords, nil
}

// Nearby returns the names of points of interest around the given
// coordinates, in provider ranking order.
func (c *PlacesClient) Nearby(ctx context.Context, at crowd.Coordinates, radiusMeters int, categories []string) ([]string, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("Google Places API key not configured")
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", at.Latitude, at.Longitude))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("type", strings.Join(categories, "|"))
	params.Set("key", c.apiKey)

	var decoded placesSearchResponse
	if err := c.getJSON(ctx, c.baseURL+"/nearbysearch/json?"+params.Encode(), &decoded); err != nil {
		return nil, err
	}
	if decoded.Status != "OK" && decoded.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("nearby search returned status %s", decoded.Status)
	}

	names := make([]string, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		if result.Name != "" {
			names = append(names, result.Name)
		}
	}

	return names, nil
}

// textSearch runs a text search and returns the top result's place ID,
// coordinates, and display name.
func (c *PlacesClient) textSearch(ctx context.Context, q crowd.Query) (string, crowd.Coordinates, string, error) {
	params := url.Values{}
	params.Set("query", q.DisplayName())
	params.Set("key", c.apiKey)
	if q.Coordinates != nil {
		params.Set("location", fmt.Sprintf("%f,%f", q.Coordinates.Latitude, q.Coordinates.Longitude))
		if q.RadiusMeters > 0 {
			params.Set("radius", strconv.Itoa(q.RadiusMeters))
		}
	}

	var decoded placesSearchResponse
	if err := c.getJSON(ctx, c.baseURL+"/textsearch/json?"+params.Encode(), &decoded); err != nil {
		return "", crowd.Coordinates{}, "", err
	}
	if decoded.Status != "OK" && decoded.Status != "ZERO_RESULTS" {
		return "", crowd.Coordinates{}, "", fmt.Errorf("text search returned status %s", decoded.Status)
	}
	if len(decoded.Results) == 0 {
		return "", crowd.Coordinates{}, "", nil
	}

	top := decoded.Results[0]
	coords := crowd.Coordinates{
		Latitude:  top.Geometry.Location.Lat,
		Longitude: top.Geometry.Location.Lng,
	}

	return top.PlaceID, coords, top.Name, nil
}

// details fetches the place detail fields the classifier consumes.
func (c *PlacesClient) details(ctx context.Context, placeID string) (*crowd.PlacesEvidence, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "name,rating,user_ratings_total,reviews,opening_hours,current_opening_hours")
	params.Set("key", c.apiKey)

	var decoded placesDetailsResponse
	if err := c.getJSON(ctx, c.baseURL+"/details/json?"+params.Encode(), &decoded); err != nil {
		return nil, err
	}
	if decoded.Status != "OK" {
		return nil, fmt.Errorf("details returned status %s", decoded.Status)
	}

	reviews := make([]string, 0, maxReviewSnippets)
	for _, review := range decoded.Result.Reviews {
		if len(reviews) == maxReviewSnippets {
			break
		}
		reviews = append(reviews, review.Text)
	}

	evidence := &crowd.PlacesEvidence{
		Name:         decoded.Result.Name,
		Rating:       decoded.Result.Rating,
		TotalRatings: decoded.Result.UserRatingsTotal,
		Reviews:      reviews,
	}
	if decoded.Result.CurrentOpeningHours != nil {
		openNow := decoded.Result.CurrentOpeningHours.OpenNow
		evidence.OpenNow = &openNow
	}

	return evidence, nil
}

// getJSON issues a GET through the circuit breaker and decodes the body.
func (c *PlacesClient) getJSON(ctx context.Context, rawURL string, v interface{}) error {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("places API returned status code %d", resp.StatusCode)
		}

		return resp, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding places response: %w", err)
	}

	return nil
}

// Provider JSON shapes. Decoded here so downstream code only ever sees the
// typed evidence from the crowd package, never raw provider payloads.

type placesSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID  string `json:"place_id"`
		Name     string `json:"name"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type placesDetailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name             string  `json:"name"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		Reviews          []struct {
			Text string `json:"text"`
		} `json:"reviews"`
		CurrentOpeningHours *struct {
			OpenNow bool `json:"open_now"`
		} `json:"current_opening_hours"`
	} `json:"result"`
}
