// internal/domain/crowd/model.go

package crowd

import (
	"strings"
	"time"
)

// Level represents how crowded a location currently is.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

// rank orders levels for promotion checks. Higher rank means more crowded.
func (l Level) rank() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelVeryHigh:
		return 3
	}
	return -1
}

// AtLeast reports whether l is the same or a more crowded level than other.
func (l Level) AtLeast(other Level) bool {
	return l.rank() >= other.rank()
}

// Source names as they appear in verdict contributor lists.
const (
	SourcePlaces = "Google Places"
	SourceSocial = "Twitter"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Query identifies the location to analyze. At least one of a non-empty
// name or a coordinate pair must be present.
type Query struct {
	Name         string
	Coordinates  *Coordinates
	RadiusMeters int
}

// Validate rejects a query that carries neither a name nor coordinates.
// This runs before any source call is attempted.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Name) == "" && q.Coordinates == nil {
		return ErrMissingLocation
	}
	return nil
}

// DisplayName returns the query's free-text name, or a placeholder when the
// query was coordinate-only.
func (q Query) DisplayName() string {
	if name := strings.TrimSpace(q.Name); name != "" {
		return name
	}
	return "Current Location"
}

// PlacesEvidence is the evidence variant produced by the places/ratings
// source. Reviews holds at most five snippets of free review text.
type PlacesEvidence struct {
	Name         string   `json:"name"`
	Rating       float64  `json:"rating"`
	TotalRatings int      `json:"totalRatings"`
	OpenNow      *bool    `json:"currentStatus,omitempty"`
	Reviews      []string `json:"reviews"`
}

// Post is a single social post with optional author attribution.
type Post struct {
	Author      string    `json:"username,omitempty"`
	DisplayName string    `json:"name,omitempty"`
	AvatarURL   string    `json:"profileImageUrl,omitempty"`
	PostedAt    time.Time `json:"createdAt"`
	Text        string    `json:"text"`
}

// SocialEvidence is the evidence variant produced by the social-post search
// source. Posts are ordered most-recent-first and capped at ten.
type SocialEvidence struct {
	Posts []Post `json:"tweets"`
}

// Bundle collects whatever evidence the sources produced for one query.
// A nil variant means the source was unavailable or returned nothing; it is
// excluded from scoring, never scored as empty.
type Bundle struct {
	Query  Query           `json:"-"`
	Places *PlacesEvidence `json:"googlePlaces,omitempty"`
	Social *SocialEvidence `json:"twitter,omitempty"`
}

// HasEvidence reports whether at least one source produced evidence.
// A bundle without any is not classifiable.
func (b Bundle) HasEvidence() bool {
	return b.Places != nil || b.Social != nil
}

// Neighbor is a lightweight verdict for a point of interest near the
// primary location.
type Neighbor struct {
	Location   string  `json:"location"`
	Level      Level   `json:"crowdLevel"`
	Confidence float64 `json:"confidence"`
}

// Verdict is the classification result for one location. It is constructed
// fresh on every classification and never mutated afterwards; the JSON shape
// is the wire contract consumers rely on.
type Verdict struct {
	Location    string     `json:"location"`
	Level       Level      `json:"crowdLevel"`
	Confidence  float64    `json:"confidence"`
	Sources     []string   `json:"sources"`
	LastUpdated time.Time  `json:"lastUpdated"`
	Details     Bundle     `json:"details"`
	Nearby      []Neighbor `json:"nearbyLocations,omitempty"`
}
