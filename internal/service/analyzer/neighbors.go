// internal/service/analyzer/neighbors.go

package analyzer

import (
	"context"

	"github.com/rs/zerolog"

	"crowdwatch/internal/domain/crowd"
)

// NeighborFinder discovers points of interest around a named place.
// The places client implements this alongside its evidence role.
type NeighborFinder interface {
	// Locate resolves a place name to coordinates.
	Locate(ctx context.Context, name string) (crowd.Coordinates, error)

	// Nearby returns names of points of interest around the coordinates.
	Nearby(ctx context.Context, at crowd.Coordinates, radiusMeters int, categories []string) ([]string, error)
}

// ExpanderConfig contains configuration for the neighborhood expander
type ExpanderConfig struct {
	RadiusMeters int
	Limit        int
	Categories   []string
}

// Expander produces lightweight crowd summaries for spots near a primary
// location. Every failure along the way degrades to an empty or partial
// neighbor list; expansion never fails the primary classification.
type Expander struct {
	finder     NeighborFinder
	places     PlacesSource
	classifier *Classifier
	config     ExpanderConfig
	logger     zerolog.Logger
}

// NewExpander creates a new neighborhood expander
func NewExpander(finder NeighborFinder, places PlacesSource, classifier *Classifier, cfg ExpanderConfig, logger zerolog.Logger) *Expander {
	if cfg.RadiusMeters == 0 {
		cfg.RadiusMeters = 500
	}
	if cfg.Limit == 0 {
		cfg.Limit = 3
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = []string{"restaurant", "tourist_attraction"}
	}

	return &Expander{
		finder:     finder,
		places:     places,
		classifier: classifier,
		config:     cfg,
		logger:     logger,
	}
}

// Expand discovers nearby spots for the primary location and classifies
// each from places evidence alone. The neighbor classifications run
// sequentially; the fan-out is bounded by the configured limit.
func (e *Expander) Expand(ctx context.Context, evidence crowd.Bundle) []crowd.Neighbor {
	if e.finder == nil || evidence.Places == nil || evidence.Places.Name == "" {
		return nil
	}

	coords, err := e.finder.Locate(ctx, evidence.Places.Name)
	if err != nil {
		e.logger.Warn().Err(err).Str("location", evidence.Places.Name).Msg("could not resolve coordinates for neighbor search")
		return nil
	}

	spots, err := e.finder.Nearby(ctx, coords, e.config.RadiusMeters, e.config.Categories)
	if err != nil {
		e.logger.Warn().Err(err).Str("location", evidence.Places.Name).Msg("nearby search failed")
		return nil
	}

	neighbors := make([]crowd.Neighbor, 0, e.config.Limit)
	for _, spot := range spots {
		if len(neighbors) == e.config.Limit {
			break
		}

		query := crowd.Query{Name: spot}
		spotEvidence, err := e.places.Fetch(ctx, query)
		if err != nil || spotEvidence == nil {
			if err != nil {
				e.logger.Warn().Err(err).Str("spot", spot).Msg("neighbor fetch failed")
			}
			continue
		}

		verdict := e.classifier.Classify(crowd.Bundle{Query: query, Places: spotEvidence})
		neighbors = append(neighbors, crowd.Neighbor{
			Location:   spot,
			Level:      verdict.Level,
			Confidence: verdict.Confidence,
		})
	}

	return neighbors
}
