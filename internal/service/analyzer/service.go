// internal/service/analyzer/service.go

package analyzer

import (
	"context"

	"github.com/rs/zerolog"

	"crowdwatch/internal/domain/crowd"
)

// Service implements the crowd.Analyzer interface by composing the
// aggregator, classifier, and neighborhood expander into one pipeline.
type Service struct {
	aggregator *Aggregator
	classifier *Classifier
	expander   *Expander
	logger     zerolog.Logger
}

// NewService creates a new analyzer service. The expander may be nil, in
// which case verdicts carry no neighbor list.
func NewService(aggregator *Aggregator, classifier *Classifier, expander *Expander, logger zerolog.Logger) *Service {
	return &Service{
		aggregator: aggregator,
		classifier: classifier,
		expander:   expander,
		logger:     logger,
	}
}

// Snapshot aggregates and classifies one location without neighborhood
// expansion. Invalid queries are rejected before any source call.
func (s *Service) Snapshot(ctx context.Context, q crowd.Query) (*crowd.Verdict, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	bundle, err := s.aggregator.Aggregate(ctx, q)
	if err != nil {
		return nil, err
	}

	verdict := s.classifier.Classify(bundle)
	return &verdict, nil
}

// Analyze runs the full pipeline for one location, including nearby-spot
// expansion. Expansion failures never fail the primary verdict.
func (s *Service) Analyze(ctx context.Context, q crowd.Query) (*crowd.Verdict, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info().Str("location", q.DisplayName()).Msg("analyzing crowd data")

	bundle, err := s.aggregator.Aggregate(ctx, q)
	if err != nil {
		return nil, err
	}

	verdict := s.classifier.Classify(bundle)
	if s.expander != nil {
		verdict.Nearby = s.expander.Expand(ctx, bundle)
	}

	return &verdict, nil
}
