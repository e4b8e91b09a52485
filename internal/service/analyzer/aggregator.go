// internal/service/analyzer/aggregator.go

package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"crowdwatch/internal/domain/crowd"
)

// PlacesSource produces places evidence for a location query. A nil result
// with a nil error means the source had nothing for this query.
type PlacesSource interface {
	Name() string
	Fetch(ctx context.Context, q crowd.Query) (*crowd.PlacesEvidence, error)
}

// SocialSource produces social-post evidence for a location query.
type SocialSource interface {
	Name() string
	Fetch(ctx context.Context, q crowd.Query) (*crowd.SocialEvidence, error)
}

// AggregatorConfig contains configuration for the aggregator
type AggregatorConfig struct {
	// SourceTimeout bounds each individual source call. A source that has
	// not settled by then is recorded as absent so one stalled provider
	// cannot hang the whole aggregation.
	SourceTimeout time.Duration
}

// Aggregator fans the configured sources out concurrently for one location
// and merges whatever succeeded into a single evidence bundle. A single
// source failing or timing out never prevents the others' results from
// being included.
type Aggregator struct {
	places  PlacesSource
	social  SocialSource
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(places PlacesSource, social SocialSource, cfg AggregatorConfig, logger zerolog.Logger) *Aggregator {
	timeout := cfg.SourceTimeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	return &Aggregator{
		places:  places,
		social:  social,
		timeout: timeout,
		logger:  logger,
	}
}

// Aggregate collects evidence from all configured sources concurrently.
// Total latency is bounded by the slowest source, not their sum. When every
// source comes back empty the returned error is crowd.ErrNoEvidence.
func (a *Aggregator) Aggregate(ctx context.Context, q crowd.Query) (crowd.Bundle, error) {
	bundle := crowd.Bundle{Query: q}

	var wg sync.WaitGroup

	if a.places != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bundle.Places = a.fetchPlaces(ctx, q)
		}()
	}

	if a.social != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bundle.Social = a.fetchSocial(ctx, q)
		}()
	}

	wg.Wait()

	if !bundle.HasEvidence() {
		return bundle, crowd.ErrNoEvidence
	}

	return bundle, nil
}

// fetchPlaces runs the places source under the per-source timeout. Errors
// and timeouts degrade to absent evidence.
func (a *Aggregator) fetchPlaces(ctx context.Context, q crowd.Query) *crowd.PlacesEvidence {
	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		evidence *crowd.PlacesEvidence
		err      error
	}

	ch := make(chan result, 1)
	go func() {
		evidence, err := a.places.Fetch(fetchCtx, q)
		ch <- result{evidence: evidence, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			a.logger.Warn().Err(res.err).Str("source", a.places.Name()).Msg("source failed")
			return nil
		}
		return res.evidence
	case <-fetchCtx.Done():
		a.logger.Warn().Str("source", a.places.Name()).Msg("source timed out")
		return nil
	}
}

// fetchSocial runs the social source under the per-source timeout.
func (a *Aggregator) fetchSocial(ctx context.Context, q crowd.Query) *crowd.SocialEvidence {
	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		evidence *crowd.SocialEvidence
		err      error
	}

	ch := make(chan result, 1)
	go func() {
		evidence, err := a.social.Fetch(fetchCtx, q)
		ch <- result{evidence: evidence, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			a.logger.Warn().Err(res.err).Str("source", a.social.Name()).Msg("source failed")
			return nil
		}
		return res.evidence
	case <-fetchCtx.Done():
		a.logger.Warn().Str("source", a.social.Name()).Msg("source timed out")
		return nil
	}
}
