// internal/service/analyzer/classifier.go

package analyzer

import (
	"strings"
	"time"

	"crowdwatch/internal/domain/crowd"
)

// defaultCrowdKeywords are the substrings that signal crowding in review
// text, matched case-insensitively. Extending language coverage only means
// extending this list.
var defaultCrowdKeywords = []string{
	"crowded",
	"busy",
	"wait",
	"混雑",
	"込んでいる",
	"待ち時間",
}

// crowdMentionThreshold is the fraction of review snippets that must
// mention crowding before the review rule promotes the level.
const crowdMentionThreshold = 0.3

// ClassifierConfig contains configuration for the classifier
type ClassifierConfig struct {
	// CrowdKeywords overrides the built-in crowd-signal keyword list.
	CrowdKeywords []string
}

// Classifier turns an evidence bundle into a crowd verdict using a fixed
// rule order. Later rules only ever raise the level, never lower it, so
// a strong places signal cannot be downgraded by a weaker social one.
type Classifier struct {
	keywords []string
}

// NewClassifier creates a new classifier
func NewClassifier(cfg ClassifierConfig) *Classifier {
	keywords := cfg.CrowdKeywords
	if len(keywords) == 0 {
		keywords = defaultCrowdKeywords
	}

	return &Classifier{keywords: keywords}
}

// Classify scores the bundle and returns a fresh verdict. The result is
// deterministic for a given bundle apart from the computation timestamp.
func (c *Classifier) Classify(bundle crowd.Bundle) crowd.Verdict {
	level := crowd.LevelLow
	confidence := 0.5
	sources := []string{}

	// Rating volume from the places provider.
	if bundle.Places != nil {
		sources = append(sources, crowd.SourcePlaces)

		rating := bundle.Places.Rating
		totalRatings := bundle.Places.TotalRatings
		if rating > 4.0 && totalRatings > 100 {
			level = crowd.LevelHigh
			confidence += 0.2
		} else if rating > 3.5 {
			if level == crowd.LevelLow {
				level = crowd.LevelMedium
			}
			confidence += 0.1
		}
	}

	// Post volume from the social provider. Promotes low to medium only;
	// the confidence increment applies regardless of the current level.
	if bundle.Social != nil && len(bundle.Social.Posts) > 0 {
		sources = append(sources, crowd.SourceSocial)

		if len(bundle.Social.Posts) > 5 {
			if level == crowd.LevelLow {
				level = crowd.LevelMedium
			}
			confidence += 0.15
		}
	}

	// Crowd mentions in review text.
	if bundle.Places != nil && len(bundle.Places.Reviews) > 0 {
		mentions := 0
		for _, review := range bundle.Places.Reviews {
			if c.mentionsCrowding(review) {
				mentions++
			}
		}

		if float64(mentions) > float64(len(bundle.Places.Reviews))*crowdMentionThreshold {
			if level == crowd.LevelLow {
				level = crowd.LevelMedium
			} else {
				level = crowd.LevelHigh
			}
			confidence += 0.2
		}
	}

	if confidence > 1.0 {
		confidence = 1.0
	}

	return crowd.Verdict{
		Location:    resolveLocation(bundle),
		Level:       level,
		Confidence:  confidence,
		Sources:     sources,
		LastUpdated: time.Now().UTC(),
		Details:     bundle,
	}
}

// mentionsCrowding reports whether the text contains any crowd-signal
// keyword, case-insensitively.
func (c *Classifier) mentionsCrowding(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range c.keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// resolveLocation picks the human-readable name for the verdict: the places
// display name when available, otherwise the query's own name, otherwise a
// placeholder for coordinate-only queries.
func resolveLocation(bundle crowd.Bundle) string {
	if bundle.Places != nil && bundle.Places.Name != "" {
		return bundle.Places.Name
	}
	return bundle.Query.DisplayName()
}
