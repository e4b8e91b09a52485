// internal/service/source/twitter.go

package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"github.com/rs/zerolog"

	"crowdwatch/internal/domain/crowd"
)

// maxSocialPosts caps the posts carried in social evidence.
const maxSocialPosts = 10

// queryVariants expands known ambiguous place names into multilingual
// OR-queries. Extending language coverage is a data change here, nothing
// else in the pipeline needs to know.
var queryVariants = map[string]string{
	"tokyo tower": "Tokyo Tower OR 東京タワー OR 도쿄타워 OR 東京鐵塔",
}

// SocialConfig contains configuration for the Twitter client
type SocialConfig struct {
	BearerToken string
	BaseURL     string
	Timeout     time.Duration
}

// bearerAuthorizer adds app-only bearer authentication to API requests.
type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+a.token)
}

// SocialClient fetches recent posts mentioning a location from the Twitter
// search API. Like the places client, ordinary failures degrade to absent
// evidence with a logged warning.
type SocialClient struct {
	client *twitter.Client
	logger zerolog.Logger
}

// NewSocialClient creates a new Twitter client. An empty bearer token
// disables the source; Fetch then returns absent without a network call.
func NewSocialClient(cfg SocialConfig, logger zerolog.Logger) *SocialClient {
	sc := &SocialClient{
		logger: logger.With().Str("source", "twitter").Logger(),
	}

	if cfg.BearerToken == "" {
		return sc
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	host := strings.TrimRight(cfg.BaseURL, "/")
	if host == "" {
		host = "https://api.twitter.com"
	}

	sc.client = &twitter.Client{
		Authorizer: bearerAuthorizer{token: cfg.BearerToken},
		Client:     &http.Client{Timeout: timeout},
		Host:       host,
	}

	return sc
}

// Name returns the source name as reported in verdict contributors.
func (c *SocialClient) Name() string {
	return crowd.SourceSocial
}

// Fetch returns recent posts mentioning the queried location, most recent
// first, or nil when the source is unavailable or found nothing.
func (c *SocialClient) Fetch(ctx context.Context, q crowd.Query) (*crowd.SocialEvidence, error) {
	if c.client == nil {
		c.logger.Warn().Msg("Twitter API bearer token not configured")
		return nil, nil
	}

	name := strings.TrimSpace(q.Name)
	if name == "" {
		// Coordinate-only queries have no usable search term.
		c.logger.Warn().Msg("no place name to search posts for")
		return nil, nil
	}

	query := searchQuery(name)

	opts := twitter.TweetRecentSearchOpts{
		MaxResults:  maxSocialPosts,
		Expansions:  []twitter.Expansion{twitter.ExpansionAuthorID},
		TweetFields: []twitter.TweetField{twitter.TweetFieldCreatedAt, twitter.TweetFieldAuthorID},
		UserFields:  []twitter.UserField{twitter.UserFieldUserName, twitter.UserFieldName, twitter.UserFieldProfileImageURL},
	}

	resp, err := c.client.TweetRecentSearch(ctx, query, opts)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("tweet search failed")
		return nil, nil
	}
	if resp == nil || resp.Raw == nil || len(resp.Raw.Tweets) == 0 {
		c.logger.Warn().Str("query", query).Msg("no tweets found for query")
		return nil, nil
	}

	users := make(map[string]*twitter.UserObj)
	if resp.Raw.Includes != nil {
		for _, user := range resp.Raw.Includes.Users {
			users[user.ID] = user
		}
	}

	posts := make([]crowd.Post, 0, maxSocialPosts)
	for _, tweet := range resp.Raw.Tweets {
		if len(posts) == maxSocialPosts {
			break
		}

		post := crowd.Post{Text: tweet.Text}
		if ts, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
			post.PostedAt = ts
		}
		if user, ok := users[tweet.AuthorID]; ok {
			post.Author = user.UserName
			post.DisplayName = user.Name
			post.AvatarURL = user.ProfileImageURL
		}

		posts = append(posts, post)
	}

	return &crowd.SocialEvidence{Posts: posts}, nil
}

// searchQuery returns the provider search string for a place name,
// expanding known multilingual variants.
func searchQuery(name string) string {
	if variant, ok := queryVariants[strings.ToLower(name)]; ok {
		return variant
	}
	return name
}
