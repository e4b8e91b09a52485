// internal/service/source/twitter_test.go

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdwatch/internal/domain/crowd"
)

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"known variant", "Tokyo Tower", "Tokyo Tower OR 東京タワー OR 도쿄타워 OR 東京鐵塔"},
		{"variant lookup is case-insensitive", "TOKYO TOWER", "Tokyo Tower OR 東京タワー OR 도쿄타워 OR 東京鐵塔"},
		{"unknown name passes through", "Ginza", "Ginza"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, searchQuery(tt.in))
		})
	}
}

func TestSocialFetchWithoutToken(t *testing.T) {
	client := NewSocialClient(SocialConfig{}, zerolog.Nop())

	evidence, err := client.Fetch(context.Background(), crowd.Query{Name: "Tokyo Tower"})

	assert.NoError(t, err)
	assert.Nil(t, evidence)
}

func TestSocialFetchCoordinateOnlyQuery(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	t.Cleanup(server.Close)
	client := NewSocialClient(SocialConfig{BearerToken: "test-token", BaseURL: server.URL}, zerolog.Nop())

	evidence, err := client.Fetch(context.Background(), crowd.Query{
		Coordinates: &crowd.Coordinates{Latitude: 35.6586, Longitude: 139.7454},
	})

	assert.NoError(t, err)
	assert.Nil(t, evidence)
	assert.Zero(t, atomic.LoadInt32(&hits), "no search without a place name")
}

func TestSocialFetchMapsTweets(t *testing.T) {
	var gotAuth, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets/search/recent", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"data": [
				{"id": "1", "text": "so crowded at the tower", "author_id": "u1", "created_at": "2026-08-30T12:00:00.000Z"},
				{"id": "2", "text": "great view tonight", "author_id": "u2", "created_at": "2026-08-30T11:30:00.000Z"}
			],
			"includes": {
				"users": [
					{"id": "u1", "name": "Aki", "username": "aki_travels", "profile_image_url": "https://example.com/aki.png"},
					{"id": "u2", "name": "Ben", "username": "ben_photos", "profile_image_url": "https://example.com/ben.png"}
				]
			},
			"meta": {"result_count": 2}
		}`)
	}))
	t.Cleanup(server.Close)
	client := NewSocialClient(SocialConfig{BearerToken: "test-token", BaseURL: server.URL}, zerolog.Nop())

	evidence, err := client.Fetch(context.Background(), crowd.Query{Name: "Tokyo Tower"})

	require.NoError(t, err)
	require.NotNil(t, evidence)
	require.Len(t, evidence.Posts, 2)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "Tokyo Tower OR 東京タワー OR 도쿄타워 OR 東京鐵塔", gotQuery)

	first := evidence.Posts[0]
	assert.Equal(t, "so crowded at the tower", first.Text)
	assert.Equal(t, "aki_travels", first.Author)
	assert.Equal(t, "Aki", first.DisplayName)
	assert.Equal(t, "https://example.com/aki.png", first.AvatarURL)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), first.PostedAt.UTC())
}

func TestSocialFetchDegradesOnAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"title": "Internal Error", "detail": "something went wrong"}`)
	}))
	t.Cleanup(server.Close)
	client := NewSocialClient(SocialConfig{BearerToken: "test-token", BaseURL: server.URL}, zerolog.Nop())

	evidence, err := client.Fetch(context.Background(), crowd.Query{Name: "Tokyo Tower"})

	assert.NoError(t, err)
	assert.Nil(t, evidence)
}

func TestSocialFetchTreatsEmptyResultAsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"meta": {"result_count": 0}}`)
	}))
	t.Cleanup(server.Close)
	client := NewSocialClient(SocialConfig{BearerToken: "test-token", BaseURL: server.URL}, zerolog.Nop())

	evidence, err := client.Fetch(context.Background(), crowd.Query{Name: "Quiet Street"})

	assert.NoError(t, err)
	assert.Nil(t, evidence, "an empty result set is absent evidence, not a zero-post bundle")
}
