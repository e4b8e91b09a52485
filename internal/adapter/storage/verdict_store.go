// internal/adapter/storage/verdict_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"crowdwatch/internal/domain/crowd"
)

// VerdictStore persists the latest crowd verdict per location.
//
// Expected schema:
//
//	CREATE TABLE crowd_verdicts (
//	    id           UUID PRIMARY KEY,
//	    location     TEXT UNIQUE NOT NULL,
//	    crowd_level  TEXT NOT NULL,
//	    confidence   DOUBLE PRECISION NOT NULL,
//	    sources      JSONB NOT NULL,
//	    details      JSONB NOT NULL,
//	    nearby       JSONB,
//	    last_updated TIMESTAMPTZ NOT NULL
//	);
type VerdictStore struct {
	db *pgxpool.Pool
}

// NewVerdictStore creates a new verdict store
func NewVerdictStore(db *pgxpool.Pool) *VerdictStore {
	return &VerdictStore{
		db: db,
	}
}

// SaveVerdict upserts the verdict for its location.
func (s *VerdictStore) SaveVerdict(ctx context.Context, v crowd.Verdict) error {
	query := `
		INSERT INTO crowd_verdicts (
			id, location, crowd_level, confidence,
			sources, details, nearby, last_updated
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		)
		ON CONFLICT (location) DO UPDATE
		SET
			crowd_level = $3,
			confidence = $4,
			sources = $5,
			details = $6,
			nearby = $7,
			last_updated = $8
	`

	sourcesJSON, err := json.Marshal(v.Sources)
	if err != nil {
		return fmt.Errorf("error marshaling sources: %w", err)
	}

	detailsJSON, err := json.Marshal(v.Details)
	if err != nil {
		return fmt.Errorf("error marshaling details: %w", err)
	}

	nearbyJSON, err := json.Marshal(v.Nearby)
	if err != nil {
		return fmt.Errorf("error marshaling neighbors: %w", err)
	}

	_, err = s.db.Exec(ctx, query,
		uuid.New().String(),
		v.Location,
		string(v.Level),
		v.Confidence,
		sourcesJSON,
		detailsJSON,
		nearbyJSON,
		v.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("error saving verdict: %w", err)
	}

	return nil
}

// LatestVerdicts returns the stored verdict for every location, most
// recently updated first.
func (s *VerdictStore) LatestVerdicts(ctx context.Context) ([]crowd.Verdict, error) {
	query := `
		SELECT location, crowd_level, confidence, sources, details, nearby, last_updated
		FROM crowd_verdicts
		ORDER BY last_updated DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying verdicts: %w", err)
	}
	defer rows.Close()

	verdicts := []crowd.Verdict{}
	for rows.Next() {
		verdict, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, *verdict)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading verdicts: %w", err)
	}

	return verdicts, nil
}

// GetVerdict returns the stored verdict for one location, or nil when the
// location has never been updated.
func (s *VerdictStore) GetVerdict(ctx context.Context, location string) (*crowd.Verdict, error) {
	query := `
		SELECT location, crowd_level, confidence, sources, details, nearby, last_updated
		FROM crowd_verdicts
		WHERE LOWER(location) = LOWER($1)
	`

	verdict, err := scanVerdict(s.db.QueryRow(ctx, query, location))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return verdict, nil
}

// scanVerdict reads one verdict row.
func scanVerdict(row pgx.Row) (*crowd.Verdict, error) {
	var v crowd.Verdict
	var level string
	var sourcesJSON, detailsJSON, nearbyJSON []byte

	err := row.Scan(&v.Location, &level, &v.Confidence, &sourcesJSON, &detailsJSON, &nearbyJSON, &v.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning verdict: %w", err)
	}

	v.Level = crowd.Level(level)

	if err := json.Unmarshal(sourcesJSON, &v.Sources); err != nil {
		return nil, fmt.Errorf("error unmarshaling sources: %w", err)
	}
	if err := json.Unmarshal(detailsJSON, &v.Details); err != nil {
		return nil, fmt.Errorf("error unmarshaling details: %w", err)
	}
	if len(nearbyJSON) > 0 {
		if err := json.Unmarshal(nearbyJSON, &v.Nearby); err != nil {
			return nil, fmt.Errorf("error unmarshaling neighbors: %w", err)
		}
	}

	return &v, nil
}
