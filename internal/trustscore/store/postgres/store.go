package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "confia/pkg/domain"
	"confia/pkg/platform/sentinel"

	"confia/internal/trustscore"
)

// Store persists trust scores in the trust_scores table, one row per
// provider. The breakdown is stored as JSONB keyed by factor name.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Upsert(ctx context.Context, record trustscore.Record) error {
	breakdown, err := json.Marshal(record.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	query := `
		INSERT INTO trust_scores (provider_id, score, tier, breakdown, calculated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_id) DO UPDATE SET
			score = EXCLUDED.score,
			tier = EXCLUDED.tier,
			breakdown = EXCLUDED.breakdown,
			calculated_at = EXCLUDED.calculated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(record.ProviderID),
		record.Score,
		string(record.Tier),
		breakdown,
		record.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert trust score: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, providerID id.ProviderID) (*trustscore.Record, error) {
	query := `
		SELECT score, tier, breakdown, calculated_at
		FROM trust_scores
		WHERE provider_id = $1
	`

	var (
		record        trustscore.Record
		tier          string
		breakdownJSON []byte
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(providerID)).Scan(
		&record.Score,
		&tier,
		&breakdownJSON,
		&record.CalculatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query trust score: %w", err)
	}

	record.ProviderID = providerID
	record.Tier = trustscore.Tier(tier)
	if err := json.Unmarshal(breakdownJSON, &record.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshal breakdown: %w", err)
	}
	return &record, nil
}
