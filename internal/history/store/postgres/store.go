// Package postgres persists audit entries in the history_entries table.
// Rows are insert-only. The sequence number is computed inside the insert;
// appends for one provider are serialized by the orchestrator's per-provider
// lock, and the (provider_id, seq) primary key turns any append that slips
// past it into an error rather than a gap or a reorder.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "confia/pkg/domain"

	"confia/internal/history"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, entry history.Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO history_entries
			(provider_id, seq, action_type, performed_by_type, performed_by, payload, notes, created_at)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6, $7
		FROM history_entries
		WHERE provider_id = $1
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(entry.ProviderID),
		string(entry.ActionType),
		string(entry.PerformedByType),
		entry.PerformedBy,
		payload,
		entry.Notes,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func (s *Store) ListByProvider(ctx context.Context, providerID id.ProviderID) ([]history.Entry, error) {
	query := `
		SELECT seq, action_type, performed_by_type, performed_by, payload, notes, created_at
		FROM history_entries
		WHERE provider_id = $1
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(providerID))
	if err != nil {
		return nil, fmt.Errorf("query history entries: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var (
			entry       history.Entry
			actionType  string
			actorType   string
			payloadJSON []byte
		)
		err := rows.Scan(
			&entry.Seq,
			&actionType,
			&actorType,
			&entry.PerformedBy,
			&payloadJSON,
			&entry.Notes,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if err := json.Unmarshal(payloadJSON, &entry.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		entry.ProviderID = providerID
		entry.ActionType = history.ActionType(actionType)
		entry.PerformedByType = history.ActorType(actorType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}
	return entries, nil
}
