// Package postgres persists the document inventory in the document_uploads
// table. Re-uploading a kind refreshes its uploaded_at timestamp.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "confia/pkg/domain"

	"confia/internal/verification/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) RecordUpload(ctx context.Context, providerID id.ProviderID, kind models.DocumentKind) error {
	query := `
		INSERT INTO document_uploads (provider_id, kind, uploaded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_id, kind) DO UPDATE SET
			uploaded_at = EXCLUDED.uploaded_at
	`
	_, err := s.db.ExecContext(ctx, query, uuid.UUID(providerID), string(kind), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

func (s *Store) ListUploadedKinds(ctx context.Context, providerID id.ProviderID) ([]models.DocumentKind, error) {
	query := `
		SELECT kind
		FROM document_uploads
		WHERE provider_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(providerID))
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var kinds []models.DocumentKind
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		kinds = append(kinds, models.DocumentKind(kind))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return kinds, nil
}
