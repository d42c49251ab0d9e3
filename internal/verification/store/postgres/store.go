// Package postgres persists verification state in two tables:
// provider_verifications (one row per provider, mutated in place) and
// validation_outcomes (insert-only). The audit trail lives in the history
// store; these tables are the materialized read model.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "confia/pkg/domain"
	"confia/pkg/platform/sentinel"

	"confia/internal/verification/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateVerification(ctx context.Context, verification *models.ProviderVerification) error {
	query := `
		INSERT INTO provider_verifications
			(provider_id, rut, current_step, steps_completed, final_decision,
			 auto_verification_possible, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(verification.ProviderID),
		verification.RUT,
		string(verification.CurrentStep),
		pq.Array(stepsToStrings(verification.StepsCompleted)),
		string(verification.FinalDecision),
		verification.AutoVerificationPossible,
		verification.StartedAt,
		verification.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Store) GetVerification(ctx context.Context, providerID id.ProviderID) (*models.ProviderVerification, error) {
	query := `
		SELECT rut, current_step, steps_completed, final_decision,
		       auto_verification_possible, started_at, completed_at
		FROM provider_verifications
		WHERE provider_id = $1
	`

	var (
		verification models.ProviderVerification
		currentStep  string
		steps        []string
		decision     string
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(providerID)).Scan(
		&verification.RUT,
		&currentStep,
		pq.Array(&steps),
		&decision,
		&verification.AutoVerificationPossible,
		&verification.StartedAt,
		&verification.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query verification: %w", err)
	}

	verification.ProviderID = providerID
	verification.CurrentStep = models.Step(currentStep)
	verification.StepsCompleted = stepsFromStrings(steps)
	verification.FinalDecision = models.Decision(decision)
	return &verification, nil
}

func (s *Store) UpdateVerification(ctx context.Context, verification *models.ProviderVerification) error {
	query := `
		UPDATE provider_verifications SET
			current_step = $2,
			steps_completed = $3,
			final_decision = $4,
			auto_verification_possible = $5,
			completed_at = $6
		WHERE provider_id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(verification.ProviderID),
		string(verification.CurrentStep),
		pq.Array(stepsToStrings(verification.StepsCompleted)),
		string(verification.FinalDecision),
		verification.AutoVerificationPossible,
		verification.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) SaveOutcome(ctx context.Context, providerID id.ProviderID, outcome models.ValidationOutcome) error {
	query := `
		INSERT INTO validation_outcomes
			(provider_id, kind, status, score, source, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(providerID),
		string(outcome.Kind),
		string(outcome.Status),
		outcome.Score,
		string(outcome.Source),
		outcome.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (s *Store) ListOutcomes(ctx context.Context, providerID id.ProviderID) ([]models.ValidationOutcome, error) {
	query := `
		SELECT kind, status, score, source, observed_at
		FROM validation_outcomes
		WHERE provider_id = $1
		ORDER BY observed_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(providerID))
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.ValidationOutcome
	for rows.Next() {
		var (
			outcome models.ValidationOutcome
			kind    string
			status  string
			source  string
		)
		err := rows.Scan(&kind, &status, &outcome.Score, &source, &outcome.ObservedAt)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcome.Kind = models.OutcomeKind(kind)
		outcome.Status = models.OutcomeStatus(status)
		outcome.Source = models.OutcomeSource(source)
		outcomes = append(outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

func stepsToStrings(steps []models.Step) []string {
	out := make([]string, len(steps))
	for i, step := range steps {
		out[i] = string(step)
	}
	return out
}

func stepsFromStrings(values []string) []models.Step {
	if len(values) == 0 {
		return nil
	}
	steps := make([]models.Step, len(values))
	for i, value := range values {
		steps[i] = models.Step(value)
	}
	return steps
}
