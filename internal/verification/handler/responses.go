package handler

import (
	"time"

	"confia/internal/history"
	"confia/internal/trustscore"
	"confia/internal/verification/models"
)

// VerificationResponse is the HTTP representation of workflow state.
type VerificationResponse struct {
	ProviderID               string     `json:"provider_id"`
	RUT                      string     `json:"rut"`
	CurrentStep              string     `json:"current_step"`
	StepsCompleted           []string   `json:"steps_completed"`
	FinalDecision            string     `json:"final_decision"`
	AutoVerificationPossible bool       `json:"auto_verification_possible"`
	StartedAt                time.Time  `json:"started_at"`
	CompletedAt              *time.Time `json:"completed_at,omitempty"`
}

// FromVerification converts workflow state to an HTTP response.
func FromVerification(v *models.ProviderVerification) *VerificationResponse {
	steps := make([]string, len(v.StepsCompleted))
	for i, step := range v.StepsCompleted {
		steps[i] = string(step)
	}
	return &VerificationResponse{
		ProviderID:               v.ProviderID.String(),
		RUT:                      v.RUT,
		CurrentStep:              string(v.CurrentStep),
		StepsCompleted:           steps,
		FinalDecision:            string(v.FinalDecision),
		AutoVerificationPossible: v.AutoVerificationPossible,
		StartedAt:                v.StartedAt,
		CompletedAt:              v.CompletedAt,
	}
}

// HistoryEntryResponse is one audit entry.
type HistoryEntryResponse struct {
	Seq             int64           `json:"seq"`
	ActionType      string          `json:"action_type"`
	PerformedByType string          `json:"performed_by_type"`
	PerformedBy     string          `json:"performed_by,omitempty"`
	Payload         history.Payload `json:"payload"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// HistoryResponse is the HTTP response for the audit trail.
type HistoryResponse struct {
	ProviderID string                 `json:"provider_id"`
	Entries    []HistoryEntryResponse `json:"entries"`
}

// FromHistory converts audit entries to an HTTP response.
func FromHistory(providerID string, entries []history.Entry) *HistoryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, entry := range entries {
		out[i] = HistoryEntryResponse{
			Seq:             entry.Seq,
			ActionType:      string(entry.ActionType),
			PerformedByType: string(entry.PerformedByType),
			PerformedBy:     entry.PerformedBy,
			Payload:         entry.Payload,
			Notes:           entry.Notes,
			CreatedAt:       entry.CreatedAt,
		}
	}
	return &HistoryResponse{ProviderID: providerID, Entries: out}
}

// ScoreResponse is the HTTP representation of a trust score.
type ScoreResponse struct {
	ProviderID   string             `json:"provider_id"`
	Score        float64            `json:"score"`
	Tier         string             `json:"tier"`
	Breakdown    map[string]float64 `json:"breakdown"`
	CalculatedAt time.Time          `json:"calculated_at"`
}

// FromScore converts a trust score record to an HTTP response.
func FromScore(record *trustscore.Record) *ScoreResponse {
	breakdown := make(map[string]float64, len(record.Breakdown))
	for factor, points := range record.Breakdown {
		breakdown[string(factor)] = points
	}
	return &ScoreResponse{
		ProviderID:   record.ProviderID.String(),
		Score:        record.Score,
		Tier:         string(record.Tier),
		Breakdown:    breakdown,
		CalculatedAt: record.CalculatedAt,
	}
}
