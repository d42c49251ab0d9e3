package handler

import (
	"strings"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"

	"confia/internal/verification/models"
)

// StartVerificationRequest is the HTTP request body for POST /verifications.
type StartVerificationRequest struct {
	ProviderID string `json:"provider_id"`
	RUT        string `json:"rut"`

	parsedProviderID id.ProviderID
}

// Validate validates and parses the request.
func (r *StartVerificationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	providerID, err := id.ParseProviderID(strings.TrimSpace(r.ProviderID))
	if err != nil {
		return err
	}
	r.parsedProviderID = providerID

	r.RUT = strings.TrimSpace(r.RUT)
	if r.RUT == "" {
		return dErrors.New(dErrors.CodeValidation, "rut is required")
	}
	if len(r.RUT) > 12 {
		return dErrors.New(dErrors.CodeValidation, "rut must be at most 12 characters")
	}
	return nil
}

// ParsedProviderID returns the validated provider ID.
func (r *StartVerificationRequest) ParsedProviderID() id.ProviderID {
	return r.parsedProviderID
}

// UploadDocumentRequest is the HTTP request body for document uploads.
type UploadDocumentRequest struct {
	Kind string `json:"kind"`
}

// Validate validates the request.
func (r *UploadDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Kind = strings.TrimSpace(r.Kind)
	if r.Kind == "" {
		return dErrors.New(dErrors.CodeValidation, "kind is required")
	}
	return nil
}

// DocumentKind returns the requested kind.
func (r *UploadDocumentRequest) DocumentKind() models.DocumentKind {
	return models.DocumentKind(r.Kind)
}

// ManualDecisionRequest is the HTTP request body for admin review decisions.
type ManualDecisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`

	parsedDecision models.Decision
}

// Validate validates and parses the request.
func (r *ManualDecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	switch decision := models.Decision(strings.TrimSpace(r.Decision)); decision {
	case models.DecisionApproved, models.DecisionRejected:
		r.parsedDecision = decision
	default:
		return dErrors.New(dErrors.CodeValidation, "decision must be approved or rejected")
	}
	if len(r.Notes) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 2000 characters")
	}
	return nil
}

// ParsedDecision returns the validated decision.
func (r *ManualDecisionRequest) ParsedDecision() models.Decision {
	return r.parsedDecision
}
