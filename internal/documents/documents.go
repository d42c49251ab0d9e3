// Package documents tracks which verification documents a provider has
// uploaded. Storage of the document bytes themselves lives elsewhere; the
// workflow only needs to know which kinds are present.
package documents

import (
	"context"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"

	"confia/internal/verification/models"
)

// Store is the document inventory consulted by the workflow gate.
type Store interface {
	// RecordUpload marks a document kind as uploaded for the provider.
	// Re-uploading the same kind replaces the previous upload.
	RecordUpload(ctx context.Context, providerID id.ProviderID, kind models.DocumentKind) error

	// ListUploadedKinds returns the distinct document kinds the provider
	// has uploaded, in no particular order.
	ListUploadedKinds(ctx context.Context, providerID id.ProviderID) ([]models.DocumentKind, error)
}

// MissingKinds returns the required kinds not present in uploaded.
func MissingKinds(required, uploaded []models.DocumentKind) []models.DocumentKind {
	have := make(map[models.DocumentKind]struct{}, len(uploaded))
	for _, kind := range uploaded {
		have[kind] = struct{}{}
	}

	var missing []models.DocumentKind
	for _, kind := range required {
		if _, ok := have[kind]; !ok {
			missing = append(missing, kind)
		}
	}
	return missing
}

// ValidateKind rejects document kinds outside the known set.
func ValidateKind(kind models.DocumentKind) error {
	if !kind.Valid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown document kind %q", kind)
	}
	return nil
}
