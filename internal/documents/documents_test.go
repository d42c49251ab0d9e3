package documents_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"

	"confia/internal/documents"
	"confia/internal/documents/store/memory"
	"confia/internal/verification/models"
)

func TestMissingKinds(t *testing.T) {
	required := models.RequiredDocuments()

	tests := []struct {
		name     string
		uploaded []models.DocumentKind
		expected []models.DocumentKind
	}{
		{
			name:     "nothing uploaded",
			uploaded: nil,
			expected: required,
		},
		{
			name:     "partial upload",
			uploaded: []models.DocumentKind{models.DocumentIDFront, models.DocumentSelfie},
			expected: []models.DocumentKind{models.DocumentIDBack},
		},
		{
			name:     "complete set",
			uploaded: required,
			expected: nil,
		},
		{
			name:     "extras do not satisfy required kinds",
			uploaded: []models.DocumentKind{models.DocumentCertificate, models.DocumentProofOfAddress},
			expected: required,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, documents.MissingKinds(required, tc.uploaded))
		})
	}
}

func TestValidateKind(t *testing.T) {
	assert.NoError(t, documents.ValidateKind(models.DocumentIDFront))
	assert.NoError(t, documents.ValidateKind(models.DocumentCertificate))

	err := documents.ValidateKind(models.DocumentKind("passport_scan"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestInMemoryStore_RecordUploadIsIdempotentPerKind(t *testing.T) {
	store := memory.NewInMemoryStore()
	providerID := id.NewProviderID()

	require.NoError(t, store.RecordUpload(context.Background(), providerID, models.DocumentIDFront))
	require.NoError(t, store.RecordUpload(context.Background(), providerID, models.DocumentIDFront))
	require.NoError(t, store.RecordUpload(context.Background(), providerID, models.DocumentSelfie))

	kinds, err := store.ListUploadedKinds(context.Background(), providerID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.DocumentKind{models.DocumentIDFront, models.DocumentSelfie}, kinds)
}

func TestInMemoryStore_ProvidersAreIsolated(t *testing.T) {
	store := memory.NewInMemoryStore()
	first := id.NewProviderID()
	second := id.NewProviderID()

	require.NoError(t, store.RecordUpload(context.Background(), first, models.DocumentIDBack))

	kinds, err := store.ListUploadedKinds(context.Background(), second)
	require.NoError(t, err)
	assert.Empty(t, kinds)
}
