package biometric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "confia/pkg/domain"

	"confia/internal/verification/models"
)

func TestStandIn_Scores(t *testing.T) {
	v := NewStandIn()
	providerID := id.NewProviderID()
	ctx := context.Background()

	t.Run("strong match for most subjects", func(t *testing.T) {
		// digit sum 41, not divisible by 7
		outcome, err := v.Validate(ctx, providerID, "12345678-5")
		require.NoError(t, err)
		assert.Equal(t, models.KindBiometricMatch, outcome.Kind)
		assert.Equal(t, models.StatusMatch, outcome.Status)
		assert.InDelta(t, 0.92, outcome.Score, 1e-9)
		assert.Equal(t, models.SourceStandIn, outcome.Source)
	})

	t.Run("weak match when digit sum divides by seven", func(t *testing.T) {
		// digit sum 7
		outcome, err := v.Validate(ctx, providerID, "7")
		require.NoError(t, err)
		assert.Equal(t, models.StatusMatch, outcome.Status)
		assert.InDelta(t, 0.64, outcome.Score, 1e-9)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		first, err := v.Validate(ctx, providerID, "12345678-5")
		require.NoError(t, err)
		second, err := v.Validate(ctx, providerID, "12345678-5")
		require.NoError(t, err)
		assert.Equal(t, first.Score, second.Score)
	})
}
