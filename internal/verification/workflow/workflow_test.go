package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"
	"confia/pkg/testutil"

	"confia/internal/verification/models"
)

func allRequired() map[models.DocumentKind]bool {
	docs := make(map[models.DocumentKind]bool)
	for _, kind := range models.RequiredDocuments() {
		docs[kind] = true
	}
	return docs
}

func outcome(kind models.OutcomeKind, status models.OutcomeStatus, score float64) *models.ValidationOutcome {
	return &models.ValidationOutcome{Kind: kind, Status: status, Score: score, Source: models.SourceStandIn}
}

func TestNext_Documents(t *testing.T) {
	policy := DefaultPolicy()

	t.Run("advances when all required documents present", func(t *testing.T) {
		tr, err := Next(policy, models.StepDocumentsUpload, Input{Documents: allRequired()})
		require.NoError(t, err)
		assert.Equal(t, models.StepRUTValidation, tr.Next)
		assert.Equal(t, models.StepDocumentsUpload, tr.Satisfied)
	})

	t.Run("stays while any required document is missing", func(t *testing.T) {
		docs := allRequired()
		delete(docs, models.DocumentSelfie)

		tr, err := Next(policy, models.StepDocumentsUpload, Input{Documents: docs})
		require.NoError(t, err)
		assert.False(t, tr.Moved(models.StepDocumentsUpload))
		assert.Empty(t, tr.Satisfied)
	})

	t.Run("optional documents do not substitute for required ones", func(t *testing.T) {
		docs := map[models.DocumentKind]bool{
			models.DocumentCertificate:    true,
			models.DocumentProofOfAddress: true,
		}
		tr, err := Next(policy, models.StepDocumentsUpload, Input{Documents: docs})
		require.NoError(t, err)
		assert.False(t, tr.Moved(models.StepDocumentsUpload))
	})
}

func TestNext_RUTValidation(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		status   models.OutcomeStatus
		want     models.Step
		decision models.Decision
		review   bool
	}{
		{"valid advances to background check", DefaultPolicy(), models.StatusValid, models.StepBackgroundCheck, "", false},
		{"invalid rejects by default", DefaultPolicy(), models.StatusInvalid, models.StepRejected, models.DecisionRejected, false},
		{"not_found rejects by default", DefaultPolicy(), models.StatusNotFound, models.StepRejected, models.DecisionRejected, false},
		{
			"invalid routes to review under lenient policy",
			Policy{BiometricThreshold: 0.85, RUTInvalidManualReview: true, RequiredDocuments: models.RequiredDocuments()},
			models.StatusInvalid, models.StepManualReview, "", true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := Next(tc.policy, models.StepRUTValidation, Input{
				Outcome: outcome(models.KindRUTIdentity, tc.status, 0),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, tr.Next)
			assert.Equal(t, tc.decision, tr.Decision)
			assert.Equal(t, tc.review, tr.RequiresManualReview)
		})
	}

	t.Run("error outcome holds the step", func(t *testing.T) {
		tr, err := Next(DefaultPolicy(), models.StepRUTValidation, Input{
			Outcome: outcome(models.KindRUTIdentity, models.StatusError, 0),
		})
		require.NoError(t, err)
		assert.False(t, tr.Moved(models.StepRUTValidation))
	})

	t.Run("outcome for another check is ignored", func(t *testing.T) {
		tr, err := Next(DefaultPolicy(), models.StepRUTValidation, Input{
			Outcome: outcome(models.KindBackgroundCheck, models.StatusClean, 0),
		})
		require.NoError(t, err)
		assert.False(t, tr.Moved(models.StepRUTValidation))
	})
}

func TestNext_BackgroundCheck(t *testing.T) {
	tests := []struct {
		name     string
		status   models.OutcomeStatus
		want     models.Step
		decision models.Decision
		review   bool
	}{
		{"clean advances to identity verification", models.StatusClean, models.StepIdentityVerification, "", false},
		{"flagged goes to manual review", models.StatusFlagged, models.StepManualReview, "", true},
		{"criminal record rejects", models.StatusCriminalRecord, models.StepRejected, models.DecisionRejected, false},
		{"error holds the step", models.StatusError, models.StepBackgroundCheck, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := Next(DefaultPolicy(), models.StepBackgroundCheck, Input{
				Outcome: outcome(models.KindBackgroundCheck, tc.status, 0),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, tr.Next)
			assert.Equal(t, tc.decision, tr.Decision)
			assert.Equal(t, tc.review, tr.RequiresManualReview)
		})
	}
}

func TestNext_Biometric(t *testing.T) {
	policy := DefaultPolicy()

	t.Run("score at threshold advances", func(t *testing.T) {
		tr, err := Next(policy, models.StepIdentityVerification, Input{
			Outcome: outcome(models.KindBiometricMatch, models.StatusMatch, 0.85),
		})
		require.NoError(t, err)
		assert.Equal(t, models.StepFinalApproval, tr.Next)
	})

	t.Run("score under threshold goes to review", func(t *testing.T) {
		tr, err := Next(policy, models.StepIdentityVerification, Input{
			Outcome: outcome(models.KindBiometricMatch, models.StatusNoMatch, 0.849),
		})
		require.NoError(t, err)
		assert.Equal(t, models.StepManualReview, tr.Next)
		assert.True(t, tr.RequiresManualReview)
	})

	t.Run("tighter threshold demotes a passing score", func(t *testing.T) {
		strict := policy
		strict.BiometricThreshold = 0.95

		tr, err := Next(strict, models.StepIdentityVerification, Input{
			Outcome: outcome(models.KindBiometricMatch, models.StatusMatch, 0.92),
		})
		require.NoError(t, err)
		assert.Equal(t, models.StepManualReview, tr.Next)
	})
}

func TestNext_ManualReview(t *testing.T) {
	adminID := id.NewAdminID()

	testutil.Given(t, "a workflow parked in manual review", func(t *testing.T) {
		testutil.When(t, "no admin decision has been made", func(t *testing.T) {
			tr, err := Next(DefaultPolicy(), models.StepManualReview, Input{
				Outcome: outcome(models.KindBiometricMatch, models.StatusMatch, 0.99),
			})
			require.NoError(t, err)
			assert.False(t, tr.Moved(models.StepManualReview))
		})

		testutil.When(t, "an admin approves", func(t *testing.T) {
			tr, err := Next(DefaultPolicy(), models.StepManualReview, Input{
				Manual: &ManualDecision{Decision: models.DecisionApproved, AdminID: adminID},
			})
			require.NoError(t, err)
			assert.Equal(t, models.StepFinalApproval, tr.Next)
			assert.Equal(t, models.StepManualReview, tr.Satisfied)
		})

		testutil.When(t, "an admin rejects", func(t *testing.T) {
			tr, err := Next(DefaultPolicy(), models.StepManualReview, Input{
				Manual: &ManualDecision{Decision: models.DecisionRejected, AdminID: adminID},
			})
			require.NoError(t, err)
			assert.Equal(t, models.StepRejected, tr.Next)
			assert.Equal(t, models.DecisionRejected, tr.Decision)
		})

		testutil.When(t, "the decision is not approved or rejected", func(t *testing.T) {
			_, err := Next(DefaultPolicy(), models.StepManualReview, Input{
				Manual: &ManualDecision{Decision: models.DecisionPending, AdminID: adminID},
			})
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	})
}

func TestNext_FinalApprovalAndTerminals(t *testing.T) {
	t.Run("final approval completes unconditionally", func(t *testing.T) {
		tr, err := Next(DefaultPolicy(), models.StepFinalApproval, Input{})
		require.NoError(t, err)
		assert.Equal(t, models.StepCompleted, tr.Next)
		assert.Equal(t, models.DecisionApproved, tr.Decision)
	})

	for _, step := range []models.Step{models.StepCompleted, models.StepRejected} {
		t.Run("no transition leaves "+string(step), func(t *testing.T) {
			_, err := Next(DefaultPolicy(), step, Input{})
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
		})
	}
}
