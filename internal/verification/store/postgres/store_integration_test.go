//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "confia/pkg/domain"
	"confia/pkg/platform/sentinel"
	"confia/pkg/testutil/containers"

	"confia/internal/verification/models"
	"confia/internal/verification/store/postgres"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "provider_verifications", "validation_outcomes")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newVerification() *models.ProviderVerification {
	verification, err := models.NewProviderVerification(id.NewProviderID(), "12345678-5", time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return verification
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundTrip() {
	ctx := context.Background()
	verification := s.newVerification()

	s.Require().NoError(s.store.CreateVerification(ctx, verification))

	got, err := s.store.GetVerification(ctx, verification.ProviderID)
	s.Require().NoError(err)
	s.Equal(verification.ProviderID, got.ProviderID)
	s.Equal(verification.RUT, got.RUT)
	s.Equal(models.StepDocumentsUpload, got.CurrentStep)
	s.Empty(got.StepsCompleted)
	s.Equal(models.DecisionPending, got.FinalDecision)
	s.True(got.AutoVerificationPossible)
	s.Nil(got.CompletedAt)
}

func (s *PostgresStoreSuite) TestCreateDuplicateConflicts() {
	ctx := context.Background()
	verification := s.newVerification()

	s.Require().NoError(s.store.CreateVerification(ctx, verification))
	err := s.store.CreateVerification(ctx, verification)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetUnknownProvider() {
	_, err := s.store.GetVerification(context.Background(), id.NewProviderID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdatePersistsProgress() {
	ctx := context.Background()
	verification := s.newVerification()
	s.Require().NoError(s.store.CreateVerification(ctx, verification))

	completedAt := time.Now().UTC().Truncate(time.Microsecond)
	verification.CurrentStep = models.StepCompleted
	verification.StepsCompleted = []models.Step{
		models.StepDocumentsUpload,
		models.StepRUTValidation,
		models.StepBackgroundCheck,
		models.StepIdentityVerification,
		models.StepFinalApproval,
	}
	verification.FinalDecision = models.DecisionApproved
	verification.CompletedAt = &completedAt

	s.Require().NoError(s.store.UpdateVerification(ctx, verification))

	got, err := s.store.GetVerification(ctx, verification.ProviderID)
	s.Require().NoError(err)
	s.Equal(models.StepCompleted, got.CurrentStep)
	s.Equal(verification.StepsCompleted, got.StepsCompleted)
	s.Equal(models.DecisionApproved, got.FinalDecision)
	s.Require().NotNil(got.CompletedAt)
	s.True(completedAt.Equal(*got.CompletedAt))
}

func (s *PostgresStoreSuite) TestUpdateUnknownProvider() {
	verification := s.newVerification()
	err := s.store.UpdateVerification(context.Background(), verification)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestOutcomesOrderedByObservation() {
	ctx := context.Background()
	providerID := id.NewProviderID()
	base := time.Now().UTC().Truncate(time.Microsecond)

	outcomes := []models.ValidationOutcome{
		{Kind: models.KindRUTIdentity, Status: models.StatusValid, Source: models.SourceStandIn, ObservedAt: base},
		{Kind: models.KindBackgroundCheck, Status: models.StatusClean, Source: models.SourceStandIn, ObservedAt: base.Add(time.Second)},
		{Kind: models.KindBiometricMatch, Status: models.StatusMatch, Score: 0.92, Source: models.SourceStandIn, ObservedAt: base.Add(2 * time.Second)},
	}
	for _, outcome := range outcomes {
		s.Require().NoError(s.store.SaveOutcome(ctx, providerID, outcome))
	}

	got, err := s.store.ListOutcomes(ctx, providerID)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	for i, outcome := range outcomes {
		s.Equal(outcome.Kind, got[i].Kind)
		s.Equal(outcome.Status, got[i].Status)
		s.Equal(outcome.Source, got[i].Source)
		s.InDelta(outcome.Score, got[i].Score, 1e-9)
		s.True(outcome.ObservedAt.Equal(got[i].ObservedAt))
	}
}

func (s *PostgresStoreSuite) TestOutcomesScopedToProvider() {
	ctx := context.Background()
	first := id.NewProviderID()
	second := id.NewProviderID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.SaveOutcome(ctx, first, models.ValidationOutcome{
		Kind: models.KindRUTIdentity, Status: models.StatusValid, Source: models.SourceStandIn, ObservedAt: now,
	}))

	got, err := s.store.ListOutcomes(ctx, second)
	s.Require().NoError(err)
	s.Empty(got)
}
