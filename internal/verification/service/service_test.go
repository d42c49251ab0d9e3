package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"
	"confia/pkg/requestcontext"

	documentsmem "confia/internal/documents/store/memory"
	"confia/internal/history"
	historymem "confia/internal/history/store/memory"
	"confia/internal/notification"
	"confia/internal/profile"
	scoremem "confia/internal/trustscore/store/memory"
	"confia/internal/validators"
	"confia/internal/validators/background"
	"confia/internal/validators/biometric"
	"confia/internal/validators/rut"
	"confia/internal/verification/models"
	"confia/internal/verification/service"
	verificationmem "confia/internal/verification/store/memory"
)

// validRUT passes the checksum, classifies clean on the stand-in background
// check and scores 0.92 on the stand-in face match.
const validRUT = "12345678-5"

// fixture wires a service against in-memory everything.
type fixture struct {
	svc       *service.Service
	store     *verificationmem.InMemoryStore
	docs      *documentsmem.InMemoryStore
	historian *historymem.InMemoryStore
	recorder  *history.Recorder
	scores    *scoremem.InMemoryStore
	profiles  *profile.StaticSource
	publisher *notification.MemoryPublisher
}

// fastRetry keeps retry-path tests quick.
func fastRetry() validators.RetryPolicy {
	return validators.RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond, Timeout: time.Second}
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()

	registry := validators.NewRegistry()
	require.NoError(t, registry.Register(rut.NewStandIn()))
	require.NoError(t, registry.Register(background.NewStandIn()))
	require.NoError(t, registry.Register(biometric.NewStandIn()))

	return newFixtureWithRegistry(t, registry, opts...)
}

func newFixtureWithRegistry(t *testing.T, registry *validators.Registry, opts ...service.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:     verificationmem.NewInMemoryStore(),
		docs:      documentsmem.NewInMemoryStore(),
		historian: historymem.NewInMemoryStore(),
		scores:    scoremem.NewInMemoryStore(),
		profiles:  profile.NewStaticSource(),
		publisher: notification.NewMemoryPublisher(),
	}
	f.recorder = history.NewRecorder(f.historian)

	opts = append([]service.Option{
		service.WithPublisher(f.publisher),
		service.WithRetryPolicy(fastRetry()),
	}, opts...)

	svc, err := service.New(f.store, f.docs, registry, f.recorder, f.scores, f.profiles, opts...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// uploadRequired uploads the full required document set.
func (f *fixture) uploadRequired(t *testing.T, ctx context.Context, providerID id.ProviderID) {
	t.Helper()
	for _, kind := range models.RequiredDocuments() {
		require.NoError(t, f.svc.UploadDocument(ctx, providerID, kind))
	}
}

// stubValidator drives a specific workflow branch from tests.
type stubValidator struct {
	kind    models.OutcomeKind
	status  models.OutcomeStatus
	score   float64
	err     error
	failFor int // number of leading calls that return err
	calls   int
}

func (s *stubValidator) Kind() models.OutcomeKind     { return s.kind }
func (s *stubValidator) Source() models.OutcomeSource { return models.SourceStandIn }

func (s *stubValidator) Validate(_ context.Context, _ id.ProviderID, _ string) (*models.ValidationOutcome, error) {
	s.calls++
	if s.err != nil && (s.failFor == 0 || s.calls <= s.failFor) {
		return nil, s.err
	}
	return &models.ValidationOutcome{
		Kind:   s.kind,
		Status: s.status,
		Score:  s.score,
		Source: models.SourceStandIn,
	}, nil
}

// stubRegistry builds a registry from plain stubs; any kind not listed gets
// its deterministic stand-in.
func stubRegistry(t *testing.T, stubs ...*stubValidator) *validators.Registry {
	t.Helper()

	registry := validators.NewRegistry()
	stubbed := make(map[models.OutcomeKind]bool)
	for _, stub := range stubs {
		require.NoError(t, registry.Register(stub))
		stubbed[stub.kind] = true
	}
	if !stubbed[models.KindRUTIdentity] {
		require.NoError(t, registry.Register(rut.NewStandIn()))
	}
	if !stubbed[models.KindBackgroundCheck] {
		require.NoError(t, registry.Register(background.NewStandIn()))
	}
	if !stubbed[models.KindBiometricMatch] {
		require.NoError(t, registry.Register(biometric.NewStandIn()))
	}
	return registry
}

// profileSnapshot is a healthy marketplace profile for scoring tests.
func profileSnapshot() profile.Snapshot {
	return profile.Snapshot{
		Completeness:       0.8,
		ReviewCount:        10,
		AverageRating:      4.5,
		CertificationCount: 2,
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	return requestcontext.WithTime(context.Background(), time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC))
}

// ===========================================================================
// Start
// ===========================================================================

func TestStart_CreatesWorkflowAtDocumentsUpload(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	providerID := id.NewProviderID()

	verification, err := f.svc.Start(ctx, providerID, validRUT)
	require.NoError(t, err)

	require.Equal(t, models.StepDocumentsUpload, verification.CurrentStep)
	require.Equal(t, models.DecisionPending, verification.FinalDecision)
	require.True(t, verification.AutoVerificationPossible)
	require.Empty(t, verification.StepsCompleted)
	require.Equal(t, validRUT, verification.RUT)

	require.Equal(t, []notification.EventType{notification.EventVerificationStarted}, f.publisher.Types())
}

func TestStart_NormalizesRUT(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	verification, err := f.svc.Start(ctx, id.NewProviderID(), " 12.345.678-5 ")
	require.NoError(t, err)
	require.Equal(t, "12345678-5", verification.RUT)
}

func TestStart_RejectsMalformedRUT(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	_, err := f.svc.Start(ctx, id.NewProviderID(), "not-a-rut")
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestStart_SecondStartConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	providerID := id.NewProviderID()

	_, err := f.svc.Start(ctx, providerID, validRUT)
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, providerID, validRUT)
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

// ===========================================================================
// Documents
// ===========================================================================

func TestUploadDocument_RecordsAndAudits(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	providerID := id.NewProviderID()

	_, err := f.svc.Start(ctx, providerID, validRUT)
	require.NoError(t, err)

	require.NoError(t, f.svc.UploadDocument(ctx, providerID, models.DocumentIDFront))

	kinds, err := f.docs.ListUploadedKinds(ctx, providerID)
	require.NoError(t, err)
	require.Equal(t, []models.DocumentKind{models.DocumentIDFront}, kinds)

	entries, err := f.svc.History(ctx, providerID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, history.ActionDocumentUploaded, entries[0].ActionType)
	require.Equal(t, history.ActorProvider, entries[0].PerformedByType)
	require.Equal(t, models.DocumentIDFront, entries[0].Payload.DocumentKind)
}

func TestUploadDocument_RejectsUnknownKind(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	providerID := id.NewProviderID()

	_, err := f.svc.Start(ctx, providerID, validRUT)
	require.NoError(t, err)

	err = f.svc.UploadDocument(ctx, providerID, models.DocumentKind("drivers_license"))
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestUploadDocument_RejectedAfterTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	providerID := id.NewProviderID()

	_, err := f.svc.Start(ctx, providerID, validRUT)
	require.NoError(t, err)
	f.uploadRequired(t, ctx, providerID)
	_, err = f.svc.Advance(ctx, providerID)
	require.NoError(t, err)

	err = f.svc.UploadDocument(ctx, providerID, models.DocumentCertificate)
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestUploadDocument_UnknownProvider(t *testing.T) {
	f := newFixture(t)

	err := f.svc.UploadDocument(testContext(t), id.NewProviderID(), models.DocumentIDFront)
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
