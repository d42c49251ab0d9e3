// Package service orchestrates the provider verification workflow: it runs
// validators, applies state machine transitions, keeps the audit trail and
// trust score current, and emits provider notifications. All state mutation
// for a provider happens under a per-provider lock, so concurrent requests
// serialize instead of corrupting the workflow.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"
	"confia/pkg/platform/sentinel"
	"confia/pkg/requestcontext"

	"confia/internal/documents"
	"confia/internal/history"
	"confia/internal/notification"
	"confia/internal/profile"
	"confia/internal/trustscore"
	"confia/internal/validators"
	"confia/internal/validators/rut"
	"confia/internal/verification/metrics"
	"confia/internal/verification/models"
	"confia/internal/verification/workflow"
)

var tracer = otel.Tracer("verification")

// Store persists the materialized workflow state and validator outcomes.
type Store interface {
	CreateVerification(ctx context.Context, verification *models.ProviderVerification) error
	GetVerification(ctx context.Context, providerID id.ProviderID) (*models.ProviderVerification, error)
	UpdateVerification(ctx context.Context, verification *models.ProviderVerification) error
	SaveOutcome(ctx context.Context, providerID id.ProviderID, outcome models.ValidationOutcome) error
	ListOutcomes(ctx context.Context, providerID id.ProviderID) ([]models.ValidationOutcome, error)
}

// ScoreStore persists computed trust scores.
type ScoreStore interface {
	Upsert(ctx context.Context, record trustscore.Record) error
	Get(ctx context.Context, providerID id.ProviderID) (*trustscore.Record, error)
}

// Service is the verification workflow orchestrator.
type Service struct {
	store     Store
	documents documents.Store
	recorder  *history.Recorder
	scores    ScoreStore
	profiles  profile.Source
	publisher notification.Publisher
	checks    map[models.OutcomeKind]validators.Validator
	policy    workflow.Policy
	weights   trustscore.Weights
	metrics   *metrics.Metrics
	logger    *slog.Logger
	locks     sync.Map // id.ProviderID -> *sync.Mutex
	retry     validators.RetryPolicy
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPolicy(policy workflow.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

func WithWeights(weights trustscore.Weights) Option {
	return func(s *Service) {
		s.weights = weights
	}
}

func WithRetryPolicy(policy validators.RetryPolicy) Option {
	return func(s *Service) {
		s.retry = policy
	}
}

func WithPublisher(publisher notification.Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// New constructs a Service. The registry must hold a validator for every
// check the workflow can reach; each one is wrapped with the retry policy.
func New(
	store Store,
	docs documents.Store,
	registry *validators.Registry,
	recorder *history.Recorder,
	scores ScoreStore,
	profiles profile.Source,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		store:     store,
		documents: docs,
		recorder:  recorder,
		scores:    scores,
		profiles:  profiles,
		publisher: notification.NoopPublisher{},
		policy:    workflow.DefaultPolicy(),
		weights:   trustscore.DefaultWeights(),
		retry:     validators.DefaultRetryPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.weights.Validate(); err != nil {
		return nil, err
	}

	s.checks = make(map[models.OutcomeKind]validators.Validator, 3)
	for _, kind := range []models.OutcomeKind{models.KindRUTIdentity, models.KindBackgroundCheck, models.KindBiometricMatch} {
		v, ok := registry.Get(kind)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeInternal, "no validator registered for %s", kind)
		}
		s.checks[kind] = validators.WithRetry(v, s.retry, s.logger)
	}
	return s, nil
}

// Start opens a verification workflow for a provider. The RUT is normalized
// but its checksum is not verified here; that happens at the rut_validation
// step so the failure lands in the audit trail.
func (s *Service) Start(ctx context.Context, providerID id.ProviderID, rawRUT string) (*models.ProviderVerification, error) {
	ctx, span := tracer.Start(ctx, "verification.Start")
	defer span.End()

	body, dv, ok := rut.Normalize(rawRUT)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "malformed RUT")
	}
	normalized := body + "-" + dv

	verification, err := models.NewProviderVerification(providerID, normalized, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateVerification(ctx, verification); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "verification already started for provider")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification")
	}

	s.logger.InfoContext(ctx, "verification started",
		"provider_id", providerID,
		"step", verification.CurrentStep,
	)
	s.publisher.Publish(ctx, notification.Event{
		ProviderID: providerID,
		Type:       notification.EventVerificationStarted,
		OccurredAt: requestcontext.Now(ctx),
	})
	return verification, nil
}

// UploadDocument records a document upload and audits it. Uploads are
// accepted at any non-terminal step; re-uploading a kind replaces it.
func (s *Service) UploadDocument(ctx context.Context, providerID id.ProviderID, kind models.DocumentKind) error {
	if err := documents.ValidateKind(kind); err != nil {
		return err
	}

	unlock := s.lockProvider(providerID)
	defer unlock()

	verification, err := s.loadVerification(ctx, providerID)
	if err != nil {
		return err
	}
	if verification.CurrentStep.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "verification already %s", verification.CurrentStep)
	}

	if err := s.documents.RecordUpload(ctx, providerID, kind); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record upload")
	}
	if err := s.recorder.Record(ctx, history.Entry{
		ProviderID:      providerID,
		ActionType:      history.ActionDocumentUploaded,
		PerformedByType: history.ActorProvider,
		PerformedBy:     providerID.String(),
		Payload:         history.Payload{DocumentKind: kind},
		CreatedAt:       requestcontext.Now(ctx),
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit upload")
	}
	return nil
}

// Status returns the materialized workflow state.
func (s *Service) Status(ctx context.Context, providerID id.ProviderID) (*models.ProviderVerification, error) {
	return s.loadVerification(ctx, providerID)
}

// History returns the ordered audit trail.
func (s *Service) History(ctx context.Context, providerID id.ProviderID) ([]history.Entry, error) {
	entries, err := s.recorder.List(ctx, providerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	return entries, nil
}

// Score returns the latest computed trust score.
func (s *Service) Score(ctx context.Context, providerID id.ProviderID) (*trustscore.Record, error) {
	record, err := s.scores.Get(ctx, providerID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no trust score computed for provider")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trust score")
	}
	return record, nil
}

// Outcomes returns all recorded validator outcomes in observation order.
func (s *Service) Outcomes(ctx context.Context, providerID id.ProviderID) ([]models.ValidationOutcome, error) {
	outcomes, err := s.store.ListOutcomes(ctx, providerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load outcomes")
	}
	return outcomes, nil
}

func (s *Service) loadVerification(ctx context.Context, providerID id.ProviderID) (*models.ProviderVerification, error) {
	verification, err := s.store.GetVerification(ctx, providerID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no verification for provider")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	return verification, nil
}

func (s *Service) lockProvider(providerID id.ProviderID) func() {
	mu, _ := s.locks.LoadOrStore(providerID, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}
