// Package handler wires the verification workflow endpoints. Provider-facing
// routes are open to the marketplace frontend; the manual decision route sits
// behind admin JWT authentication.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"
	"confia/pkg/platform/httputil"
	"confia/pkg/requestcontext"

	"confia/internal/history"
	"confia/internal/platform/middleware"
	"confia/internal/trustscore"
	"confia/internal/verification/models"
	"confia/internal/verification/workflow"
)

// Service defines the interface for verification operations.
type Service interface {
	Start(ctx context.Context, providerID id.ProviderID, rut string) (*models.ProviderVerification, error)
	UploadDocument(ctx context.Context, providerID id.ProviderID, kind models.DocumentKind) error
	Advance(ctx context.Context, providerID id.ProviderID) (*models.ProviderVerification, error)
	Status(ctx context.Context, providerID id.ProviderID) (*models.ProviderVerification, error)
	History(ctx context.Context, providerID id.ProviderID) ([]history.Entry, error)
	Score(ctx context.Context, providerID id.ProviderID) (*trustscore.Record, error)
	RecordManualDecision(ctx context.Context, providerID id.ProviderID, decision workflow.ManualDecision) (*models.ProviderVerification, error)
}

// Handler wires verification endpoints to the orchestrator.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/verifications", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/", h.HandleStart)
		r.Route("/{providerID}", func(r chi.Router) {
			r.Get("/", h.HandleStatus)
			r.Get("/history", h.HandleHistory)
			r.Get("/score", h.HandleScore)
			r.Post("/documents", h.HandleUploadDocument)
			r.Post("/advance", h.HandleAdvance)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(h.jwtValidator, h.logger))
				r.Post("/decision", h.HandleManualDecision)
			})
		})
	})
}

// HandleStart handles POST /verifications.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*StartVerificationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	verification, err := h.service.Start(ctx, req.ParsedProviderID(), req.RUT)
	if err != nil {
		h.writeServiceError(w, r, "failed to start verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromVerification(verification))
}

// HandleUploadDocument handles POST /verifications/{providerID}/documents.
func (h *Handler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	providerID, ok := h.providerIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*UploadDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.UploadDocument(ctx, providerID, req.DocumentKind()); err != nil {
		h.writeServiceError(w, r, "failed to upload document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAdvance handles POST /verifications/{providerID}/advance.
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerIDFromPath(w, r)
	if !ok {
		return
	}

	verification, err := h.service.Advance(r.Context(), providerID)
	if err != nil {
		h.writeServiceError(w, r, "failed to advance verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(verification))
}

// HandleStatus handles GET /verifications/{providerID}.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerIDFromPath(w, r)
	if !ok {
		return
	}

	verification, err := h.service.Status(r.Context(), providerID)
	if err != nil {
		h.writeServiceError(w, r, "failed to load verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(verification))
}

// HandleHistory handles GET /verifications/{providerID}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerIDFromPath(w, r)
	if !ok {
		return
	}

	entries, err := h.service.History(r.Context(), providerID)
	if err != nil {
		h.writeServiceError(w, r, "failed to load history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHistory(providerID.String(), entries))
}

// HandleScore handles GET /verifications/{providerID}/score.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerIDFromPath(w, r)
	if !ok {
		return
	}

	record, err := h.service.Score(r.Context(), providerID)
	if err != nil {
		h.writeServiceError(w, r, "failed to load trust score", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromScore(record))
}

// HandleManualDecision handles POST /verifications/{providerID}/decision.
func (h *Handler) HandleManualDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	adminID := requestcontext.AdminID(ctx)
	if adminID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	providerID, ok := h.providerIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*ManualDecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	verification, err := h.service.RecordManualDecision(ctx, providerID, workflow.ManualDecision{
		Decision: req.ParsedDecision(),
		AdminID:  adminID,
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, "failed to record manual decision", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(verification))
}

func (h *Handler) providerIDFromPath(w http.ResponseWriter, r *http.Request) (id.ProviderID, bool) {
	providerID, err := id.ParseProviderID(chi.URLParam(r, "providerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProviderID{}, false
	}
	return providerID, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
