package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "confia/pkg/domain"

	documentsmem "confia/internal/documents/store/memory"
	"confia/internal/history"
	historymem "confia/internal/history/store/memory"
	jwttoken "confia/internal/jwt_token"
	"confia/internal/profile"
	scoremem "confia/internal/trustscore/store/memory"
	"confia/internal/validators"
	"confia/internal/validators/background"
	"confia/internal/validators/biometric"
	"confia/internal/validators/rut"
	"confia/internal/verification/handler"
	"confia/internal/verification/models"
	"confia/internal/verification/service"
	verificationmem "confia/internal/verification/store/memory"
)

const signingKey = "handler-test-signing-key"

// newTestRouter wires the handler against a real service on in-memory
// stores with deterministic stand-in validators.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	registry := validators.NewRegistry()
	require.NoError(t, registry.Register(rut.NewStandIn()))
	require.NoError(t, registry.Register(background.NewStandIn()))
	require.NoError(t, registry.Register(biometric.NewStandIn()))

	svc, err := service.New(
		verificationmem.NewInMemoryStore(),
		documentsmem.NewInMemoryStore(),
		registry,
		history.NewRecorder(historymem.NewInMemoryStore()),
		scoremem.NewInMemoryStore(),
		profile.NewStaticSource(),
	)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtService := jwttoken.NewJWTService(signingKey, "confia", "confia-admin")
	h := handler.New(svc, logger, jwttoken.NewMiddlewareAdapter(jwtService))

	router := chi.NewRouter()
	h.Register(router)
	return router
}

func adminToken(t *testing.T) string {
	t.Helper()
	jwtService := jwttoken.NewJWTService(signingKey, "confia", "confia-admin")
	token, err := jwtService.GenerateAdminToken(uuid.New(), "reviewer", time.Hour)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func startVerification(t *testing.T, router http.Handler) string {
	t.Helper()
	providerID := id.NewProviderID().String()
	w := doJSON(t, router, http.MethodPost, "/verifications", map[string]string{
		"provider_id": providerID,
		"rut":         "12345678-5",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return providerID
}

func uploadRequired(t *testing.T, router http.Handler, providerID string) {
	t.Helper()
	for _, kind := range models.RequiredDocuments() {
		w := doJSON(t, router, http.MethodPost, "/verifications/"+providerID+"/documents",
			map[string]string{"kind": string(kind)}, nil)
		require.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestHandleStart(t *testing.T) {
	router := newTestRouter(t)
	providerID := id.NewProviderID().String()

	w := doJSON(t, router, http.MethodPost, "/verifications", map[string]string{
		"provider_id": providerID,
		"rut":         "12.345.678-5",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp handler.VerificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, providerID, resp.ProviderID)
	assert.Equal(t, "12345678-5", resp.RUT)
	assert.Equal(t, "documents_upload", resp.CurrentStep)
	assert.Equal(t, "pending", resp.FinalDecision)
}

func TestHandleStart_ValidationFailures(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing provider id", map[string]string{"rut": "12345678-5"}},
		{"bad provider id", map[string]string{"provider_id": "nope", "rut": "12345678-5"}},
		{"missing rut", map[string]string{"provider_id": id.NewProviderID().String()}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/verifications", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleStart_DuplicateConflicts(t *testing.T) {
	router := newTestRouter(t)
	providerID := startVerification(t, router)

	w := doJSON(t, router, http.MethodPost, "/verifications", map[string]string{
		"provider_id": providerID,
		"rut":         "12345678-5",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleAdvance_FullRun(t *testing.T) {
	router := newTestRouter(t)
	providerID := startVerification(t, router)
	uploadRequired(t, router, providerID)

	w := doJSON(t, router, http.MethodPost, "/verifications/"+providerID+"/advance", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.VerificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.CurrentStep)
	assert.Equal(t, "approved", resp.FinalDecision)
	assert.NotNil(t, resp.CompletedAt)
}

func TestHandleStatus(t *testing.T) {
	router := newTestRouter(t)
	providerID := startVerification(t, router)

	w := doJSON(t, router, http.MethodGet, "/verifications/"+providerID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.VerificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "documents_upload", resp.CurrentStep)
}

func TestHandleStatus_UnknownProvider(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/verifications/"+id.NewProviderID().String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleStatus_MalformedProviderID(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/verifications/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHistory(t *testing.T) {
	router := newTestRouter(t)
	providerID := startVerification(t, router)
	uploadRequired(t, router, providerID)
	doJSON(t, router, http.MethodPost, "/verifications/"+providerID+"/advance", nil, nil)

	w := doJSON(t, router, http.MethodGet, "/verifications/"+providerID+"/history", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, providerID, resp.ProviderID)
	require.NotEmpty(t, resp.Entries)
	for i, entry := range resp.Entries {
		assert.Equal(t, int64(i+1), entry.Seq)
	}
}

func TestHandleScore(t *testing.T) {
	router := newTestRouter(t)
	providerID := startVerification(t, router)
	uploadRequired(t, router, providerID)
	doJSON(t, router, http.MethodPost, "/verifications/"+providerID+"/advance", nil, nil)

	w := doJSON(t, router, http.MethodGet, "/verifications/"+providerID+"/score", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.ScoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Greater(t, resp.Score, 0.0)
	assert.NotEmpty(t, resp.Tier)
	assert.NotEmpty(t, resp.Breakdown)
}

func TestHandleManualDecision_RequiresAuth(t *testing.T) {
	router := newTestRouter(t)
	providerID := startVerification(t, router)

	w := doJSON(t, router, http.MethodPost, "/verifications/"+providerID+"/decision",
		map[string]string{"decision": "approved"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/verifications/"+providerID+"/decision",
		map[string]string{"decision": "approved"},
		map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleManualDecision_OutsideManualReview(t *testing.T) {
	router := newTestRouter(t)
	providerID := startVerification(t, router)

	w := doJSON(t, router, http.MethodPost, "/verifications/"+providerID+"/decision",
		map[string]string{"decision": "approved", "notes": "lgtm"},
		map[string]string{"Authorization": "Bearer " + adminToken(t)})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleManualDecision_RejectsBadDecision(t *testing.T) {
	router := newTestRouter(t)
	providerID := startVerification(t, router)

	w := doJSON(t, router, http.MethodPost, "/verifications/"+providerID+"/decision",
		map[string]string{"decision": "maybe"},
		map[string]string{"Authorization": "Bearer " + adminToken(t)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
