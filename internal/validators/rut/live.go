package rut

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker/v2"

	id "confia/pkg/domain"

	"confia/internal/validators"
	"confia/internal/verification/models"
)

const validatorName = "rut_identity"

// registryResponse is the wire shape returned by the civil registry gateway.
type registryResponse struct {
	Status string `json:"status"` // "valid" | "invalid" | "not_found"
}

// NewLive returns the RUT validator backed by the civil registry gateway. A
// circuit breaker sheds load once the registry starts failing so retries do
// not pile up against a struggling upstream.
func NewLive(baseURL string, client *http.Client) *Validator {
	if client == nil {
		client = http.DefaultClient
	}
	cb := gobreaker.NewCircuitBreaker[models.OutcomeStatus](gobreaker.Settings{
		Name: "rut-registry",
	})

	return &Validator{
		source: models.SourceLive,
		lookup: func(ctx context.Context, providerID id.ProviderID, body string) (models.OutcomeStatus, error) {
			return cb.Execute(func() (models.OutcomeStatus, error) {
				return fetchStatus(ctx, client, baseURL, body)
			})
		},
	}
}

func fetchStatus(ctx context.Context, client *http.Client, baseURL, body string) (models.OutcomeStatus, error) {
	endpoint := fmt.Sprintf("%s/rut/%s", baseURL, url.PathEscape(body))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", validators.NewProviderError(validators.ErrorInternal, validatorName, "build request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", validators.NewProviderError(validators.ErrorTimeout, validatorName, "registry call timed out", err)
		}
		return "", validators.NewProviderError(validators.ErrorOutage, validatorName, "registry unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", validators.NewProviderError(validators.ErrorAuthentication, validatorName,
			fmt.Sprintf("registry rejected credentials (%d)", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", validators.NewProviderError(validators.ErrorRateLimited, validatorName, "registry rate limit", nil)
	default:
		return "", validators.NewProviderError(validators.ErrorOutage, validatorName,
			fmt.Sprintf("registry returned %d", resp.StatusCode), nil)
	}

	var parsed registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", validators.NewProviderError(validators.ErrorBadData, validatorName, "decode registry response", err)
	}

	switch parsed.Status {
	case "valid":
		return models.StatusValid, nil
	case "invalid":
		return models.StatusInvalid, nil
	case "not_found":
		return models.StatusNotFound, nil
	default:
		return "", validators.NewProviderError(validators.ErrorBadData, validatorName,
			fmt.Sprintf("unknown registry status %q", parsed.Status), nil)
	}
}
