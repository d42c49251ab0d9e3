package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"

	id "confia/pkg/domain"

	"confia/internal/validators"
	"confia/internal/verification/models"
)

const validatorName = "biometric_match"

type matchRequest struct {
	ProviderID string `json:"provider_id"`
	Subject    string `json:"subject"`
}

type matchResponse struct {
	Score float64 `json:"score"`
}

// NewLive returns the face matcher backed by the biometric vendor API.
func NewLive(baseURL string, client *http.Client) *Validator {
	if client == nil {
		client = http.DefaultClient
	}
	cb := gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name: "biometric-vendor",
	})

	return &Validator{
		source: models.SourceLive,
		match: func(ctx context.Context, providerID id.ProviderID, subject string) (float64, error) {
			return cb.Execute(func() (float64, error) {
				return fetchScore(ctx, client, baseURL, providerID, subject)
			})
		},
	}
}

func fetchScore(ctx context.Context, client *http.Client, baseURL string, providerID id.ProviderID, subject string) (float64, error) {
	payload, err := json.Marshal(matchRequest{ProviderID: providerID.String(), Subject: subject})
	if err != nil {
		return 0, validators.NewProviderError(validators.ErrorInternal, validatorName, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/match", bytes.NewReader(payload))
	if err != nil {
		return 0, validators.NewProviderError(validators.ErrorInternal, validatorName, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, validators.NewProviderError(validators.ErrorTimeout, validatorName, "biometric call timed out", err)
		}
		return 0, validators.NewProviderError(validators.ErrorOutage, validatorName, "biometric vendor unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, validators.NewProviderError(validators.ErrorOutage, validatorName,
			fmt.Sprintf("biometric vendor returned %d", resp.StatusCode), nil)
	}

	var parsed matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, validators.NewProviderError(validators.ErrorBadData, validatorName, "decode vendor response", err)
	}
	if parsed.Score < 0 || parsed.Score > 1 {
		return 0, validators.NewProviderError(validators.ErrorBadData, validatorName,
			fmt.Sprintf("vendor score %f out of range [0,1]", parsed.Score), nil)
	}
	return parsed.Score, nil
}
