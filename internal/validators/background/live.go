package background

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

const validatorName = "background_check"

type checkResponse struct {
	Result string `json:"result"` // "clean" | "flagged" | "criminal_record"
}

// NewLive returns the background validator backed by the judicial records
// gateway, circuit-broken the same way as the RUT registry client.
func NewLive(baseURL string, client *http.Client) *Validator {
	if client == nil {
		client = http.DefaultClient
	}
	cb := gobreaker.NewCircuitBreaker[models.OutcomeStatus](gobreaker.Settings{
		Name: "background-registry",
	})

	return &Validator{
		source: models.SourceLive,
		lookup: func(ctx context.Context, providerID id.ProviderID, subject string) (models.OutcomeStatus, error) {
			return cb.Execute(func() (models.OutcomeStatus, error) {
				return fetchResult(ctx, client, baseURL, subject)
			})
		},
	}
}

func fetchResult(ctx context.Context, client *http.Client, baseURL, subject string) (models.OutcomeStatus, error) {
	endpoint := fmt.Sprintf("%s/background/%s", baseURL, url.PathEscape(subject))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", validators.NewProviderError(validators.ErrorInternal, validatorName, "build request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", validators.NewProviderError(validators.ErrorTimeout, validatorName, "background call timed out", err)
		}
		return "", validators.NewProviderError(validators.ErrorOutage, validatorName, "background registry unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", validators.NewProviderError(validators.ErrorOutage, validatorName,
			fmt.Sprintf("background registry returned %d", resp.StatusCode), nil)
	}

	var parsed checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", validators.NewProviderError(validators.ErrorBadData, validatorName, "decode background response", err)
	}

	switch parsed.Result {
	case "clean":
		return models.StatusClean, nil
	case "flagged":
		return models.StatusFlagged, nil
	case "criminal_record":
		return models.StatusCriminalRecord, nil
	default:
		return "", validators.NewProviderError(validators.ErrorBadData, validatorName,
			fmt.Sprintf("unknown background result %q", parsed.Result), nil)
	}
}
