// Package trustscore computes a provider's trust score and tier from
// verification facts. Calculation is a pure function: identical facts always
// yield an identical score, which the orchestrator relies on for idempotent
// advances.
package trustscore

import (
	"math"
	"time"

	id "confia/pkg/domain"
	dErrors "confia/pkg/domain-errors"

	"confia/internal/verification/models"
)

// Factor names the scoring factors. Keys of Weights and Record.Breakdown.
type Factor string

const (
	FactorRUTValidation        Factor = "rut_validation"
	FactorBackgroundCheck      Factor = "background_check"
	FactorIdentityVerification Factor = "identity_verification"
	FactorProfileCompleteness  Factor = "profile_completeness"
	FactorReviewHistory        Factor = "review_history"
	FactorCertifications       Factor = "certifications"
)

// Tier buckets a continuous score for display and gating.
type Tier string

const (
	TierUnverified Tier = "unverified"
	TierBasic      Tier = "basic"
	TierVerified   Tier = "verified"
	TierPremium    Tier = "premium"
	TierElite      Tier = "elite"
)

// Fixed tier cutoffs over the 0-100 score.
const (
	thresholdBasic    = 20.0
	thresholdVerified = 40.0
	thresholdPremium  = 65.0
	thresholdElite    = 85.0
)

// TierFor maps a score to its tier. Monotonic by construction.
func TierFor(score float64) Tier {
	switch {
	case score >= thresholdElite:
		return TierElite
	case score >= thresholdPremium:
		return TierPremium
	case score >= thresholdVerified:
		return TierVerified
	case score >= thresholdBasic:
		return TierBasic
	default:
		return TierUnverified
	}
}

// Weights assigns each factor's share of the 0-100 total. They must sum to
// 1.0; Validate is called by the service constructor at wiring time.
type Weights map[Factor]float64

// DefaultWeights is the canonical six-factor breakdown.
func DefaultWeights() Weights {
	return Weights{
		FactorRUTValidation:        0.25,
		FactorBackgroundCheck:      0.20,
		FactorIdentityVerification: 0.20,
		FactorProfileCompleteness:  0.15,
		FactorReviewHistory:        0.10,
		FactorCertifications:       0.10,
	}
}

// LegacyWeights is the simplified binary split found in older deployments.
// It is kept as a named preset for comparison runs and is never merged with
// the canonical breakdown.
func LegacyWeights() Weights {
	return Weights{
		FactorRUTValidation:   0.6,
		FactorBackgroundCheck: 0.4,
	}
}

const weightTolerance = 1e-9

// Validate checks that weights are non-negative and sum to 1.0.
func (w Weights) Validate() error {
	sum := 0.0
	for factor, weight := range w {
		if weight < 0 {
			return dErrors.Newf(dErrors.CodeValidation, "weight for %s must not be negative", factor)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return dErrors.Newf(dErrors.CodeValidation, "weights must sum to 1.0, got %f", sum)
	}
	return nil
}

// Facts are the inputs to one score computation. Validator facts come from
// the workflow; the rest are supplied by the provider-profile collaborator.
type Facts struct {
	RUTOutcome        *models.ValidationOutcome
	BackgroundOutcome *models.ValidationOutcome
	BiometricOutcome  *models.ValidationOutcome

	// ProfileCompleteness is a fraction in [0,1].
	ProfileCompleteness float64

	// ReviewCount and AverageRating aggregate marketplace reviews (rating
	// scale 1-5).
	ReviewCount   int
	AverageRating float64

	CertificationCount int
}

// Record is the latest computed score for a provider.
type Record struct {
	ProviderID   id.ProviderID
	Score        float64
	Tier         Tier
	Breakdown    map[Factor]float64
	CalculatedAt time.Time
}

// allFactors fixes the iteration order so float accumulation is identical on
// every run, regardless of map ordering.
var allFactors = []Factor{
	FactorRUTValidation,
	FactorBackgroundCheck,
	FactorIdentityVerification,
	FactorProfileCompleteness,
	FactorReviewHistory,
	FactorCertifications,
}

// Calculate computes the score, tier, and per-factor breakdown. The breakdown
// values sum to the score within rounding tolerance.
func Calculate(providerID id.ProviderID, facts Facts, weights Weights, now time.Time) Record {
	breakdown := make(map[Factor]float64, len(weights))
	total := 0.0

	for _, factor := range allFactors {
		weight, ok := weights[factor]
		if !ok {
			continue
		}
		contribution := weight * factorScore(factor, facts)
		contribution = math.Round(contribution*100) / 100
		breakdown[factor] = contribution
		total += contribution
	}
	total = math.Round(total*100) / 100

	return Record{
		ProviderID:   providerID,
		Score:        total,
		Tier:         TierFor(total),
		Breakdown:    breakdown,
		CalculatedAt: now,
	}
}

// factorScore maps one factor to a 0-100 sub-score.
func factorScore(factor Factor, facts Facts) float64 {
	switch factor {
	case FactorRUTValidation:
		return outcomeScore(facts.RUTOutcome, func(o *models.ValidationOutcome) float64 {
			if o.Status == models.StatusValid {
				return 100
			}
			return 0
		})
	case FactorBackgroundCheck:
		return outcomeScore(facts.BackgroundOutcome, func(o *models.ValidationOutcome) float64 {
			switch o.Status {
			case models.StatusClean:
				return 100
			case models.StatusFlagged:
				// Partial credit pending manual review.
				return 50
			default:
				return 0
			}
		})
	case FactorIdentityVerification:
		return outcomeScore(facts.BiometricOutcome, func(o *models.ValidationOutcome) float64 {
			return clamp01(o.Score) * 100
		})
	case FactorProfileCompleteness:
		return clamp01(facts.ProfileCompleteness) * 100
	case FactorReviewHistory:
		return reviewScore(facts.ReviewCount, facts.AverageRating)
	case FactorCertifications:
		certs := facts.CertificationCount
		if certs > 5 {
			certs = 5
		}
		return float64(certs) / 5 * 100
	default:
		return 0
	}
}

// reviewScore weighs the average rating by volume so a single five-star
// review does not outrank an established track record.
func reviewScore(count int, average float64) float64 {
	if count <= 0 {
		return 0
	}
	volume := float64(count)
	if volume > 20 {
		volume = 20
	}
	rating := average / 5
	if rating > 1 {
		rating = 1
	}
	if rating < 0 {
		rating = 0
	}
	return (volume / 20) * rating * 100
}

func outcomeScore(o *models.ValidationOutcome, score func(*models.ValidationOutcome) float64) float64 {
	if o == nil || o.Status == models.StatusError {
		return 0
	}
	return score(o)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
