// Package profile exposes marketplace profile signals consumed by trust
// scoring: profile completeness, review aggregates and certification counts.
// The marketplace core owns this data; verification only reads it.
package profile

import (
	"context"

	id "confia/pkg/domain"
)

// Snapshot is the profile state relevant to trust scoring at one moment.
type Snapshot struct {
	// Completeness is the filled fraction of the provider's profile, in [0,1].
	Completeness float64 `json:"completeness"`

	// ReviewCount and AverageRating summarize marketplace reviews. Rating
	// is on a 1-5 scale and zero when there are no reviews.
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`

	CertificationCount int `json:"certification_count"`
}

// Source fetches the current profile snapshot for a provider. A provider
// unknown to the marketplace yields a zero snapshot, not an error.
type Source interface {
	Snapshot(ctx context.Context, providerID id.ProviderID) (Snapshot, error)
}

// StaticSource serves fixed snapshots from memory. It backs tests and the
// development server; production wires the marketplace-backed source.
type StaticSource struct {
	snapshots map[id.ProviderID]Snapshot
}

func NewStaticSource() *StaticSource {
	return &StaticSource{snapshots: make(map[id.ProviderID]Snapshot)}
}

func (s *StaticSource) Set(providerID id.ProviderID, snapshot Snapshot) {
	s.snapshots[providerID] = snapshot
}

func (s *StaticSource) Snapshot(_ context.Context, providerID id.ProviderID) (Snapshot, error) {
	return s.snapshots[providerID], nil
}
