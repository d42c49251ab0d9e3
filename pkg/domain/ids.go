// Package domain holds typed identifiers shared across modules. Wrapping
// uuid.UUID in distinct types makes cross-entity assignment a compile error.
package domain

import (
	"github.com/google/uuid"

	dErrors "confia/pkg/domain-errors"
)

// ProviderID identifies a marketplace service provider. The provider profile
// itself is owned by an external collaborator; we only track the identifier.
type ProviderID uuid.UUID

// AdminID identifies an administrator acting on a verification workflow.
type AdminID uuid.UUID

func (id ProviderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProviderID) String() string { return uuid.UUID(id).String() }

func (id AdminID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) String() string { return uuid.UUID(id).String() }

// NewProviderID returns a fresh random provider identifier.
func NewProviderID() ProviderID { return ProviderID(uuid.New()) }

// NewAdminID returns a fresh random admin identifier.
func NewAdminID() AdminID { return AdminID(uuid.New()) }

// ParseProviderID validates and parses a provider ID from its string form.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseProviderID(s string) (ProviderID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ProviderID{}, err
	}
	return ProviderID(u), nil
}

// ParseAdminID validates and parses an admin ID from its string form.
func ParseAdminID(s string) (AdminID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AdminID{}, err
	}
	return AdminID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "identifier must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "identifier is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "identifier must not be the nil UUID")
	}
	return u, nil
}
