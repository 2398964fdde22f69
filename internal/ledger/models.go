package ledger

import (
	"time"

	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

// Metadata is the immutable snapshot of parcel data captured at mint time.
// It does not track later parcel changes; external readers treat the
// certificate as the state of the parcel when it was tokenized.
type Metadata struct {
	LandID      id.LandID `json:"land_id"`
	Title       string    `json:"title"`
	Area        uint64    `json:"area"`
	Address     string    `json:"address,omitempty"`
	Coordinates string    `json:"coordinates,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Validate enforces the minting requirements on the snapshot.
func (m Metadata) Validate() error {
	if m.LandID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "metadata land id is required")
	}
	if m.Title == "" {
		return dErrors.New(dErrors.CodeBadRequest, "metadata title is required")
	}
	if m.Area == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "metadata area must be positive")
	}
	return nil
}

// Certificate is a singly-owned ownership token bound to one parcel. Minting
// is irreversible; there is no burn.
type Certificate struct {
	ID         id.CertificateID
	Owner      id.Account
	URI        string
	Metadata   Metadata
	IsVerified bool
	MintedAt   time.Time
}

// CanTransfer checks the ownership precondition for moving the certificate.
func (c *Certificate) CanTransfer(from id.Account) error {
	if c.Owner != from {
		return dErrors.New(dErrors.CodeUnauthorized, "from account is not the certificate owner")
	}
	return nil
}

// ApplyTransfer reassigns the owner. Call CanTransfer first.
func (c *Certificate) ApplyTransfer(to id.Account) {
	c.Owner = to
}
