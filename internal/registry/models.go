package registry

import (
	"time"

	"landledger/internal/ledger"
	id "landledger/pkg/domain"
)

// ParcelStatus tracks a parcel's position in the registration pipeline.
// Transitions only move forward: Registered → Verified → Tokenized →
// Transferred. A later transfer of an already-Transferred parcel changes the
// owner but not the status.
type ParcelStatus string

const (
	StatusRegistered  ParcelStatus = "registered"
	StatusVerified    ParcelStatus = "verified"
	StatusTokenized   ParcelStatus = "tokenized"
	StatusTransferred ParcelStatus = "transferred"
)

var statusRank = map[ParcelStatus]int{
	StatusRegistered:  0,
	StatusVerified:    1,
	StatusTokenized:   2,
	StatusTransferred: 3,
}

// Before reports whether s precedes other in the pipeline.
func (s ParcelStatus) Before(other ParcelStatus) bool {
	return statusRank[s] < statusRank[other]
}

// Parcel is the coordinator's view of a land parcel: the current owner, the
// pipeline position, and the certificate id once tokenized.
type Parcel struct {
	LandID        id.LandID        `json:"land_id"`
	Owner         id.Account       `json:"owner"`
	Metadata      ledger.Metadata  `json:"metadata"`
	Status        ParcelStatus     `json:"status"`
	CertificateID id.CertificateID `json:"certificate_id,omitempty"`
	RegisteredAt  time.Time        `json:"registered_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
