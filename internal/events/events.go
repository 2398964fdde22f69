// Package events defines the domain events published for external
// subscribers. Nothing inside the service consumes them; correctness never
// depends on a subscriber seeing an event.
package events

import (
	"context"
	"time"

	id "landledger/pkg/domain"
)

// Action names a domain event.
type Action string

const (
	ActionRoleGranted Action = "role_granted"
	ActionRoleRevoked Action = "role_revoked"

	ActionLandRegistered Action = "land_registered"
	ActionLandVerified   Action = "land_verified"

	ActionVerificationRequested Action = "verification_requested"
	ActionVerificationRejected  Action = "verification_rejected"

	ActionCertificateMinted Action = "certificate_minted"

	ActionProofSubmitted   Action = "proof_submitted"
	ActionProofVerified    Action = "proof_verified"
	ActionProofInvalidated Action = "proof_invalidated"

	ActionTransferRequested Action = "transfer_requested"
	ActionEscrowFunded      Action = "escrow_funded"
	ActionTransferApproved  Action = "transfer_approved"
	ActionTransferCompleted Action = "transfer_completed"
	ActionTransferCancelled Action = "transfer_cancelled"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Only the fields
// relevant to the action are populated.
type Event struct {
	Action    Action
	Timestamp time.Time
	Actor     id.Account

	LandID        id.LandID
	Role          id.Role
	Grantee       id.Account
	RequestID     id.RequestID
	DocumentHash  id.DocumentHash
	ProofHash     id.ProofHash
	CertificateID id.CertificateID
	TransferID    id.TransferID
	Counterparty  id.Account
	Amount        uint64
	Reason        string

	// CorrelationID carries the HTTP request ID when the event originated
	// from an API call.
	CorrelationID string
}

// Store persists or forwards published events. Implementations: in-memory
// (tests, single-node deployments) and Kafka (events/kafka).
type Store interface {
	Append(ctx context.Context, event Event) error
}
