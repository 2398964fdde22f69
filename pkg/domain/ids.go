// Package domain defines the typed identifiers shared across modules. Keeping
// them as distinct types prevents accidental cross-assignment (a land id is not
// a proof hash) without pulling module packages into each other.
package domain

// Account identifies a caller of the system. It is supplied by the execution
// environment (JWT subject), never by request payloads.
type Account string

// ZeroAccount is the absent/invalid identity. Operations that require a
// counterparty must reject it.
const ZeroAccount Account = ""

func (a Account) IsZero() bool { return a == ZeroAccount }

func (a Account) String() string { return string(a) }

// LandID is the caller-supplied unique identifier of a parcel.
type LandID string

func (l LandID) String() string { return string(l) }

// DocumentHash is the opaque hash of a notarized document attached to a
// verification request.
type DocumentHash string

// ProofHash is the content-derived identifier of an ownership proof. Unique
// across the whole system, forever.
type ProofHash string

// CertificateID is the sequential identifier of an ownership certificate.
// Zero means "no certificate".
type CertificateID uint64

func (c CertificateID) IsZero() bool { return c == 0 }

// RequestID is the sequential identifier of a verification request. Zero is
// the "does not exist" sentinel.
type RequestID uint64

// TransferID is the sequential identifier of a transfer request. Zero means
// "no active transfer".
type TransferID uint64

func (t TransferID) IsZero() bool { return t == 0 }

// Role names a capability grant in the access control table.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleNotary   Role = "NOTARY"
	RoleVerifier Role = "VERIFIER"
)
