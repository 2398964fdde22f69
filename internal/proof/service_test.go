package proof

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"landledger/internal/access"
	"landledger/internal/events"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/requestcontext"
)

const (
	owner    = id.Account("0xowner")
	verifier = id.Account("0xverifier")
)

type ProofSuite struct {
	suite.Suite
	service *Service
	sink    *events.InMemoryStore
	ctx     context.Context
}

func (s *ProofSuite) SetupTest() {
	roles := access.NewInMemoryStore()
	_, err := roles.Grant(context.Background(), id.RoleVerifier, verifier)
	s.Require().NoError(err)

	s.sink = events.NewInMemoryStore()
	s.service = NewService(NewInMemoryStore(), roles, events.NewPublisher(s.sink))
	s.ctx = context.Background()
}

func TestProofSuite(t *testing.T) {
	suite.Run(t, new(ProofSuite))
}

func (s *ProofSuite) asOwner() context.Context {
	return requestcontext.WithActor(s.ctx, owner)
}

func (s *ProofSuite) asVerifier() context.Context {
	return requestcontext.WithActor(s.ctx, verifier)
}

func (s *ProofSuite) TestSubmitProof() {
	s.Run("accepts a fresh hash for a fresh parcel", func() {
		hash, err := s.service.SubmitProof(s.asOwner(), "L1", "P1")
		s.Require().NoError(err)
		s.EqualValues("P1", hash)
		s.Len(s.sink.ByAction(events.ActionProofSubmitted), 1)
	})

	s.Run("rejects a reused hash even on a different parcel", func() {
		_, err := s.service.SubmitProof(s.asOwner(), "L2", "P1")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects a second proof for the same parcel", func() {
		_, err := s.service.SubmitProof(s.asOwner(), "L1", "P2")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects anonymous callers", func() {
		_, err := s.service.SubmitProof(s.ctx, "L3", "P3")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ProofSuite) TestVerifyProof() {
	_, err := s.service.SubmitProof(s.asOwner(), "L1", "P1")
	s.Require().NoError(err)

	s.Run("requires the verifier role", func() {
		err := s.service.VerifyProof(s.asOwner(), "P1", true)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("positive verdict makes the proof permanently valid", func() {
		s.Require().NoError(s.service.VerifyProof(s.asVerifier(), "P1", true))

		valid, err := s.service.IsValid(s.ctx, "P1")
		s.Require().NoError(err)
		s.True(valid)

		proof, err := s.service.GetProof(s.ctx, "P1")
		s.Require().NoError(err)
		s.Equal(verifier, proof.Verifier)
		s.False(proof.VerifiedAt.IsZero())
	})

	s.Run("re-adjudicating a verified proof fails", func() {
		err := s.service.VerifyProof(s.asVerifier(), "P1", false)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown hash reports not found", func() {
		err := s.service.VerifyProof(s.asVerifier(), "P404", true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProofSuite) TestNegativeVerdictIsTerminal() {
	_, err := s.service.SubmitProof(s.asOwner(), "L1", "P1")
	s.Require().NoError(err)
	s.Require().NoError(s.service.VerifyProof(s.asVerifier(), "P1", false))

	s.Run("proof record survives invalidation", func() {
		proof, err := s.service.GetProof(s.ctx, "P1")
		s.Require().NoError(err)
		s.False(proof.IsValid)
		s.Equal(verifier, proof.Verifier)
		s.Len(s.sink.ByAction(events.ActionProofInvalidated), 1)
	})

	s.Run("verdict cannot be flipped afterward", func() {
		err := s.service.VerifyProof(s.asVerifier(), "P1", true)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("hash stays burned for other parcels", func() {
		_, err := s.service.SubmitProof(s.asOwner(), "L2", "P1")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("parcel slot stays occupied", func() {
		_, err := s.service.SubmitProof(s.asOwner(), "L1", "P2")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ProofSuite) TestIsValidForUnknownHash() {
	valid, err := s.service.IsValid(s.ctx, "P404")
	s.Require().NoError(err)
	s.False(valid)
}
