package escrow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"landledger/internal/access"
	"landledger/internal/events"
	"landledger/internal/ledger"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sequence"
	"landledger/pkg/requestcontext"
)

const (
	admin  = id.Account("0xadmin")
	notary = id.Account("0xnotary")
	seller = id.Account("0xseller")
	buyer  = id.Account("0xbuyer")
	rando  = id.Account("0xrando")
)

type EscrowSuite struct {
	suite.Suite
	roles   *access.InMemoryStore
	funds   *InMemoryFunds
	ledger  *ledger.Service
	store   *InMemoryStore
	service *Service
	sink    *events.InMemoryStore
	ctx     context.Context

	certID id.CertificateID
}

func (s *EscrowSuite) SetupTest() {
	s.ctx = context.Background()
	s.roles = access.NewInMemoryStore()
	for _, grant := range []struct {
		role    id.Role
		account id.Account
	}{
		{id.RoleAdmin, admin},
		{id.RoleNotary, notary},
	} {
		_, err := s.roles.Grant(s.ctx, grant.role, grant.account)
		s.Require().NoError(err)
	}

	s.sink = events.NewInMemoryStore()
	publisher := events.NewPublisher(s.sink)

	s.ledger = ledger.NewService(ledger.NewInMemoryStore(), s.roles, sequence.New(), publisher)
	s.funds = NewInMemoryFunds()
	s.funds.Mint(buyer, 1_000)

	s.store = NewInMemoryStore()
	s.service = NewService(s.store, s.funds, s.ledger, s.roles, sequence.New(), publisher)

	certID, err := s.ledger.Mint(
		requestcontext.WithActor(s.ctx, notary),
		seller,
		"ipfs://cert-1",
		ledger.Metadata{LandID: "L1", Title: "Plot 12", Area: 450},
	)
	s.Require().NoError(err)
	s.certID = certID
}

func TestEscrowSuite(t *testing.T) {
	suite.Run(t, new(EscrowSuite))
}

func (s *EscrowSuite) as(account id.Account) context.Context {
	return requestcontext.WithActor(s.ctx, account)
}

// checkHeldInvariant asserts sum(escrowAmount) == system-held balance.
func (s *EscrowSuite) checkHeldInvariant() {
	sum, err := s.store.SumEscrow(s.ctx)
	s.Require().NoError(err)
	s.Equal(sum, s.service.HeldBalance(), "held balance must equal the sum of escrow amounts")
}

func (s *EscrowSuite) openTransfer(price uint64) id.TransferID {
	transferID, err := s.service.RequestTransfer(s.as(seller), s.certID, buyer, price, "")
	s.Require().NoError(err)
	s.checkHeldInvariant()
	return transferID
}

func (s *EscrowSuite) fundedTransfer(price uint64) id.TransferID {
	transferID := s.openTransfer(price)
	s.Require().NoError(s.service.FundEscrow(s.as(buyer), transferID, price))
	s.checkHeldInvariant()
	return transferID
}

func (s *EscrowSuite) approvedTransfer(price uint64) id.TransferID {
	transferID := s.fundedTransfer(price)
	s.Require().NoError(s.service.ApproveTransfer(s.as(seller), transferID))
	s.checkHeldInvariant()
	return transferID
}

func (s *EscrowSuite) TestRequestTransfer() {
	s.Run("owner opens a pending transfer", func() {
		transferID := s.openTransfer(100)
		s.EqualValues(1, transferID)

		request, err := s.service.Get(s.ctx, transferID)
		s.Require().NoError(err)
		s.Equal(StatusPending, request.Status)
		s.Equal(seller, request.Seller)
		s.Equal(buyer, request.Buyer)
		s.Zero(request.EscrowAmount)
	})

	s.Run("second active transfer on the same certificate is rejected", func() {
		_, err := s.service.RequestTransfer(s.as(seller), s.certID, rando, 50, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("non-owner cannot open a transfer", func() {
		_, err := s.service.RequestTransfer(s.as(rando), s.certID, buyer, 100, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("zero price is rejected", func() {
		_, err := s.service.RequestTransfer(s.as(seller), s.certID, buyer, 0, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("zero buyer is rejected", func() {
		_, err := s.service.RequestTransfer(s.as(seller), s.certID, id.ZeroAccount, 100, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("self-buyer is rejected", func() {
		_, err := s.service.RequestTransfer(s.as(seller), s.certID, seller, 100, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown certificate is rejected", func() {
		_, err := s.service.RequestTransfer(s.as(seller), id.CertificateID(99), buyer, 100, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *EscrowSuite) TestFundEscrow() {
	transferID := s.openTransfer(100)

	s.Run("only the named buyer may fund", func() {
		err := s.service.FundEscrow(s.as(rando), transferID, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("underfunding fails", func() {
		err := s.service.FundEscrow(s.as(buyer), transferID, 99)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.checkHeldInvariant()
	})

	s.Run("overfunding fails", func() {
		err := s.service.FundEscrow(s.as(buyer), transferID, 101)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.checkHeldInvariant()
	})

	s.Run("exact funding debits the buyer and holds the deposit", func() {
		s.Require().NoError(s.service.FundEscrow(s.as(buyer), transferID, 100))

		request, err := s.service.Get(s.ctx, transferID)
		s.Require().NoError(err)
		s.Equal(StatusEscrowFunded, request.Status)
		s.EqualValues(100, request.EscrowAmount)

		balance, err := s.funds.BalanceOf(s.ctx, buyer)
		s.Require().NoError(err)
		s.EqualValues(900, balance)
		s.EqualValues(100, s.service.HeldBalance())
		s.checkHeldInvariant()
	})

	s.Run("funding twice fails", func() {
		err := s.service.FundEscrow(s.as(buyer), transferID, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *EscrowSuite) TestFundEscrowInsufficientBalanceRollsBack() {
	transferID := s.openTransfer(5_000) // buyer only has 1,000

	err := s.service.FundEscrow(s.as(buyer), transferID, 5_000)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	// Failed debit leaves the transfer pending with nothing held.
	request, err := s.service.Get(s.ctx, transferID)
	s.Require().NoError(err)
	s.Equal(StatusPending, request.Status)
	s.Zero(request.EscrowAmount)
	s.Zero(s.service.HeldBalance())
	s.checkHeldInvariant()

	balance, err := s.funds.BalanceOf(s.ctx, buyer)
	s.Require().NoError(err)
	s.EqualValues(1_000, balance)
}

func (s *EscrowSuite) TestApproveTransfer() {
	transferID := s.fundedTransfer(100)

	s.Run("only the seller may approve", func() {
		err := s.service.ApproveTransfer(s.as(buyer), transferID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("approval flips status without moving funds", func() {
		s.Require().NoError(s.service.ApproveTransfer(s.as(seller), transferID))

		request, err := s.service.Get(s.ctx, transferID)
		s.Require().NoError(err)
		s.Equal(StatusApproved, request.Status)
		s.EqualValues(100, request.EscrowAmount)
		s.EqualValues(100, s.service.HeldBalance())
		s.checkHeldInvariant()
	})

	s.Run("approving from pending fails", func() {
		// A fresh certificate with an unfunded transfer.
		newCert, err := s.ledger.Mint(s.as(notary), seller, "uri", ledger.Metadata{LandID: "L2", Title: "Plot 13", Area: 300})
		s.Require().NoError(err)
		pendingID, err := s.service.RequestTransfer(s.as(seller), newCert, buyer, 40, "")
		s.Require().NoError(err)

		err = s.service.ApproveTransfer(s.as(seller), pendingID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *EscrowSuite) TestCompleteTransfer() {
	transferID := s.approvedTransfer(100)

	s.Run("stranger cannot complete", func() {
		err := s.service.CompleteTransfer(s.as(rando), transferID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("completion settles ownership, payout, index, and status atomically", func() {
		s.Require().NoError(s.service.CompleteTransfer(s.as(buyer), transferID))

		owner, err := s.ledger.OwnerOf(s.ctx, s.certID)
		s.Require().NoError(err)
		s.Equal(buyer, owner)

		balance, err := s.funds.BalanceOf(s.ctx, seller)
		s.Require().NoError(err)
		s.EqualValues(100, balance)

		request, err := s.service.Get(s.ctx, transferID)
		s.Require().NoError(err)
		s.Equal(StatusCompleted, request.Status)
		s.Zero(request.EscrowAmount)
		s.False(request.CompletedAt.IsZero())

		active, err := s.service.ActiveTransferOf(s.ctx, s.certID)
		s.Require().NoError(err)
		s.True(active.IsZero())

		s.Zero(s.service.HeldBalance())
		s.checkHeldInvariant()
	})

	s.Run("completing a completed transfer fails", func() {
		err := s.service.CompleteTransfer(s.as(buyer), transferID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *EscrowSuite) TestCompleteTransferByAdmin() {
	transferID := s.approvedTransfer(250)

	s.Require().NoError(s.service.CompleteTransfer(s.as(admin), transferID))

	owner, err := s.ledger.OwnerOf(s.ctx, s.certID)
	s.Require().NoError(err)
	s.Equal(buyer, owner)
	s.checkHeldInvariant()
}

func (s *EscrowSuite) TestCompleteFromNonApprovedStates() {
	s.Run("pending cannot complete", func() {
		transferID := s.openTransfer(100)
		err := s.service.CompleteTransfer(s.as(seller), transferID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Require().NoError(s.service.CancelTransfer(s.as(seller), transferID, "cleanup"))
	})

	s.Run("funded but unapproved cannot complete", func() {
		transferID := s.fundedTransfer(100)
		err := s.service.CompleteTransfer(s.as(seller), transferID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.checkHeldInvariant()
	})
}

func (s *EscrowSuite) TestCancelTransfer() {
	s.Run("cancel from pending needs no refund", func() {
		transferID := s.openTransfer(100)
		s.Require().NoError(s.service.CancelTransfer(s.as(seller), transferID, "changed my mind"))

		request, err := s.service.Get(s.ctx, transferID)
		s.Require().NoError(err)
		s.Equal(StatusCancelled, request.Status)
		s.Equal("changed my mind", request.CancelReason)
		s.checkHeldInvariant()
	})

	s.Run("cancel from funded refunds the buyer exactly", func() {
		transferID := s.fundedTransfer(100)

		balanceBefore, err := s.funds.BalanceOf(s.ctx, buyer)
		s.Require().NoError(err)

		s.Require().NoError(s.service.CancelTransfer(s.as(seller), transferID, "deal fell through"))

		balanceAfter, err := s.funds.BalanceOf(s.ctx, buyer)
		s.Require().NoError(err)
		s.EqualValues(balanceBefore+100, balanceAfter)
		s.Zero(s.service.HeldBalance())
		s.checkHeldInvariant()
	})

	s.Run("certificate can be re-requested immediately after cancellation", func() {
		transferID, err := s.service.RequestTransfer(s.as(seller), s.certID, buyer, 120, "second attempt")
		s.Require().NoError(err)
		request, err := s.service.Get(s.ctx, transferID)
		s.Require().NoError(err)
		s.Equal(StatusPending, request.Status)
	})
}

func (s *EscrowSuite) TestCancelFromApprovedIsRejected() {
	transferID := s.approvedTransfer(100)

	for _, account := range []id.Account{seller, buyer, admin} {
		err := s.service.CancelTransfer(s.as(account), transferID, "no")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "cancel from approved must fail for %s", account)
	}
	s.checkHeldInvariant()
}

func (s *EscrowSuite) TestCancelFromTerminalStatesIsRejected() {
	transferID := s.approvedTransfer(100)
	s.Require().NoError(s.service.CompleteTransfer(s.as(seller), transferID))

	err := s.service.CancelTransfer(s.as(seller), transferID, "too late")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	// And a cancelled transfer rejects everything too.
	cert2, err := s.ledger.Mint(s.as(notary), buyer, "uri", ledger.Metadata{LandID: "L2", Title: "Plot 13", Area: 300})
	s.Require().NoError(err)
	cancelledID, err := s.service.RequestTransfer(s.as(buyer), cert2, seller, 10, "")
	s.Require().NoError(err)
	s.Require().NoError(s.service.CancelTransfer(s.as(buyer), cancelledID, ""))

	s.True(dErrors.HasCode(s.service.FundEscrow(s.as(seller), cancelledID, 10), dErrors.CodeInvalidState))
	s.True(dErrors.HasCode(s.service.ApproveTransfer(s.as(buyer), cancelledID), dErrors.CodeInvalidState))
	s.True(dErrors.HasCode(s.service.CompleteTransfer(s.as(buyer), cancelledID), dErrors.CodeInvalidState))
	s.checkHeldInvariant()
}

func (s *EscrowSuite) TestLifecycleEvents() {
	transferID := s.approvedTransfer(100)
	s.Require().NoError(s.service.CompleteTransfer(s.as(seller), transferID))

	s.Len(s.sink.ByAction(events.ActionTransferRequested), 1)
	s.Len(s.sink.ByAction(events.ActionEscrowFunded), 1)
	s.Len(s.sink.ByAction(events.ActionTransferApproved), 1)

	completed := s.sink.ByAction(events.ActionTransferCompleted)
	s.Require().Len(completed, 1)
	s.Equal(transferID, completed[0].TransferID)
	s.EqualValues(100, completed[0].Amount)
	s.Equal(buyer, completed[0].Counterparty)
}
