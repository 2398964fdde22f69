package escrow

import (
	"context"
	"errors"
	"sync"

	id "landledger/pkg/domain"
)

// ErrInsufficientFunds is returned by Debit when the account balance cannot
// cover the amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// FundsLedger is the settlement primitive the escrow depends on. Each call
// is atomic and, once it returns nil, irrevocable — it never partially
// applies. The escrow treats the ledger as untrusted code: it may invoke
// callbacks that re-enter the escrow service. Outbound moves (Credit) fire
// only after the releasing state is committed; the funding Debit fires
// while the transfer is still Pending, before any held deposit exists.
type FundsLedger interface {
	// Debit removes amount from the account (buyer funding the escrow pot).
	Debit(ctx context.Context, account id.Account, amount uint64) error
	// Credit adds amount to the account (payout or refund).
	Credit(ctx context.Context, account id.Account, amount uint64) error
	// BalanceOf reports the account's current balance.
	BalanceOf(ctx context.Context, account id.Account) (uint64, error)
}

// InMemoryFunds is a FundsLedger backed by a mutex-guarded balance map.
type InMemoryFunds struct {
	mu       sync.RWMutex
	balances map[id.Account]uint64
}

func NewInMemoryFunds() *InMemoryFunds {
	return &InMemoryFunds{balances: make(map[id.Account]uint64)}
}

// Mint seeds a balance. Test and bootstrap helper; there is no deposit flow
// in the core.
func (f *InMemoryFunds) Mint(account id.Account, amount uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[account] += amount
}

func (f *InMemoryFunds) Debit(_ context.Context, account id.Account, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[account] < amount {
		return ErrInsufficientFunds
	}
	f.balances[account] -= amount
	return nil
}

func (f *InMemoryFunds) Credit(_ context.Context, account id.Account, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[account] += amount
	return nil
}

func (f *InMemoryFunds) BalanceOf(_ context.Context, account id.Account) (uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.balances[account], nil
}
