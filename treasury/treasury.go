// Package treasury abstracts custody of a project's funds: the held
// balance, incoming payment deposits, and outbound transfers.
//
// Outbound transfers reach externally controlled recipients, so the engine
// treats every Transfer call as a potential failure point and never leaves
// state half-committed around one.
package treasury

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/subledger/types"
)

var (
	// ErrInsufficientFunds is returned when a transfer would overdraw
	// the held balance.
	ErrInsufficientFunds = errors.New("treasury: insufficient funds")

	// ErrTransferRejected is returned when the recipient side refuses
	// the transfer.
	ErrTransferRejected = errors.New("treasury: transfer rejected")
)

// Treasury moves and reports the project's funds. Implementations must be
// safe for concurrent use.
type Treasury interface {
	// Balance returns the funds currently held in project custody.
	Balance(ctx context.Context) (types.Amount, error)

	// Deposit takes an incoming payment from the payer into custody.
	Deposit(ctx context.Context, from string, amount types.Amount) error

	// Transfer pays out from custody to an external account.
	Transfer(ctx context.Context, to string, amount types.Amount) error
}

// Vault is an in-memory Treasury for tests and embedded single-process
// deployments. It tracks the custody balance and, per account, the funds
// paid out of custody, so tests can assert where funds ended up. Deposits
// only grow custody; the payer's own funds live outside the vault.
type Vault struct {
	mu       sync.Mutex
	held     types.Amount
	accounts map[string]types.Amount

	// reject marks recipients whose transfers fail, simulating an
	// attacker-controlled or broken recipient.
	reject map[string]bool
}

// NewVault creates an empty in-memory vault.
func NewVault() *Vault {
	return &Vault{
		accounts: make(map[string]types.Amount),
		reject:   make(map[string]bool),
	}
}

// Balance implements Treasury.
func (v *Vault) Balance(_ context.Context) (types.Amount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.held, nil
}

// Deposit implements Treasury.
func (v *Vault) Deposit(_ context.Context, _ string, amount types.Amount) error {
	if amount.IsNegative() {
		return ErrTransferRejected
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.held = v.held.Add(amount)
	return nil
}

// Transfer implements Treasury.
func (v *Vault) Transfer(_ context.Context, to string, amount types.Amount) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.reject[to] {
		return ErrTransferRejected
	}
	if amount > v.held {
		return ErrInsufficientFunds
	}
	v.held = v.held.Sub(amount)
	v.accounts[to] = v.accounts[to].Add(amount)
	return nil
}

// AccountBalance returns the funds transferred out of custody to the
// account so far.
func (v *Vault) AccountBalance(account string) types.Amount {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.accounts[account]
}

// RejectTransfersTo makes future transfers to the account fail.
func (v *Vault) RejectTransfersTo(account string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reject[account] = true
}
