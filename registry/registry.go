// Package registry implements the platform side of a Subledger
// deployment: the fee policy shared by every project and the factory that
// stamps out per-project ledger instances.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	subledger "github.com/xraph/subledger"
	"github.com/xraph/subledger/store"
	"github.com/xraph/subledger/treasury"
	"github.com/xraph/subledger/types"
)

// DefaultFeeBasisPoints is the platform's cut of every settled payment:
// 500 = 5%.
const DefaultFeeBasisPoints int64 = 500

var (
	// ErrProjectExists is returned when deploying a name that is taken.
	ErrProjectExists = errors.New("registry: project already exists")

	// ErrProjectNotFound is returned when looking up an unknown project.
	ErrProjectNotFound = errors.New("registry: project not found")

	// ErrCreationFeeUnpaid is returned when the deploy payment does not
	// cover the creation fee.
	ErrCreationFeeUnpaid = errors.New("registry: creation fee unpaid")
)

// Platform is the shared fee policy and project directory. It satisfies
// the fee-policy collaborator interface every Ledger consults at
// settlement time.
type Platform struct {
	feeBps      int64
	feeAccount  string
	creationFee types.Amount
	logger      *slog.Logger

	mu       sync.RWMutex
	projects map[string]*subledger.Ledger
}

// compile-time interface check
var _ subledger.Registry = (*Platform)(nil)

// New creates a Platform collecting fees into feeAccount.
func New(feeAccount string, opts ...Option) *Platform {
	p := &Platform{
		feeBps:     DefaultFeeBasisPoints,
		feeAccount: feeAccount,
		logger:     slog.Default(),
		projects:   make(map[string]*subledger.Ledger),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Option configures a Platform.
type Option func(*Platform)

// WithFeeBasisPoints sets the platform fee rate. Rates at or above 100%
// are ignored.
func WithFeeBasisPoints(bps int64) Option {
	return func(p *Platform) {
		if bps >= 0 && bps < types.BasisPointDivisor {
			p.feeBps = bps
		}
	}
}

// WithCreationFee sets the one-time fee charged on project deployment.
func WithCreationFee(fee types.Amount) Option {
	return func(p *Platform) {
		if !fee.IsNegative() {
			p.creationFee = fee
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Platform) {
		p.logger = logger
	}
}

// CalculatePlatformFee returns the platform's cut of a payment.
func (p *Platform) CalculatePlatformFee(amount types.Amount) types.Amount {
	return amount.BasisPoints(p.feeBps)
}

// FeeAccount returns the account that collects platform fees.
func (p *Platform) FeeAccount() string {
	return p.feeAccount
}

// FeeBasisPoints returns the configured fee rate.
func (p *Platform) FeeBasisPoints() int64 {
	return p.feeBps
}

// CreationFee returns the one-time project deployment fee.
func (p *Platform) CreationFee() types.Amount {
	return p.creationFee
}

// Deploy creates, registers, and initializes a ledger for a new project.
// The name is the directory key and must be unused. payment covers the
// creation fee and is kept by the platform; any excess is kept too, so
// callers should pay exactly.
func (p *Platform) Deploy(ctx context.Context, name, symbol, owner string, payment types.Amount, s store.Store, funds treasury.Treasury, opts ...subledger.Option) (*subledger.Ledger, error) {
	if payment.Sub(p.creationFee).IsNegative() {
		return nil, ErrCreationFeeUnpaid
	}

	p.mu.Lock()
	if _, exists := p.projects[name]; exists {
		p.mu.Unlock()
		return nil, ErrProjectExists
	}
	// Reserve the name before the slow part.
	p.projects[name] = nil
	p.mu.Unlock()

	l := subledger.New(s, funds, p, opts...)
	if err := l.Start(ctx); err != nil {
		p.release(name)
		return nil, err
	}
	if _, err := l.Init(ctx, name, symbol, owner); err != nil {
		p.release(name)
		return nil, err
	}

	p.mu.Lock()
	p.projects[name] = l
	p.mu.Unlock()

	p.logger.Info("project deployed",
		"name", name,
		"symbol", symbol,
		"owner", owner,
		"creation_fee", p.creationFee,
	)

	return l, nil
}

// Project returns a deployed project's ledger by name.
func (p *Platform) Project(name string) (*subledger.Ledger, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	l, ok := p.projects[name]
	if !ok || l == nil {
		return nil, ErrProjectNotFound
	}
	return l, nil
}

// Projects returns the names of all deployed projects.
func (p *Platform) Projects() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.projects))
	for name, l := range p.projects {
		if l != nil {
			names = append(names, name)
		}
	}
	return names
}

// Count returns the number of deployed projects.
func (p *Platform) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, l := range p.projects {
		if l != nil {
			n++
		}
	}
	return n
}

func (p *Platform) release(name string) {
	p.mu.Lock()
	delete(p.projects, name)
	p.mu.Unlock()
}
