package subledger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/referral"
	"github.com/xraph/subledger/store"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/treasury"
	"github.com/xraph/subledger/types"
)

// DefaultOverpayToleranceBps is the highest accepted payment relative to
// the required price, in basis points: 12000 = 120%.
const DefaultOverpayToleranceBps int64 = 12_000

// Registry is the platform-side collaborator that owns the fee policy.
// The core trusts its fee calculation without re-deriving it and pays the
// platform fee to its account.
type Registry interface {
	CalculatePlatformFee(amount types.Amount) types.Amount
	FeeAccount() string
}

// Ledger is the billing engine for one project instance. It owns the
// subscription state machine, payment settlement, referral rewards, and
// the partition of held funds between owner-withdrawable and
// referrer-reserved.
type Ledger struct {
	store    store.Store
	funds    treasury.Treasury
	registry Registry
	plugins  *plugin.Registry
	logger   *slog.Logger

	// Configuration
	rules         tier.Ruleset
	overpayTolBps int64
	claimCooldown time.Duration
	now           func() time.Time

	// mu is the reentrancy guard: every state-mutating operation holds
	// it end to end, and read accessors serialize on it too, so no
	// caller ever observes a half-settled ledger.
	mu sync.Mutex
}

// New creates a new Ledger instance backed by the given store, treasury,
// and platform registry.
func New(s store.Store, funds treasury.Treasury, reg Registry, opts ...Option) *Ledger {
	l := &Ledger{
		store:         s,
		funds:         funds,
		registry:      reg,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		rules:         tier.DefaultRuleset(),
		overpayTolBps: DefaultOverpayToleranceBps,
		claimCooldown: referral.DefaultClaimCooldown,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithRuleset sets the tier cap and enabled billing periods.
func WithRuleset(r tier.Ruleset) Option {
	return func(l *Ledger) {
		l.rules = r
	}
}

// WithOverpayTolerance sets the accepted overpayment ceiling in basis
// points of the required price.
func WithOverpayTolerance(bps int64) Option {
	return func(l *Ledger) {
		if bps >= types.BasisPointDivisor {
			l.overpayTolBps = bps
		}
	}
}

// WithClaimCooldown sets the minimum spacing between reward claims.
func WithClaimCooldown(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.claimCooldown = d
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("subledger started",
		"max_tier", l.rules.MaxTier,
		"overpay_tolerance_bps", l.overpayTolBps,
		"claim_cooldown", l.claimCooldown,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Project identity
// ──────────────────────────────────────────────────

// Init records the project's immutable identity. It succeeds exactly
// once; name and symbol can never be changed afterwards.
func (l *Ledger) Init(ctx context.Context, name, symbol, owner string) (*project.Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(owner) == "" {
		return nil, ErrZeroAddress
	}
	if strings.TrimSpace(name) == "" {
		return nil, ValidationError{Field: "name", Message: "must not be empty"}
	}
	if strings.TrimSpace(symbol) == "" {
		return nil, ValidationError{Field: "symbol", Message: "must not be empty"}
	}

	if _, err := l.store.GetProject(ctx); err == nil {
		return nil, ErrAlreadyInitialized
	}

	info := &project.Info{
		Entity: types.NewEntity(),
		ID:     id.NewProjectID(),
		Name:   name,
		Symbol: symbol,
		Owner:  owner,
	}

	cs := &store.Changeset{
		Project: info,
		Stats:   &project.Stats{UpdatedAt: l.now()},
	}
	if err := l.store.Apply(ctx, cs); err != nil {
		return nil, err
	}

	l.logger.Info("project initialized",
		"project_id", info.ID,
		"name", name,
		"symbol", symbol,
		"owner", owner,
	)

	return info, nil
}

// UpdateBrand replaces the owner-mutable display metadata. Identity
// fields are untouchable by design.
func (l *Ledger) UpdateBrand(ctx context.Context, caller string, brand project.Brand) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.requireProject(ctx)
	if err != nil {
		return err
	}
	if caller != info.Owner {
		return ErrUnauthorized
	}

	info.Brand = brand
	info.Touch()
	return l.store.PutProject(ctx, info)
}

// ──────────────────────────────────────────────────
// Tier plan catalog
// ──────────────────────────────────────────────────

// SetPlan configures the pricing row for a tier. Owner-only. All-zero
// price rows are legal and mark every period as unpriced for the tier.
func (l *Ledger) SetPlan(ctx context.Context, caller string, t tier.Tier, prices [tier.PeriodCount]types.Amount, features []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.requireProject(ctx)
	if err != nil {
		return err
	}
	if caller != info.Owner {
		return ErrUnauthorized
	}
	if !l.rules.ValidTier(t) {
		return ErrInvalidTier
	}
	for _, p := range prices {
		if p.IsNegative() {
			return ErrInvalidPrice
		}
	}

	p, err := l.store.GetPlan(ctx, t)
	if err != nil {
		p = &tier.Plan{
			Entity:  types.NewEntity(),
			ID:      id.NewPlanID(),
			Tier:    t,
			Enabled: true,
		}
	}
	p.Prices = prices
	p.Features = append([]string(nil), features...)
	p.Touch()

	cs := &store.Changeset{
		Plan: p,
		Op: &oplog.Entry{
			ID:      id.NewOperationID(),
			Account: caller,
			Kind:    oplog.KindSetPlan,
			Tier:    t,
			At:      l.now(),
		},
	}
	if err := l.store.Apply(ctx, cs); err != nil {
		return err
	}

	l.plugins.EmitPlanConfigured(ctx, p)
	return nil
}

// SetPlanEnabled toggles a tier's availability without touching prices.
func (l *Ledger) SetPlanEnabled(ctx context.Context, caller string, t tier.Tier, enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.requireProject(ctx)
	if err != nil {
		return err
	}
	if caller != info.Owner {
		return ErrUnauthorized
	}

	p, err := l.store.GetPlan(ctx, t)
	if err != nil {
		return ErrPlanNotFound
	}
	p.Enabled = enabled
	p.Touch()
	return l.store.UpsertPlan(ctx, p)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// requireProject loads the project identity, failing with
// ErrNotInitialized when Init has never run. Callers hold l.mu.
func (l *Ledger) requireProject(ctx context.Context) (*project.Info, error) {
	info, err := l.store.GetProject(ctx)
	if err != nil {
		return nil, ErrNotInitialized
	}
	return info, nil
}

// price resolves the catalog price for a tier/period pair, enforcing the
// tier cap, the enable flag, the period bitmap, and the nonzero price.
// Callers hold l.mu.
func (l *Ledger) price(ctx context.Context, t tier.Tier, p tier.Period) (types.Amount, error) {
	if !l.rules.ValidTier(t) {
		return 0, ErrTierDisabled
	}
	plan, err := l.store.GetPlan(ctx, t)
	if err != nil || !plan.Enabled {
		return 0, ErrTierDisabled
	}
	if !p.Valid() {
		return 0, ErrInvalidPeriod
	}
	if !l.rules.ValidPeriod(p) {
		return 0, ErrPeriodDisabled
	}
	amount := plan.PriceFor(p)
	if amount.IsZero() {
		return 0, ErrPriceNotSet
	}
	return amount, nil
}

// checkPayment enforces the exact-payment rule with the overpayment
// tolerance window.
func (l *Ledger) checkPayment(payment, required types.Amount) error {
	if payment.Sub(required).IsNegative() {
		return ErrInsufficientPayment
	}
	if payment > required.BasisPoints(l.overpayTolBps) {
		return ErrExcessPayment
	}
	return nil
}
