package extension

import (
	"time"

	"github.com/xraph/grove"

	subledger "github.com/xraph/subledger"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/store"
	"github.com/xraph/subledger/treasury"
)

// Option configures the Subledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithDatabase supplies a grove database for the store backend.
// Config.StoreDriver selects which backend is constructed from it.
func WithDatabase(db *grove.DB) Option {
	return func(e *Extension) {
		e.db = db
	}
}

// WithTreasury sets the treasury backend holding project funds.
// Defaults to an in-memory vault.
func WithTreasury(t treasury.Treasury) Option {
	return func(e *Extension) {
		e.funds = t
	}
}

// WithFeeRegistry sets the platform fee registry. When unset, a default
// registry is built from Config.FeeAccount and Config.FeeBasisPoints.
func WithFeeRegistry(r subledger.Registry) Option {
	return func(e *Extension) {
		e.feeReg = r
	}
}

// WithLedgerOption passes a subledger.Option through to the underlying engine.
func WithLedgerOption(opt subledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, subledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithStoreDriver selects the grove store backend ("postgres", "sqlite" or "mongo").
func WithStoreDriver(driver string) Option {
	return func(e *Extension) { e.config.StoreDriver = driver }
}

// WithFeeAccount sets the treasury account receiving platform fees.
func WithFeeAccount(account string) Option {
	return func(e *Extension) { e.config.FeeAccount = account }
}

// WithFeeBasisPoints sets the platform fee rate for the default fee registry.
func WithFeeBasisPoints(bps int64) Option {
	return func(e *Extension) { e.config.FeeBasisPoints = bps }
}

// WithOverpayTolerance caps accepted payments relative to the required price.
func WithOverpayTolerance(bps int64) Option {
	return func(e *Extension) { e.config.OverpayToleranceBps = bps }
}

// WithClaimCooldown sets the minimum interval between referral reward claims.
func WithClaimCooldown(d time.Duration) Option {
	return func(e *Extension) { e.config.ClaimCooldown = d }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
