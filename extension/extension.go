// Package extension provides the Forge extension adapter for Subledger.
//
// It implements the forge.Extension interface to integrate a Subledger
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.subledger" or
// "subledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	subledger "github.com/xraph/subledger"
	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/store"
	"github.com/xraph/subledger/store/memory"
	mongostore "github.com/xraph/subledger/store/mongo"
	pgstore "github.com/xraph/subledger/store/postgres"
	sqlitestore "github.com/xraph/subledger/store/sqlite"
	"github.com/xraph/subledger/treasury"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "subledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Tiered subscription billing ledger with referral rewards"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Store driver names accepted by Config.StoreDriver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts a Subledger engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *subledger.Ledger
	store      store.Store
	db         *grove.DB
	funds      treasury.Treasury
	feeReg     subledger.Registry
	ledgerOpts []subledger.Option
}

// New creates a new Subledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *subledger.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.buildStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	if e.funds == nil {
		e.funds = treasury.NewVault()
	}

	if e.feeReg == nil {
		var regOpts []registry.Option
		if e.config.FeeBasisPoints > 0 {
			regOpts = append(regOpts, registry.WithFeeBasisPoints(e.config.FeeBasisPoints))
		}
		e.feeReg = registry.New(e.config.FeeAccount, regOpts...)
	}

	opts := e.buildLedgerOpts()
	e.engine = subledger.New(e.store, e.funds, e.feeReg, opts...)

	return vessel.Provide(fapp.Container(), func() (*subledger.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("subledger: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("subledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore constructs the store backend. When a grove database was
// supplied via WithDatabase, Config.StoreDriver selects the backend;
// otherwise the in-memory store is used.
func (e *Extension) buildStore() (store.Store, error) {
	if e.db == nil {
		return memory.New(), nil
	}
	switch e.config.StoreDriver {
	case DriverPostgres:
		return pgstore.New(e.db), nil
	case DriverSQLite:
		return sqlitestore.New(e.db), nil
	case DriverMongo:
		return mongostore.New(e.db), nil
	default:
		return nil, fmt.Errorf("subledger: unknown store driver %q", e.config.StoreDriver)
	}
}

// buildLedgerOpts constructs subledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []subledger.Option {
	opts := make([]subledger.Option, 0, len(e.ledgerOpts)+2)

	if e.config.OverpayToleranceBps > 0 {
		opts = append(opts, subledger.WithOverpayTolerance(e.config.OverpayToleranceBps))
	}
	if e.config.ClaimCooldown > 0 {
		opts = append(opts, subledger.WithClaimCooldown(e.config.ClaimCooldown))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("subledger: configuration is required but not found in config files; " +
				"ensure 'extensions.subledger' or 'subledger' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("subledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("store_driver", e.config.StoreDriver),
		forge.F("fee_account", e.config.FeeAccount),
		forge.F("fee_basis_points", e.config.FeeBasisPoints),
		forge.F("overpay_tolerance_bps", e.config.OverpayToleranceBps),
		forge.F("claim_cooldown", e.config.ClaimCooldown),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.subledger" first (namespaced pattern).
	if cm.IsSet("extensions.subledger") {
		if err := cm.Bind("extensions.subledger", &cfg); err == nil {
			e.Logger().Debug("subledger: loaded config from file",
				forge.F("key", "extensions.subledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("subledger: failed to bind extensions.subledger config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "subledger" key.
	if cm.IsSet("subledger") {
		if err := cm.Bind("subledger", &cfg); err == nil {
			e.Logger().Debug("subledger: loaded config from file",
				forge.F("key", "subledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("subledger: failed to bind subledger config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = defaults.StoreDriver
	}
	if cfg.FeeAccount == "" {
		cfg.FeeAccount = defaults.FeeAccount
	}
	if cfg.OverpayToleranceBps == 0 {
		cfg.OverpayToleranceBps = defaults.OverpayToleranceBps
	}
	if cfg.ClaimCooldown == 0 {
		cfg.ClaimCooldown = defaults.ClaimCooldown
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.StoreDriver == "" && programmaticConfig.StoreDriver != "" {
		yamlConfig.StoreDriver = programmaticConfig.StoreDriver
	}
	if yamlConfig.FeeAccount == "" && programmaticConfig.FeeAccount != "" {
		yamlConfig.FeeAccount = programmaticConfig.FeeAccount
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.FeeBasisPoints == 0 && programmaticConfig.FeeBasisPoints != 0 {
		yamlConfig.FeeBasisPoints = programmaticConfig.FeeBasisPoints
	}
	if yamlConfig.OverpayToleranceBps == 0 && programmaticConfig.OverpayToleranceBps != 0 {
		yamlConfig.OverpayToleranceBps = programmaticConfig.OverpayToleranceBps
	}
	if yamlConfig.ClaimCooldown == 0 && programmaticConfig.ClaimCooldown != 0 {
		yamlConfig.ClaimCooldown = programmaticConfig.ClaimCooldown
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
