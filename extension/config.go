package extension

import "time"

// Config holds the Subledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.subledger" or "subledger" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// StoreDriver selects which grove-backed store to construct when a
	// grove.DB was supplied via WithDatabase: "postgres", "sqlite" or "mongo".
	StoreDriver string `json:"store_driver" mapstructure:"store_driver" yaml:"store_driver"`

	// FeeAccount is the treasury account that receives platform fees when no
	// fee registry was supplied programmatically (default: "platform").
	FeeAccount string `json:"fee_account" mapstructure:"fee_account" yaml:"fee_account"`

	// FeeBasisPoints is the platform fee rate used by the default fee
	// registry. Zero means the registry default applies.
	FeeBasisPoints int64 `json:"fee_basis_points" mapstructure:"fee_basis_points" yaml:"fee_basis_points"`

	// OverpayToleranceBps caps accepted payments relative to the required
	// price, in basis points of the price (default: 12000, i.e. 120%).
	OverpayToleranceBps int64 `json:"overpay_tolerance_bps" mapstructure:"overpay_tolerance_bps" yaml:"overpay_tolerance_bps"`

	// ClaimCooldown is the minimum interval between referral reward claims
	// (default: 168h).
	ClaimCooldown time.Duration `json:"claim_cooldown" mapstructure:"claim_cooldown" yaml:"claim_cooldown"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StoreDriver:         DriverPostgres,
		FeeAccount:          "platform",
		OverpayToleranceBps: 12_000,
		ClaimCooldown:       168 * time.Hour,
	}
}
