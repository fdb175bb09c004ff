// Package plugin provides an extensible plugin system for Subledger.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnPlanConfigured is called when the owner sets or reconfigures a tier plan.
type OnPlanConfigured interface {
	Plugin
	OnPlanConfigured(ctx context.Context, plan interface{}) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscribed is called on a payer's first-time subscribe.
type OnSubscribed interface {
	Plugin
	OnSubscribed(ctx context.Context, sub interface{}) error
}

// OnRenewed is called when an expired subscription is renewed.
type OnRenewed interface {
	Plugin
	OnRenewed(ctx context.Context, sub interface{}) error
}

// OnUpgraded is called when an active subscription moves to a higher tier.
type OnUpgraded interface {
	Plugin
	OnUpgraded(ctx context.Context, sub interface{}, oldTier uint8) error
}

// OnDowngraded is called when an expired subscription resumes at a lower tier.
type OnDowngraded interface {
	Plugin
	OnDowngraded(ctx context.Context, sub interface{}, oldTier uint8) error
}

// ──────────────────────────────────────────────────
// Settlement and reward hooks
// ──────────────────────────────────────────────────

// OnPaymentSettled is called after a payment has been split and committed.
type OnPaymentSettled interface {
	Plugin
	OnPaymentSettled(ctx context.Context, account string, split interface{}) error
}

// OnRewardAccrued is called when a referrer's pending balance grows.
type OnRewardAccrued interface {
	Plugin
	OnRewardAccrued(ctx context.Context, referrer string, reward int64) error
}

// OnRewardsClaimed is called when a referrer sweeps their pending rewards.
type OnRewardsClaimed interface {
	Plugin
	OnRewardsClaimed(ctx context.Context, referrer string, amount int64) error
}

// OnWithdrawn is called when the owner sweeps the withdrawable balance.
type OnWithdrawn interface {
	Plugin
	OnWithdrawn(ctx context.Context, to string, amount int64) error
}
