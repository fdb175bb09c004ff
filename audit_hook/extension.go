// Package audithook bridges Ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/settlement"
	"github.com/xraph/subledger/subscription"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Extension)(nil)
	_ plugin.OnPlanConfigured = (*Extension)(nil)
	_ plugin.OnSubscribed     = (*Extension)(nil)
	_ plugin.OnRenewed        = (*Extension)(nil)
	_ plugin.OnUpgraded       = (*Extension)(nil)
	_ plugin.OnDowngraded     = (*Extension)(nil)
	_ plugin.OnPaymentSettled = (*Extension)(nil)
	_ plugin.OnRewardAccrued  = (*Extension)(nil)
	_ plugin.OnRewardsClaimed = (*Extension)(nil)
	_ plugin.OnWithdrawn      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly. Callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnPlanConfigured implements plugin.OnPlanConfigured.
func (e *Extension) OnPlanConfigured(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionPlanConfigured, SeverityInfo, OutcomeSuccess,
		ResourcePlan, "", CategoryBilling, nil,
		"event", "plan_configured",
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscribed implements plugin.OnSubscribed.
func (e *Extension) OnSubscribed(ctx context.Context, sub interface{}) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subscriberOf(sub), CategorySubscription, nil,
		"event", "subscription_created",
	)
}

// OnRenewed implements plugin.OnRenewed.
func (e *Extension) OnRenewed(ctx context.Context, sub interface{}) error {
	return e.record(ctx, ActionSubscriptionRenewed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subscriberOf(sub), CategorySubscription, nil,
		"event", "subscription_renewed",
	)
}

// OnUpgraded implements plugin.OnUpgraded.
func (e *Extension) OnUpgraded(ctx context.Context, sub interface{}, oldTier uint8) error {
	return e.record(ctx, ActionSubscriptionUpgraded, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subscriberOf(sub), CategorySubscription, nil,
		"event", "subscription_upgraded",
		"old_tier", oldTier,
	)
}

// OnDowngraded implements plugin.OnDowngraded.
func (e *Extension) OnDowngraded(ctx context.Context, sub interface{}, oldTier uint8) error {
	return e.record(ctx, ActionSubscriptionDowngraded, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subscriberOf(sub), CategorySubscription, nil,
		"event", "subscription_downgraded",
		"old_tier", oldTier,
	)
}

// ──────────────────────────────────────────────────
// Settlement and reward hooks
// ──────────────────────────────────────────────────

// OnPaymentSettled implements plugin.OnPaymentSettled.
func (e *Extension) OnPaymentSettled(ctx context.Context, account string, split interface{}) error {
	kvPairs := []any{"event", "payment_settled", "account", account}
	if s, ok := split.(*settlement.Split); ok {
		kvPairs = append(kvPairs,
			"gross", s.Gross.Int64(),
			"platform_fee", s.PlatformFee.Int64(),
			"net", s.Net.Int64(),
			"referred", s.Referred,
		)
	}
	return e.record(ctx, ActionPaymentSettled, SeverityInfo, OutcomeSuccess,
		ResourcePayment, account, CategoryPayment, nil, kvPairs...)
}

// OnRewardAccrued implements plugin.OnRewardAccrued.
func (e *Extension) OnRewardAccrued(ctx context.Context, referrer string, reward int64) error {
	return e.record(ctx, ActionRewardAccrued, SeverityInfo, OutcomeSuccess,
		ResourceReward, referrer, CategoryReferral, nil,
		"event", "reward_accrued",
		"referrer", referrer,
		"reward", reward,
	)
}

// OnRewardsClaimed implements plugin.OnRewardsClaimed.
func (e *Extension) OnRewardsClaimed(ctx context.Context, referrer string, amount int64) error {
	return e.record(ctx, ActionRewardsClaimed, SeverityInfo, OutcomeSuccess,
		ResourceReward, referrer, CategoryReferral, nil,
		"event", "rewards_claimed",
		"referrer", referrer,
		"amount", amount,
	)
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (e *Extension) OnWithdrawn(ctx context.Context, to string, amount int64) error {
	return e.record(ctx, ActionFundsWithdrawn, SeverityWarning, OutcomeSuccess,
		ResourceFunds, to, CategoryPayment, nil,
		"event", "funds_withdrawn",
		"to", to,
		"amount", amount,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// subscriberOf extracts the subscriber account from a hook payload.
func subscriberOf(sub interface{}) string {
	if s, ok := sub.(*subscription.Subscription); ok {
		return s.Account
	}
	return ""
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
