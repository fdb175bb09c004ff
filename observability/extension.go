// Package observability provides a metrics extension for Subledger that
// records lifecycle event counts and settled payment sizes.
package observability

import (
	"context"

	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/settlement"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin           = (*MetricsExtension)(nil)
	_ plugin.OnInit           = (*MetricsExtension)(nil)
	_ plugin.OnPlanConfigured = (*MetricsExtension)(nil)
	_ plugin.OnSubscribed     = (*MetricsExtension)(nil)
	_ plugin.OnRenewed        = (*MetricsExtension)(nil)
	_ plugin.OnUpgraded       = (*MetricsExtension)(nil)
	_ plugin.OnDowngraded     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentSettled = (*MetricsExtension)(nil)
	_ plugin.OnRewardAccrued  = (*MetricsExtension)(nil)
	_ plugin.OnRewardsClaimed = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawn      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records per-project lifecycle metrics. Register it as
// a Ledger plugin to automatically track billing activity.
type MetricsExtension struct {
	factory MetricFactory

	// Catalog metrics
	PlanConfigured Counter

	// Subscription lifecycle metrics
	Subscribed Counter
	Renewed    Counter
	Upgraded   Counter
	Downgraded Counter

	// Settlement metrics
	PaymentsSettled  Counter
	ReferredPayments Counter
	GrossAmount      Histogram
	PlatformFees     Histogram
	NetAmount        Histogram

	// Referral metrics
	RewardsAccrued Counter
	RewardsClaimed Counter
	ClaimedAmount  Histogram

	// Fund metrics
	Withdrawals     Counter
	WithdrawnAmount Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Catalog metrics
		PlanConfigured: factory.Counter("subledger.plan.configured"),

		// Subscription lifecycle metrics
		Subscribed: factory.Counter("subledger.subscription.subscribed"),
		Renewed:    factory.Counter("subledger.subscription.renewed"),
		Upgraded:   factory.Counter("subledger.subscription.upgraded"),
		Downgraded: factory.Counter("subledger.subscription.downgraded"),

		// Settlement metrics
		PaymentsSettled:  factory.Counter("subledger.settlement.payments"),
		ReferredPayments: factory.Counter("subledger.settlement.referred"),
		GrossAmount:      factory.Histogram("subledger.settlement.gross"),
		PlatformFees:     factory.Histogram("subledger.settlement.fee"),
		NetAmount:        factory.Histogram("subledger.settlement.net"),

		// Referral metrics
		RewardsAccrued: factory.Counter("subledger.referral.accrued"),
		RewardsClaimed: factory.Counter("subledger.referral.claimed"),
		ClaimedAmount:  factory.Histogram("subledger.referral.claimed_amount"),

		// Fund metrics
		Withdrawals:     factory.Counter("subledger.funds.withdrawals"),
		WithdrawnAmount: factory.Histogram("subledger.funds.withdrawn_amount"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// OnPlanConfigured implements plugin.OnPlanConfigured.
func (m *MetricsExtension) OnPlanConfigured(_ context.Context, _ interface{}) error {
	m.PlanConfigured.Inc()
	return nil
}

// OnSubscribed implements plugin.OnSubscribed.
func (m *MetricsExtension) OnSubscribed(_ context.Context, _ interface{}) error {
	m.Subscribed.Inc()
	return nil
}

// OnRenewed implements plugin.OnRenewed.
func (m *MetricsExtension) OnRenewed(_ context.Context, _ interface{}) error {
	m.Renewed.Inc()
	return nil
}

// OnUpgraded implements plugin.OnUpgraded.
func (m *MetricsExtension) OnUpgraded(_ context.Context, _ interface{}, _ uint8) error {
	m.Upgraded.Inc()
	return nil
}

// OnDowngraded implements plugin.OnDowngraded.
func (m *MetricsExtension) OnDowngraded(_ context.Context, _ interface{}, _ uint8) error {
	m.Downgraded.Inc()
	return nil
}

// OnPaymentSettled implements plugin.OnPaymentSettled.
func (m *MetricsExtension) OnPaymentSettled(_ context.Context, _ string, split interface{}) error {
	m.PaymentsSettled.Inc()

	if s, ok := split.(*settlement.Split); ok {
		if s.Referred {
			m.ReferredPayments.Inc()
		}
		m.GrossAmount.Observe(float64(s.Gross.Int64()))
		m.PlatformFees.Observe(float64(s.PlatformFee.Int64()))
		m.NetAmount.Observe(float64(s.Net.Int64()))
	}
	return nil
}

// OnRewardAccrued implements plugin.OnRewardAccrued.
func (m *MetricsExtension) OnRewardAccrued(_ context.Context, _ string, _ int64) error {
	m.RewardsAccrued.Inc()
	return nil
}

// OnRewardsClaimed implements plugin.OnRewardsClaimed.
func (m *MetricsExtension) OnRewardsClaimed(_ context.Context, _ string, amount int64) error {
	m.RewardsClaimed.Inc()
	m.ClaimedAmount.Observe(float64(amount))
	return nil
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (m *MetricsExtension) OnWithdrawn(_ context.Context, _ string, amount int64) error {
	m.Withdrawals.Inc()
	m.WithdrawnAmount.Observe(float64(amount))
	return nil
}
