package subledger

import (
	"context"
	"strings"
	"time"

	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Subscribe starts the payer's first subscription at the given tier and
// period. A payer with an existing record, active or lapsed, re-enters
// through Renew instead.
//
// referrer is optional. A referrer that is empty, equal to the payer, or
// not an active subscriber is silently dropped rather than rejected, so a
// stale referral link never blocks a paying customer.
func (l *Ledger) Subscribe(ctx context.Context, payer string, t tier.Tier, p tier.Period, referrer string, payment types.Amount) (*subscription.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(payer) == "" {
		return nil, ErrZeroAddress
	}
	if !payment.IsPositive() {
		return nil, ErrZeroAmount
	}
	if _, err := l.requireProject(ctx); err != nil {
		return nil, err
	}

	now := l.now()

	if _, err := l.store.GetSubscription(ctx, payer); err == nil {
		return nil, ErrAlreadySubscribed
	}

	price, err := l.price(ctx, t, p)
	if err != nil {
		return nil, err
	}
	if err := l.checkPayment(payment, price); err != nil {
		return nil, err
	}

	if !l.referrerValid(ctx, payer, referrer) {
		referrer = ""
	}

	sub := &subscription.Subscription{
		Entity:   types.NewEntity(),
		Account:  payer,
		Referrer: referrer,
	}

	sub.Tier = t
	sub.Period = p
	sub.StartTime = now
	sub.EndTime = now.Add(p.Duration())
	sub.PaidAmount = payment
	sub.TotalSpent = payment
	sub.Touch()

	// Subscribe is always the first payment on this record, so a surviving
	// referrer link binds here and nowhere else.
	plan, err := l.planSettlement(ctx, sub, payment, referrer != "")
	if err != nil {
		return nil, err
	}
	sub.TotalRewardsEarned = sub.TotalRewardsEarned.Add(plan.split.Cashback)
	plan.newSubscriber = true

	if err := l.commitSettlement(ctx, plan, sub, oplog.KindSubscribe); err != nil {
		return nil, err
	}

	l.plugins.EmitSubscribed(ctx, sub)
	return sub, nil
}

// Renew restarts a lapsed subscription for one period anchored at now.
// The tier and period are chosen fresh rather than inherited, so a renew
// doubles as a plan switch. Lifetime totals and the referral link carry
// over from the previous life of the record.
func (l *Ledger) Renew(ctx context.Context, payer string, t tier.Tier, p tier.Period, payment types.Amount) (*subscription.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, now, err := l.requireLapsed(ctx, payer, payment)
	if err != nil {
		return nil, err
	}

	price, err := l.price(ctx, t, p)
	if err != nil {
		return nil, err
	}
	if err := l.checkPayment(payment, price); err != nil {
		return nil, err
	}

	sub.Tier = t
	sub.Period = p
	sub.StartTime = now
	sub.EndTime = now.Add(p.Duration())
	sub.PaidAmount = payment
	sub.TotalSpent = sub.TotalSpent.Add(payment)
	sub.Touch()

	plan, err := l.planSettlement(ctx, sub, payment, false)
	if err != nil {
		return nil, err
	}
	sub.TotalRewardsEarned = sub.TotalRewardsEarned.Add(plan.split.Cashback)

	if err := l.commitSettlement(ctx, plan, sub, oplog.KindRenew); err != nil {
		return nil, err
	}

	l.plugins.EmitRenewed(ctx, sub)
	return sub, nil
}

// QuoteUpgrade prices an upgrade without executing it.
func (l *Ledger) QuoteUpgrade(ctx context.Context, payer string, newTier tier.Tier, newPeriod tier.Period) (subscription.UpgradeQuote, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, err := l.store.GetSubscription(ctx, payer)
	if err != nil || !sub.ActiveAt(l.now()) {
		return subscription.UpgradeQuote{}, ErrNoActiveSubscription
	}
	if newTier == sub.Tier {
		return subscription.UpgradeQuote{}, ErrSameTierUpgrade
	}
	if newTier < sub.Tier {
		return subscription.UpgradeQuote{}, ErrInvalidTier
	}

	price, err := l.price(ctx, newTier, newPeriod)
	if err != nil {
		return subscription.UpgradeQuote{}, err
	}
	return sub.QuoteUpgrade(l.now(), price, newPeriod), nil
}

// Upgrade moves an active subscription to a strictly higher tier,
// charging the pro-rated difference for the time left in the current
// period plus one full period at the new tier. The end time extends by
// one new period; the remaining old-tier time converts to new-tier time
// in place. When the trade-in credit covers the whole cost the quote is
// zero and the upgrade expects a zero payment.
func (l *Ledger) Upgrade(ctx context.Context, payer string, newTier tier.Tier, newPeriod tier.Period, payment types.Amount) (*subscription.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if payment.IsNegative() {
		return nil, ErrZeroAmount
	}
	sub, now, err := l.requireActive(ctx, payer)
	if err != nil {
		return nil, err
	}
	if newTier == sub.Tier {
		return nil, ErrSameTierUpgrade
	}
	if newTier < sub.Tier {
		return nil, ErrInvalidTier
	}

	price, err := l.price(ctx, newTier, newPeriod)
	if err != nil {
		return nil, err
	}

	quote := sub.QuoteUpgrade(now, price, newPeriod)
	if err := l.checkPayment(payment, quote.Cost); err != nil {
		return nil, err
	}

	oldTier := sub.Tier
	sub.Tier = newTier
	sub.Period = newPeriod
	sub.EndTime = sub.EndTime.Add(newPeriod.Duration())

	// The credit basis for any later upgrade is one full period at the
	// new tier's price, not the pro-rated top-up actually paid now.
	sub.PaidAmount = price
	sub.TotalSpent = sub.TotalSpent.Add(payment)
	sub.Touch()

	plan, err := l.planSettlement(ctx, sub, payment, false)
	if err != nil {
		return nil, err
	}
	sub.TotalRewardsEarned = sub.TotalRewardsEarned.Add(plan.split.Cashback)

	if err := l.commitSettlement(ctx, plan, sub, oplog.KindUpgrade); err != nil {
		return nil, err
	}

	l.plugins.EmitUpgraded(ctx, sub, uint8(oldTier))
	return sub, nil
}

// Downgrade restarts a lapsed subscription at a strictly lower tier for
// one full period at the lower tier's catalog price. There is no
// pro-ration; a downgrade is a renew aimed below the old tier, and like
// Renew it is only legal once the current period has run out.
func (l *Ledger) Downgrade(ctx context.Context, payer string, newTier tier.Tier, newPeriod tier.Period, payment types.Amount) (*subscription.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, now, err := l.requireLapsed(ctx, payer, payment)
	if err != nil {
		return nil, err
	}
	if newTier >= sub.Tier {
		return nil, ErrSameTierDowngrade
	}

	price, err := l.price(ctx, newTier, newPeriod)
	if err != nil {
		return nil, err
	}
	if err := l.checkPayment(payment, price); err != nil {
		return nil, err
	}

	oldTier := sub.Tier
	sub.Tier = newTier
	sub.Period = newPeriod
	sub.StartTime = now
	sub.EndTime = now.Add(newPeriod.Duration())
	sub.PaidAmount = payment
	sub.TotalSpent = sub.TotalSpent.Add(payment)
	sub.Touch()

	plan, err := l.planSettlement(ctx, sub, payment, false)
	if err != nil {
		return nil, err
	}
	sub.TotalRewardsEarned = sub.TotalRewardsEarned.Add(plan.split.Cashback)

	if err := l.commitSettlement(ctx, plan, sub, oplog.KindDowngrade); err != nil {
		return nil, err
	}

	l.plugins.EmitDowngraded(ctx, sub, uint8(oldTier))
	return sub, nil
}

// requireActive loads the payer's subscription and enforces the common
// preconditions of the in-period operations. It leaves the payment amount
// to the caller's quote check: an upgrade whose trade-in credit covers
// the cost charges nothing. Callers hold l.mu.
func (l *Ledger) requireActive(ctx context.Context, payer string) (*subscription.Subscription, time.Time, error) {
	sub, now, err := l.requireSubscription(ctx, payer)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !sub.ActiveAt(now) {
		return nil, time.Time{}, ErrNoActiveSubscription
	}
	return sub, now, nil
}

// requireLapsed is requireActive's counterpart for the re-entry
// operations, which demand an existing but expired record and always
// charge a full catalog price.
func (l *Ledger) requireLapsed(ctx context.Context, payer string, payment types.Amount) (*subscription.Subscription, time.Time, error) {
	sub, now, err := l.requireSubscription(ctx, payer)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !payment.IsPositive() {
		return nil, time.Time{}, ErrZeroAmount
	}
	if sub.ActiveAt(now) {
		return nil, time.Time{}, ErrSubscriptionStillActive
	}
	return sub, now, nil
}

func (l *Ledger) requireSubscription(ctx context.Context, payer string) (*subscription.Subscription, time.Time, error) {
	if strings.TrimSpace(payer) == "" {
		return nil, time.Time{}, ErrZeroAddress
	}
	if _, err := l.requireProject(ctx); err != nil {
		return nil, time.Time{}, err
	}

	now := l.now()
	sub, err := l.store.GetSubscription(ctx, payer)
	if err != nil {
		return nil, time.Time{}, ErrNoActiveSubscription
	}
	return sub, now, nil
}
