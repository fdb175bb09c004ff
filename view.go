package subledger

import (
	"context"

	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/referral"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Project returns the project's identity record.
func (l *Ledger) Project(ctx context.Context) (*project.Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requireProject(ctx)
}

// Stats returns a copy of the aggregate counters.
func (l *Ledger) Stats(ctx context.Context) (*project.Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.requireProject(ctx); err != nil {
		return nil, err
	}
	stats, err := l.store.GetStats(ctx)
	if err != nil {
		return &project.Stats{}, nil
	}
	return stats.Clone(), nil
}

// Plan returns the pricing row for a tier.
func (l *Ledger) Plan(ctx context.Context, t tier.Tier) (*tier.Plan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.store.GetPlan(ctx, t)
	if err != nil {
		return nil, ErrPlanNotFound
	}
	return p, nil
}

// Plans returns every configured pricing row.
func (l *Ledger) Plans(ctx context.Context) ([]*tier.Plan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.ListPlans(ctx)
}

// Subscription returns the stored record for a payer, whether active or
// lapsed. A payer that never subscribed yields ErrSubscriptionNotFound.
func (l *Ledger) Subscription(ctx context.Context, account string) (*subscription.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, err := l.store.GetSubscription(ctx, account)
	if err != nil {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

// IsActive reports whether the account holds an unexpired subscription.
func (l *Ledger) IsActive(ctx context.Context, account string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, err := l.store.GetSubscription(ctx, account)
	return err == nil && sub.ActiveAt(l.now())
}

// Subscribers returns a page of subscriber accounts.
func (l *Ledger) Subscribers(ctx context.Context, opts subscription.ListOpts) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.ListSubscribers(ctx, opts)
}

// SubscriberCount returns the number of stored subscription records.
func (l *Ledger) SubscriberCount(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.CountSubscribers(ctx)
}

// ReferralAccount returns the reward ledger for a referrer. Accounts come
// into existence with their first accrued reward.
func (l *Ledger) ReferralAccount(ctx context.Context, account string) (*referral.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, err := l.store.GetReferralAccount(ctx, account)
	if err != nil {
		return nil, ErrReferralAccountNotFound
	}
	return acct, nil
}

// Withdrawable returns the owner-accessible share of custody funds: the
// held balance minus the aggregate pending referral rewards.
func (l *Ledger) Withdrawable(ctx context.Context) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.withdrawable(ctx)
}

// Balance returns the full custody balance, reserved portions included.
func (l *Ledger) Balance(ctx context.Context) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.funds.Balance(ctx)
}

// Operations returns a page of the project's operation history in append
// order.
func (l *Ledger) Operations(ctx context.Context, opts oplog.ListOpts) ([]*oplog.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.ListOperations(ctx, opts)
}

// AccountOperations returns a page of one account's operation history.
func (l *Ledger) AccountOperations(ctx context.Context, account string, opts oplog.ListOpts) ([]*oplog.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.ListAccountOperations(ctx, account, opts)
}

// OperationCount returns the total number of recorded operations.
func (l *Ledger) OperationCount(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.CountOperations(ctx)
}

// Plugins exposes the plugin registry for inspection.
func (l *Ledger) Plugins() *plugin.Registry {
	return l.plugins
}

// Rules returns the tier cap and enabled periods.
func (l *Ledger) Rules() tier.Ruleset {
	return l.rules
}
