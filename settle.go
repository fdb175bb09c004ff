package subledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/referral"
	"github.com/xraph/subledger/settlement"
	"github.com/xraph/subledger/store"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/types"
)

// settlementPlan is the fully computed, not-yet-committed effect of one
// paid operation: the money split, the referral accrual, and the stats
// deltas. Building the whole plan before touching funds or storage keeps
// a single commit point per operation.
type settlementPlan struct {
	split    settlement.Split
	referrer *referral.Account

	// newReferrer marks the referrer's first reward ever, which is the
	// event counted by Stats.TotalReferrers.
	newReferrer bool

	// firstReferral marks the initiating subscribe of the referral
	// relationship, which is the only event that grows ReferralCount.
	firstReferral bool

	// newSubscriber marks a payer's first subscribe, the only event
	// counted by Stats.TotalSubscribers.
	newSubscriber bool
}

// planSettlement computes the split for a payment by sub.Account. The
// referrer's validity is re-checked here, at settlement time: a referrer
// whose own subscription lapsed earns nothing on this payment even though
// the referral link persists. Callers hold l.mu.
func (l *Ledger) planSettlement(ctx context.Context, sub *subscription.Subscription, payment types.Amount, firstReferral bool) (*settlementPlan, error) {
	if payment.IsZero() {
		// A fully credited upgrade moves no funds. The empty plan still
		// runs through the commit so the operation is recorded.
		return &settlementPlan{firstReferral: firstReferral}, nil
	}

	referred := l.referrerValid(ctx, sub.Account, sub.Referrer)

	fee := l.registry.CalculatePlatformFee(payment)

	split, err := settlement.Compute(payment, fee, referred)
	if err != nil {
		if errors.Is(err, settlement.ErrOverdraw) {
			return nil, fmt.Errorf("%w: fee %s plus cashback exceeds payment %s", ErrFeeOverdraw, fee, payment)
		}
		return nil, err
	}

	plan := &settlementPlan{split: split, firstReferral: firstReferral}

	if referred {
		acct, err := l.store.GetReferralAccount(ctx, sub.Referrer)
		if err != nil {
			acct = &referral.Account{
				Entity:  types.NewEntity(),
				Account: sub.Referrer,
			}
			plan.newReferrer = true
		}
		acct.Accrue(split.Reward, firstReferral)
		acct.Touch()
		plan.referrer = acct
	}

	return plan, nil
}

// referrerValid reports whether the referrer earns on this payment:
// non-empty, not the payer itself, and holding an active subscription of
// its own right now.
func (l *Ledger) referrerValid(ctx context.Context, payer, referrer string) bool {
	if referrer == "" || referrer == payer {
		return false
	}
	ref, err := l.store.GetSubscription(ctx, referrer)
	if err != nil {
		return false
	}
	return ref.ActiveAt(l.now())
}

// commitSettlement moves the funds and persists the whole operation
// atomically from the caller's point of view.
//
// Ordering: the gross payment is deposited into custody first, then the
// fee and cashback leave custody, then the store commits everything in
// one Apply. A failed outbound transfer aborts before any persistence
// and refunds the deposit best-effort, so a hostile fee or cashback
// recipient cannot leave the ledger holding funds it has not recorded.
func (l *Ledger) commitSettlement(ctx context.Context, plan *settlementPlan, sub *subscription.Subscription, kind oplog.Kind) error {
	split := plan.split

	if err := l.funds.Deposit(ctx, sub.Account, split.Gross); err != nil {
		return fmt.Errorf("%w: deposit: %v", ErrTransferFailed, err)
	}

	if split.PlatformFee.IsPositive() {
		if err := l.funds.Transfer(ctx, l.registry.FeeAccount(), split.PlatformFee); err != nil {
			l.refund(ctx, sub.Account, split.Gross)
			return fmt.Errorf("%w: platform fee: %v", ErrTransferFailed, err)
		}
	}

	if split.Cashback.IsPositive() {
		if err := l.funds.Transfer(ctx, sub.Account, split.Cashback); err != nil {
			l.refund(ctx, sub.Account, split.Gross.Sub(split.PlatformFee))
			return fmt.Errorf("%w: cashback: %v", ErrTransferFailed, err)
		}
	}

	stats, err := l.store.GetStats(ctx)
	if err != nil {
		stats = &project.Stats{}
	}
	l.foldSettlement(stats, plan)

	cs := &store.Changeset{
		Subscription: sub,
		Referrer:     plan.referrer,
		Stats:        stats,
		Op: &oplog.Entry{
			ID:      id.NewOperationID(),
			Account: sub.Account,
			Kind:    kind,
			Tier:    sub.Tier,
			Period:  sub.Period,
			Amount:  split.Gross,
			At:      l.now(),
		},
	}
	if err := l.store.Apply(ctx, cs); err != nil {
		// Funds already moved; the stored state is now behind the
		// treasury. Surface loudly instead of attempting a partial undo.
		l.logger.Error("settlement persisted funds but not state",
			"account", sub.Account,
			"kind", kind,
			"gross", split.Gross,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	l.plugins.EmitPaymentSettled(ctx, sub.Account, &split)
	if plan.referrer != nil {
		l.plugins.EmitRewardAccrued(ctx, plan.referrer.Account, split.Reward.Int64())
	}

	l.logger.Info("payment settled",
		"account", sub.Account,
		"kind", kind,
		"gross", split.Gross,
		"fee", split.PlatformFee,
		"reward", split.Reward,
		"cashback", split.Cashback,
		"net", split.Net,
		"referred", split.Referred,
	)

	return nil
}

// foldSettlement applies one settlement's counter deltas.
func (l *Ledger) foldSettlement(stats *project.Stats, plan *settlementPlan) {
	split := plan.split

	stats.TotalGrossRevenue = stats.TotalGrossRevenue.Add(split.Gross)
	stats.TotalPlatformFeesPaid = stats.TotalPlatformFeesPaid.Add(split.PlatformFee)
	stats.TotalNetRevenue = stats.TotalNetRevenue.Add(split.Net)

	if split.Referred {
		stats.TotalCashbackPaid = stats.TotalCashbackPaid.Add(split.Cashback)
		stats.TotalValidReferralRevenue = stats.TotalValidReferralRevenue.Add(split.Gross)
		stats.TotalReferralRewardsDistributed = stats.TotalReferralRewardsDistributed.Add(split.Reward)
		stats.TotalPendingReferralRewards = stats.TotalPendingReferralRewards.Add(split.Reward)
		if plan.newReferrer {
			stats.TotalReferrers++
		}
	}

	if plan.newSubscriber {
		stats.TotalSubscribers++
	}

	stats.UpdatedAt = l.now()
}

// refund attempts to return a deposit after a failed settlement. Failure
// here is logged, not propagated; the original transfer error stands.
func (l *Ledger) refund(ctx context.Context, account string, amount types.Amount) {
	if !amount.IsPositive() {
		return
	}
	if err := l.funds.Transfer(ctx, account, amount); err != nil {
		l.logger.Error("refund after failed settlement also failed",
			"account", account,
			"amount", amount,
			"error", err,
		)
	}
}
