package subledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/store"
	"github.com/xraph/subledger/types"
)

// ClaimReferralRewards sweeps the caller's entire pending reward balance
// out of project custody into the caller's account. Claims are all or
// nothing and gated by the claim cooldown, measured from the last
// successful claim.
func (l *Ledger) ClaimReferralRewards(ctx context.Context, caller string) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(caller) == "" {
		return 0, ErrZeroAddress
	}
	if _, err := l.requireProject(ctx); err != nil {
		return 0, err
	}

	acct, err := l.store.GetReferralAccount(ctx, caller)
	if err != nil {
		return 0, ErrReferralAccountNotFound
	}
	if !acct.PendingRewards.IsPositive() {
		return 0, ErrNoRewardsToClaim
	}

	now := l.now()
	if !acct.ClaimableAt(now, l.claimCooldown) {
		next := acct.LastClaimTime.Add(l.claimCooldown)
		return 0, fmt.Errorf("%w: next claim at %s", ErrClaimCooldown, next.UTC().Format("2006-01-02T15:04:05Z"))
	}

	// Funds move first; state commits only after the payout landed.
	amount := acct.PendingRewards
	if err := l.funds.Transfer(ctx, caller, amount); err != nil {
		return 0, fmt.Errorf("%w: reward payout: %v", ErrTransferFailed, err)
	}

	acct.Claim(now)
	acct.Touch()

	stats, err := l.store.GetStats(ctx)
	if err != nil {
		stats = &project.Stats{}
	}
	stats.TotalPendingReferralRewards = stats.TotalPendingReferralRewards.Sub(amount).ClampZero()
	stats.UpdatedAt = now

	cs := &store.Changeset{
		Referrer: acct,
		Stats:    stats,
		Op: &oplog.Entry{
			ID:      id.NewOperationID(),
			Account: caller,
			Kind:    oplog.KindClaim,
			Amount:  amount,
			At:      now,
		},
	}
	if err := l.store.Apply(ctx, cs); err != nil {
		l.logger.Error("claim paid out but state commit failed",
			"account", caller,
			"amount", amount,
			"error", err,
		)
		return 0, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	l.plugins.EmitRewardsClaimed(ctx, caller, amount.Int64())

	l.logger.Info("referral rewards claimed",
		"account", caller,
		"amount", amount,
	)

	return amount, nil
}

// Withdraw sweeps the project's withdrawable funds to the given account.
// Owner-only. The withdrawable portion is the custody balance minus the
// aggregate pending referral rewards, which stay reserved for their
// referrers no matter what the owner does.
func (l *Ledger) Withdraw(ctx context.Context, caller, to string) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(to) == "" {
		return 0, ErrZeroAddress
	}

	info, err := l.requireProject(ctx)
	if err != nil {
		return 0, err
	}
	if caller != info.Owner {
		return 0, ErrUnauthorized
	}

	amount, err := l.withdrawable(ctx)
	if err != nil {
		return 0, err
	}
	if !amount.IsPositive() {
		return 0, ErrInsufficientBalance
	}

	if err := l.funds.Transfer(ctx, to, amount); err != nil {
		return 0, fmt.Errorf("%w: withdrawal: %v", ErrTransferFailed, err)
	}

	entry := &oplog.Entry{
		ID:      id.NewOperationID(),
		Account: caller,
		Kind:    oplog.KindWithdraw,
		Amount:  amount,
		At:      l.now(),
	}
	if err := l.store.AppendOperation(ctx, entry); err != nil {
		l.logger.Error("withdrawal paid out but history append failed",
			"to", to,
			"amount", amount,
			"error", err,
		)
		return 0, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	l.plugins.EmitWithdrawn(ctx, to, amount.Int64())

	l.logger.Info("funds withdrawn",
		"to", to,
		"amount", amount,
	)

	return amount, nil
}

// withdrawable computes the owner-accessible share of custody funds.
// Callers hold l.mu.
func (l *Ledger) withdrawable(ctx context.Context) (types.Amount, error) {
	balance, err := l.funds.Balance(ctx)
	if err != nil {
		return 0, err
	}
	stats, err := l.store.GetStats(ctx)
	if err != nil {
		return balance, nil
	}
	return balance.Sub(stats.TotalPendingReferralRewards).ClampZero(), nil
}
