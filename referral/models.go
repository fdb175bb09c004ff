// Package referral defines referrer reward accounts and the accrual/claim
// rules of the two-sided referral program.
package referral

import (
	"time"

	"github.com/xraph/subledger/types"
)

// DefaultClaimCooldown is the minimum spacing between reward claims,
// measured from the last successful claim.
const DefaultClaimCooldown = 7 * 24 * time.Hour

// Account is the reward ledger kept per referrer. Rewards accrue into
// PendingRewards on every settled payment by a referred subscriber and
// are swept out in full by a claim.
type Account struct {
	types.Entity
	Account string `json:"account"`

	// PendingRewards is the accrued, unclaimed balance. The project
	// reserves this amount out of its held funds; invariant:
	// PendingRewards <= TotalRewards.
	PendingRewards types.Amount `json:"pending_rewards"`

	// TotalRewards is the lifetime accrued total, claimed and pending.
	TotalRewards types.Amount `json:"total_rewards"`

	LastClaimTime time.Time `json:"last_claim_time"`

	// ReferralCount is the number of distinct subscribers whose first
	// subscribe recorded this account as a valid referrer.
	ReferralCount int64 `json:"referral_count"`
}

// Accrue adds a reward to the pending and lifetime totals. firstReferral
// marks the initiating subscribe of a new subscriber/referrer pair, which
// is the only event that grows ReferralCount; later renewals and upgrades
// of the same relationship accrue without counting.
func (a *Account) Accrue(reward types.Amount, firstReferral bool) {
	a.PendingRewards = a.PendingRewards.Add(reward)
	a.TotalRewards = a.TotalRewards.Add(reward)
	if firstReferral {
		a.ReferralCount++
	}
}

// ClaimableAt reports whether a claim at the given time passes the
// cooldown gate. It does not check the pending balance.
func (a *Account) ClaimableAt(now time.Time, cooldown time.Duration) bool {
	return !a.LastClaimTime.Add(cooldown).After(now)
}

// Claim zeroes the pending balance, stamps the claim time, and returns
// the swept amount. Callers are responsible for the eligibility gates.
func (a *Account) Claim(now time.Time) types.Amount {
	swept := a.PendingRewards
	a.PendingRewards = 0
	a.LastClaimTime = now
	return swept
}
