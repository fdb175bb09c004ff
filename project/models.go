// Package project defines the identity, brand metadata, and aggregate
// statistics of one project ledger instance.
package project

import (
	"time"

	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/types"
)

// Info is the singleton identity record of a project. Name and Symbol are
// fixed at initialization and never change; Brand is owner-mutable.
type Info struct {
	types.Entity
	ID     id.ProjectID `json:"id"`
	Name   string       `json:"name"`
	Symbol string       `json:"symbol"`
	Owner  string       `json:"owner"`
	Brand  Brand        `json:"brand"`
}

// Brand is the owner-mutable display metadata. It deliberately excludes
// the identity fields.
type Brand struct {
	DisplayName string `json:"display_name,omitempty"`
	LogoURI     string `json:"logo_uri,omitempty"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
}

// Stats is the singleton aggregate counter block for a project. Every
// counter is monotonic except TotalPendingReferralRewards, which moves
// with accruals and claims and must always equal the sum of pending
// balances across referral accounts.
type Stats struct {
	TotalGrossRevenue     types.Amount `json:"total_gross_revenue"`
	TotalNetRevenue       types.Amount `json:"total_net_revenue"`
	TotalPlatformFeesPaid types.Amount `json:"total_platform_fees_paid"`
	TotalCashbackPaid     types.Amount `json:"total_cashback_paid"`

	TotalSubscribers int64 `json:"total_subscribers"`

	// TotalReferrers counts distinct referrers who have ever earned a
	// reward, not accounts that merely exist.
	TotalReferrers int64 `json:"total_referrers"`

	TotalValidReferralRevenue       types.Amount `json:"total_valid_referral_revenue"`
	TotalReferralRewardsDistributed types.Amount `json:"total_referral_rewards_distributed"`

	// TotalPendingReferralRewards is the amount reserved out of held
	// funds for unclaimed referrer rewards. Fund-safety invariant:
	// never exceeds the project's custody balance.
	TotalPendingReferralRewards types.Amount `json:"total_pending_referral_rewards"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy of the stats block.
func (s *Stats) Clone() *Stats {
	c := *s
	return &c
}
