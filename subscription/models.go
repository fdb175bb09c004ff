// Package subscription defines the per-payer subscription record, its
// lifecycle states, and the pro-ration arithmetic for tier changes.
package subscription

import (
	"time"

	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Status is the derived lifecycle state of a subscription at a point in
// time. A payer with no stored record at all is in the implicit
// "never subscribed" state, which is distinct from Expired.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Subscription is the single record kept per payer account. It is created
// on first subscribe and overwritten in place on later lifecycle
// operations; it is never deleted.
type Subscription struct {
	types.Entity
	Account   string      `json:"account"`
	Referrer  string      `json:"referrer,omitempty"`
	Tier      tier.Tier   `json:"tier"`
	Period    tier.Period `json:"period"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`

	// PaidAmount is the payment recorded for the current period only.
	// It is the credit basis for upgrade pro-ration, so later catalog
	// price changes never retroactively reprice an upgrade.
	PaidAmount types.Amount `json:"paid_amount"`

	// TotalSpent is the lifetime cumulative payment across all periods.
	TotalSpent types.Amount `json:"total_spent"`

	// TotalRewardsEarned is the lifetime cashback received as subscriber.
	TotalRewardsEarned types.Amount `json:"total_rewards_earned"`
}

// ActiveAt reports whether the subscription is active at the given time.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.EndTime.After(now)
}

// StatusAt returns the lifecycle status at the given time.
func (s *Subscription) StatusAt(now time.Time) Status {
	if s.ActiveAt(now) {
		return StatusActive
	}
	return StatusExpired
}

// Remaining returns the unexpired portion of the current period, or zero
// once expired.
func (s *Subscription) Remaining(now time.Time) time.Duration {
	if !s.EndTime.After(now) {
		return 0
	}
	return s.EndTime.Sub(now)
}

// ListOpts controls pagination for subscriber listings.
type ListOpts struct {
	Limit  int
	Offset int
}
