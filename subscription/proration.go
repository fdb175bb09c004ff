package subscription

import (
	"time"

	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// UpgradeQuote is the priced outcome of an in-period tier upgrade.
type UpgradeQuote struct {
	// RemainingNewCost is the new-tier price pro-rated over the time
	// left in the current period.
	RemainingNewCost types.Amount

	// FullPeriodCost is one full period at the new tier's price; the
	// upgrade extends the subscription by exactly one new period.
	FullPeriodCost types.Amount

	// RemainingOldCredit is the unexpired share of what the payer
	// actually paid for the current period.
	RemainingOldCredit types.Amount

	// Cost is the payment required for the upgrade, clipped at zero.
	Cost types.Amount
}

// QuoteUpgrade prices an upgrade from the subscription's current state
// into newPrice/newPeriod at the given instant.
//
// The credit side is deliberately computed from the amount the payer paid
// at the time (PaidAmount), not from the catalog's current price for the
// old tier: a catalog reprice after purchase must never change what an
// already-paid period is worth on trade-in. The cost side uses the fresh
// catalog price because the payer is buying new-tier time at today's rate.
func (s *Subscription) QuoteUpgrade(now time.Time, newPrice types.Amount, newPeriod tier.Period) UpgradeQuote {
	remaining := s.Remaining(now)

	q := UpgradeQuote{
		RemainingNewCost:   newPrice.ProRata(remaining, newPeriod.Duration()),
		FullPeriodCost:     newPrice,
		RemainingOldCredit: s.PaidAmount.ProRata(remaining, s.Period.Duration()),
	}
	q.Cost = q.RemainingNewCost.Add(q.FullPeriodCost).Sub(q.RemainingOldCredit).ClampZero()
	return q
}
