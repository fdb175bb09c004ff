package subscription

import (
	"testing"
	"time"

	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

func TestQuoteUpgrade(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	month := tier.Monthly.Duration()

	sub := func(paid types.Amount) *Subscription {
		return &Subscription{
			Account:    "payer-1",
			Tier:       tier.Standard,
			Period:     tier.Monthly,
			StartTime:  start,
			EndTime:    start.Add(month),
			PaidAmount: paid,
		}
	}

	newPrice := types.Milli(20)

	tests := []struct {
		name string
		sub  *Subscription
		now  time.Time
		want types.Amount
	}{
		{
			// Nothing used yet: old period fully credited, pay the
			// pro-rated remainder of new plus one full new period.
			name: "FullPeriodRemaining",
			sub:  sub(types.Milli(10)),
			now:  start,
			want: types.Milli(20).Add(types.Milli(20)).Sub(types.Milli(10)),
		},
		{
			// Expiry instant: no remaining time on either side, the
			// upgrade costs exactly one full new period.
			name: "NoTimeRemaining",
			sub:  sub(types.Milli(10)),
			now:  start.Add(month),
			want: types.Milli(20),
		},
		{
			name: "HalfPeriodRemaining",
			sub:  sub(types.Milli(10)),
			now:  start.Add(month / 2),
			want: types.Milli(10).Add(types.Milli(20)).Sub(types.Milli(5)),
		},
		{
			// Credit exceeding cost clips at zero instead of refunding.
			name: "CreditExceedsCost",
			sub:  sub(types.Native(100)),
			now:  start,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.sub.QuoteUpgrade(tt.now, newPrice, tier.Monthly)
			if q.Cost != tt.want {
				t.Errorf("cost: got %v, want %v", q.Cost, tt.want)
			}
		})
	}
}

func TestQuoteUpgradeStalePaidBasis(t *testing.T) {
	// The credit basis is the amount actually paid for the current
	// period, not the catalog's current price for the old tier. A payer
	// who bought at 0.010 keeps a 0.010-based credit even if the old
	// tier is now listed at 0.050.
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	month := tier.Monthly.Duration()
	sub := &Subscription{
		Tier:       tier.Standard,
		Period:     tier.Monthly,
		StartTime:  start,
		EndTime:    start.Add(month),
		PaidAmount: types.Milli(10),
	}

	q := sub.QuoteUpgrade(start.Add(month/2), types.Milli(20), tier.Monthly)
	if q.RemainingOldCredit != types.Milli(5) {
		t.Errorf("credit: got %v, want %v", q.RemainingOldCredit, types.Milli(5))
	}
}

func TestQuoteUpgradeCrossPeriod(t *testing.T) {
	// Monthly -> yearly with half the month left: remaining new cost is
	// the yearly price over 15/365 of a year.
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	month := tier.Monthly.Duration()
	sub := &Subscription{
		Tier:       tier.Standard,
		Period:     tier.Monthly,
		StartTime:  start,
		EndTime:    start.Add(month),
		PaidAmount: types.Milli(10),
	}

	yearPrice := types.Milli(100)
	now := start.Add(month / 2)
	q := sub.QuoteUpgrade(now, yearPrice, tier.Yearly)

	wantNew := yearPrice.ProRata(month/2, tier.Yearly.Duration())
	if q.RemainingNewCost != wantNew {
		t.Errorf("remaining new cost: got %v, want %v", q.RemainingNewCost, wantNew)
	}
	wantCost := wantNew.Add(yearPrice).Sub(types.Milli(5))
	if q.Cost != wantCost {
		t.Errorf("cost: got %v, want %v", q.Cost, wantCost)
	}
}

func TestStatusDerivation(t *testing.T) {
	now := time.Now()
	active := &Subscription{EndTime: now.Add(time.Hour)}
	expired := &Subscription{EndTime: now.Add(-time.Hour)}
	boundary := &Subscription{EndTime: now}

	if active.StatusAt(now) != StatusActive {
		t.Error("future end time should be active")
	}
	if expired.StatusAt(now) != StatusExpired {
		t.Error("past end time should be expired")
	}
	// endTime <= now is expired, not active.
	if boundary.StatusAt(now) != StatusExpired {
		t.Error("end time equal to now should be expired")
	}
	if got := expired.Remaining(now); got != 0 {
		t.Errorf("expired remaining: got %v, want 0", got)
	}
}
