package tier

import (
	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/types"
)

// Plan is the pricing row for one tier: a price per billing period and the
// ordered feature list shown to subscribers. A zero price marks the period
// as intentionally unpriced for the tier; it is a legal configuration that
// rejects subscription attempts rather than a validation error.
type Plan struct {
	types.Entity
	ID       id.PlanID                 `json:"id"`
	Tier     Tier                      `json:"tier"`
	Enabled  bool                      `json:"enabled"`
	Prices   [PeriodCount]types.Amount `json:"prices"`
	Features []string                  `json:"features"`
}

// PriceFor returns the configured price for the period, which may be zero
// when the period is unpriced for this tier.
func (p *Plan) PriceFor(period Period) types.Amount {
	if !period.Valid() {
		return 0
	}
	return p.Prices[period]
}
