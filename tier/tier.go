// Package tier defines subscription service levels, billing periods, and
// the per-tier pricing plans that make up a project's catalog.
package tier

import (
	"fmt"
	"time"
)

// Tier is a subscription service level. Tiers are ordered: a higher value
// is a strictly better level, which is what upgrade/downgrade legality is
// judged against.
type Tier uint8

// Built-in tier levels. Projects may cap the usable range below Max at
// runtime; the constants only name the conventional four levels.
const (
	Starter  Tier = 0
	Standard Tier = 1
	Pro      Tier = 2
	Max      Tier = 3
)

// DefaultMaxTier is the default runtime cap on the tier range.
const DefaultMaxTier = Max

func (t Tier) String() string {
	switch t {
	case Starter:
		return "starter"
	case Standard:
		return "standard"
	case Pro:
		return "pro"
	case Max:
		return "max"
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// Period is a billing cadence with a fixed duration.
type Period uint8

const (
	Daily   Period = 0
	Weekly  Period = 1
	Monthly Period = 2
	Yearly  Period = 3

	// PeriodCount is the number of billing periods; price tables are
	// indexed [0, PeriodCount).
	PeriodCount = 4
)

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	}
	return fmt.Sprintf("period(%d)", uint8(p))
}

// Duration returns the fixed billing duration of the period.
func (p Period) Duration() time.Duration {
	switch p {
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	case Monthly:
		return 30 * 24 * time.Hour
	case Yearly:
		return 365 * 24 * time.Hour
	}
	return 0
}

// Valid reports whether the period is one of the four defined cadences.
func (p Period) Valid() bool { return p < PeriodCount }

// PeriodSet is a bitmap of enabled billing periods for a project.
type PeriodSet uint8

// AllPeriods enables every billing period.
const AllPeriods PeriodSet = 1<<PeriodCount - 1

// NewPeriodSet builds a PeriodSet from individual periods.
func NewPeriodSet(periods ...Period) PeriodSet {
	var s PeriodSet
	for _, p := range periods {
		s |= 1 << p
	}
	return s
}

// Enabled reports whether the period is enabled in the set.
func (s PeriodSet) Enabled(p Period) bool {
	return p.Valid() && s&(1<<p) != 0
}

// Ruleset is the runtime-configurable validity envelope for a project's
// catalog: the highest usable tier and the enabled billing periods.
type Ruleset struct {
	MaxTier Tier      `json:"max_tier"`
	Periods PeriodSet `json:"periods"`
}

// DefaultRuleset allows all four tiers and all four periods.
func DefaultRuleset() Ruleset {
	return Ruleset{MaxTier: DefaultMaxTier, Periods: AllPeriods}
}

// ValidTier reports whether the tier is within the configured range.
func (r Ruleset) ValidTier(t Tier) bool { return t <= r.MaxTier }

// ValidPeriod reports whether the period is defined and enabled.
func (r Ruleset) ValidPeriod(p Period) bool { return r.Periods.Enabled(p) }
