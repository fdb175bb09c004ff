package subledger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	subledger "github.com/xraph/subledger"
	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/treasury"
	"github.com/xraph/subledger/types"
)

const (
	owner      = "owner"
	alice      = "alice"
	bob        = "bob"
	carol      = "carol"
	feeAccount = "platform"
)

var (
	standardMonthly = types.Milli(10) // 10_000_000 base units
	proMonthly      = types.Milli(30)
)

// clock is a controllable time source for the ledger under test.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	ledger   *subledger.Ledger
	vault    *treasury.Vault
	clock    *clock
	platform *registry.Platform
}

func newFixture(t *testing.T, opts ...subledger.Option) *fixture {
	t.Helper()

	f := &fixture{
		vault:    treasury.NewVault(),
		clock:    &clock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		platform: registry.New(feeAccount, registry.WithFeeBasisPoints(500)),
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []subledger.Option{
		subledger.WithClock(f.clock.Now),
		subledger.WithLogger(quiet),
	}
	f.ledger = subledger.New(memory.New(), f.vault, f.platform, append(base, opts...)...)

	if err := f.ledger.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return f
}

// initProject runs Init and prices the standard and pro tiers monthly.
func (f *fixture) initProject(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if _, err := f.ledger.Init(ctx, "acme", "ACME", owner); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var standard [tier.PeriodCount]types.Amount
	standard[tier.Monthly] = standardMonthly
	if err := f.ledger.SetPlan(ctx, owner, tier.Standard, standard, nil); err != nil {
		t.Fatalf("SetPlan standard: %v", err)
	}

	var pro [tier.PeriodCount]types.Amount
	pro[tier.Monthly] = proMonthly
	if err := f.ledger.SetPlan(ctx, owner, tier.Pro, pro, []string{"priority-support"}); err != nil {
		t.Fatalf("SetPlan pro: %v", err)
	}
}

func (f *fixture) subscribe(t *testing.T, payer, referrer string) *subscription.Subscription {
	t.Helper()
	sub, err := f.ledger.Subscribe(context.Background(), payer, tier.Standard, tier.Monthly, referrer, standardMonthly)
	if err != nil {
		t.Fatalf("Subscribe %s: %v", payer, err)
	}
	return sub
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		info, err := f.ledger.Init(ctx, "acme", "ACME", owner)
		if err != nil {
			t.Fatalf("Init: %v", err)
		}
		if info.Name != "acme" || info.Symbol != "ACME" || info.Owner != owner {
			t.Errorf("identity fields: got %q/%q/%q", info.Name, info.Symbol, info.Owner)
		}
		if info.ID.IsNil() {
			t.Error("expected a generated project ID")
		}
	})

	t.Run("SecondInitFails", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		if _, err := f.ledger.Init(ctx, "other", "OTH", owner); !errors.Is(err, subledger.ErrAlreadyInitialized) {
			t.Errorf("got %v, want ErrAlreadyInitialized", err)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.ledger.Init(ctx, "acme", "ACME", ""); !errors.Is(err, subledger.ErrZeroAddress) {
			t.Errorf("empty owner: got %v, want ErrZeroAddress", err)
		}
		var verr subledger.ValidationError
		if _, err := f.ledger.Init(ctx, "", "ACME", owner); !errors.As(err, &verr) || verr.Field != "name" {
			t.Errorf("empty name: got %v, want ValidationError{name}", err)
		}
		if _, err := f.ledger.Init(ctx, "acme", "  ", owner); !errors.As(err, &verr) || verr.Field != "symbol" {
			t.Errorf("blank symbol: got %v, want ValidationError{symbol}", err)
		}
	})
}

func TestUpdateBrand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.initProject(t)

	brand := project.Brand{DisplayName: "Acme Inc", Website: "https://acme.test"}
	if err := f.ledger.UpdateBrand(ctx, alice, brand); !errors.Is(err, subledger.ErrUnauthorized) {
		t.Errorf("non-owner: got %v, want ErrUnauthorized", err)
	}
	if err := f.ledger.UpdateBrand(ctx, owner, brand); err != nil {
		t.Fatalf("UpdateBrand: %v", err)
	}

	info, err := f.ledger.Project(ctx)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if info.Brand.DisplayName != "Acme Inc" || info.Brand.Website != "https://acme.test" {
		t.Errorf("brand not persisted: %+v", info.Brand)
	}
	if info.Name != "acme" {
		t.Errorf("identity changed: %q", info.Name)
	}
}

func TestSetPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("Errors", func(t *testing.T) {
		f := newFixture(t)

		var prices [tier.PeriodCount]types.Amount
		prices[tier.Monthly] = standardMonthly

		if err := f.ledger.SetPlan(ctx, owner, tier.Standard, prices, nil); !errors.Is(err, subledger.ErrNotInitialized) {
			t.Errorf("before init: got %v, want ErrNotInitialized", err)
		}

		f.initProject(t)

		if err := f.ledger.SetPlan(ctx, alice, tier.Standard, prices, nil); !errors.Is(err, subledger.ErrUnauthorized) {
			t.Errorf("non-owner: got %v, want ErrUnauthorized", err)
		}

		capped := newFixture(t, subledger.WithRuleset(tier.Ruleset{MaxTier: tier.Standard, Periods: tier.AllPeriods}))
		capped.initProjectOnly(t)
		if err := capped.ledger.SetPlan(ctx, owner, tier.Pro, prices, nil); !errors.Is(err, subledger.ErrInvalidTier) {
			t.Errorf("above cap: got %v, want ErrInvalidTier", err)
		}

		var negative [tier.PeriodCount]types.Amount
		negative[tier.Daily] = types.Amount(-1)
		if err := f.ledger.SetPlan(ctx, owner, tier.Standard, negative, nil); !errors.Is(err, subledger.ErrInvalidPrice) {
			t.Errorf("negative price: got %v, want ErrInvalidPrice", err)
		}
	})

	t.Run("ReplacesPrices", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)

		var repriced [tier.PeriodCount]types.Amount
		repriced[tier.Monthly] = types.Milli(20)
		if err := f.ledger.SetPlan(ctx, owner, tier.Standard, repriced, nil); err != nil {
			t.Fatalf("SetPlan: %v", err)
		}

		p, err := f.ledger.Plan(ctx, tier.Standard)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if p.PriceFor(tier.Monthly) != types.Milli(20) {
			t.Errorf("monthly price: got %v", p.PriceFor(tier.Monthly))
		}
		if p.PriceFor(tier.Daily) != 0 {
			t.Errorf("daily price should be unset, got %v", p.PriceFor(tier.Daily))
		}
	})
}

// initProjectOnly runs Init without configuring any plans.
func (f *fixture) initProjectOnly(t *testing.T) {
	t.Helper()
	if _, err := f.ledger.Init(context.Background(), "acme", "ACME", owner); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestSetPlanEnabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.initProject(t)

	if err := f.ledger.SetPlanEnabled(ctx, owner, tier.Max, false); !errors.Is(err, subledger.ErrPlanNotFound) {
		t.Errorf("unconfigured tier: got %v, want ErrPlanNotFound", err)
	}

	if err := f.ledger.SetPlanEnabled(ctx, owner, tier.Standard, false); err != nil {
		t.Fatalf("SetPlanEnabled: %v", err)
	}
	if _, err := f.ledger.Subscribe(ctx, alice, tier.Standard, tier.Monthly, "", standardMonthly); !errors.Is(err, subledger.ErrTierDisabled) {
		t.Errorf("disabled tier subscribe: got %v, want ErrTierDisabled", err)
	}

	if err := f.ledger.SetPlanEnabled(ctx, owner, tier.Standard, true); err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	if _, err := f.ledger.Subscribe(ctx, alice, tier.Standard, tier.Monthly, "", standardMonthly); err != nil {
		t.Errorf("re-enabled subscribe: %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		start := f.clock.Now()

		sub := f.subscribe(t, alice, "")
		if sub.Tier != tier.Standard || sub.Period != tier.Monthly {
			t.Errorf("tier/period: got %v/%v", sub.Tier, sub.Period)
		}
		if !sub.StartTime.Equal(start) {
			t.Errorf("start time: got %v, want %v", sub.StartTime, start)
		}
		if want := start.Add(30 * 24 * time.Hour); !sub.EndTime.Equal(want) {
			t.Errorf("end time: got %v, want %v", sub.EndTime, want)
		}
		if sub.PaidAmount != standardMonthly || sub.TotalSpent != standardMonthly {
			t.Errorf("amounts: paid %v spent %v", sub.PaidAmount, sub.TotalSpent)
		}
		if !f.ledger.IsActive(ctx, alice) {
			t.Error("expected alice active")
		}

		// Unreferred payment: custody keeps gross minus the platform fee.
		held, _ := f.ledger.Balance(ctx)
		if want := types.Amount(9_500_000); held != want {
			t.Errorf("held: got %v, want %v", held, want)
		}
		if got := f.vault.AccountBalance(feeAccount); got != types.Amount(500_000) {
			t.Errorf("fee account: got %v, want 500000", got)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)

		tests := []struct {
			name    string
			payer   string
			t       tier.Tier
			p       tier.Period
			payment types.Amount
			want    error
		}{
			{"EmptyPayer", "", tier.Standard, tier.Monthly, standardMonthly, subledger.ErrZeroAddress},
			{"ZeroPayment", alice, tier.Standard, tier.Monthly, 0, subledger.ErrZeroAmount},
			{"UnpricedTier", alice, tier.Max, tier.Monthly, standardMonthly, subledger.ErrTierDisabled},
			{"UnpricedPeriod", alice, tier.Standard, tier.Yearly, standardMonthly, subledger.ErrPriceNotSet},
			{"Underpay", alice, tier.Standard, tier.Monthly, standardMonthly - 1, subledger.ErrInsufficientPayment},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.ledger.Subscribe(ctx, tt.payer, tt.t, tt.p, "", tt.payment)
				if !errors.Is(err, tt.want) {
					t.Errorf("got %v, want %v", err, tt.want)
				}
			})
		}
	})

	t.Run("OverpayBoundary", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)

		// Tolerance is 120% of the required price.
		limit := standardMonthly.BasisPoints(subledger.DefaultOverpayToleranceBps)
		if _, err := f.ledger.Subscribe(ctx, alice, tier.Standard, tier.Monthly, "", limit+1); !errors.Is(err, subledger.ErrExcessPayment) {
			t.Errorf("above limit: got %v, want ErrExcessPayment", err)
		}
		sub, err := f.ledger.Subscribe(ctx, alice, tier.Standard, tier.Monthly, "", limit)
		if err != nil {
			t.Fatalf("at limit: %v", err)
		}
		if sub.PaidAmount != limit {
			t.Errorf("paid amount: got %v, want %v", sub.PaidAmount, limit)
		}
	})

	t.Run("AlreadySubscribed", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		f.subscribe(t, alice, "")
		if _, err := f.ledger.Subscribe(ctx, alice, tier.Standard, tier.Monthly, "", standardMonthly); !errors.Is(err, subledger.ErrAlreadySubscribed) {
			t.Errorf("while active: got %v, want ErrAlreadySubscribed", err)
		}

		// A lapsed record still blocks Subscribe; re-entry goes through Renew.
		f.clock.Advance(31 * 24 * time.Hour)
		if _, err := f.ledger.Subscribe(ctx, alice, tier.Standard, tier.Monthly, "", standardMonthly); !errors.Is(err, subledger.ErrAlreadySubscribed) {
			t.Errorf("after lapse: got %v, want ErrAlreadySubscribed", err)
		}
	})

	t.Run("NotInitialized", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.ledger.Subscribe(ctx, alice, tier.Standard, tier.Monthly, "", standardMonthly); !errors.Is(err, subledger.ErrNotInitialized) {
			t.Errorf("got %v, want ErrNotInitialized", err)
		}
	})
}

func TestSubscribeWithReferral(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.initProject(t)

	f.subscribe(t, bob, "")
	sub := f.subscribe(t, alice, bob)

	if sub.Referrer != bob {
		t.Errorf("referrer: got %q, want %q", sub.Referrer, bob)
	}
	if sub.TotalRewardsEarned != types.Amount(1_000_000) {
		t.Errorf("cashback earned: got %v, want 1000000", sub.TotalRewardsEarned)
	}

	acct, err := f.ledger.ReferralAccount(ctx, bob)
	if err != nil {
		t.Fatalf("ReferralAccount: %v", err)
	}
	if acct.PendingRewards != types.Amount(1_000_000) || acct.TotalRewards != types.Amount(1_000_000) {
		t.Errorf("rewards: pending %v total %v", acct.PendingRewards, acct.TotalRewards)
	}
	if acct.ReferralCount != 1 {
		t.Errorf("referral count: got %d, want 1", acct.ReferralCount)
	}

	stats, err := f.ledger.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalGrossRevenue != types.Amount(20_000_000) {
		t.Errorf("gross: got %v", stats.TotalGrossRevenue)
	}
	if stats.TotalPlatformFeesPaid != types.Amount(1_000_000) {
		t.Errorf("fees: got %v", stats.TotalPlatformFeesPaid)
	}
	// Unreferred: 10M - 0.5M fee = 9.5M. Referred: 10M - 0.5M - 1M - 1M = 7.5M.
	if stats.TotalNetRevenue != types.Amount(17_000_000) {
		t.Errorf("net: got %v", stats.TotalNetRevenue)
	}
	if stats.TotalCashbackPaid != types.Amount(1_000_000) {
		t.Errorf("cashback: got %v", stats.TotalCashbackPaid)
	}
	if stats.TotalValidReferralRevenue != types.Amount(10_000_000) {
		t.Errorf("referral revenue: got %v", stats.TotalValidReferralRevenue)
	}
	if stats.TotalPendingReferralRewards != types.Amount(1_000_000) {
		t.Errorf("pending rewards: got %v", stats.TotalPendingReferralRewards)
	}
	if stats.TotalSubscribers != 2 || stats.TotalReferrers != 1 {
		t.Errorf("counts: subscribers %d referrers %d", stats.TotalSubscribers, stats.TotalReferrers)
	}

	held, _ := f.ledger.Balance(ctx)
	if held != types.Amount(18_000_000) {
		t.Errorf("held: got %v, want 18000000", held)
	}
	withdrawable, _ := f.ledger.Withdrawable(ctx)
	if withdrawable != types.Amount(17_000_000) {
		t.Errorf("withdrawable: got %v, want 17000000", withdrawable)
	}
	if got := f.vault.AccountBalance(feeAccount); got != types.Amount(1_000_000) {
		t.Errorf("fee account: got %v, want 1000000", got)
	}
}

func TestReferrerSoftFail(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		referrer func(t *testing.T, f *fixture) string
	}{
		{"Self", func(_ *testing.T, _ *fixture) string { return alice }},
		{"NeverSubscribed", func(_ *testing.T, _ *fixture) string { return "stranger" }},
		{"Lapsed", func(t *testing.T, f *fixture) string {
			f.subscribe(t, bob, "")
			f.clock.Advance(31 * 24 * time.Hour)
			return bob
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.initProject(t)
			ref := tt.referrer(t, f)

			sub, err := f.ledger.Subscribe(ctx, alice, tier.Standard, tier.Monthly, ref, standardMonthly)
			if err != nil {
				t.Fatalf("Subscribe: %v", err)
			}
			if sub.Referrer != "" {
				t.Errorf("referrer should be dropped, got %q", sub.Referrer)
			}
			if sub.TotalRewardsEarned != 0 {
				t.Errorf("no cashback expected, got %v", sub.TotalRewardsEarned)
			}
			if _, err := f.ledger.ReferralAccount(ctx, ref); !errors.Is(err, subledger.ErrReferralAccountNotFound) {
				t.Errorf("referral account should not exist: %v", err)
			}
		})
	}
}

func TestReferrerRecheckedPerPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.initProject(t)

	f.subscribe(t, bob, "")
	f.clock.Advance(24 * time.Hour)
	f.subscribe(t, alice, bob)

	// A month passes and both subscriptions lapse.
	f.clock.Advance(31 * 24 * time.Hour)
	if f.ledger.IsActive(ctx, bob) {
		t.Fatal("bob should be lapsed")
	}
	if f.ledger.IsActive(ctx, alice) {
		t.Fatal("alice should be lapsed")
	}

	sub, err := f.ledger.Renew(ctx, alice, tier.Standard, tier.Monthly, standardMonthly)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}

	// The link persists but earns nothing while the referrer is lapsed.
	if sub.Referrer != bob {
		t.Errorf("referral link should persist, got %q", sub.Referrer)
	}
	acct, err := f.ledger.ReferralAccount(ctx, bob)
	if err != nil {
		t.Fatalf("ReferralAccount: %v", err)
	}
	if acct.PendingRewards != types.Amount(1_000_000) {
		t.Errorf("pending should be unchanged: got %v", acct.PendingRewards)
	}
	if sub.TotalRewardsEarned != types.Amount(1_000_000) {
		t.Errorf("no new cashback expected: got %v", sub.TotalRewardsEarned)
	}
}

func TestRenew(t *testing.T) {
	ctx := context.Background()

	t.Run("RestartsAfterExpiry", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)

		f.subscribe(t, alice, "")
		f.clock.Advance(31 * 24 * time.Hour)
		renewAt := f.clock.Now()

		// The renewed plan is chosen fresh, not inherited.
		sub, err := f.ledger.Renew(ctx, alice, tier.Pro, tier.Monthly, proMonthly)
		if err != nil {
			t.Fatalf("Renew: %v", err)
		}
		if sub.Tier != tier.Pro {
			t.Errorf("tier: got %v, want Pro", sub.Tier)
		}
		if !sub.StartTime.Equal(renewAt) {
			t.Errorf("start time: got %v, want %v", sub.StartTime, renewAt)
		}
		if want := renewAt.Add(30 * 24 * time.Hour); !sub.EndTime.Equal(want) {
			t.Errorf("end time: got %v, want %v", sub.EndTime, want)
		}
		if sub.PaidAmount != proMonthly {
			t.Errorf("paid amount: got %v", sub.PaidAmount)
		}
		if sub.TotalSpent != standardMonthly.Add(proMonthly) {
			t.Errorf("total spent: got %v", sub.TotalSpent)
		}
	})

	t.Run("StillActive", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		f.subscribe(t, alice, "")

		if _, err := f.ledger.Renew(ctx, alice, tier.Standard, tier.Monthly, standardMonthly); !errors.Is(err, subledger.ErrSubscriptionStillActive) {
			t.Errorf("got %v, want ErrSubscriptionStillActive", err)
		}
	})

	t.Run("NeverSubscribed", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		if _, err := f.ledger.Renew(ctx, alice, tier.Standard, tier.Monthly, standardMonthly); !errors.Is(err, subledger.ErrNoActiveSubscription) {
			t.Errorf("got %v, want ErrNoActiveSubscription", err)
		}
	})
}

func TestLapsedReentry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.initProject(t)

	f.subscribe(t, alice, "")
	f.clock.Advance(31 * 24 * time.Hour)

	sub, err := f.ledger.Renew(ctx, alice, tier.Standard, tier.Monthly, standardMonthly)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if sub.TotalSpent != standardMonthly.Mul(2) {
		t.Errorf("lifetime spend should carry over: got %v", sub.TotalSpent)
	}

	// Re-entry is not a new subscriber.
	stats, err := f.ledger.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSubscribers != 1 {
		t.Errorf("subscribers: got %d, want 1", stats.TotalSubscribers)
	}
	count, _ := f.ledger.SubscriberCount(ctx)
	if count != 1 {
		t.Errorf("subscriber count: got %d, want 1", count)
	}
}

func TestUpgrade(t *testing.T) {
	ctx := context.Background()

	t.Run("ProRatedCost", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		start := f.clock.Now()

		f.subscribe(t, alice, "")
		f.clock.Advance(15 * 24 * time.Hour) // half the period left

		quote, err := f.ledger.QuoteUpgrade(ctx, alice, tier.Pro, tier.Monthly)
		if err != nil {
			t.Fatalf("QuoteUpgrade: %v", err)
		}
		if quote.RemainingNewCost != types.Amount(15_000_000) {
			t.Errorf("remaining new cost: got %v", quote.RemainingNewCost)
		}
		if quote.FullPeriodCost != proMonthly {
			t.Errorf("full period cost: got %v", quote.FullPeriodCost)
		}
		if quote.RemainingOldCredit != types.Amount(5_000_000) {
			t.Errorf("old credit: got %v", quote.RemainingOldCredit)
		}
		if quote.Cost != types.Amount(40_000_000) {
			t.Errorf("cost: got %v, want 40000000", quote.Cost)
		}

		sub, err := f.ledger.Upgrade(ctx, alice, tier.Pro, tier.Monthly, quote.Cost)
		if err != nil {
			t.Fatalf("Upgrade: %v", err)
		}
		if sub.Tier != tier.Pro || sub.Period != tier.Monthly {
			t.Errorf("tier/period: got %v/%v", sub.Tier, sub.Period)
		}
		if want := start.Add(60 * 24 * time.Hour); !sub.EndTime.Equal(want) {
			t.Errorf("end time: got %v, want %v", sub.EndTime, want)
		}
		// Later upgrades credit one full period at the new price,
		// not the pro-rated top-up paid here.
		if sub.PaidAmount != proMonthly {
			t.Errorf("paid amount: got %v, want %v", sub.PaidAmount, proMonthly)
		}
		if sub.TotalSpent != standardMonthly.Add(quote.Cost) {
			t.Errorf("total spent: got %v", sub.TotalSpent)
		}
	})

	t.Run("FreeWhenCreditCovers", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		start := f.clock.Now()

		f.subscribe(t, alice, "")

		// The owner reprices Pro below what alice already paid, so her
		// full-period credit swallows the whole upgrade cost.
		var pro [tier.PeriodCount]types.Amount
		pro[tier.Monthly] = types.Milli(5)
		if err := f.ledger.SetPlan(ctx, owner, tier.Pro, pro, nil); err != nil {
			t.Fatalf("SetPlan: %v", err)
		}

		quote, err := f.ledger.QuoteUpgrade(ctx, alice, tier.Pro, tier.Monthly)
		if err != nil {
			t.Fatalf("QuoteUpgrade: %v", err)
		}
		if !quote.Cost.IsZero() {
			t.Fatalf("cost: got %v, want 0", quote.Cost)
		}

		if _, err := f.ledger.Upgrade(ctx, alice, tier.Pro, tier.Monthly, types.Milli(1)); !errors.Is(err, subledger.ErrExcessPayment) {
			t.Errorf("paying for a free upgrade: got %v, want ErrExcessPayment", err)
		}

		held, _ := f.ledger.Balance(ctx)

		sub, err := f.ledger.Upgrade(ctx, alice, tier.Pro, tier.Monthly, 0)
		if err != nil {
			t.Fatalf("Upgrade: %v", err)
		}
		if sub.Tier != tier.Pro {
			t.Errorf("tier: got %v, want Pro", sub.Tier)
		}
		if want := start.Add(60 * 24 * time.Hour); !sub.EndTime.Equal(want) {
			t.Errorf("end time: got %v, want %v", sub.EndTime, want)
		}
		if sub.PaidAmount != types.Milli(5) {
			t.Errorf("paid amount: got %v, want %v", sub.PaidAmount, types.Milli(5))
		}
		if sub.TotalSpent != standardMonthly {
			t.Errorf("total spent: got %v, want %v", sub.TotalSpent, standardMonthly)
		}

		// No funds move on a free upgrade, but the operation is recorded.
		after, _ := f.ledger.Balance(ctx)
		if after != held {
			t.Errorf("held balance: got %v, want %v", after, held)
		}
		ops, err := f.ledger.AccountOperations(ctx, alice, oplog.ListOpts{Limit: 10})
		if err != nil {
			t.Fatalf("AccountOperations: %v", err)
		}
		last := ops[len(ops)-1]
		if last.Kind != oplog.KindUpgrade || !last.Amount.IsZero() {
			t.Errorf("last op: got %v/%v, want upgrade/0", last.Kind, last.Amount)
		}
	})

	t.Run("SameOrLowerTier", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		f.subscribe(t, alice, "")

		if _, err := f.ledger.Upgrade(ctx, alice, tier.Standard, tier.Monthly, proMonthly); !errors.Is(err, subledger.ErrSameTierUpgrade) {
			t.Errorf("same tier: got %v, want ErrSameTierUpgrade", err)
		}
		if _, err := f.ledger.QuoteUpgrade(ctx, alice, tier.Starter, tier.Monthly); !errors.Is(err, subledger.ErrInvalidTier) {
			t.Errorf("lower tier quote: got %v, want ErrInvalidTier", err)
		}
	})

	t.Run("RequiresActive", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		f.subscribe(t, alice, "")
		f.clock.Advance(31 * 24 * time.Hour)

		if _, err := f.ledger.Upgrade(ctx, alice, tier.Pro, tier.Monthly, proMonthly); !errors.Is(err, subledger.ErrNoActiveSubscription) {
			t.Errorf("got %v, want ErrNoActiveSubscription", err)
		}
	})
}

func TestDowngrade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.initProject(t)

	if _, err := f.ledger.Subscribe(ctx, alice, tier.Pro, tier.Monthly, "", proMonthly); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// The paid period runs its course first; nothing is refunded.
	if _, err := f.ledger.Downgrade(ctx, alice, tier.Standard, tier.Monthly, standardMonthly); !errors.Is(err, subledger.ErrSubscriptionStillActive) {
		t.Errorf("while active: got %v, want ErrSubscriptionStillActive", err)
	}

	f.clock.Advance(31 * 24 * time.Hour)
	downAt := f.clock.Now()

	if _, err := f.ledger.Downgrade(ctx, alice, tier.Pro, tier.Monthly, proMonthly); !errors.Is(err, subledger.ErrSameTierDowngrade) {
		t.Errorf("same tier: got %v, want ErrSameTierDowngrade", err)
	}

	sub, err := f.ledger.Downgrade(ctx, alice, tier.Standard, tier.Monthly, standardMonthly)
	if err != nil {
		t.Fatalf("Downgrade: %v", err)
	}
	if sub.Tier != tier.Standard {
		t.Errorf("tier: got %v", sub.Tier)
	}
	if !sub.StartTime.Equal(downAt) {
		t.Errorf("start time: got %v, want %v", sub.StartTime, downAt)
	}
	if want := downAt.Add(30 * 24 * time.Hour); !sub.EndTime.Equal(want) {
		t.Errorf("end time: got %v, want %v", sub.EndTime, want)
	}
	if sub.PaidAmount != standardMonthly {
		t.Errorf("paid amount: got %v", sub.PaidAmount)
	}
	if sub.TotalSpent != proMonthly.Add(standardMonthly) {
		t.Errorf("total spent: got %v", sub.TotalSpent)
	}
}

func TestClaimReferralRewards(t *testing.T) {
	ctx := context.Background()

	setupReferral := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.initProject(t)
		f.subscribe(t, bob, "")
		f.subscribe(t, alice, bob)
		return f
	}

	t.Run("FirstClaimImmediate", func(t *testing.T) {
		f := setupReferral(t)

		amount, err := f.ledger.ClaimReferralRewards(ctx, bob)
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		if amount != types.Amount(1_000_000) {
			t.Errorf("claimed: got %v, want 1000000", amount)
		}
		if got := f.vault.AccountBalance(bob); got != types.Amount(1_000_000) {
			t.Errorf("payout: got %v, want 1000000", got)
		}

		acct, _ := f.ledger.ReferralAccount(ctx, bob)
		if acct.PendingRewards != 0 {
			t.Errorf("pending after claim: got %v", acct.PendingRewards)
		}
		if acct.TotalRewards != types.Amount(1_000_000) {
			t.Errorf("lifetime total: got %v", acct.TotalRewards)
		}
		stats, _ := f.ledger.Stats(ctx)
		if stats.TotalPendingReferralRewards != 0 {
			t.Errorf("stats pending: got %v", stats.TotalPendingReferralRewards)
		}
	})

	t.Run("CooldownGate", func(t *testing.T) {
		f := setupReferral(t)
		if _, err := f.ledger.ClaimReferralRewards(ctx, bob); err != nil {
			t.Fatalf("first claim: %v", err)
		}

		// Accrue more rewards through a second referred subscriber.
		f.clock.Advance(24 * time.Hour)
		f.subscribe(t, carol, bob)

		// Six days after the claim: still cooling down.
		f.clock.Advance(5 * 24 * time.Hour)
		if _, err := f.ledger.ClaimReferralRewards(ctx, bob); !errors.Is(err, subledger.ErrClaimCooldown) {
			t.Errorf("inside cooldown: got %v, want ErrClaimCooldown", err)
		}

		// Exactly seven days after the claim: eligible again.
		f.clock.Advance(24 * time.Hour)
		amount, err := f.ledger.ClaimReferralRewards(ctx, bob)
		if err != nil {
			t.Fatalf("after cooldown: %v", err)
		}
		if amount != types.Amount(1_000_000) {
			t.Errorf("second claim: got %v", amount)
		}
	})

	t.Run("NothingToClaim", func(t *testing.T) {
		f := setupReferral(t)
		if _, err := f.ledger.ClaimReferralRewards(ctx, bob); err != nil {
			t.Fatalf("first claim: %v", err)
		}
		if _, err := f.ledger.ClaimReferralRewards(ctx, bob); !errors.Is(err, subledger.ErrNoRewardsToClaim) {
			t.Errorf("empty pending: got %v, want ErrNoRewardsToClaim", err)
		}
	})

	t.Run("NoAccount", func(t *testing.T) {
		f := setupReferral(t)
		if _, err := f.ledger.ClaimReferralRewards(ctx, "stranger"); !errors.Is(err, subledger.ErrReferralAccountNotFound) {
			t.Errorf("got %v, want ErrReferralAccountNotFound", err)
		}
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("ReservesPendingRewards", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)
		f.subscribe(t, bob, "")
		f.subscribe(t, alice, bob)

		amount, err := f.ledger.Withdraw(ctx, owner, "payout")
		if err != nil {
			t.Fatalf("Withdraw: %v", err)
		}
		if amount != types.Amount(17_000_000) {
			t.Errorf("withdrawn: got %v, want 17000000", amount)
		}
		if got := f.vault.AccountBalance("payout"); got != amount {
			t.Errorf("payout balance: got %v", got)
		}

		// Exactly the pending rewards stay behind, and the referrer can
		// still claim them in full.
		held, _ := f.ledger.Balance(ctx)
		if held != types.Amount(1_000_000) {
			t.Errorf("held after withdraw: got %v", held)
		}
		claimed, err := f.ledger.ClaimReferralRewards(ctx, bob)
		if err != nil {
			t.Fatalf("claim after withdraw: %v", err)
		}
		if claimed != types.Amount(1_000_000) {
			t.Errorf("claimed: got %v", claimed)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		f := newFixture(t)
		f.initProject(t)

		if _, err := f.ledger.Withdraw(ctx, owner, ""); !errors.Is(err, subledger.ErrZeroAddress) {
			t.Errorf("empty destination: got %v, want ErrZeroAddress", err)
		}
		if _, err := f.ledger.Withdraw(ctx, alice, "payout"); !errors.Is(err, subledger.ErrUnauthorized) {
			t.Errorf("non-owner: got %v, want ErrUnauthorized", err)
		}
		if _, err := f.ledger.Withdraw(ctx, owner, "payout"); !errors.Is(err, subledger.ErrInsufficientBalance) {
			t.Errorf("empty custody: got %v, want ErrInsufficientBalance", err)
		}
	})
}

func TestTransferFailureAbortsSettlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.initProject(t)
	opsBefore, _ := f.ledger.OperationCount(ctx)

	f.vault.RejectTransfersTo(feeAccount)

	_, err := f.ledger.Subscribe(ctx, alice, tier.Standard, tier.Monthly, "", standardMonthly)
	if !errors.Is(err, subledger.ErrTransferFailed) {
		t.Fatalf("got %v, want ErrTransferFailed", err)
	}

	// Nothing persists and the deposit is refunded.
	if _, err := f.ledger.Subscription(ctx, alice); !errors.Is(err, subledger.ErrSubscriptionNotFound) {
		t.Errorf("subscription should not exist: %v", err)
	}
	held, _ := f.ledger.Balance(ctx)
	if held != 0 {
		t.Errorf("held after abort: got %v, want 0", held)
	}
	opsAfter, _ := f.ledger.OperationCount(ctx)
	if opsAfter != opsBefore {
		t.Errorf("operation count changed: %d -> %d", opsBefore, opsAfter)
	}
}

func TestOperationHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.initProject(t)

	f.subscribe(t, bob, "")
	f.subscribe(t, alice, bob)
	f.clock.Advance(31 * 24 * time.Hour)
	if _, err := f.ledger.Renew(ctx, alice, tier.Standard, tier.Monthly, standardMonthly); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if _, err := f.ledger.ClaimReferralRewards(ctx, bob); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := f.ledger.Withdraw(ctx, owner, "payout"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	ops, err := f.ledger.Operations(ctx, oplog.ListOpts{Limit: 100})
	if err != nil {
		t.Fatalf("Operations: %v", err)
	}
	wantKinds := []oplog.Kind{
		oplog.KindSetPlan, oplog.KindSetPlan,
		oplog.KindSubscribe, oplog.KindSubscribe,
		oplog.KindRenew, oplog.KindClaim, oplog.KindWithdraw,
	}
	if len(ops) != len(wantKinds) {
		t.Fatalf("ops: got %d, want %d", len(ops), len(wantKinds))
	}
	for i, op := range ops {
		if op.Kind != wantKinds[i] {
			t.Errorf("op %d: got %v, want %v", i, op.Kind, wantKinds[i])
		}
		if op.Seq != int64(i+1) {
			t.Errorf("op %d: seq %d", i, op.Seq)
		}
	}

	// Cursor pagination resumes mid-stream.
	page, err := f.ledger.Operations(ctx, oplog.ListOpts{AfterSeq: ops[3].Seq, Limit: 2})
	if err != nil {
		t.Fatalf("Operations page: %v", err)
	}
	if len(page) != 2 || page[0].Kind != oplog.KindRenew || page[1].Kind != oplog.KindClaim {
		t.Errorf("page: %+v", page)
	}

	aliceOps, err := f.ledger.AccountOperations(ctx, alice, oplog.ListOpts{Limit: 100})
	if err != nil {
		t.Fatalf("AccountOperations: %v", err)
	}
	if len(aliceOps) != 2 {
		t.Fatalf("alice ops: got %d, want 2", len(aliceOps))
	}
	if aliceOps[0].Kind != oplog.KindSubscribe || aliceOps[1].Kind != oplog.KindRenew {
		t.Errorf("alice kinds: %v, %v", aliceOps[0].Kind, aliceOps[1].Kind)
	}
}
