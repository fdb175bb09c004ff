// Package subledger provides an embeddable subscription-billing ledger
// for multi-tenant Go platforms.
//
// Subledger is designed as a library, not a service. Each project on a
// platform gets its own Ledger instance that owns the project's tiered
// subscriptions, payment settlement, referral rewards, and fund
// partitioning. It provides:
//
//   - Tiered, time-boxed subscriptions with daily to yearly billing periods
//   - Exact integer pro-ration for in-period tier upgrades
//   - A two-sided referral program: referrer rewards plus subscriber cashback
//   - Per-payment settlement splitting between fee, reward, cashback, and net
//   - Fund partitioning that keeps pending referral rewards out of owner withdrawals
//   - Pluggable storage: in-memory, SQLite, PostgreSQL, and MongoDB backends
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/subledger"
//	    "github.com/xraph/subledger/registry"
//	    "github.com/xraph/subledger/store/memory"
//	    "github.com/xraph/subledger/treasury"
//	)
//
//	platform := registry.New("platform-fees")
//	l := subledger.New(memory.New(), treasury.NewVault(), platform)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	if _, err := l.Init(ctx, "my-app", "APP", ownerAccount); err != nil {
//	    log.Fatal(err)
//	}
//
// # Core Concepts
//
// Plans price each tier per billing period:
//
//	prices := [tier.PeriodCount]types.Amount{
//	    tier.Monthly: types.Native(10),
//	    tier.Yearly:  types.Native(100),
//	}
//	err := l.SetPlan(ctx, ownerAccount, tier.Pro, prices, []string{"api", "sso"})
//
// Subscriptions start with a payment, an optional referrer, and run for
// one billing period:
//
//	sub, err := l.Subscribe(ctx, payer, tier.Pro, tier.Monthly, referrer, payment)
//
// Every settled payment is split: the platform takes its fee, a valid
// referrer accrues a reward, the payer gets the same rate back as
// cashback, and the rest is project revenue. Referrers sweep their
// accrued rewards with ClaimReferralRewards; the project owner sweeps
// everything else with Withdraw.
package subledger
