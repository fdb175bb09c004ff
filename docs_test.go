package subledger_test

import (
	"context"
	"testing"

	subledger "github.com/xraph/subledger"
	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/treasury"
	"github.com/xraph/subledger/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()
		ownerAccount := "owner"

		platform := registry.New("platform-fees")
		l := subledger.New(memory.New(), treasury.NewVault(), platform)
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		if _, err := l.Init(ctx, "my-app", "APP", ownerAccount); err != nil {
			t.Fatal(err)
		}

		prices := [tier.PeriodCount]types.Amount{
			tier.Monthly: types.Native(10),
			tier.Yearly:  types.Native(100),
		}
		if err := l.SetPlan(ctx, ownerAccount, tier.Pro, prices, []string{"api", "sso"}); err != nil {
			t.Fatal(err)
		}

		sub, err := l.Subscribe(ctx, "payer", tier.Pro, tier.Monthly, "", types.Native(10))
		if err != nil {
			t.Fatal(err)
		}
		if sub.Tier != tier.Pro {
			t.Errorf("tier: got %v, want %v", sub.Tier, tier.Pro)
		}
	})

	t.Run("ReexportedTypes", func(t *testing.T) {
		var a subledger.Amount = subledger.Native(1)
		if a != types.Native(1) {
			t.Errorf("re-exported Native: got %v", a)
		}
		if got := subledger.SumAmounts(subledger.Milli(1), subledger.Milli(2)); got != types.Milli(3) {
			t.Errorf("SumAmounts: got %v", got)
		}
	})
}
