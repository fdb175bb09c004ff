package registry_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/treasury"
	"github.com/xraph/subledger/types"
)

func newPlatform(opts ...registry.Option) *registry.Platform {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return registry.New("platform", append([]registry.Option{registry.WithLogger(quiet)}, opts...)...)
}

func TestPlatformFee(t *testing.T) {
	tests := []struct {
		name   string
		opts   []registry.Option
		amount types.Amount
		want   types.Amount
	}{
		{"DefaultRate", nil, types.Milli(10), types.Amount(500_000)},
		{"CustomRate", []registry.Option{registry.WithFeeBasisPoints(250)}, types.Milli(10), types.Amount(250_000)},
		{"ZeroRate", []registry.Option{registry.WithFeeBasisPoints(0)}, types.Milli(10), 0},
		{"FullRateIgnored", []registry.Option{registry.WithFeeBasisPoints(10_000)}, types.Milli(10), types.Amount(500_000)},
		{"NegativeRateIgnored", []registry.Option{registry.WithFeeBasisPoints(-1)}, types.Milli(10), types.Amount(500_000)},
		{"SmallAmountFloors", nil, types.Amount(19), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPlatform(tt.opts...)
			if got := p.CalculatePlatformFee(tt.amount); got != tt.want {
				t.Errorf("fee: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeploy(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		p := newPlatform()

		l, err := p.Deploy(ctx, "acme", "ACME", "owner", 0, memory.New(), treasury.NewVault())
		if err != nil {
			t.Fatalf("Deploy: %v", err)
		}

		info, err := l.Project(ctx)
		if err != nil {
			t.Fatalf("Project: %v", err)
		}
		if info.Name != "acme" || info.Owner != "owner" {
			t.Errorf("identity: %+v", info)
		}

		got, err := p.Project("acme")
		if err != nil || got != l {
			t.Errorf("directory lookup: %v, %v", got, err)
		}
		if p.Count() != 1 {
			t.Errorf("count: got %d", p.Count())
		}
	})

	t.Run("DuplicateName", func(t *testing.T) {
		p := newPlatform()
		if _, err := p.Deploy(ctx, "acme", "ACME", "owner", 0, memory.New(), treasury.NewVault()); err != nil {
			t.Fatalf("first deploy: %v", err)
		}
		if _, err := p.Deploy(ctx, "acme", "ACM2", "other", 0, memory.New(), treasury.NewVault()); !errors.Is(err, registry.ErrProjectExists) {
			t.Errorf("got %v, want ErrProjectExists", err)
		}
	})

	t.Run("CreationFee", func(t *testing.T) {
		p := newPlatform(registry.WithCreationFee(types.Native(1)))

		if _, err := p.Deploy(ctx, "acme", "ACME", "owner", types.Milli(999), memory.New(), treasury.NewVault()); !errors.Is(err, registry.ErrCreationFeeUnpaid) {
			t.Errorf("underpaid: got %v, want ErrCreationFeeUnpaid", err)
		}
		if _, err := p.Deploy(ctx, "acme", "ACME", "owner", types.Native(1), memory.New(), treasury.NewVault()); err != nil {
			t.Errorf("exact fee: %v", err)
		}
	})

	t.Run("FailedInitReleasesName", func(t *testing.T) {
		p := newPlatform()

		// Empty owner makes Init fail after the name reservation.
		if _, err := p.Deploy(ctx, "acme", "ACME", "", 0, memory.New(), treasury.NewVault()); err == nil {
			t.Fatal("expected deploy to fail")
		}
		if _, err := p.Project("acme"); !errors.Is(err, registry.ErrProjectNotFound) {
			t.Errorf("name not released: %v", err)
		}
		if _, err := p.Deploy(ctx, "acme", "ACME", "owner", 0, memory.New(), treasury.NewVault()); err != nil {
			t.Errorf("redeploy after release: %v", err)
		}
	})
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	p := newPlatform()

	if _, err := p.Project("missing"); !errors.Is(err, registry.ErrProjectNotFound) {
		t.Errorf("got %v, want ErrProjectNotFound", err)
	}

	for _, name := range []string{"one", "two"} {
		if _, err := p.Deploy(ctx, name, "SYM", "owner", 0, memory.New(), treasury.NewVault()); err != nil {
			t.Fatalf("Deploy %s: %v", name, err)
		}
	}

	names := p.Projects()
	if len(names) != 2 {
		t.Errorf("projects: %v", names)
	}
	if p.Count() != 2 {
		t.Errorf("count: got %d", p.Count())
	}
}
