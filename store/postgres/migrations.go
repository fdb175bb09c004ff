package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Subledger store.
var Migrations = migrate.NewGroup("subledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_subledger_project",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_project (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    symbol     TEXT NOT NULL DEFAULT '',
    owner      TEXT NOT NULL DEFAULT '',
    brand      JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_project`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_subledger_plans",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_plans (
    tier          SMALLINT PRIMARY KEY,
    id            TEXT NOT NULL DEFAULT '',
    enabled       BOOLEAN NOT NULL DEFAULT TRUE,
    price_daily   BIGINT NOT NULL DEFAULT 0,
    price_weekly  BIGINT NOT NULL DEFAULT 0,
    price_monthly BIGINT NOT NULL DEFAULT 0,
    price_yearly  BIGINT NOT NULL DEFAULT 0,
    features      JSONB NOT NULL DEFAULT '[]',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_plans`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_subledger_subscriptions",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_subscriptions (
    account              TEXT PRIMARY KEY,
    referrer             TEXT NOT NULL DEFAULT '',
    tier                 SMALLINT NOT NULL DEFAULT 0,
    period               SMALLINT NOT NULL DEFAULT 0,
    start_time           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    end_time             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    paid_amount          BIGINT NOT NULL DEFAULT 0,
    total_spent          BIGINT NOT NULL DEFAULT 0,
    total_rewards_earned BIGINT NOT NULL DEFAULT 0,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_subledger_subs_referrer ON subledger_subscriptions (referrer) WHERE referrer != '';
CREATE INDEX IF NOT EXISTS idx_subledger_subs_end_time ON subledger_subscriptions (end_time);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_subledger_referral_accounts",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_referral_accounts (
    account         TEXT PRIMARY KEY,
    pending_rewards BIGINT NOT NULL DEFAULT 0,
    total_rewards   BIGINT NOT NULL DEFAULT 0,
    last_claim_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    referral_count  BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_referral_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_subledger_stats",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_stats (
    row_id                             INT PRIMARY KEY,
    total_gross_revenue                BIGINT NOT NULL DEFAULT 0,
    total_net_revenue                  BIGINT NOT NULL DEFAULT 0,
    total_platform_fees_paid           BIGINT NOT NULL DEFAULT 0,
    total_cashback_paid                BIGINT NOT NULL DEFAULT 0,
    total_subscribers                  BIGINT NOT NULL DEFAULT 0,
    total_referrers                    BIGINT NOT NULL DEFAULT 0,
    total_valid_referral_revenue       BIGINT NOT NULL DEFAULT 0,
    total_referral_rewards_distributed BIGINT NOT NULL DEFAULT 0,
    total_pending_referral_rewards     BIGINT NOT NULL DEFAULT 0,
    updated_at                         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_stats`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_subledger_operations",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_operations (
    seq     BIGINT PRIMARY KEY,
    id      TEXT NOT NULL DEFAULT '',
    account TEXT NOT NULL DEFAULT '',
    kind    TEXT NOT NULL DEFAULT '',
    tier    SMALLINT NOT NULL DEFAULT 0,
    period  SMALLINT NOT NULL DEFAULT 0,
    amount  BIGINT NOT NULL DEFAULT 0,
    at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_subledger_ops_account ON subledger_operations (account, seq);
CREATE INDEX IF NOT EXISTS idx_subledger_ops_kind ON subledger_operations (kind);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_operations`)
				return err
			},
		},
	)
}
