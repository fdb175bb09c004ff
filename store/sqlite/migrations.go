package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Subledger store (SQLite).
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
    brand      TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
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
    tier          INTEGER PRIMARY KEY,
    id            TEXT NOT NULL DEFAULT '',
    enabled       INTEGER NOT NULL DEFAULT 1,
    price_daily   INTEGER NOT NULL DEFAULT 0,
    price_weekly  INTEGER NOT NULL DEFAULT 0,
    price_monthly INTEGER NOT NULL DEFAULT 0,
    price_yearly  INTEGER NOT NULL DEFAULT 0,
    features      TEXT NOT NULL DEFAULT '[]',
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
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
    tier                 INTEGER NOT NULL DEFAULT 0,
    period               INTEGER NOT NULL DEFAULT 0,
    start_time           TEXT NOT NULL DEFAULT (datetime('now')),
    end_time             TEXT NOT NULL DEFAULT (datetime('now')),
    paid_amount          INTEGER NOT NULL DEFAULT 0,
    total_spent          INTEGER NOT NULL DEFAULT 0,
    total_rewards_earned INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_subledger_subs_referrer ON subledger_subscriptions (referrer);
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
    pending_rewards INTEGER NOT NULL DEFAULT 0,
    total_rewards   INTEGER NOT NULL DEFAULT 0,
    last_claim_time TEXT NOT NULL DEFAULT (datetime('now')),
    referral_count  INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
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
    row_id                             INTEGER PRIMARY KEY,
    total_gross_revenue                INTEGER NOT NULL DEFAULT 0,
    total_net_revenue                  INTEGER NOT NULL DEFAULT 0,
    total_platform_fees_paid           INTEGER NOT NULL DEFAULT 0,
    total_cashback_paid                INTEGER NOT NULL DEFAULT 0,
    total_subscribers                  INTEGER NOT NULL DEFAULT 0,
    total_referrers                    INTEGER NOT NULL DEFAULT 0,
    total_valid_referral_revenue       INTEGER NOT NULL DEFAULT 0,
    total_referral_rewards_distributed INTEGER NOT NULL DEFAULT 0,
    total_pending_referral_rewards     INTEGER NOT NULL DEFAULT 0,
    updated_at                         TEXT NOT NULL DEFAULT (datetime('now'))
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
    seq     INTEGER PRIMARY KEY,
    id      TEXT NOT NULL DEFAULT '',
    account TEXT NOT NULL DEFAULT '',
    kind    TEXT NOT NULL DEFAULT '',
    tier    INTEGER NOT NULL DEFAULT 0,
    period  INTEGER NOT NULL DEFAULT 0,
    amount  INTEGER NOT NULL DEFAULT 0,
    at      TEXT NOT NULL DEFAULT (datetime('now'))
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
