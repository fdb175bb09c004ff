package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	subledger "github.com/xraph/subledger"
	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/referral"
	subledgerstore "github.com/xraph/subledger/store"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
)

// compile-time interface check
var _ subledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("subledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("subledger/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Project ====================

func (s *Store) PutProject(ctx context.Context, info *project.Info) error {
	m := toProjectModel(info)
	m.UpdatedAt = now()
	_, err := s.pg.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("brand = EXCLUDED.brand").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetProject(ctx context.Context) (*project.Info, error) {
	m := new(projectModel)
	err := s.pg.NewSelect(m).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, subledger.ErrNotFound
		}
		return nil, err
	}
	return fromProjectModel(m)
}

// ==================== Plans ====================

func (s *Store) UpsertPlan(ctx context.Context, p *tier.Plan) error {
	m := toPlanModel(p)
	m.UpdatedAt = now()
	_, err := s.pg.NewInsert(m).
		OnConflict("(tier) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("price_daily = EXCLUDED.price_daily").
		Set("price_weekly = EXCLUDED.price_weekly").
		Set("price_monthly = EXCLUDED.price_monthly").
		Set("price_yearly = EXCLUDED.price_yearly").
		Set("features = EXCLUDED.features").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetPlan(ctx context.Context, t tier.Tier) (*tier.Plan, error) {
	m := new(planModel)
	err := s.pg.NewSelect(m).
		Where("tier = $1", uint8(t)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, subledger.ErrPlanNotFound
		}
		return nil, err
	}
	return fromPlanModel(m)
}

func (s *Store) ListPlans(ctx context.Context) ([]*tier.Plan, error) {
	var models []planModel
	err := s.pg.NewSelect(&models).
		OrderExpr("tier ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*tier.Plan, len(models))
	for i := range models {
		p, err := fromPlanModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Subscriptions ====================

func (s *Store) UpsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()
	_, err := s.pg.NewInsert(m).
		OnConflict("(account) DO UPDATE").
		Set("referrer = EXCLUDED.referrer").
		Set("tier = EXCLUDED.tier").
		Set("period = EXCLUDED.period").
		Set("start_time = EXCLUDED.start_time").
		Set("end_time = EXCLUDED.end_time").
		Set("paid_amount = EXCLUDED.paid_amount").
		Set("total_spent = EXCLUDED.total_spent").
		Set("total_rewards_earned = EXCLUDED.total_rewards_earned").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, account string) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("account = $1", account).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, subledger.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m), nil
}

func (s *Store) ListSubscribers(ctx context.Context, opts subscription.ListOpts) ([]string, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models).OrderExpr("account ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	accounts := make([]string, len(models))
	for i := range models {
		accounts[i] = models[i].Account
	}
	return accounts, nil
}

func (s *Store) CountSubscribers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM subledger_subscriptions`).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ==================== Referral accounts ====================

func (s *Store) UpsertReferralAccount(ctx context.Context, a *referral.Account) error {
	m := toReferralAccountModel(a)
	m.UpdatedAt = now()
	_, err := s.pg.NewInsert(m).
		OnConflict("(account) DO UPDATE").
		Set("pending_rewards = EXCLUDED.pending_rewards").
		Set("total_rewards = EXCLUDED.total_rewards").
		Set("last_claim_time = EXCLUDED.last_claim_time").
		Set("referral_count = EXCLUDED.referral_count").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetReferralAccount(ctx context.Context, account string) (*referral.Account, error) {
	m := new(referralAccountModel)
	err := s.pg.NewSelect(m).
		Where("account = $1", account).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, subledger.ErrReferralAccountNotFound
		}
		return nil, err
	}
	return fromReferralAccountModel(m), nil
}

// ==================== Stats ====================

func (s *Store) GetStats(ctx context.Context) (*project.Stats, error) {
	m := new(statsModel)
	err := s.pg.NewSelect(m).
		Where("row_id = $1", statsRowID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, subledger.ErrNotFound
		}
		return nil, err
	}
	return fromStatsModel(m), nil
}

func (s *Store) PutStats(ctx context.Context, st *project.Stats) error {
	m := toStatsModel(st)
	_, err := s.pg.NewInsert(m).
		OnConflict("(row_id) DO UPDATE").
		Set("total_gross_revenue = EXCLUDED.total_gross_revenue").
		Set("total_net_revenue = EXCLUDED.total_net_revenue").
		Set("total_platform_fees_paid = EXCLUDED.total_platform_fees_paid").
		Set("total_cashback_paid = EXCLUDED.total_cashback_paid").
		Set("total_subscribers = EXCLUDED.total_subscribers").
		Set("total_referrers = EXCLUDED.total_referrers").
		Set("total_valid_referral_revenue = EXCLUDED.total_valid_referral_revenue").
		Set("total_referral_rewards_distributed = EXCLUDED.total_referral_rewards_distributed").
		Set("total_pending_referral_rewards = EXCLUDED.total_pending_referral_rewards").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// ==================== Operation log ====================

func (s *Store) AppendOperation(ctx context.Context, e *oplog.Entry) error {
	// The engine serializes writers, so MAX(seq)+1 cannot race.
	var last int64
	err := s.pg.NewRaw(`SELECT COALESCE(MAX(seq), 0) FROM subledger_operations`).Scan(ctx, &last)
	if err != nil {
		return err
	}
	e.Seq = last + 1

	m := toOperationModel(e)
	_, err = s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListOperations(ctx context.Context, opts oplog.ListOpts) ([]*oplog.Entry, error) {
	var models []operationModel
	q := s.pg.NewSelect(&models).
		Where("seq > $1", opts.AfterSeq).
		OrderExpr("seq ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromOperationModels(models)
}

func (s *Store) ListAccountOperations(ctx context.Context, account string, opts oplog.ListOpts) ([]*oplog.Entry, error) {
	var models []operationModel
	q := s.pg.NewSelect(&models).
		Where("account = $1", account).
		Where("seq > $2", opts.AfterSeq).
		OrderExpr("seq ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromOperationModels(models)
}

func (s *Store) CountOperations(ctx context.Context) (int64, error) {
	var count int64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM subledger_operations`).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ==================== Changeset ====================

// Apply commits one operation's full effect. The engine serializes
// operations, so sequential statements are not interleaved with other
// writers even without an explicit transaction.
func (s *Store) Apply(ctx context.Context, cs *subledgerstore.Changeset) error {
	if cs.Project != nil {
		if err := s.PutProject(ctx, cs.Project); err != nil {
			return err
		}
	}
	if cs.Plan != nil {
		if err := s.UpsertPlan(ctx, cs.Plan); err != nil {
			return err
		}
	}
	if cs.Subscription != nil {
		if err := s.UpsertSubscription(ctx, cs.Subscription); err != nil {
			return err
		}
	}
	if cs.Referrer != nil {
		if err := s.UpsertReferralAccount(ctx, cs.Referrer); err != nil {
			return err
		}
	}
	if cs.Stats != nil {
		if err := s.PutStats(ctx, cs.Stats); err != nil {
			return err
		}
	}
	if cs.Op != nil {
		if err := s.AppendOperation(ctx, cs.Op); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Helpers ====================

func fromOperationModels(models []operationModel) ([]*oplog.Entry, error) {
	result := make([]*oplog.Entry, len(models))
	for i := range models {
		e, err := fromOperationModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
