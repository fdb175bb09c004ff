package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	subledger "github.com/xraph/subledger"
	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/referral"
	subledgerstore "github.com/xraph/subledger/store"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
)

// Collection name constants.
const (
	colProject       = "subledger_project"
	colPlans         = "subledger_plans"
	colSubscriptions = "subledger_subscriptions"
	colReferrers     = "subledger_referral_accounts"
	colStats         = "subledger_stats"
	colOperations    = "subledger_operations"
)

// compile-time interface check
var _ subledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all subledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("subledger/mongo: migrate %s indexes: %w", col, err)
		}
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

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        m.ID,
			"name":       m.Name,
			"symbol":     m.Symbol,
			"owner":      m.Owner,
			"brand":      m.Brand,
			"created_at": m.CreatedAt,
			"updated_at": m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("subledger/mongo: put project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context) (*project.Info, error) {
	var m projectModel
	err := s.mdb.NewFind(&m).Filter(bson.M{}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, subledger.ErrNotFound
		}
		return nil, fmt.Errorf("subledger/mongo: get project: %w", err)
	}
	return fromProjectModel(&m)
}

// ==================== Plans ====================

func (s *Store) UpsertPlan(ctx context.Context, p *tier.Plan) error {
	m := toPlanModel(p)
	m.UpdatedAt = now()

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Tier}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        m.Tier,
			"id":         m.ID,
			"enabled":    m.Enabled,
			"prices":     m.Prices,
			"features":   m.Features,
			"created_at": m.CreatedAt,
			"updated_at": m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("subledger/mongo: upsert plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, t tier.Tier) (*tier.Plan, error) {
	var m planModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": uint8(t)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, subledger.ErrPlanNotFound
		}
		return nil, fmt.Errorf("subledger/mongo: get plan: %w", err)
	}
	return fromPlanModel(&m)
}

func (s *Store) ListPlans(ctx context.Context) ([]*tier.Plan, error) {
	var models []planModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("subledger/mongo: list plans: %w", err)
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

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Account}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":                  m.Account,
			"referrer":             m.Referrer,
			"tier":                 m.Tier,
			"period":               m.Period,
			"start_time":           m.StartTime,
			"end_time":             m.EndTime,
			"paid_amount":          m.PaidAmount,
			"total_spent":          m.TotalSpent,
			"total_rewards_earned": m.TotalRewardsEarned,
			"created_at":           m.CreatedAt,
			"updated_at":           m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("subledger/mongo: upsert subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, account string) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": account}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, subledger.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("subledger/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m), nil
}

func (s *Store) ListSubscribers(ctx context.Context, opts subscription.ListOpts) ([]string, error) {
	var models []subscriptionModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("subledger/mongo: list subscribers: %w", err)
	}

	accounts := make([]string, len(models))
	for i := range models {
		accounts[i] = models[i].Account
	}
	return accounts, nil
}

func (s *Store) CountSubscribers(ctx context.Context) (int64, error) {
	count, err := s.mdb.Collection(colSubscriptions).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("subledger/mongo: count subscribers: %w", err)
	}
	return count, nil
}

// ==================== Referral accounts ====================

func (s *Store) UpsertReferralAccount(ctx context.Context, a *referral.Account) error {
	m := toReferralAccountModel(a)
	m.UpdatedAt = now()

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Account}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":             m.Account,
			"pending_rewards": m.PendingRewards,
			"total_rewards":   m.TotalRewards,
			"last_claim_time": m.LastClaimTime,
			"referral_count":  m.ReferralCount,
			"created_at":      m.CreatedAt,
			"updated_at":      m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("subledger/mongo: upsert referral account: %w", err)
	}
	return nil
}

func (s *Store) GetReferralAccount(ctx context.Context, account string) (*referral.Account, error) {
	var m referralAccountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": account}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, subledger.ErrReferralAccountNotFound
		}
		return nil, fmt.Errorf("subledger/mongo: get referral account: %w", err)
	}
	return fromReferralAccountModel(&m), nil
}

// ==================== Stats ====================

func (s *Store) GetStats(ctx context.Context) (*project.Stats, error) {
	var m statsModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": statsRowID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, subledger.ErrNotFound
		}
		return nil, fmt.Errorf("subledger/mongo: get stats: %w", err)
	}
	return fromStatsModel(&m), nil
}

func (s *Store) PutStats(ctx context.Context, st *project.Stats) error {
	m := toStatsModel(st)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": statsRowID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":                                statsRowID,
			"total_gross_revenue":                m.TotalGrossRevenue,
			"total_net_revenue":                  m.TotalNetRevenue,
			"total_platform_fees_paid":           m.TotalPlatformFeesPaid,
			"total_cashback_paid":                m.TotalCashbackPaid,
			"total_subscribers":                  m.TotalSubscribers,
			"total_referrers":                    m.TotalReferrers,
			"total_valid_referral_revenue":       m.TotalValidReferralRevenue,
			"total_referral_rewards_distributed": m.TotalReferralRewardsDistributed,
			"total_pending_referral_rewards":     m.TotalPendingReferralRewards,
			"updated_at":                         m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("subledger/mongo: put stats: %w", err)
	}
	return nil
}

// ==================== Operation log ====================

func (s *Store) AppendOperation(ctx context.Context, e *oplog.Entry) error {
	// The engine serializes writers, so reading the tail seq cannot race.
	var last operationModel
	err := s.mdb.NewFind(&last).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: -1}}).
		Scan(ctx)
	switch {
	case err == nil:
		e.Seq = last.Seq + 1
	case isNoDocuments(err):
		e.Seq = 1
	default:
		return fmt.Errorf("subledger/mongo: read last seq: %w", err)
	}

	m := toOperationModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("subledger/mongo: append operation: %w", err)
	}
	return nil
}

func (s *Store) ListOperations(ctx context.Context, opts oplog.ListOpts) ([]*oplog.Entry, error) {
	return s.listOps(ctx, bson.M{"_id": bson.M{"$gt": opts.AfterSeq}}, opts.Limit)
}

func (s *Store) ListAccountOperations(ctx context.Context, account string, opts oplog.ListOpts) ([]*oplog.Entry, error) {
	return s.listOps(ctx, bson.M{"account": account, "_id": bson.M{"$gt": opts.AfterSeq}}, opts.Limit)
}

func (s *Store) CountOperations(ctx context.Context) (int64, error) {
	count, err := s.mdb.Collection(colOperations).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("subledger/mongo: count operations: %w", err)
	}
	return count, nil
}

func (s *Store) listOps(ctx context.Context, filter bson.M, limit int) ([]*oplog.Entry, error) {
	var models []operationModel

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("subledger/mongo: list operations: %w", err)
	}

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

// ==================== Changeset ====================

// Apply commits one operation's full effect. The engine serializes
// operations, so sequential writes are not interleaved with other writers
// even without a multi-document transaction.
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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks for the driver's no-documents sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all subledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProject: {},
		colPlans:   {},
		colSubscriptions: {
			{Keys: bson.D{{Key: "referrer", Value: 1}}},
			{Keys: bson.D{{Key: "end_time", Value: 1}}},
		},
		colReferrers: {},
		colStats:     {},
		colOperations: {
			{Keys: bson.D{{Key: "account", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}}},
		},
	}
}
