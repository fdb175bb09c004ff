// Package store defines the unified storage interface for all Subledger
// entities and the changeset type used to commit one ledger operation's
// full effect in a single call.
package store

import (
	"context"

	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/referral"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
)

// Store is the unified storage interface for all Subledger entities.
// Instead of embedding sub-interfaces, all methods are declared explicitly
// to avoid naming conflicts.
type Store interface {
	// Project identity
	PutProject(ctx context.Context, info *project.Info) error
	GetProject(ctx context.Context) (*project.Info, error)

	// Tier plans
	UpsertPlan(ctx context.Context, p *tier.Plan) error
	GetPlan(ctx context.Context, t tier.Tier) (*tier.Plan, error)
	ListPlans(ctx context.Context) ([]*tier.Plan, error)

	// Subscriptions
	UpsertSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, account string) (*subscription.Subscription, error)
	ListSubscribers(ctx context.Context, opts subscription.ListOpts) ([]string, error)
	CountSubscribers(ctx context.Context) (int64, error)

	// Referral accounts
	UpsertReferralAccount(ctx context.Context, a *referral.Account) error
	GetReferralAccount(ctx context.Context, account string) (*referral.Account, error)

	// Aggregate statistics
	GetStats(ctx context.Context) (*project.Stats, error)
	PutStats(ctx context.Context, s *project.Stats) error

	// Operation log
	AppendOperation(ctx context.Context, e *oplog.Entry) error
	ListOperations(ctx context.Context, opts oplog.ListOpts) ([]*oplog.Entry, error)
	ListAccountOperations(ctx context.Context, account string, opts oplog.ListOpts) ([]*oplog.Entry, error)
	CountOperations(ctx context.Context) (int64, error)

	// Batched commit of one ledger operation
	Apply(ctx context.Context, cs *Changeset) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Changeset is the full persistent effect of one committed ledger
// operation. Nil fields are untouched. Backends apply the fields as one
// unit where the substrate allows it; the engine serializes operations, so
// no other writer interleaves either way.
type Changeset struct {
	Project      *project.Info
	Plan         *tier.Plan
	Subscription *subscription.Subscription
	Referrer     *referral.Account
	Stats        *project.Stats
	Op           *oplog.Entry
}
