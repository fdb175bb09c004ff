// Package memory provides an in-memory Store for tests and embedded
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/referral"
	"github.com/xraph/subledger/store"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Singleton records
	info  *project.Info
	stats *project.Stats

	// Plan storage, keyed by tier
	plans map[tier.Tier]*tier.Plan

	// Subscription storage, keyed by payer account
	subscriptions map[string]*subscription.Subscription

	// Referral account storage, keyed by referrer account
	referrers map[string]*referral.Account

	// Append-only operation history
	ops     []*oplog.Entry
	nextSeq int64
}

func New() *Store {
	return &Store{
		plans:         make(map[tier.Tier]*tier.Plan),
		subscriptions: make(map[string]*subscription.Subscription),
		referrers:     make(map[string]*referral.Account),
		nextSeq:       1,
	}
}

// Project singleton

func (s *Store) PutProject(_ context.Context, info *project.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info = cloneInfo(info)
	return nil
}

func (s *Store) GetProject(_ context.Context) (*project.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.info == nil {
		return nil, subledger.ErrNotFound
	}
	return cloneInfo(s.info), nil
}

// Plan storage

func (s *Store) UpsertPlan(_ context.Context, p *tier.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plans[p.Tier] = clonePlan(p)
	return nil
}

func (s *Store) GetPlan(_ context.Context, t tier.Tier) (*tier.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.plans[t]; ok {
		return clonePlan(p), nil
	}
	return nil, subledger.ErrNotFound
}

func (s *Store) ListPlans(_ context.Context) ([]*tier.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*tier.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		result = append(result, clonePlan(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Tier < result[j].Tier })
	return result, nil
}

// Subscription storage

func (s *Store) UpsertSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[sub.Account] = cloneSubscription(sub)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, account string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[account]; ok {
		return cloneSubscription(sub), nil
	}
	return nil, subledger.ErrNotFound
}

func (s *Store) ListSubscribers(_ context.Context, opts subscription.ListOpts) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]string, 0, len(s.subscriptions))
	for account := range s.subscriptions {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	start := opts.Offset
	if start > len(accounts) {
		start = len(accounts)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(accounts) {
		end = len(accounts)
	}
	return accounts[start:end], nil
}

func (s *Store) CountSubscribers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.subscriptions)), nil
}

// Referral account storage

func (s *Store) UpsertReferralAccount(_ context.Context, a *referral.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.referrers[a.Account] = cloneReferral(a)
	return nil
}

func (s *Store) GetReferralAccount(_ context.Context, account string) (*referral.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.referrers[account]; ok {
		return cloneReferral(a), nil
	}
	return nil, subledger.ErrNotFound
}

// Stats singleton

func (s *Store) GetStats(_ context.Context) (*project.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stats == nil {
		return nil, subledger.ErrNotFound
	}
	return s.stats.Clone(), nil
}

func (s *Store) PutStats(_ context.Context, st *project.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats = st.Clone()
	return nil
}

// Operation history

func (s *Store) AppendOperation(_ context.Context, e *oplog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLocked(e)
	return nil
}

func (s *Store) ListOperations(_ context.Context, opts oplog.ListOpts) ([]*oplog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*oplog.Entry, 0)
	for _, e := range s.ops {
		if e.Seq <= opts.AfterSeq {
			continue
		}
		c := *e
		result = append(result, &c)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ListAccountOperations(_ context.Context, account string, opts oplog.ListOpts) ([]*oplog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*oplog.Entry, 0)
	for _, e := range s.ops {
		if e.Account != account || e.Seq <= opts.AfterSeq {
			continue
		}
		c := *e
		result = append(result, &c)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CountOperations(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.ops)), nil
}

// Apply commits a whole changeset under one lock acquisition, so readers
// never observe a partially applied operation.
func (s *Store) Apply(_ context.Context, cs *store.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs.Project != nil {
		s.info = cloneInfo(cs.Project)
	}
	if cs.Plan != nil {
		s.plans[cs.Plan.Tier] = clonePlan(cs.Plan)
	}
	if cs.Subscription != nil {
		s.subscriptions[cs.Subscription.Account] = cloneSubscription(cs.Subscription)
	}
	if cs.Referrer != nil {
		s.referrers[cs.Referrer.Account] = cloneReferral(cs.Referrer)
	}
	if cs.Stats != nil {
		s.stats = cs.Stats.Clone()
	}
	if cs.Op != nil {
		s.appendLocked(cs.Op)
	}
	return nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// appendLocked assigns the sequence and stores a copy. Callers hold s.mu.
func (s *Store) appendLocked(e *oplog.Entry) {
	e.Seq = s.nextSeq
	s.nextSeq++
	c := *e
	s.ops = append(s.ops, &c)
}

// The engine mutates loaded records before committing, so the store hands
// out copies in both directions to keep uncommitted mutations invisible.

func cloneInfo(info *project.Info) *project.Info {
	c := *info
	return &c
}

func clonePlan(p *tier.Plan) *tier.Plan {
	c := *p
	c.Features = append([]string(nil), p.Features...)
	return &c
}

func cloneSubscription(sub *subscription.Subscription) *subscription.Subscription {
	c := *sub
	return &c
}

func cloneReferral(a *referral.Account) *referral.Account {
	c := *a
	return &c
}
