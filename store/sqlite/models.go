package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/oplog"
	"github.com/xraph/subledger/project"
	"github.com/xraph/subledger/referral"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// ==================== Project models ====================

type projectModel struct {
	grove.BaseModel `grove:"table:subledger_project"`

	ID        string          `grove:"id,pk"`
	Name      string          `grove:"name"`
	Symbol    string          `grove:"symbol"`
	Owner     string          `grove:"owner"`
	Brand     json.RawMessage `grove:"brand,type:json"`
	CreatedAt time.Time       `grove:"created_at"`
	UpdatedAt time.Time       `grove:"updated_at"`
}

func toProjectModel(info *project.Info) *projectModel {
	brand, _ := json.Marshal(info.Brand) //nolint:errcheck // best-effort

	return &projectModel{
		ID:        info.ID.String(),
		Name:      info.Name,
		Symbol:    info.Symbol,
		Owner:     info.Owner,
		Brand:     brand,
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
	}
}

func fromProjectModel(m *projectModel) (*project.Info, error) {
	projectID, err := id.ParseProjectID(m.ID)
	if err != nil {
		return nil, err
	}

	var brand project.Brand
	if len(m.Brand) > 0 {
		_ = json.Unmarshal(m.Brand, &brand) //nolint:errcheck // best-effort
	}

	return &project.Info{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:     projectID,
		Name:   m.Name,
		Symbol: m.Symbol,
		Owner:  m.Owner,
		Brand:  brand,
	}, nil
}

// ==================== Plan models ====================

type planModel struct {
	grove.BaseModel `grove:"table:subledger_plans"`

	Tier         uint8           `grove:"tier,pk"`
	ID           string          `grove:"id"`
	Enabled      bool            `grove:"enabled"`
	PriceDaily   int64           `grove:"price_daily"`
	PriceWeekly  int64           `grove:"price_weekly"`
	PriceMonthly int64           `grove:"price_monthly"`
	PriceYearly  int64           `grove:"price_yearly"`
	Features     json.RawMessage `grove:"features,type:json"`
	CreatedAt    time.Time       `grove:"created_at"`
	UpdatedAt    time.Time       `grove:"updated_at"`
}

func toPlanModel(p *tier.Plan) *planModel {
	features, _ := json.Marshal(p.Features) //nolint:errcheck // best-effort

	return &planModel{
		Tier:         uint8(p.Tier),
		ID:           p.ID.String(),
		Enabled:      p.Enabled,
		PriceDaily:   p.Prices[tier.Daily].Int64(),
		PriceWeekly:  p.Prices[tier.Weekly].Int64(),
		PriceMonthly: p.Prices[tier.Monthly].Int64(),
		PriceYearly:  p.Prices[tier.Yearly].Int64(),
		Features:     features,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*tier.Plan, error) {
	planID, err := id.ParsePlanID(m.ID)
	if err != nil {
		return nil, err
	}

	var features []string
	if len(m.Features) > 0 {
		_ = json.Unmarshal(m.Features, &features) //nolint:errcheck // best-effort
	}

	return &tier.Plan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:      planID,
		Tier:    tier.Tier(m.Tier),
		Enabled: m.Enabled,
		Prices: [tier.PeriodCount]types.Amount{
			tier.Daily:   types.Amount(m.PriceDaily),
			tier.Weekly:  types.Amount(m.PriceWeekly),
			tier.Monthly: types.Amount(m.PriceMonthly),
			tier.Yearly:  types.Amount(m.PriceYearly),
		},
		Features: features,
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:subledger_subscriptions"`

	Account            string    `grove:"account,pk"`
	Referrer           string    `grove:"referrer"`
	Tier               uint8     `grove:"tier"`
	Period             uint8     `grove:"period"`
	StartTime          time.Time `grove:"start_time"`
	EndTime            time.Time `grove:"end_time"`
	PaidAmount         int64     `grove:"paid_amount"`
	TotalSpent         int64     `grove:"total_spent"`
	TotalRewardsEarned int64     `grove:"total_rewards_earned"`
	CreatedAt          time.Time `grove:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		Account:            s.Account,
		Referrer:           s.Referrer,
		Tier:               uint8(s.Tier),
		Period:             uint8(s.Period),
		StartTime:          s.StartTime,
		EndTime:            s.EndTime,
		PaidAmount:         s.PaidAmount.Int64(),
		TotalSpent:         s.TotalSpent.Int64(),
		TotalRewardsEarned: s.TotalRewardsEarned.Int64(),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) *subscription.Subscription {
	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Account:            m.Account,
		Referrer:           m.Referrer,
		Tier:               tier.Tier(m.Tier),
		Period:             tier.Period(m.Period),
		StartTime:          m.StartTime,
		EndTime:            m.EndTime,
		PaidAmount:         types.Amount(m.PaidAmount),
		TotalSpent:         types.Amount(m.TotalSpent),
		TotalRewardsEarned: types.Amount(m.TotalRewardsEarned),
	}
}

// ==================== Referral models ====================

type referralAccountModel struct {
	grove.BaseModel `grove:"table:subledger_referral_accounts"`

	Account        string    `grove:"account,pk"`
	PendingRewards int64     `grove:"pending_rewards"`
	TotalRewards   int64     `grove:"total_rewards"`
	LastClaimTime  time.Time `grove:"last_claim_time"`
	ReferralCount  int64     `grove:"referral_count"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toReferralAccountModel(a *referral.Account) *referralAccountModel {
	return &referralAccountModel{
		Account:        a.Account,
		PendingRewards: a.PendingRewards.Int64(),
		TotalRewards:   a.TotalRewards.Int64(),
		LastClaimTime:  a.LastClaimTime,
		ReferralCount:  a.ReferralCount,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func fromReferralAccountModel(m *referralAccountModel) *referral.Account {
	return &referral.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Account:        m.Account,
		PendingRewards: types.Amount(m.PendingRewards),
		TotalRewards:   types.Amount(m.TotalRewards),
		LastClaimTime:  m.LastClaimTime,
		ReferralCount:  m.ReferralCount,
	}
}

// ==================== Stats models ====================

// statsModel is a single-row table; RowID is always statsRowID.
type statsModel struct {
	grove.BaseModel `grove:"table:subledger_stats"`

	RowID                           int       `grove:"row_id,pk"`
	TotalGrossRevenue               int64     `grove:"total_gross_revenue"`
	TotalNetRevenue                 int64     `grove:"total_net_revenue"`
	TotalPlatformFeesPaid           int64     `grove:"total_platform_fees_paid"`
	TotalCashbackPaid               int64     `grove:"total_cashback_paid"`
	TotalSubscribers                int64     `grove:"total_subscribers"`
	TotalReferrers                  int64     `grove:"total_referrers"`
	TotalValidReferralRevenue       int64     `grove:"total_valid_referral_revenue"`
	TotalReferralRewardsDistributed int64     `grove:"total_referral_rewards_distributed"`
	TotalPendingReferralRewards     int64     `grove:"total_pending_referral_rewards"`
	UpdatedAt                       time.Time `grove:"updated_at"`
}

const statsRowID = 1

func toStatsModel(s *project.Stats) *statsModel {
	return &statsModel{
		RowID:                           statsRowID,
		TotalGrossRevenue:               s.TotalGrossRevenue.Int64(),
		TotalNetRevenue:                 s.TotalNetRevenue.Int64(),
		TotalPlatformFeesPaid:           s.TotalPlatformFeesPaid.Int64(),
		TotalCashbackPaid:               s.TotalCashbackPaid.Int64(),
		TotalSubscribers:                s.TotalSubscribers,
		TotalReferrers:                  s.TotalReferrers,
		TotalValidReferralRevenue:       s.TotalValidReferralRevenue.Int64(),
		TotalReferralRewardsDistributed: s.TotalReferralRewardsDistributed.Int64(),
		TotalPendingReferralRewards:     s.TotalPendingReferralRewards.Int64(),
		UpdatedAt:                       s.UpdatedAt,
	}
}

func fromStatsModel(m *statsModel) *project.Stats {
	return &project.Stats{
		TotalGrossRevenue:               types.Amount(m.TotalGrossRevenue),
		TotalNetRevenue:                 types.Amount(m.TotalNetRevenue),
		TotalPlatformFeesPaid:           types.Amount(m.TotalPlatformFeesPaid),
		TotalCashbackPaid:               types.Amount(m.TotalCashbackPaid),
		TotalSubscribers:                m.TotalSubscribers,
		TotalReferrers:                  m.TotalReferrers,
		TotalValidReferralRevenue:       types.Amount(m.TotalValidReferralRevenue),
		TotalReferralRewardsDistributed: types.Amount(m.TotalReferralRewardsDistributed),
		TotalPendingReferralRewards:     types.Amount(m.TotalPendingReferralRewards),
		UpdatedAt:                       m.UpdatedAt,
	}
}

// ==================== Operation models ====================

type operationModel struct {
	grove.BaseModel `grove:"table:subledger_operations"`

	Seq     int64     `grove:"seq,pk"`
	ID      string    `grove:"id"`
	Account string    `grove:"account"`
	Kind    string    `grove:"kind"`
	Tier    uint8     `grove:"tier"`
	Period  uint8     `grove:"period"`
	Amount  int64     `grove:"amount"`
	At      time.Time `grove:"at"`
}

func toOperationModel(e *oplog.Entry) *operationModel {
	return &operationModel{
		Seq:     e.Seq,
		ID:      e.ID.String(),
		Account: e.Account,
		Kind:    string(e.Kind),
		Tier:    uint8(e.Tier),
		Period:  uint8(e.Period),
		Amount:  e.Amount.Int64(),
		At:      e.At,
	}
}

func fromOperationModel(m *operationModel) (*oplog.Entry, error) {
	opID, err := id.ParseOperationID(m.ID)
	if err != nil {
		return nil, err
	}

	return &oplog.Entry{
		ID:      opID,
		Seq:     m.Seq,
		Account: m.Account,
		Kind:    oplog.Kind(m.Kind),
		Tier:    tier.Tier(m.Tier),
		Period:  tier.Period(m.Period),
		Amount:  types.Amount(m.Amount),
		At:      m.At,
	}, nil
}
