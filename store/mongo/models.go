package mongo

import (
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

	ID        string     `grove:"id,pk"      bson:"_id"`
	Name      string     `grove:"name"       bson:"name"`
	Symbol    string     `grove:"symbol"     bson:"symbol"`
	Owner     string     `grove:"owner"      bson:"owner"`
	Brand     brandModel `grove:"brand"      bson:"brand"`
	CreatedAt time.Time  `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at" bson:"updated_at"`
}

type brandModel struct {
	DisplayName string `bson:"display_name,omitempty"`
	LogoURI     string `bson:"logo_uri,omitempty"`
	Website     string `bson:"website,omitempty"`
	Description string `bson:"description,omitempty"`
}

func toProjectModel(info *project.Info) *projectModel {
	return &projectModel{
		ID:     info.ID.String(),
		Name:   info.Name,
		Symbol: info.Symbol,
		Owner:  info.Owner,
		Brand: brandModel{
			DisplayName: info.Brand.DisplayName,
			LogoURI:     info.Brand.LogoURI,
			Website:     info.Brand.Website,
			Description: info.Brand.Description,
		},
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
	}
}

func fromProjectModel(m *projectModel) (*project.Info, error) {
	projectID, err := id.ParseProjectID(m.ID)
	if err != nil {
		return nil, err
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
		Brand: project.Brand{
			DisplayName: m.Brand.DisplayName,
			LogoURI:     m.Brand.LogoURI,
			Website:     m.Brand.Website,
			Description: m.Brand.Description,
		},
	}, nil
}

// ==================== Plan models ====================

type planModel struct {
	grove.BaseModel `grove:"table:subledger_plans"`

	Tier      uint8     `grove:"tier,pk"    bson:"_id"`
	ID        string    `grove:"id"         bson:"id"`
	Enabled   bool      `grove:"enabled"    bson:"enabled"`
	Prices    []int64   `grove:"prices"     bson:"prices"`
	Features  []string  `grove:"features"   bson:"features,omitempty"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toPlanModel(p *tier.Plan) *planModel {
	prices := make([]int64, tier.PeriodCount)
	for i := range p.Prices {
		prices[i] = p.Prices[i].Int64()
	}

	return &planModel{
		Tier:      uint8(p.Tier),
		ID:        p.ID.String(),
		Enabled:   p.Enabled,
		Prices:    prices,
		Features:  p.Features,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*tier.Plan, error) {
	planID, err := id.ParsePlanID(m.ID)
	if err != nil {
		return nil, err
	}

	var prices [tier.PeriodCount]types.Amount
	for i := 0; i < len(m.Prices) && i < tier.PeriodCount; i++ {
		prices[i] = types.Amount(m.Prices[i])
	}

	return &tier.Plan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       planID,
		Tier:     tier.Tier(m.Tier),
		Enabled:  m.Enabled,
		Prices:   prices,
		Features: m.Features,
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:subledger_subscriptions"`

	Account            string    `grove:"account,pk"           bson:"_id"`
	Referrer           string    `grove:"referrer"             bson:"referrer,omitempty"`
	Tier               uint8     `grove:"tier"                 bson:"tier"`
	Period             uint8     `grove:"period"               bson:"period"`
	StartTime          time.Time `grove:"start_time"           bson:"start_time"`
	EndTime            time.Time `grove:"end_time"             bson:"end_time"`
	PaidAmount         int64     `grove:"paid_amount"          bson:"paid_amount"`
	TotalSpent         int64     `grove:"total_spent"          bson:"total_spent"`
	TotalRewardsEarned int64     `grove:"total_rewards_earned" bson:"total_rewards_earned"`
	CreatedAt          time.Time `grove:"created_at"           bson:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"           bson:"updated_at"`
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

	Account        string    `grove:"account,pk"      bson:"_id"`
	PendingRewards int64     `grove:"pending_rewards" bson:"pending_rewards"`
	TotalRewards   int64     `grove:"total_rewards"   bson:"total_rewards"`
	LastClaimTime  time.Time `grove:"last_claim_time" bson:"last_claim_time"`
	ReferralCount  int64     `grove:"referral_count"  bson:"referral_count"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
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

// statsModel is a single-document collection; RowID is always statsRowID.
type statsModel struct {
	grove.BaseModel `grove:"table:subledger_stats"`

	RowID                           int       `grove:"row_id,pk"                          bson:"_id"`
	TotalGrossRevenue               int64     `grove:"total_gross_revenue"                bson:"total_gross_revenue"`
	TotalNetRevenue                 int64     `grove:"total_net_revenue"                  bson:"total_net_revenue"`
	TotalPlatformFeesPaid           int64     `grove:"total_platform_fees_paid"           bson:"total_platform_fees_paid"`
	TotalCashbackPaid               int64     `grove:"total_cashback_paid"                bson:"total_cashback_paid"`
	TotalSubscribers                int64     `grove:"total_subscribers"                  bson:"total_subscribers"`
	TotalReferrers                  int64     `grove:"total_referrers"                    bson:"total_referrers"`
	TotalValidReferralRevenue       int64     `grove:"total_valid_referral_revenue"       bson:"total_valid_referral_revenue"`
	TotalReferralRewardsDistributed int64     `grove:"total_referral_rewards_distributed" bson:"total_referral_rewards_distributed"`
	TotalPendingReferralRewards     int64     `grove:"total_pending_referral_rewards"     bson:"total_pending_referral_rewards"`
	UpdatedAt                       time.Time `grove:"updated_at"                         bson:"updated_at"`
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

	Seq     int64     `grove:"seq,pk"  bson:"_id"`
	ID      string    `grove:"id"      bson:"id"`
	Account string    `grove:"account" bson:"account"`
	Kind    string    `grove:"kind"    bson:"kind"`
	Tier    uint8     `grove:"tier"    bson:"tier"`
	Period  uint8     `grove:"period"  bson:"period"`
	Amount  int64     `grove:"amount"  bson:"amount"`
	At      time.Time `grove:"at"      bson:"at"`
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
