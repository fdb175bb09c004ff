package audithook

// Action constants for audit events.
const (
	// Plan actions
	ActionPlanConfigured = "plan.configured"

	// Subscription actions
	ActionSubscriptionCreated    = "subscription.created"
	ActionSubscriptionRenewed    = "subscription.renewed"
	ActionSubscriptionUpgraded   = "subscription.upgraded"
	ActionSubscriptionDowngraded = "subscription.downgraded"

	// Settlement actions
	ActionPaymentSettled = "payment.settled"

	// Referral actions
	ActionRewardAccrued  = "reward.accrued"
	ActionRewardsClaimed = "reward.claimed"

	// Fund actions
	ActionFundsWithdrawn = "funds.withdrawn"
)

// Resource constants for audit events.
const (
	ResourcePlan         = "plan"
	ResourceSubscription = "subscription"
	ResourcePayment      = "payment"
	ResourceReward       = "reward"
	ResourceFunds        = "funds"
)

// Category constants for audit events.
const (
	CategoryBilling      = "billing"
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
	CategoryReferral     = "referral"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
