package subledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("subledger: not found")
	ErrAlreadyExists = errors.New("subledger: already exists")
	ErrInvalidInput  = errors.New("subledger: invalid input")
	ErrUnauthorized  = errors.New("subledger: unauthorized")
	ErrZeroAddress   = errors.New("subledger: zero address")
	ErrZeroAmount    = errors.New("subledger: zero amount")

	// Lifecycle errors
	ErrNotInitialized     = errors.New("subledger: project not initialized")
	ErrAlreadyInitialized = errors.New("subledger: project already initialized")

	// Catalog errors
	ErrInvalidTier    = errors.New("subledger: invalid tier")
	ErrInvalidPeriod  = errors.New("subledger: invalid period")
	ErrInvalidPrice   = errors.New("subledger: invalid price")
	ErrTierDisabled   = errors.New("subledger: tier disabled")
	ErrPeriodDisabled = errors.New("subledger: period disabled")
	ErrPriceNotSet    = errors.New("subledger: price not set for tier and period")
	ErrPlanNotFound   = errors.New("subledger: plan not found")

	// Subscription state errors
	ErrAlreadySubscribed       = errors.New("subledger: already subscribed")
	ErrNoActiveSubscription    = errors.New("subledger: no active subscription")
	ErrSubscriptionStillActive = errors.New("subledger: subscription still active")
	ErrSubscriptionNotFound    = errors.New("subledger: subscription not found")
	ErrSameTierUpgrade         = errors.New("subledger: cannot upgrade to same tier")
	ErrSameTierDowngrade       = errors.New("subledger: cannot downgrade to same or higher tier")

	// Payment-amount errors
	ErrInsufficientPayment = errors.New("subledger: payment below required price")
	ErrExcessPayment       = errors.New("subledger: payment above tolerated excess")

	// Fund-safety errors
	ErrInsufficientBalance = errors.New("subledger: insufficient balance")
	ErrTransferFailed      = errors.New("subledger: transfer failed")
	ErrFeeOverdraw         = errors.New("subledger: fee configuration overdraws payment")
	ErrTransactionFailed   = errors.New("subledger: transaction failed")

	// Reward-claim errors
	ErrNoRewardsToClaim = errors.New("subledger: no rewards to claim")
	ErrClaimCooldown    = errors.New("subledger: claim cooldown not met")

	// Referral errors
	ErrReferralAccountNotFound = errors.New("subledger: referral account not found")

	// Store errors
	ErrStoreNotReady   = errors.New("subledger: store not ready")
	ErrStoreClosed     = errors.New("subledger: store is closed")
	ErrMigrationFailed = errors.New("subledger: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("subledger: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrReferralAccountNotFound)
}

// IsPaymentError returns true if the error concerns the attached payment
// amount; callers can retry with a corrected amount.
func IsPaymentError(err error) bool {
	return errors.Is(err, ErrInsufficientPayment) ||
		errors.Is(err, ErrExcessPayment)
}

// IsClaimError returns true for reward-claim eligibility failures; the
// caller may retry once the gate clears.
func IsClaimError(err error) bool {
	return errors.Is(err, ErrNoRewardsToClaim) ||
		errors.Is(err, ErrClaimCooldown)
}

// IsFundSafetyError returns true for errors about available funds or
// outbound transfers. These always abort the whole call.
func IsFundSafetyError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, ErrFeeOverdraw) ||
		errors.Is(err, ErrTransactionFailed)
}
