// Package settlement computes the partitioning of an incoming subscription
// payment between platform fee, referrer reward, subscriber cashback, and
// net project revenue. The computation is pure; moving the funds is the
// engine's job.
package settlement

import (
	"github.com/xraph/subledger/types"
)

// RewardBasisPoints is the referrer reward rate: 10% of the payment.
// The subscriber cashback uses the same independent rate, so a referred
// payment sheds 20% on top of the platform fee.
const RewardBasisPoints int64 = 1000

// Split is the partitioning of one settled payment.
type Split struct {
	// Gross is the full payment amount taken into custody.
	Gross types.Amount `json:"gross"`

	// PlatformFee goes to the registry's fee account.
	PlatformFee types.Amount `json:"platform_fee"`

	// Reward accrues to the referrer's pending balance. Zero when the
	// payment has no valid referrer.
	Reward types.Amount `json:"reward"`

	// Cashback transfers immediately to the payer. Zero when the
	// payment has no valid referrer.
	Cashback types.Amount `json:"cashback"`

	// Net is the revenue retained by the project after the fee, the
	// cashback, and the reward reservation.
	Net types.Amount `json:"net"`

	// Referred records whether a valid referrer participated.
	Referred bool `json:"referred"`
}

// Compute splits a payment. platformFee comes from the registry and is
// trusted as-is. referred is the per-payment referrer validity, re-checked
// by the caller at settlement time, not at subscribe time.
//
// The fund-safety guard rejects configurations where the fee plus the
// immediate cashback would overdraw the payment; under sane fee rates it
// can never trip.
func Compute(amount, platformFee types.Amount, referred bool) (Split, error) {
	if amount.IsZero() || amount.IsNegative() {
		return Split{}, ErrNonPositiveAmount
	}
	if platformFee.IsNegative() {
		return Split{}, ErrNegativeFee
	}

	s := Split{Gross: amount, PlatformFee: platformFee, Referred: referred}

	if referred {
		// Reward and cashback are computed independently at the same
		// rate, not as halves of a 20% pool.
		s.Reward = amount.BasisPoints(RewardBasisPoints)
		s.Cashback = amount.BasisPoints(RewardBasisPoints)
	}

	if s.PlatformFee.Add(s.Cashback) > amount {
		return Split{}, ErrOverdraw
	}

	s.Net = amount.Sub(s.PlatformFee).Sub(s.Cashback).Sub(s.Reward)
	return s, nil
}
