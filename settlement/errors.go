package settlement

import "errors"

var (
	ErrNonPositiveAmount = errors.New("settlement: amount must be positive")
	ErrNegativeFee       = errors.New("settlement: negative platform fee")
	ErrOverdraw          = errors.New("settlement: fee and cashback exceed payment")
)
