package subledger

import "github.com/xraph/subledger/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	Native     = types.Native
	Milli      = types.Milli
	SumAmounts = types.SumAmounts
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
