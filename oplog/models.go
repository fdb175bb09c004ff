// Package oplog defines the append-only operation history of a project
// ledger. Entries carry a store-assigned global sequence number and are
// queryable both globally and per payer account.
package oplog

import (
	"time"

	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Kind identifies the ledger operation an entry records.
type Kind string

const (
	KindSubscribe Kind = "subscribe"
	KindRenew     Kind = "renew"
	KindUpgrade   Kind = "upgrade"
	KindDowngrade Kind = "downgrade"
	KindClaim     Kind = "claim"
	KindWithdraw  Kind = "withdraw"
	KindSetPlan   Kind = "set_plan"
)

// Entry is one committed ledger operation. Entries are never mutated or
// deleted after append.
type Entry struct {
	ID id.OperationID `json:"id"`

	// Seq is the global append sequence, assigned by the store starting
	// at 1.
	Seq int64 `json:"seq"`

	Account string       `json:"account"`
	Kind    Kind         `json:"kind"`
	Tier    tier.Tier    `json:"tier,omitempty"`
	Period  tier.Period  `json:"period,omitempty"`
	Amount  types.Amount `json:"amount"`
	At      time.Time    `json:"at"`
}

// ListOpts controls pagination for operation queries. Results are ordered
// by ascending sequence.
type ListOpts struct {
	// AfterSeq returns entries with Seq strictly greater than this value.
	AfterSeq int64
	Limit    int
}
