package subledger

import "github.com/xraph/subledger/id"

// ID is the primary identifier type for all Subledger entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
