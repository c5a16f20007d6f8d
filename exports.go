package planledger

import (
	"github.com/gymplannet/planledger/id"
	"github.com/gymplannet/planledger/query"
	"github.com/gymplannet/planledger/types"
)

// Re-export common types for convenience so users don't have to import
// the sub-packages.

// Entity is re-exported from the types package.
type Entity = types.Entity

// Result is re-exported from the query package.
type Result = query.Result

// HistoryEntry is re-exported from the query package.
type HistoryEntry = query.HistoryEntry

// ID is the identifier type for ledger transactions and events.
type ID = id.ID

// Prefix identifies the kind of identifier encoded in a TypeID.
type Prefix = id.Prefix

// Re-export Entity constructor
var NewEntity = types.NewEntity
