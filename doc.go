// Package planledger provides a gym plan asset ledger for Go applications.
//
// Planledger is designed as a library, not a service. It models gym plans,
// organization subscriptions, and member usage as versioned assets in a
// composite-keyed world state, with every operation running in its own
// transaction. It provides:
//
//   - A full plan lifecycle: ISSUED, SUBSCRIBING, ACTIVE, EXPIRED
//   - Subscribe/unsubscribe with re-subscription under the same key
//   - Per-member usage records with ownership-checked cancellation
//   - Partial-key, owner, ad-hoc, and named selector queries
//   - Per-key history with decoded lifecycle states
//   - Pluggable storage: in-memory, MongoDB, PostgreSQL, SQLite
//
// # Quick Start
//
// Create a contract with your preferred store:
//
//	import (
//	    "github.com/gymplannet/planledger"
//	    "github.com/gymplannet/planledger/store/memory"
//	)
//
//	contract := planledger.New(memory.New())
//	if err := contract.Instantiate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer contract.Close()
//
// Operations that stamp or check ownership read the invoking
// organization from the context:
//
//	ctx = planledger.WithClientMSP(ctx, "UniversalHealthMSP")
//	plan, err := contract.IssuePlan(ctx, "UniversalHealth", "000010",
//	    "2020-05-31", "2020-06-30", "2021-05-31",
//	    5000000, 100, 200, 300, 400)
//
// # Core Concepts
//
// Plans are issued by an owning organization and addressed by
// (owner, planNumber). Subscriptions connect a subscribing organization
// to a plan under (subscriber, planNumber, planOwner). Usage records a
// member's consumption under (planOwner, planNumber, subscriber, member).
//
// Assets never leave the ledger: expiry, unsubscription, and usage
// cancellation are state flips, so the full history of every key stays
// queryable:
//
//	history, err := contract.PlanHistory(ctx, "UniversalHealth", "000010")
//
// # Storage
//
// The in-memory and MongoDB stores support rich selector queries
// (QueryPlansByOwner, QueryAdhoc, QueryNamed). The SQL stores support
// every other operation and report ErrRichQueryUnsupported for
// selector queries.
//
// # TypeID
//
// Every transaction is tagged with a TypeID for globally unique,
// K-sortable identification:
//
//	txn_01h2xcejqtf2nbrexx3vqjhp41
//
// Transaction IDs appear in history entries, providing natural
// time-ordering of versions.
package planledger
