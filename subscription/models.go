// Package subscription defines the gym plan subscription asset.
package subscription

import (
	"github.com/gymplannet/planledger/types"
)

// Namespace is the composite-key namespace for subscription records.
const Namespace = "org.gymplannet.gymplansubscription"

// Lifecycle states for a subscription. Re-subscribing after UNSUBSCRIBED
// flips the same record back to SUBSCRIBED; it never creates a new key.
const (
	StateSubscribed   = 1
	StateUnsubscribed = 2
)

// StateLabel translates a raw currentState code into its label.
// Unrecognized codes map to "UNKNOWN".
func StateLabel(code int) string {
	switch code {
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateUnsubscribed:
		return "UNSUBSCRIBED"
	default:
		return "UNKNOWN"
	}
}

// Subscription records one organization's subscription to a plan.
// Its composite key is (subscriber, planNumber, planOwner); the subscriber
// is recorded in the Owner field for reporting parity with the other assets.
type Subscription struct {
	types.Entity
	Owner             string `json:"owner"`
	PlanNumber        string `json:"planNumber"`
	PlanOwner         string `json:"planOwner"`
	SubscribeDateTime string `json:"subscribeDateTime"`
}

// New creates a subscription for (subscriber, planNumber, planOwner).
func New(subscriber, planNumber, planOwner, subscribeDateTime string) *Subscription {
	return &Subscription{
		Entity:            types.NewEntity(Namespace),
		Owner:             subscriber,
		PlanNumber:        planNumber,
		PlanOwner:         planOwner,
		SubscribeDateTime: subscribeDateTime,
	}
}

// SplitKey returns the ordered composite-key attributes for this subscription.
func (s *Subscription) SplitKey() []string {
	return []string{s.Owner, s.PlanNumber, s.PlanOwner}
}

func (s *Subscription) SetSubscribed()   { s.CurrentState = StateSubscribed }
func (s *Subscription) SetUnsubscribed() { s.CurrentState = StateUnsubscribed }

func (s *Subscription) IsSubscribed() bool   { return s.CurrentState == StateSubscribed }
func (s *Subscription) IsUnsubscribed() bool { return s.CurrentState == StateUnsubscribed }
