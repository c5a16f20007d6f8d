// Package usage defines the gym plan usage asset.
package usage

import (
	"github.com/gymplannet/planledger/types"
)

// Namespace is the composite-key namespace for usage records.
const Namespace = "org.gymplannet.gymplanusage"

// Lifecycle states for a usage record. CANCELLED is terminal.
const (
	StateConfirmed = 1
	StateCancelled = 2
)

// StateLabel translates a raw currentState code into its label.
// Unrecognized codes map to "UNKNOWN".
func StateLabel(code int) string {
	switch code {
	case StateConfirmed:
		return "CONFIRMED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Usage records sessions consumed by one member under a subscription.
// Its composite key is (planOwner, planNumber, planSubscriber, planMember).
type Usage struct {
	types.Entity
	Owner           string `json:"owner"`
	PlanNumber      string `json:"planNumber"`
	PlanSubscriber  string `json:"planSubscriber"`
	PlanMember      string `json:"planMember"`
	TrainerSessions int    `json:"trainerSessions"`
	NumClasses      int    `json:"numClasses"`
	GymAccess       int    `json:"gymAccess"`
	PoolAccess      int    `json:"poolAccess"`
}

// New creates a usage record for (planOwner, planNumber, planSubscriber, planMember).
func New(planOwner, planNumber, planSubscriber, planMember string,
	trainerSessions, numClasses, gymAccess, poolAccess int) *Usage {
	return &Usage{
		Entity:          types.NewEntity(Namespace),
		Owner:           planOwner,
		PlanNumber:      planNumber,
		PlanSubscriber:  planSubscriber,
		PlanMember:      planMember,
		TrainerSessions: trainerSessions,
		NumClasses:      numClasses,
		GymAccess:       gymAccess,
		PoolAccess:      poolAccess,
	}
}

// SplitKey returns the ordered composite-key attributes for this usage record.
func (u *Usage) SplitKey() []string {
	return []string{u.Owner, u.PlanNumber, u.PlanSubscriber, u.PlanMember}
}

func (u *Usage) SetConfirmed() { u.CurrentState = StateConfirmed }
func (u *Usage) SetCancelled() { u.CurrentState = StateCancelled }

func (u *Usage) IsConfirmed() bool { return u.CurrentState == StateConfirmed }
func (u *Usage) IsCancelled() bool { return u.CurrentState == StateCancelled }
