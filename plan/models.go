// Package plan defines the gym plan asset and its lifecycle states.
package plan

import (
	"github.com/gymplannet/planledger/types"
)

// Namespace is the composite-key namespace for plan records.
const Namespace = "org.gymplannet.gymplan"

// Lifecycle states for a gym plan.
//
// The numeric codes are the canonical wire values persisted in
// currentState. EXPIRED is 4; legacy data sets coded it as 5 in places,
// which the history decoder reports as UNKNOWN rather than guessing.
const (
	StateIssued      = 1
	StateSubscribing = 2
	StateActive      = 3
	StateExpired     = 4
)

// StateLabel translates a raw currentState code into its human-readable
// label. Unrecognized codes map to "UNKNOWN" instead of failing, so a
// history query over drifted legacy data still returns every version.
func StateLabel(code int) string {
	switch code {
	case StateIssued:
		return "ISSUED"
	case StateSubscribing:
		return "SUBSCRIBING"
	case StateActive:
		return "ACTIVE"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Plan is a gym plan asset. Its composite key is (owner, planNumber).
type Plan struct {
	types.Entity
	Owner           string `json:"owner"`
	PlanNumber      string `json:"planNumber"`
	IssueDateTime   string `json:"issueDateTime"`
	ActiveDateTime  string `json:"activeDateTime"`
	ExpiryDateTime  string `json:"expiryDateTime"`
	SubscriberCount int    `json:"subscriberCount"`
	TotalAwards     int    `json:"totalAwards"`
	TrainerSessions int    `json:"trainerSessions"`
	NumClasses      int    `json:"numClasses"`
	GymAccess       int    `json:"gymAccess"`
	PoolAccess      int    `json:"poolAccess"`
}

// New creates a plan with the given attributes. The caller stamps state
// and ownership: a freshly issued plan is moved to ISSUED by the contract,
// not by the asset itself.
func New(owner, planNumber, issueDateTime, activeDateTime, expiryDateTime string,
	subscriberCount, totalAwards, trainerSessions, numClasses, gymAccess, poolAccess int) *Plan {
	return &Plan{
		Entity:          types.NewEntity(Namespace),
		Owner:           owner,
		PlanNumber:      planNumber,
		IssueDateTime:   issueDateTime,
		ActiveDateTime:  activeDateTime,
		ExpiryDateTime:  expiryDateTime,
		SubscriberCount: subscriberCount,
		TotalAwards:     totalAwards,
		TrainerSessions: trainerSessions,
		NumClasses:      numClasses,
		GymAccess:       gymAccess,
		PoolAccess:      poolAccess,
	}
}

// SplitKey returns the ordered composite-key attributes for this plan.
func (p *Plan) SplitKey() []string {
	return []string{p.Owner, p.PlanNumber}
}

func (p *Plan) SetIssued()      { p.CurrentState = StateIssued }
func (p *Plan) SetSubscribing() { p.CurrentState = StateSubscribing }
func (p *Plan) SetActive()      { p.CurrentState = StateActive }
func (p *Plan) SetExpired()     { p.CurrentState = StateExpired }

func (p *Plan) IsIssued() bool      { return p.CurrentState == StateIssued }
func (p *Plan) IsSubscribing() bool { return p.CurrentState == StateSubscribing }
func (p *Plan) IsActive() bool      { return p.CurrentState == StateActive }
func (p *Plan) IsExpired() bool     { return p.CurrentState == StateExpired }
