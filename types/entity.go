// Package types provides common types shared across planledger.
package types

// Entity is the base record embedded by every ledger asset (Plan,
// Subscription, Usage). It carries the class discriminator used for
// polymorphic dispatch, the numeric lifecycle state, and the MSP of the
// organization permitted to mutate the record.
//
// OwnerMSP is an authorization boundary; it is distinct from the
// business-level owner/subscriber attributes, which are reporting fields.
type Entity struct {
	Class        string `json:"class"`
	CurrentState int    `json:"currentState"`
	OwnerMSP     string `json:"mspid"`
}

// NewEntity creates a base record for the given asset class.
func NewEntity(class string) Entity {
	return Entity{Class: class}
}

// SetOwnerMSP records the authorization domain permitted to mutate this record.
func (e *Entity) SetOwnerMSP(mspID string) {
	e.OwnerMSP = mspID
}

// GetOwnerMSP returns the authorization domain recorded on this record.
func (e Entity) GetOwnerMSP() string {
	return e.OwnerMSP
}

// GetClass returns the asset class discriminator.
func (e Entity) GetClass() string {
	return e.Class
}

// State returns the raw numeric lifecycle state.
func (e Entity) State() int {
	return e.CurrentState
}
