package planledger

import (
	"errors"

	"github.com/gymplannet/planledger/query"
	"github.com/gymplannet/planledger/statekey"
	"github.com/gymplannet/planledger/store"
)

// Sentinel errors for contract-level failure scenarios.
var (
	// ErrIllegalTransition is returned when an operation would move an
	// asset out of a state that does not permit it.
	ErrIllegalTransition = errors.New("planledger: illegal state transition")

	// ErrUnauthorized is returned when the invoking organization is not
	// permitted to perform the operation on the target asset.
	ErrUnauthorized = errors.New("planledger: unauthorized")

	// ErrMissingClientMSP is returned when an operation that stamps or
	// checks ownership is invoked without a client identity in context.
	ErrMissingClientMSP = errors.New("planledger: no client MSP in context")

	// ErrAlreadySubscribed is returned when subscribing an organization
	// whose subscription record is already SUBSCRIBED.
	ErrAlreadySubscribed = errors.New("planledger: subscription already active")

	// ErrAlreadyUnsubscribed is returned when unsubscribing an
	// organization whose subscription record is already UNSUBSCRIBED.
	ErrAlreadyUnsubscribed = errors.New("planledger: subscription already inactive")
)

// Re-exported sentinels so callers can match errors without importing
// the sub-packages that produce them.
var (
	ErrNotFound             = store.ErrNotFound
	ErrAlreadyExists        = store.ErrAlreadyExists
	ErrRichQueryUnsupported = store.ErrRichQueryUnsupported
	ErrInvalidKeyComponent  = statekey.ErrInvalidKeyComponent
	ErrInvalidArguments     = query.ErrInvalidArguments
	ErrUnknownNamedQuery    = query.ErrUnknownNamedQuery
)

// IsNotFound returns true if the error reports a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists returns true if the error reports a key collision.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsIllegalTransition returns true if the error reports a forbidden
// state transition, including redundant subscribe and unsubscribe calls.
func IsIllegalTransition(err error) bool {
	return errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrAlreadySubscribed) ||
		errors.Is(err, ErrAlreadyUnsubscribed)
}

// IsAlreadySubscribed returns true if the error reports a subscribe call
// against an already active subscription.
func IsAlreadySubscribed(err error) bool {
	return errors.Is(err, ErrAlreadySubscribed)
}

// IsAlreadyUnsubscribed returns true if the error reports an unsubscribe
// call against an already inactive subscription.
func IsAlreadyUnsubscribed(err error) bool {
	return errors.Is(err, ErrAlreadyUnsubscribed)
}

// IsUnauthorized returns true if the error reports an authorization
// failure, including a missing client identity.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrMissingClientMSP)
}

// IsInvalidInput returns true if the error reports malformed arguments,
// including invalid composite-key components.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidArguments) || errors.Is(err, ErrInvalidKeyComponent)
}
