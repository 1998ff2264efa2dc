package domain

import (
	"fmt"

	"inspect_portal_backend/platform/apperr"
)

// InvalidTransition builds the validation error returned when a requested
// status is unreachable from the offer's current status. It is never retried.
func InvalidTransition(from, to Status) *apperr.Error {
	return apperr.Validation(fmt.Sprintf("cannot transition offer from %s to %s", from, to)).
		WithOp("offers.applyTransition").
		WithDetails(map[string]string{"from": string(from), "to": string(to)})
}

// ConcurrentModification builds the conflict error returned when a
// compare-and-swap write lost against another writer and the retried
// transition is no longer valid.
func ConcurrentModification() *apperr.Error {
	return apperr.Conflict("offer was modified concurrently").WithOp("offers.applyTransition")
}

// IsInvalidTransition reports whether err is an invalid-transition rejection.
func IsInvalidTransition(err error) bool {
	return apperr.Is(err, apperr.KindValidation)
}
