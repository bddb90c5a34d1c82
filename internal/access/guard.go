// Package access holds the ownership predicate applied before any
// protected deletion. NotFound versus Forbidden is decided by the caller:
// an absent entity never reaches the guard.
package access

import (
	"errors"

	"github.com/google/uuid"
)

// ErrForbidden signals an identity mismatch on a protected mutation.
var ErrForbidden = errors.New("not allowed")

// Owns reports whether the caller is the recorded owner of an entity.
func Owns(callerID, ownerID uuid.UUID) bool {
	return callerID == ownerID
}

// Require returns ErrForbidden unless the caller owns the entity.
func Require(callerID, ownerID uuid.UUID) error {
	if !Owns(callerID, ownerID) {
		return ErrForbidden
	}
	return nil
}
