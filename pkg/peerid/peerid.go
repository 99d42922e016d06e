// Package peerid provides a comparable handle for peer and bridge-pair
// identity that does not depend on the concrete Peer implementation being
// comparable or hashable.
package peerid

import "github.com/google/uuid"

// ID uniquely identifies one admitted peer or bridge-pair for the lifetime
// of the process.
type ID uuid.UUID

// New returns a fresh random ID.
func New() ID {
	return ID(uuid.New())
}

// String returns the canonical textual form of the ID.
func (id ID) String() string {
	return uuid.UUID(id).String()
}
