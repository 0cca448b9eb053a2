// Package credstore persists the current session (token plus profile) across
// process restarts. The token/user pair is written and cleared as a unit: a
// failed save never leaves a mismatched pair behind, and a load that finds a
// partial or corrupted entry reports absent and removes it.
package credstore

import "classfeed/pkg/domain"

// Store is the durable credential backend.
type Store interface {
	// Save persists the session atomically.
	Save(session domain.Session) error
	// Load returns the stored session if a complete one exists. Corrupted
	// or partial data is cleared and reported as absent, not as an error.
	Load() (domain.Session, bool, error)
	// Clear removes any stored session. Clearing an empty store is a no-op.
	Clear() error
}
