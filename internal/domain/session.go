// Package domain contains pure, dependency-free domain models and types
// for the engagement-scoring engine.
package domain

import (
	"sync/atomic"
	"time"
)

// Session represents one scored competitive event instance spanning
// multiple groups. Sessions are created once per identifier and live for
// the lifetime of the process; there is no explicit deletion.
type Session struct {
	// ID uniquely identifies this session.
	ID string

	// NumGroups is the declared number of competing groups. It is
	// advisory metadata; groups join independently.
	NumGroups int

	// DurationMinutes is the declared session duration. It is advisory
	// metadata, not an active timer.
	DurationMinutes int

	// CreatedAt records when the session was first created.
	CreatedAt time.Time

	// Groups maps group identifiers to their metadata. Re-joining the
	// same identifier overwrites metadata (last-writer-wins) while the
	// accumulator persists independently.
	Groups map[string]*Group

	// GroupOrder records group identifiers in first-join order. Ranking
	// ties are broken by this order, so it must be append-only.
	GroupOrder []string

	// finalized guards end-of-session processing. The transition is a
	// single compare-and-swap so duplicate `session_end` deliveries race
	// safely even if the transport ever delivers them concurrently.
	finalized atomic.Bool
}

// Group represents one competing unit within a session.
type Group struct {
	// ID uniquely identifies this group within its session.
	ID string

	// Name is the display name supplied at join time.
	Name string

	// Members lists member identifiers. Populated by joins when the
	// transport supplies them; may be empty.
	Members []string

	// Ready reports whether the group has declared itself ready to start.
	Ready bool
}

// Finalized reports whether this session has already produced results.
func (s *Session) Finalized() bool { return s.finalized.Load() }

// MarkFinalized transitions the session into the finalized state. It
// returns false when the session was already finalized, letting callers
// absorb duplicate end-of-session triggers without reprocessing. The
// check-and-set is atomic, so exactly one caller wins.
func (s *Session) MarkFinalized() bool {
	return s.finalized.CompareAndSwap(false, true)
}

// UnmarkFinalized rolls back a finalization that failed mid-computation
// so a retry can succeed. It must only be called by the component that
// won the corresponding MarkFinalized.
func (s *Session) UnmarkFinalized() { s.finalized.Store(false) }
