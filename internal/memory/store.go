package memory

import (
	"context"
	"errors"
)

// ErrStoreUnavailable wraps transient store I/O failures. Callers on the
// request path degrade to an empty-memory plan instead of propagating it.
var ErrStoreUnavailable = errors.New("memory store unavailable")

// Store persists conversation turns and customer profiles.
type Store interface {
	// ResolveSession returns the most recent session (id, turn count, last
	// turn timestamp) joined with the customer profile, or nil when the
	// customer has no history.
	ResolveSession(ctx context.Context, customerID string) (*SessionSnapshot, error)

	// RecentTurns returns the limit most recent turns of the session in
	// chronological order.
	RecentTurns(ctx context.Context, customerID, sessionID string, limit int) ([]Turn, error)

	// SessionTurns returns every turn of the session in chronological order.
	SessionTurns(ctx context.Context, customerID, sessionID string) ([]Turn, error)

	// AppendTurn inserts the turn and updates the customer profile's
	// aggregate counters in one transaction. The returned count includes the
	// just-inserted turn.
	AppendTurn(ctx context.Context, turn Turn) (sessionTurnCount int, err error)

	// SaveSummary atomically replaces the customer's summary and watermark.
	// Within a session the watermark only moves forward: a write carrying a
	// smaller watermark than the stored one for the same session is skipped
	// and reported as not applied.
	SaveSummary(ctx context.Context, customerID, sessionID, summary string, watermark int) (applied bool, err error)

	Close() error
}
