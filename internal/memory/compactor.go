package memory

import (
	"context"
	"fmt"
	"log"
)

// CompactionInterval is how many turns accumulate between compactions once
// the first one has happened.
const CompactionInterval = 5

// Summarizer is the consumed summarization capability.
type Summarizer interface {
	Summarize(ctx context.Context, turns []Turn) (string, error)
	UpdateSummary(ctx context.Context, existing string, turns []Turn) (string, error)
}

// ShouldCompact reports whether a compaction is due after the turnCount-th
// turn of a session has been persisted: first at turn 6, then every 5 turns
// (11, 16, 21...). This keeps at most 5 un-summarized turns in hybrid mode.
func ShouldCompact(turnCount int) bool {
	if turnCount == HybridThreshold {
		return true
	}
	return turnCount > HybridThreshold && (turnCount-HybridThreshold)%CompactionInterval == 0
}

// compactSession folds a session's turns into the customer's long-term
// summary. stale marks sessions that already expired: their full length is
// covered, whereas for a live session the trigger turn stays un-summarized
// (watermark = count - 1) and becomes the start of the next window.
func (m *Manager) compactSession(ctx context.Context, customerID, sessionID string, stale bool) error {
	turns, err := m.store.SessionTurns(ctx, customerID, sessionID)
	if err != nil {
		return fmt.Errorf("load session turns: %w", err)
	}
	if len(turns) == 0 {
		return nil
	}

	existing := ""
	if snap, err := m.store.ResolveSession(ctx, customerID); err == nil && snap != nil && snap.Profile != nil {
		if s := snap.Profile.Summary; s != "" && s != NoSummary {
			existing = s
		}
	}

	var summary string
	if existing != "" {
		summary, err = m.summarizer.UpdateSummary(ctx, existing, turns)
	} else {
		summary, err = m.summarizer.Summarize(ctx, turns)
	}
	if err != nil {
		return fmt.Errorf("summarize session: %w", err)
	}

	watermark := len(turns) - 1
	if stale {
		watermark = len(turns)
	}
	applied, err := m.store.SaveSummary(ctx, customerID, sessionID, summary, watermark)
	if err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}
	if !applied {
		// A concurrent compaction already advanced the watermark.
		log.Printf("memory: summary for %s skipped, watermark %d is stale", customerID, watermark)
		m.metrics.ObserveCompaction("skipped")
		return nil
	}
	m.metrics.ObserveCompaction("applied")
	return nil
}
