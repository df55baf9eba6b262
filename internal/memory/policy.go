package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxRecentTurns bounds every retrieval plan: no plan fetches more.
	MaxRecentTurns = 5
	// HybridThreshold is the session turn count at which the retrieval plan
	// switches from pure recency to summary + recent-turn window.
	HybridThreshold = 6
	// SessionTimeout is the inactivity window after which a session expires.
	SessionTimeout = 24 * time.Hour
)

// NewSessionID produces a fresh unique session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// StateFromSnapshot classifies a store snapshot into the session state the
// policy engine consumes. The watermark is session-scoped: a watermark
// recorded against a different session reads as zero, which gives every new
// session a fresh summary baseline.
func StateFromSnapshot(snap *SessionSnapshot, now time.Time, timeout time.Duration) SessionState {
	if snap == nil || snap.SessionID == "" {
		return SessionState{Kind: StateNoHistory}
	}
	if timeout <= 0 {
		timeout = SessionTimeout
	}

	state := SessionState{
		SessionID: snap.SessionID,
		TurnCount: snap.TurnCount,
	}
	if p := snap.Profile; p != nil {
		state.Summary = p.Summary
		state.TotalConversations = p.TotalConversations
		state.LastInteraction = p.LastInteraction
		if p.LastSummarySession == snap.SessionID {
			state.LastSummaryTurn = p.LastSummaryTurn
		}
	}
	if state.LastInteraction.IsZero() {
		state.LastInteraction = snap.LastTurnAt
	}

	if now.Sub(snap.LastTurnAt) > timeout {
		state.Kind = StateExpired
	} else {
		state.Kind = StateActive
	}
	return state
}

// Plan maps a session state to a retrieval plan. Pure decision logic; the
// only side channel is ScheduleCompaction, which names a stale session whose
// turns never reached the summarization threshold.
func Plan(state SessionState, now time.Time) RetrievalPlan {
	switch state.Kind {
	case StateActive:
		return planActive(state, now)
	case StateExpired:
		return planExpired(state, now)
	default:
		return RetrievalPlan{SessionID: NewSessionID()}
	}
}

func planActive(state SessionState, now time.Time) RetrievalPlan {
	plan := RetrievalPlan{
		SessionID:      state.SessionID,
		FetchSessionID: state.SessionID,
	}

	if state.TurnCount < HybridThreshold {
		plan.TurnsToFetch = state.TurnCount
		if plan.TurnsToFetch > MaxRecentTurns {
			plan.TurnsToFetch = MaxRecentTurns
		}
		return plan
	}

	plan.UseHybrid = true
	plan.IncludeSummary = true
	plan.SummaryText = FormatSummary(state.Summary, state.TotalConversations, state.LastInteraction, now)

	// Until the first compaction lands, turns 1-5 stay visible even though
	// the window formula would shrink them away.
	sinceSummary := state.TurnCount - state.LastSummaryTurn
	if state.TurnCount == HybridThreshold && state.LastSummaryTurn == 0 {
		plan.TurnsToFetch = MaxRecentTurns
		return plan
	}
	plan.TurnsToFetch = sinceSummary
	if plan.TurnsToFetch > MaxRecentTurns {
		plan.TurnsToFetch = MaxRecentTurns
	}
	if plan.TurnsToFetch < 0 {
		plan.TurnsToFetch = 0
	}
	return plan
}

func planExpired(state SessionState, now time.Time) RetrievalPlan {
	plan := RetrievalPlan{SessionID: NewSessionID()}
	summary := FormatSummary(state.Summary, state.TotalConversations, state.LastInteraction, now)

	if state.TurnCount > MaxRecentTurns {
		// Long sessions were already summarized along the way; the new
		// session starts from the long-term summary alone.
		plan.UseHybrid = true
		plan.IncludeSummary = true
		plan.SummaryText = summary
		return plan
	}

	// Short stale sessions never hit the summarization threshold, so their
	// turns carry across the boundary and get folded in the background.
	plan.FetchSessionID = state.SessionID
	plan.TurnsToFetch = state.TurnCount
	if plan.TurnsToFetch > MaxRecentTurns {
		plan.TurnsToFetch = MaxRecentTurns
	}
	if summary != "" {
		plan.IncludeSummary = true
		plan.SummaryText = summary
		plan.UseHybrid = true
	}
	// Only schedule folding when the stale session has turns past its own
	// watermark; an already-folded session stays put.
	if state.TurnCount > state.LastSummaryTurn {
		plan.ScheduleCompaction = state.SessionID
	}
	return plan
}

// FormatSummary prefixes the stored summary with recency context. Returns ""
// for the no-summary sentinel.
func FormatSummary(summary string, totalConversations int, lastInteraction, now time.Time) string {
	if summary == "" || summary == NoSummary {
		return ""
	}

	gap := now.Sub(lastInteraction)
	if gap > 24*time.Hour {
		days := int(gap.Hours() / 24)
		if days < 1 {
			days = 1
		}
		return fmt.Sprintf("Returning customer (last seen %d days ago, %d total conversations):\n\n%s",
			days, totalConversations, summary)
	}
	return fmt.Sprintf("Active customer (%d conversations today):\n\n%s", totalConversations, summary)
}
