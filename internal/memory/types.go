package memory

import "time"

// NoSummary is the sentinel stored for customers whose long-term summary has
// not been generated yet.
const NoSummary = "New customer"

// Turn stores a single user-question/assistant-answer exchange. Turns are
// append-only: never updated or deleted once written.
type Turn struct {
	CustomerID     string    `json:"customer_id"`
	SessionID      string    `json:"session_id"`
	UserMessage    string    `json:"user_message"`
	AssistantReply string    `json:"ai_response"`
	ResponseTimeMS int       `json:"response_time_ms,omitempty"`
	CreatedAt      time.Time `json:"timestamp"`
}

// CustomerProfile is the one-row-per-customer long-term memory record.
// LastSummarySession/LastSummaryTurn form the compaction watermark: the last
// turn ordinal of the named session that has been folded into Summary.
type CustomerProfile struct {
	CustomerID           string
	Summary              string
	TotalConversations   int
	FirstInteraction     time.Time
	LastInteraction      time.Time
	CustomerType         string
	InteractionFrequency string
	LastSummarySession   string
	LastSummaryTurn      int
}

// SessionSnapshot is what a single store read yields: the most recent turn's
// session plus the customer profile. A nil snapshot means no history at all.
type SessionSnapshot struct {
	SessionID  string
	TurnCount  int
	LastTurnAt time.Time
	Profile    *CustomerProfile
}

// StateKind classifies the resolved session state.
type StateKind int

const (
	StateNoHistory StateKind = iota
	StateActive
	StateExpired
)

// SessionState is the resolver's view of a customer at request time. For
// StateExpired, SessionID and TurnCount describe the stale session.
type SessionState struct {
	Kind               StateKind
	SessionID          string
	TurnCount          int
	LastSummaryTurn    int
	Summary            string
	TotalConversations int
	LastInteraction    time.Time
}

// RetrievalPlan is the policy engine's decision: which session the caller is
// in, how many turns to fetch and from where, and whether the long-term
// summary rides along. ScheduleCompaction names a stale session whose turns
// were never summarized and should be folded in the background.
type RetrievalPlan struct {
	SessionID          string
	FetchSessionID     string
	TurnsToFetch       int
	IncludeSummary     bool
	SummaryText        string
	UseHybrid          bool
	ScheduleCompaction string
}

// Context is the caller-facing result of GetContext.
type Context struct {
	Turns     []Turn `json:"turns"`
	SessionID string `json:"session_id"`
	Summary   string `json:"summary,omitempty"`
	UseHybrid bool   `json:"use_hybrid"`
}
