package memory

import (
	"context"
	"log"
	"time"

	"github.com/antoniostano/minaai/internal/background"
	"github.com/antoniostano/minaai/internal/clock"
	"github.com/antoniostano/minaai/internal/observability"
)

// Manager is the conversation memory lifecycle manager: it resolves the
// customer's session, computes the retrieval plan, and keeps the long-term
// summary compacted as history grows.
type Manager struct {
	store      Store
	summarizer Summarizer
	clk        clock.Clock
	pool       *background.Pool
	timeout    time.Duration
	metrics    *observability.Metrics
}

func NewManager(store Store, sum Summarizer, clk clock.Clock, pool *background.Pool, sessionTimeout time.Duration, metrics *observability.Metrics) *Manager {
	if sessionTimeout <= 0 {
		sessionTimeout = SessionTimeout
	}
	return &Manager{
		store:      store,
		summarizer: sum,
		clk:        clk,
		pool:       pool,
		timeout:    sessionTimeout,
		metrics:    metrics,
	}
}

// GetContext returns everything the caller needs to answer the customer's
// next message: recent turns, the session id to record against, the optional
// long-term summary, and the hybrid flag. Store failures degrade to an empty
// fresh-session context; memory is best-effort, never a hard dependency.
func (m *Manager) GetContext(ctx context.Context, customerID string) Context {
	started := time.Now()
	defer func() { m.metrics.ObserveContextLatency(time.Since(started)) }()

	snap, err := m.store.ResolveSession(ctx, customerID)
	if err != nil {
		log.Printf("memory: resolve session for %s failed, degrading to empty context: %v", customerID, err)
		m.metrics.ObserveContextRequest("degraded")
		return Context{SessionID: NewSessionID()}
	}

	now := m.clk.Now()
	state := StateFromSnapshot(snap, now, m.timeout)
	plan := Plan(state, now)

	var turns []Turn
	if plan.TurnsToFetch > 0 {
		turns, err = m.store.RecentTurns(ctx, customerID, plan.FetchSessionID, plan.TurnsToFetch)
		if err != nil {
			log.Printf("memory: fetch turns for %s failed, degrading to empty context: %v", customerID, err)
			m.metrics.ObserveContextRequest("degraded")
			return Context{SessionID: NewSessionID()}
		}
	}

	if plan.ScheduleCompaction != "" {
		m.scheduleCompaction(customerID, plan.ScheduleCompaction, true)
	}

	m.metrics.ObserveContextRequest(contextMode(state, plan))
	return Context{
		Turns:     turns,
		SessionID: plan.SessionID,
		Summary:   plan.SummaryText,
		UseHybrid: plan.UseHybrid,
	}
}

// RecordTurn persists the finished exchange off the caller's critical path.
// Persistence failures are logged, never surfaced: the answer has already
// been delivered.
func (m *Manager) RecordTurn(customerID, sessionID, userMessage, assistantReply string, responseTimeMS int) {
	turn := Turn{
		CustomerID:     customerID,
		SessionID:      sessionID,
		UserMessage:    userMessage,
		AssistantReply: assistantReply,
		ResponseTimeMS: responseTimeMS,
	}
	ok := m.pool.Submit("append_turn", func(ctx context.Context) {
		if err := m.appendAndMaybeCompact(ctx, turn); err != nil {
			log.Printf("memory: record turn for %s failed: %v", customerID, err)
		}
	})
	if !ok {
		log.Printf("memory: record turn for %s dropped, background pool unavailable", customerID)
	}
}

func (m *Manager) appendAndMaybeCompact(ctx context.Context, turn Turn) error {
	count, err := m.store.AppendTurn(ctx, turn)
	if err != nil {
		return err
	}
	m.metrics.ObserveTurnSaved()
	if ShouldCompact(count) {
		m.scheduleCompaction(turn.CustomerID, turn.SessionID, false)
	}
	return nil
}

func (m *Manager) scheduleCompaction(customerID, sessionID string, stale bool) {
	ok := m.pool.Submit("compact_session", func(ctx context.Context) {
		if err := m.compactSession(ctx, customerID, sessionID, stale); err != nil {
			// Best-effort: the next trigger folds the missed turns too.
			log.Printf("memory: compaction for %s failed: %v", customerID, err)
			m.metrics.ObserveCompaction("failed")
		}
	})
	if !ok {
		log.Printf("memory: compaction for %s dropped, background pool unavailable", customerID)
	}
}

func contextMode(state SessionState, plan RetrievalPlan) string {
	switch {
	case state.Kind == StateNoHistory:
		return "no_history"
	case state.Kind == StateExpired:
		return "expired"
	case plan.UseHybrid:
		return "hybrid"
	default:
		return "recency"
	}
}
