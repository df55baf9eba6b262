package memory

import (
	"context"
	"sync"
	"time"

	"github.com/antoniostano/minaai/internal/clock"
)

// InMemoryStore is an in-process Store for local/dev use and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	clk      clock.Clock
	turns    map[string][]Turn
	profiles map[string]*CustomerProfile
}

func NewInMemoryStore(clk clock.Clock) *InMemoryStore {
	if clk == nil {
		clk = clock.NewBusiness(0)
	}
	return &InMemoryStore{
		clk:      clk,
		turns:    make(map[string][]Turn),
		profiles: make(map[string]*CustomerProfile),
	}
}

func (s *InMemoryStore) ResolveSession(_ context.Context, customerID string) (*SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	arr := s.turns[customerID]
	if len(arr) == 0 {
		return nil, nil
	}
	last := arr[len(arr)-1]
	snap := &SessionSnapshot{
		SessionID:  last.SessionID,
		LastTurnAt: last.CreatedAt,
	}
	for _, t := range arr {
		if t.SessionID == last.SessionID {
			snap.TurnCount++
		}
	}
	if p, ok := s.profiles[customerID]; ok {
		cp := *p
		snap.Profile = &cp
	}
	return snap, nil
}

func (s *InMemoryStore) RecentTurns(_ context.Context, customerID, sessionID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sessionTurnsLocked(customerID, sessionID)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *InMemoryStore) SessionTurns(_ context.Context, customerID, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionTurnsLocked(customerID, sessionID), nil
}

func (s *InMemoryStore) sessionTurnsLocked(customerID, sessionID string) []Turn {
	var out []Turn
	for _, t := range s.turns[customerID] {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out
}

func (s *InMemoryStore) AppendTurn(_ context.Context, turn Turn) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.clk.Now()
	}
	s.turns[turn.CustomerID] = append(s.turns[turn.CustomerID], turn)

	p, ok := s.profiles[turn.CustomerID]
	if !ok {
		s.profiles[turn.CustomerID] = &CustomerProfile{
			CustomerID:           turn.CustomerID,
			Summary:              NoSummary,
			TotalConversations:   1,
			FirstInteraction:     turn.CreatedAt,
			LastInteraction:      turn.CreatedAt,
			CustomerType:         "new",
			InteractionFrequency: "low",
		}
	} else {
		p.CustomerType = customerType(p.TotalConversations)
		p.InteractionFrequency = interactionFrequency(turn.CreatedAt.Sub(p.LastInteraction))
		p.TotalConversations++
		p.LastInteraction = turn.CreatedAt
	}

	count := 0
	for _, t := range s.turns[turn.CustomerID] {
		if t.SessionID == turn.SessionID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) SaveSummary(_ context.Context, customerID, sessionID, summary string, watermark int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[customerID]
	if !ok {
		p = &CustomerProfile{CustomerID: customerID, Summary: NoSummary}
		s.profiles[customerID] = p
	}
	// Stale writer guard: within a session the watermark never regresses.
	if p.LastSummarySession == sessionID && watermark < p.LastSummaryTurn {
		return false, nil
	}
	p.Summary = summary
	p.LastSummarySession = sessionID
	p.LastSummaryTurn = watermark
	return true, nil
}

// Profile exposes the stored profile for tests.
func (s *InMemoryStore) Profile(customerID string) (CustomerProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[customerID]
	if !ok {
		return CustomerProfile{}, false
	}
	return *p, true
}

func (s *InMemoryStore) Close() error { return nil }

func customerType(priorConversations int) string {
	switch {
	case priorConversations >= 10:
		return "loyal"
	case priorConversations >= 3:
		return "returning"
	default:
		return "new"
	}
}

func interactionFrequency(sinceLast time.Duration) string {
	switch {
	case sinceLast < 24*time.Hour:
		return "high"
	case sinceLast < 7*24*time.Hour:
		return "medium"
	default:
		return "low"
	}
}
