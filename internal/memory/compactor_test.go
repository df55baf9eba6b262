package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/antoniostano/minaai/internal/background"
	"github.com/antoniostano/minaai/internal/clock"
)

type stubSummarizer struct {
	fail bool
}

func (s stubSummarizer) Summarize(_ context.Context, turns []Turn) (string, error) {
	if s.fail {
		return "", errors.New("upstream down")
	}
	return fmt.Sprintf("summary of %d turns", len(turns)), nil
}

func (s stubSummarizer) UpdateSummary(_ context.Context, existing string, turns []Turn) (string, error) {
	if s.fail {
		return "", errors.New("upstream down")
	}
	return fmt.Sprintf("%s + %d turns", existing, len(turns)), nil
}

func newTestManager(t *testing.T, store Store, sum Summarizer) *Manager {
	t.Helper()
	pool := background.NewPool(2, 32)
	t.Cleanup(func() { _ = pool.Close(time.Second) })
	return NewManager(store, sum, clock.Frozen{T: testNow}, pool, SessionTimeout, nil)
}

func seedTurns(t *testing.T, store Store, customerID, sessionID string, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.AppendTurn(context.Background(), Turn{
			CustomerID:     customerID,
			SessionID:      sessionID,
			UserMessage:    fmt.Sprintf("question %d", i+1),
			AssistantReply: fmt.Sprintf("answer %d", i+1),
			CreatedAt:      at.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}
}

func TestShouldCompact(t *testing.T) {
	want := map[int]bool{6: true, 11: true, 16: true, 21: true}
	for n := 0; n <= 25; n++ {
		if got := ShouldCompact(n); got != want[n] {
			t.Fatalf("ShouldCompact(%d) = %v, want %v", n, got, want[n])
		}
	}
}

func TestCompactSessionCreatesSummary(t *testing.T) {
	store := NewInMemoryStore(clock.Frozen{T: testNow})
	m := newTestManager(t, store, stubSummarizer{})
	seedTurns(t, store, "c1", "s1", 6, testNow.Add(-time.Hour))

	if err := m.compactSession(context.Background(), "c1", "s1", false); err != nil {
		t.Fatalf("compactSession() error = %v", err)
	}

	p, ok := store.Profile("c1")
	if !ok {
		t.Fatalf("profile missing after compaction")
	}
	if p.Summary != "summary of 6 turns" {
		t.Fatalf("Summary = %q, want %q", p.Summary, "summary of 6 turns")
	}
	if p.LastSummaryTurn != 5 {
		t.Fatalf("LastSummaryTurn = %d, want 5 (trigger turn stays un-summarized)", p.LastSummaryTurn)
	}
	if p.LastSummarySession != "s1" {
		t.Fatalf("LastSummarySession = %q, want s1", p.LastSummarySession)
	}
}

func TestCompactSessionMergesExistingSummary(t *testing.T) {
	store := NewInMemoryStore(clock.Frozen{T: testNow})
	m := newTestManager(t, store, stubSummarizer{})
	seedTurns(t, store, "c1", "s1", 6, testNow.Add(-time.Hour))
	if _, err := store.SaveSummary(context.Background(), "c1", "s1", "old notes", 3); err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}

	if err := m.compactSession(context.Background(), "c1", "s1", false); err != nil {
		t.Fatalf("compactSession() error = %v", err)
	}

	p, _ := store.Profile("c1")
	if p.Summary != "old notes + 6 turns" {
		t.Fatalf("Summary = %q, want merged summary", p.Summary)
	}
	if p.LastSummaryTurn != 5 {
		t.Fatalf("LastSummaryTurn = %d, want 5", p.LastSummaryTurn)
	}
}

func TestCompactStaleSessionCoversAllTurns(t *testing.T) {
	store := NewInMemoryStore(clock.Frozen{T: testNow})
	m := newTestManager(t, store, stubSummarizer{})
	seedTurns(t, store, "c1", "stale", 3, testNow.Add(-48*time.Hour))

	if err := m.compactSession(context.Background(), "c1", "stale", true); err != nil {
		t.Fatalf("compactSession() error = %v", err)
	}

	p, _ := store.Profile("c1")
	if p.LastSummaryTurn != 3 {
		t.Fatalf("LastSummaryTurn = %d, want 3 (whole stale session covered)", p.LastSummaryTurn)
	}
}

func TestCompactionFailureLeavesSummaryUntouched(t *testing.T) {
	store := NewInMemoryStore(clock.Frozen{T: testNow})
	m := newTestManager(t, store, stubSummarizer{fail: true})
	seedTurns(t, store, "c1", "s1", 6, testNow.Add(-time.Hour))
	if _, err := store.SaveSummary(context.Background(), "c1", "s1", "prior notes", 3); err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}

	if err := m.compactSession(context.Background(), "c1", "s1", false); err == nil {
		t.Fatalf("compactSession() error = nil, want summarization failure")
	}

	p, _ := store.Profile("c1")
	if p.Summary != "prior notes" {
		t.Fatalf("Summary = %q, want prior notes preserved", p.Summary)
	}
	if p.LastSummaryTurn != 3 {
		t.Fatalf("LastSummaryTurn = %d, want 3 preserved", p.LastSummaryTurn)
	}
}

func TestWatermarkMonotonicity(t *testing.T) {
	ctx := context.Background()
	orders := [][2]int{{5, 10}, {10, 5}}
	for _, order := range orders {
		store := NewInMemoryStore(clock.Frozen{T: testNow})
		for _, wm := range order {
			if _, err := store.SaveSummary(ctx, "c1", "s1", fmt.Sprintf("summary@%d", wm), wm); err != nil {
				t.Fatalf("SaveSummary(%d) error = %v", wm, err)
			}
		}
		p, _ := store.Profile("c1")
		if p.LastSummaryTurn != 10 {
			t.Fatalf("order %v: LastSummaryTurn = %d, want 10", order, p.LastSummaryTurn)
		}
		if p.Summary != "summary@10" {
			t.Fatalf("order %v: Summary = %q, want summary@10", order, p.Summary)
		}
	}
}

func TestWatermarkResetsForNewSession(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(clock.Frozen{T: testNow})
	if _, err := store.SaveSummary(ctx, "c1", "old-sess", "old", 10); err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}
	applied, err := store.SaveSummary(ctx, "c1", "new-sess", "fresh", 2)
	if err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}
	if !applied {
		t.Fatalf("applied = false, want true: new session starts a fresh baseline")
	}
	p, _ := store.Profile("c1")
	if p.LastSummaryTurn != 2 || p.LastSummarySession != "new-sess" {
		t.Fatalf("watermark = (%q, %d), want (new-sess, 2)", p.LastSummarySession, p.LastSummaryTurn)
	}
}
