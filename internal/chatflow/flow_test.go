package chatflow

import (
	"context"
	"errors"
	"testing"

	"github.com/antoniostano/minaai/internal/intent"
	"github.com/antoniostano/minaai/internal/llm"
	"github.com/antoniostano/minaai/internal/memory"
)

type recordedTurn struct {
	customerID string
	sessionID  string
	user       string
	assistant  string
}

type stubMemory struct {
	ctx      memory.Context
	recorded []recordedTurn
}

func (s *stubMemory) GetContext(context.Context, string) memory.Context { return s.ctx }

func (s *stubMemory) RecordTurn(customerID, sessionID, user, assistant string, _ int) {
	s.recorded = append(s.recorded, recordedTurn{customerID, sessionID, user, assistant})
}

type stubAnalyzer struct{ analysis intent.Analysis }

func (s stubAnalyzer) Analyze(_ context.Context, msg string, _ []memory.Turn) intent.Analysis {
	if len(s.analysis.Intents) == 0 {
		return intent.Fallback(msg)
	}
	return s.analysis
}

type stubKnowledge struct{ sections map[string][]string }

func (s stubKnowledge) BuildSections(context.Context, intent.Analysis, string) map[string][]string {
	return s.sections
}

func (s stubKnowledge) SystemPrompt(context.Context) string { return "" }

type stubResponder struct {
	answer string
	err    error
	got    llm.Request
}

func (s *stubResponder) Generate(_ context.Context, req llm.Request) (string, error) {
	s.got = req
	return s.answer, s.err
}

func TestProcessMessage(t *testing.T) {
	mem := &stubMemory{ctx: memory.Context{
		SessionID: "sess-1",
		Summary:   "Active customer (3 conversations today):\n\nnotes",
		UseHybrid: true,
		Turns:     []memory.Turn{{UserMessage: "q1", AssistantReply: "a1"}},
	}}
	responder := &stubResponder{answer: "we ship worldwide"}
	flow := New(mem, stubAnalyzer{}, stubKnowledge{sections: map[string][]string{"COMPANY_DATA": {"1. ships worldwide"}}}, responder, nil)

	resp, err := flow.ProcessMessage(context.Background(), Request{CustomerID: "+60123", Message: "do you ship?"})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if resp.Answer != "we ship worldwide" {
		t.Fatalf("Answer = %q, want generated answer", resp.Answer)
	}
	if resp.SessionID != "sess-1" {
		t.Fatalf("SessionID = %q, want sess-1", resp.SessionID)
	}
	if resp.CustomerID != "+60123" {
		t.Fatalf("CustomerID = %q, want +60123", resp.CustomerID)
	}

	if responder.got.Summary == "" {
		t.Fatalf("responder did not receive the memory summary")
	}
	if len(responder.got.History) != 1 {
		t.Fatalf("len(History) = %d, want 1", len(responder.got.History))
	}

	if len(mem.recorded) != 1 {
		t.Fatalf("len(recorded) = %d, want 1", len(mem.recorded))
	}
	rec := mem.recorded[0]
	if rec.sessionID != "sess-1" || rec.user != "do you ship?" || rec.assistant != "we ship worldwide" {
		t.Fatalf("recorded turn wrong: %+v", rec)
	}
}

func TestProcessMessageResponderFailure(t *testing.T) {
	mem := &stubMemory{ctx: memory.Context{SessionID: "sess-1"}}
	responder := &stubResponder{err: errors.New("upstream down")}
	flow := New(mem, stubAnalyzer{}, stubKnowledge{}, responder, nil)

	_, err := flow.ProcessMessage(context.Background(), Request{CustomerID: "c1", Message: "hi"})
	if err == nil {
		t.Fatalf("ProcessMessage() error = nil, want failure")
	}
	if len(mem.recorded) != 0 {
		t.Fatalf("turn recorded despite failed answer")
	}
}
