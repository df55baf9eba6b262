package chatflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/antoniostano/minaai/internal/intent"
	"github.com/antoniostano/minaai/internal/llm"
	"github.com/antoniostano/minaai/internal/memory"
	"github.com/antoniostano/minaai/internal/observability"
)

// MemoryManager is the conversation memory subsystem consumed by the flow.
type MemoryManager interface {
	GetContext(ctx context.Context, customerID string) memory.Context
	RecordTurn(customerID, sessionID, userMessage, assistantReply string, responseTimeMS int)
}

// Analyzer classifies intent and expands the retrieval query.
type Analyzer interface {
	Analyze(ctx context.Context, message string, lastTurns []memory.Turn) intent.Analysis
}

// Knowledge assembles KB sections for the detected intents.
type Knowledge interface {
	BuildSections(ctx context.Context, analysis intent.Analysis, query string) map[string][]string
	SystemPrompt(ctx context.Context) string
}

// Responder generates the user-facing answer.
type Responder interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

type Request struct {
	CustomerID string `json:"phone_number"`
	Message    string `json:"message"`
}

type Response struct {
	Answer     string              `json:"response"`
	CustomerID string              `json:"phone_number"`
	SessionID  string              `json:"session_id"`
	Sections   map[string][]string `json:"datatollm,omitempty"`
}

// Flow coordinates memory retrieval, understanding, knowledge assembly and
// answer generation for one incoming message.
type Flow struct {
	mem       MemoryManager
	analyzer  Analyzer
	knowledge Knowledge
	responder Responder
	metrics   *observability.Metrics
}

func New(mem MemoryManager, analyzer Analyzer, knowledge Knowledge, responder Responder, metrics *observability.Metrics) *Flow {
	return &Flow{
		mem:       mem,
		analyzer:  analyzer,
		knowledge: knowledge,
		responder: responder,
		metrics:   metrics,
	}
}

func (f *Flow) ProcessMessage(ctx context.Context, req Request) (Response, error) {
	started := time.Now()

	memCtx := f.mem.GetContext(ctx, req.CustomerID)
	log.Printf("chat: %s context: %d turns, hybrid=%v, session=%s",
		req.CustomerID, len(memCtx.Turns), memCtx.UseHybrid, memCtx.SessionID)

	analysis := f.analyzer.Analyze(ctx, req.Message, memCtx.Turns)
	sections := f.knowledge.BuildSections(ctx, analysis, analysis.ExpandedQuery)

	answer, err := f.responder.Generate(ctx, llm.Request{
		Message:    req.Message,
		History:    memCtx.Turns,
		Summary:    memCtx.Summary,
		Sections:   sections,
		Intents:    analysis.Intents,
		BasePrompt: f.knowledge.SystemPrompt(ctx),
	})
	if err != nil {
		return Response{}, fmt.Errorf("process chat message: %w", err)
	}

	elapsed := time.Since(started)
	f.metrics.ObserveChatLatency(elapsed)

	// The answer is already on its way back; persistence is fire-and-forget.
	f.mem.RecordTurn(req.CustomerID, memCtx.SessionID, req.Message, answer, int(elapsed.Milliseconds()))

	return Response{
		Answer:     answer,
		CustomerID: req.CustomerID,
		SessionID:  memCtx.SessionID,
		Sections:   sections,
	}, nil
}
