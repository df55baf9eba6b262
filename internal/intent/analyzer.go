package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/antoniostano/minaai/internal/memory"
)

// Analysis is the structured result of the understanding pass: resolved
// intents plus an expanded retrieval query.
type Analysis struct {
	Intents           []string          `json:"intents"`
	ExpandedQuery     string            `json:"expanded_query"`
	Entities          []string          `json:"entities"`
	Synonyms          []string          `json:"synonyms"`
	CompanyTopics     []string          `json:"company_topics"`
	NeedClarification bool              `json:"need_clarification"`
	FollowUpQuestion  string            `json:"follow_up_question,omitempty"`
	Constraints       map[string]string `json:"product_constraints,omitempty"`
}

func (a Analysis) Has(intent string) bool {
	for _, i := range a.Intents {
		if i == intent {
			return true
		}
	}
	return false
}

const analyzePrompt = `You are a fast intent and query-expansion assistant.
Given the current user message and the last turns, do ALL of the following:
1) Resolve references (e.g., "it", "that", flavors) into explicit entities.
2) Classify intents - can be one or multiple from: ["product", "company", "general"].
3) Produce an expanded retrieval query with synonyms and constraints when relevant.
4) If clarification is required, set need_clarification=true and propose a brief follow_up_question.

Return STRICT JSON with these keys only:
{
  "intents": ["product" | "company" | "general"],
  "expanded_query": string,
  "entities": [string],
  "synonyms": [string],
  "product_constraints": {},
  "company_topics": [string],
  "need_clarification": boolean,
  "follow_up_question": string
}

Last turns:
%s

Current user message:
%s

JSON only:`

// Analyzer runs a lighter-weight model to classify intent ahead of the main
// answer generation.
type Analyzer struct {
	client openai.Client
	model  string
}

func NewAnalyzer(client openai.Client, model string) *Analyzer {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &Analyzer{client: client, model: model}
}

// Analyze never fails: any upstream or parse error falls back to a general
// intent with the message passed through as the retrieval query.
func (a *Analyzer) Analyze(ctx context.Context, message string, lastTurns []memory.Turn) Analysis {
	// Only the last two turns matter for reference resolution.
	if len(lastTurns) > 2 {
		lastTurns = lastTurns[len(lastTurns)-2:]
	}
	var ctxText strings.Builder
	for _, t := range lastTurns {
		fmt.Fprintf(&ctxText, "User: %s\nAssistant: %s\n", t.UserMessage, t.AssistantReply)
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(analyzePrompt, ctxText.String(), message)),
		},
		MaxTokens:   openai.Int(250),
		Temperature: openai.Float(0.2),
	})
	if err != nil || len(resp.Choices) == 0 {
		return Fallback(message)
	}
	return Parse(resp.Choices[0].Message.Content, message)
}

// Parse extracts an Analysis from model output, tolerating surrounding prose
// and code fences, and normalizes missing fields.
func Parse(raw, message string) Analysis {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var a Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Fallback(message)
	}

	valid := a.Intents[:0]
	for _, i := range a.Intents {
		switch i {
		case "product", "company", "general":
			valid = append(valid, i)
		}
	}
	a.Intents = valid
	if len(a.Intents) == 0 {
		a.Intents = []string{"general"}
	}
	if strings.TrimSpace(a.ExpandedQuery) == "" {
		a.ExpandedQuery = message
	}
	return a
}

// Fallback is the analysis used when the understanding pass is unavailable.
func Fallback(message string) Analysis {
	return Analysis{
		Intents:       []string{"general"},
		ExpandedQuery: message,
	}
}
