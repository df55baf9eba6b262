package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"

	"github.com/antoniostano/minaai/internal/memory"
)

const defaultBasePrompt = "You are MinaAI, a helpful customer service chatbot.\n" +
	"Use the provided recent turns to resolve references (it/that/this).\n" +
	"Answer in ONE pass.\n" +
	"- Never invent facts not present in data. If info is insufficient, ask one short clarifying question.\n" +
	"- Be concise and friendly."

// Responder generates the user-facing answer from the assembled context.
type Responder struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

func NewResponder(client openai.Client, model string) *Responder {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4"
	}
	return &Responder{
		client:      client,
		model:       model,
		maxTokens:   1000,
		temperature: 0.7,
	}
}

// Request carries everything the answer needs: the message, the memory
// context, the KB sections, and intent steering.
type Request struct {
	Message    string
	History    []memory.Turn
	Summary    string
	Sections   map[string][]string
	Intents    []string
	BasePrompt string
}

func (r *Responder) Generate(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildSystemPrompt(req)),
	}
	for _, t := range req.History {
		messages = append(messages,
			openai.UserMessage(t.UserMessage),
			openai.AssistantMessage(t.AssistantReply),
		)
	}
	messages = append(messages, openai.UserMessage(req.Message))

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(r.model),
		Messages:    messages,
		MaxTokens:   openai.Int(r.maxTokens),
		Temperature: openai.Float(r.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate response: empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildSystemPrompt(req Request) string {
	var b strings.Builder
	if strings.TrimSpace(req.BasePrompt) != "" {
		b.WriteString(req.BasePrompt)
	} else {
		b.WriteString(defaultBasePrompt)
	}

	hasProduct := contains(req.Intents, "product")
	hasCompany := contains(req.Intents, "company")
	switch {
	case hasProduct && hasCompany:
		b.WriteString("\n- Use both PRODUCT_DATA and COMPANY_DATA as relevant to answer comprehensively.")
	case hasProduct:
		b.WriteString("\n- Use PRODUCT_DATA only; ignore COMPANY_DATA.")
	case hasCompany:
		b.WriteString("\n- Use COMPANY_DATA only; ignore PRODUCT_DATA.")
	default:
		b.WriteString("\n- General query: use available data only if clearly relevant.")
	}

	if req.Summary != "" {
		b.WriteString("\n\n=== CUSTOMER_BACKGROUND ===\n")
		b.WriteString(req.Summary)
	}

	names := make([]string, 0, len(req.Sections))
	for name := range req.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		items := req.Sections[name]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\n=== %s ===\n- %s", name, strings.Join(items, "\n- "))
	}
	return b.String()
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
