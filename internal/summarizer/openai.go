package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/antoniostano/minaai/internal/memory"
)

const summarizePrompt = `You are a customer service representative creating detailed notes about this customer based on their conversation history. Create a comprehensive summary that would help any customer service agent understand this customer's profile, interests, and needs.

Focus on:
CUSTOMER PROFILE:
- What type of customer they are (new, returning, interested, skeptical, etc.)
- Their communication style and preferences
- Their knowledge level about products/services

INTERESTS & PREFERENCES:
- Specific products they've shown interest in
- Features or benefits they care about most
- Price sensitivity or budget concerns
- Health goals or lifestyle preferences

QUESTIONS & CONCERNS:
- Main questions they've asked
- Concerns or objections raised
- Information they're seeking

PURCHASE BEHAVIOR:
- Products they've inquired about
- Stage in the buying journey (browsing, comparing, ready to buy)

IMPORTANT NOTES:
- Any personal details shared (allergies, conditions, goals)
- Follow-up actions needed

Create a summary that would help serve this customer better in future interactions.

Conversation History:
%s

Customer Service Summary:`

const mergePrompt = `You are updating customer service notes. Merge the existing customer summary with new insights from recent conversations. Keep all valuable information and update any outdated details.

INSTRUCTIONS:
- Preserve all important historical information
- Add new insights and update preferences
- Note any changes in customer behavior or interests
- Maintain the comprehensive customer service format
- Remove outdated or contradictory information

EXISTING CUSTOMER SUMMARY:
%s

NEW CONVERSATION INSIGHTS:
%s

UPDATED CUSTOMER SUMMARY:`

// OpenAI summarizes conversations through the chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	if strings.TrimSpace(model) == "" {
		model = "gpt-3.5-turbo"
	}
	return &OpenAI{client: client, model: model}
}

func (s *OpenAI) Summarize(ctx context.Context, turns []memory.Turn) (string, error) {
	prompt := fmt.Sprintf(summarizePrompt, conversationText(turns))
	out, err := s.complete(ctx, prompt, 800)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummarization, err)
	}
	return out, nil
}

func (s *OpenAI) UpdateSummary(ctx context.Context, existing string, turns []memory.Turn) (string, error) {
	insights, err := s.Summarize(ctx, turns)
	if err != nil {
		return "", err
	}
	out, err := s.complete(ctx, fmt.Sprintf(mergePrompt, existing, insights), 1000)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummarization, err)
	}
	return out, nil
}

func (s *OpenAI) complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(maxTokens),
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
