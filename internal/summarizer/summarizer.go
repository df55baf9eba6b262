package summarizer

import (
	"context"
	"errors"
	"strings"

	"github.com/antoniostano/minaai/internal/memory"
)

// ErrSummarization marks upstream summarization failures. Callers treat it
// as non-fatal: the prior summary stays untouched and the next trigger
// retries with more turns.
var ErrSummarization = errors.New("summarization failed")

// Service produces and merges long-term customer summaries.
type Service interface {
	Summarize(ctx context.Context, turns []memory.Turn) (string, error)
	UpdateSummary(ctx context.Context, existing string, turns []memory.Turn) (string, error)
}

func conversationText(turns []memory.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("Customer: ")
		b.WriteString(t.UserMessage)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.AssistantReply)
		b.WriteString("\n\n")
	}
	return b.String()
}
