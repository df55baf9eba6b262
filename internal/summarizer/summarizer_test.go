package summarizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/antoniostano/minaai/internal/memory"
)

func TestConversationText(t *testing.T) {
	turns := []memory.Turn{
		{UserMessage: "do you ship to Penang?", AssistantReply: "yes, 2-3 days"},
		{UserMessage: "how much?", AssistantReply: "RM8 flat rate"},
	}
	got := conversationText(turns)
	want := "Customer: do you ship to Penang?\nAssistant: yes, 2-3 days\n\n" +
		"Customer: how much?\nAssistant: RM8 flat rate\n\n"
	if got != want {
		t.Fatalf("conversationText() = %q, want %q", got, want)
	}
}

func TestConversationTextEmpty(t *testing.T) {
	if got := conversationText(nil); got != "" {
		t.Fatalf("conversationText(nil) = %q, want empty", got)
	}
}

func TestPromptsEmbedConversation(t *testing.T) {
	turns := []memory.Turn{{UserMessage: "hello", AssistantReply: "hi there"}}
	text := conversationText(turns)

	if !strings.Contains(fmt.Sprintf(summarizePrompt, text), "Customer: hello") {
		t.Fatalf("summarize prompt does not include the conversation")
	}
	merged := fmt.Sprintf(mergePrompt, "knows our return policy", "new insights")
	if !strings.Contains(merged, "knows our return policy") || !strings.Contains(merged, "new insights") {
		t.Fatalf("merge prompt missing existing summary or new insights: %q", merged)
	}
}
