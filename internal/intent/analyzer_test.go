package intent

import "testing"

func TestParseStrictJSON(t *testing.T) {
	raw := `{"intents":["product","company"],"expanded_query":"whey protein isolate price","entities":["whey protein"],"need_clarification":false}`
	a := Parse(raw, "how much is it?")
	if !a.Has("product") || !a.Has("company") {
		t.Fatalf("Intents = %v, want product+company", a.Intents)
	}
	if a.ExpandedQuery != "whey protein isolate price" {
		t.Fatalf("ExpandedQuery = %q, want expansion kept", a.ExpandedQuery)
	}
}

func TestParseStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"intents\":[\"general\"],\"expanded_query\":\"hello\"}\n```"
	a := Parse(raw, "hello")
	if !a.Has("general") {
		t.Fatalf("Intents = %v, want general", a.Intents)
	}
}

func TestParseInvalidIntentFallsBack(t *testing.T) {
	raw := `{"intents":["billing"],"expanded_query":""}`
	a := Parse(raw, "what is my invoice?")
	if len(a.Intents) != 1 || a.Intents[0] != "general" {
		t.Fatalf("Intents = %v, want [general]", a.Intents)
	}
	if a.ExpandedQuery != "what is my invoice?" {
		t.Fatalf("ExpandedQuery = %q, want passthrough message", a.ExpandedQuery)
	}
}

func TestParseGarbageFallsBack(t *testing.T) {
	a := Parse("sorry, I can't answer that", "do you ship overseas?")
	if !a.Has("general") {
		t.Fatalf("Intents = %v, want general fallback", a.Intents)
	}
	if a.ExpandedQuery != "do you ship overseas?" {
		t.Fatalf("ExpandedQuery = %q, want passthrough message", a.ExpandedQuery)
	}
}

func TestFallback(t *testing.T) {
	a := Fallback("hi")
	if len(a.Intents) != 1 || a.Intents[0] != "general" || a.ExpandedQuery != "hi" {
		t.Fatalf("Fallback = %+v, want general/hi", a)
	}
}
