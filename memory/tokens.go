package memory

import "github.com/comrude/comrude/messages"

// Token counts are estimates, not provider truth. Roughly four
// characters per token keeps compression decisions reproducible without
// calling a model.

// EstimateTokens approximates the token count of text. It is pure,
// stable, and monotonic in text length.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// defaultMessageTokens covers content kinds with no measurable text.
const defaultMessageTokens = 50

// MessageTokens estimates the tokens of a single message.
func MessageTokens(m messages.Message) int {
	switch m.Content.Kind {
	case messages.ContentText, messages.ContentCode:
		return EstimateTokens(m.Content.Text)
	}
	return defaultMessageTokens
}

// ItemTokens estimates the tokens of a context item.
func ItemTokens(item messages.ContextItem) int {
	return EstimateTokens(item.Content)
}

// ItemsTokens sums ItemTokens over a slice.
func ItemsTokens(items []messages.ContextItem) int {
	total := 0
	for _, item := range items {
		total += ItemTokens(item)
	}
	return total
}

// TurnTokens estimates the tokens of a full turn: both messages plus
// the context snapshot attached at turn time.
func TurnTokens(t ConversationTurn) int {
	return MessageTokens(t.UserMessage) +
		MessageTokens(t.AssistantResponse) +
		ItemsTokens(t.ContextSnapshot)
}

// TurnsTokens sums TurnTokens over a slice.
func TurnsTokens(turns []ConversationTurn) int {
	total := 0
	for _, t := range turns {
		total += TurnTokens(t)
	}
	return total
}
