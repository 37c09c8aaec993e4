package messages

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of a message. An assistant message starts
// Pending while a response streams and transitions to Complete or Error
// exactly once.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusComplete Status = "Complete"
	StatusError    Status = "Error"
)

// SenderKind discriminates the sender variant of a message.
type SenderKind string

const (
	SenderUser      SenderKind = "User"
	SenderAssistant SenderKind = "Assistant"
	SenderSystem    SenderKind = "System"
)

// Sender identifies who produced a message. Assistant senders carry the
// provider and model that generated the content.
type Sender struct {
	Kind     SenderKind
	Provider string
	Model    string
}

// ContentKind discriminates the content variant of a message.
type ContentKind string

const (
	ContentText ContentKind = "Text"
	ContentCode ContentKind = "Code"
)

// Content is the payload of a message. Text is plain prose; Code carries
// a language tag alongside the source text.
type Content struct {
	Kind     ContentKind
	Text     string
	Language string
}

// Message is one utterance in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Sender    Sender    `json:"sender"`
	Content   Content   `json:"content"`
	Status    Status    `json:"status"`
}

// NewUser creates a completed user text message.
func NewUser(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Sender:    Sender{Kind: SenderUser},
		Content:   Content{Kind: ContentText, Text: text},
		Status:    StatusComplete,
	}
}

// NewAssistant creates a completed assistant text message attributed to
// the given provider and model.
func NewAssistant(text, provider, model string) Message {
	return Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Sender:    Sender{Kind: SenderAssistant, Provider: provider, Model: model},
		Content:   Content{Kind: ContentText, Text: text},
		Status:    StatusComplete,
	}
}

// NewPendingAssistant creates an assistant message placeholder for a
// response that is still streaming.
func NewPendingAssistant(provider, model string) Message {
	m := NewAssistant("", provider, model)
	m.Status = StatusPending
	return m
}

// NewSystem creates a completed system text message.
func NewSystem(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Sender:    Sender{Kind: SenderSystem},
		Content:   Content{Kind: ContentText, Text: text},
		Status:    StatusComplete,
	}
}

// Text returns the textual payload of the message regardless of kind.
func (m *Message) Text() string {
	return m.Content.Text
}

// ContextKind discriminates the variant of a context item.
type ContextKind string

const (
	ContextTypeText    ContextKind = "Text"
	ContextTypeCode    ContextKind = "Code"
	ContextTypeFile    ContextKind = "File"
	ContextTypeCommand ContextKind = "Command"
)

// ContextType is the discriminated kind of a ContextItem. Code carries a
// language, File a path, Command the command line that produced the
// item's content.
type ContextType struct {
	Kind     ContextKind
	Language string
	Path     string
	Command  string
}

// ContextItem is a unit of model-visible context: either attached to a
// turn as its snapshot or accumulated as compressed session residue.
type ContextItem struct {
	Type     ContextType    `json:"item_type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TextItem creates a plain text context item.
func TextItem(content string) ContextItem {
	return ContextItem{Type: ContextType{Kind: ContextTypeText}, Content: content}
}

// CodeItem creates a code context item with a language tag.
func CodeItem(language, content string) ContextItem {
	return ContextItem{Type: ContextType{Kind: ContextTypeCode, Language: language}, Content: content}
}

// CommandItem creates a context item holding the captured output of an
// executed shell command.
func CommandItem(command, output string) ContextItem {
	return ContextItem{Type: ContextType{Kind: ContextTypeCommand, Command: command}, Content: output}
}
