package messages

import (
	"encoding/json"
	"fmt"
)

// Variant fields use a tagged encoding in session files: unit variants
// serialize as bare strings ("User"), struct variants as single-key
// objects ({"Assistant":{"provider":...,"model":...}}).

type assistantSender struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// MarshalJSON encodes "User"/"System" as strings and Assistant as
// {"Assistant":{"provider":...,"model":...}}.
func (s Sender) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SenderUser, SenderSystem:
		return json.Marshal(string(s.Kind))
	case SenderAssistant:
		return json.Marshal(map[string]assistantSender{
			"Assistant": {Provider: s.Provider, Model: s.Model},
		})
	}
	return nil, fmt.Errorf("unknown sender kind %q", s.Kind)
}

func (s *Sender) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		switch SenderKind(unit) {
		case SenderUser, SenderSystem:
			*s = Sender{Kind: SenderKind(unit)}
			return nil
		}
		return fmt.Errorf("unknown sender variant %q", unit)
	}

	var obj map[string]assistantSender
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("malformed sender: %w", err)
	}
	if a, ok := obj["Assistant"]; ok {
		*s = Sender{Kind: SenderAssistant, Provider: a.Provider, Model: a.Model}
		return nil
	}
	return fmt.Errorf("unknown sender object with %d keys", len(obj))
}

type codeContent struct {
	Language string `json:"language"`
	Content  string `json:"content"`
}

// MarshalJSON encodes Text as {"Text":"..."} and Code as
// {"Code":{"language":...,"content":...}}.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentText:
		return json.Marshal(map[string]string{"Text": c.Text})
	case ContentCode:
		return json.Marshal(map[string]codeContent{
			"Code": {Language: c.Language, Content: c.Text},
		})
	}
	return nil, fmt.Errorf("unknown content kind %q", c.Kind)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("malformed content: %w", err)
	}
	if raw, ok := probe["Text"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("malformed Text content: %w", err)
		}
		*c = Content{Kind: ContentText, Text: text}
		return nil
	}
	if raw, ok := probe["Code"]; ok {
		var code codeContent
		if err := json.Unmarshal(raw, &code); err != nil {
			return fmt.Errorf("malformed Code content: %w", err)
		}
		*c = Content{Kind: ContentCode, Text: code.Content, Language: code.Language}
		return nil
	}
	return fmt.Errorf("unknown content variant")
}

// MarshalJSON encodes Text as the bare string "Text" and the struct
// variants as single-key objects.
func (t ContextType) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case ContextTypeText:
		return json.Marshal(string(ContextTypeText))
	case ContextTypeCode:
		return json.Marshal(map[string]map[string]string{
			"Code": {"language": t.Language},
		})
	case ContextTypeFile:
		return json.Marshal(map[string]map[string]string{
			"File": {"path": t.Path},
		})
	case ContextTypeCommand:
		return json.Marshal(map[string]map[string]string{
			"Command": {"command": t.Command},
		})
	}
	return nil, fmt.Errorf("unknown context kind %q", t.Kind)
}

func (t *ContextType) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		if ContextKind(unit) == ContextTypeText {
			*t = ContextType{Kind: ContextTypeText}
			return nil
		}
		return fmt.Errorf("unknown context variant %q", unit)
	}

	var obj map[string]map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("malformed context type: %w", err)
	}
	for key, fields := range obj {
		switch ContextKind(key) {
		case ContextTypeCode:
			*t = ContextType{Kind: ContextTypeCode, Language: fields["language"]}
			return nil
		case ContextTypeFile:
			*t = ContextType{Kind: ContextTypeFile, Path: fields["path"]}
			return nil
		case ContextTypeCommand:
			*t = ContextType{Kind: ContextTypeCommand, Command: fields["command"]}
			return nil
		default:
			return fmt.Errorf("unknown context variant %q", key)
		}
	}
	return fmt.Errorf("empty context type")
}
