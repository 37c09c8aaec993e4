package messages

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSenderWireShapes(t *testing.T) {
	tests := []struct {
		name   string
		sender Sender
		want   string
	}{
		{"user", Sender{Kind: SenderUser}, `"User"`},
		{"system", Sender{Kind: SenderSystem}, `"System"`},
		{
			"assistant",
			Sender{Kind: SenderAssistant, Provider: "openai", Model: "gpt-4o"},
			`{"Assistant":{"provider":"openai","model":"gpt-4o"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.sender)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
			var back Sender
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back != tt.sender {
				t.Errorf("round trip: got %+v, want %+v", back, tt.sender)
			}
		})
	}
}

func TestSenderRejectsUnknownVariant(t *testing.T) {
	var s Sender
	if err := json.Unmarshal([]byte(`"Robot"`), &s); err == nil {
		t.Error("expected error for unknown sender variant")
	}
	if err := json.Unmarshal([]byte(`{"Robot":{}}`), &s); err == nil {
		t.Error("expected error for unknown sender object")
	}
}

func TestContentWireShapes(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    string
	}{
		{"text", Content{Kind: ContentText, Text: "hello"}, `{"Text":"hello"}`},
		{
			"code",
			Content{Kind: ContentCode, Text: "fmt.Println()", Language: "go"},
			`{"Code":{"language":"go","content":"fmt.Println()"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.content)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
			var back Content
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back != tt.content {
				t.Errorf("round trip: got %+v, want %+v", back, tt.content)
			}
		})
	}
}

func TestContextTypeWireShapes(t *testing.T) {
	tests := []struct {
		name string
		ct   ContextType
		want string
	}{
		{"text", ContextType{Kind: ContextTypeText}, `"Text"`},
		{"code", ContextType{Kind: ContextTypeCode, Language: "python"}, `{"Code":{"language":"python"}}`},
		{"file", ContextType{Kind: ContextTypeFile, Path: "src/main.go"}, `{"File":{"path":"src/main.go"}}`},
		{"command", ContextType{Kind: ContextTypeCommand, Command: "ls -la"}, `{"Command":{"command":"ls -la"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ct)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
			var back ContextType
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back != tt.ct {
				t.Errorf("round trip: got %+v, want %+v", back, tt.ct)
			}
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	orig := NewAssistant("the answer", "anthropic", "claude-sonnet")
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"Assistant"`) {
		t.Errorf("assistant sender not encoded as variant object: %s", data)
	}
	var back Message
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != orig.ID || back.Sender != orig.Sender || back.Content != orig.Content || back.Status != orig.Status {
		t.Errorf("round trip mismatch: got %+v, want %+v", back, orig)
	}
	if !back.Timestamp.Equal(orig.Timestamp) {
		t.Errorf("timestamp mismatch: got %v, want %v", back.Timestamp, orig.Timestamp)
	}
}

func TestPendingAssistantLifecycle(t *testing.T) {
	m := NewPendingAssistant("ollama", "llama3")
	if m.Status != StatusPending {
		t.Errorf("new streaming message should be Pending, got %s", m.Status)
	}
	if m.Sender.Kind != SenderAssistant || m.Sender.Provider != "ollama" {
		t.Errorf("unexpected sender %+v", m.Sender)
	}
}

func TestContextItemHelpers(t *testing.T) {
	cmd := CommandItem("ls", "file.txt\n")
	if cmd.Type.Kind != ContextTypeCommand || cmd.Type.Command != "ls" {
		t.Errorf("unexpected command item type %+v", cmd.Type)
	}
	if cmd.Content != "file.txt\n" {
		t.Errorf("unexpected command item content %q", cmd.Content)
	}
	code := CodeItem("go", "package main")
	if code.Type.Language != "go" {
		t.Errorf("unexpected code language %q", code.Type.Language)
	}
}
