package domain

import (
	"errors"
	"testing"
)

func TestParseInboundChatMessage(t *testing.T) {
	raw := []byte(`{"event":"chat:message","data":{"chatId":"c1","content":"hello"}}`)

	event, err := ParseInbound(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventChatMessage {
		t.Fatalf("expected kind %q, got %q", EventChatMessage, event.Kind)
	}
	if event.Message == nil {
		t.Fatal("expected message payload")
	}
	if event.Message.ChatID != "c1" || event.Message.Content != "hello" {
		t.Errorf("unexpected payload: %+v", event.Message)
	}
	if event.Message.Type != MessageTypeText {
		t.Errorf("expected type to default to TEXT, got %q", event.Message.Type)
	}
}

func TestParseInboundAIPrompt(t *testing.T) {
	raw := []byte(`{"event":"chat:ai","data":{"chatId":"c1","prompt":"summarize"}}`)

	event, err := ParseInbound(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventChatAI || event.Prompt == nil {
		t.Fatalf("expected AI prompt event, got %+v", event)
	}
	if event.Prompt.Prompt != "summarize" {
		t.Errorf("unexpected prompt: %q", event.Prompt.Prompt)
	}
}

func TestParseInboundTyping(t *testing.T) {
	raw := []byte(`{"event":"chat:typing","data":{"chatId":"c1","isTyping":true}}`)

	event, err := ParseInbound(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Kind != EventChatTyping || event.Typing == nil {
		t.Fatalf("expected typing event, got %+v", event)
	}
	if !event.Typing.IsTyping {
		t.Error("expected isTyping=true")
	}
}

func TestParseInboundRejectsUnknownEvent(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"unknown event name", `{"event":"presence:snapshot","data":{}}`},
		{"missing event name", `{"data":{"chatId":"c1"}}`},
		{"invalid json", `{"event":`},
		{"non-object payload", `{"event":"chat:message","data":"hello"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseInbound([]byte(tc.raw)); !errors.Is(err, ErrMalformedEvent) {
				t.Errorf("expected ErrMalformedEvent, got %v", err)
			}
		})
	}
}
