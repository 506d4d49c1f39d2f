package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestOpenAIServiceGenerateContent(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-test",
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": testFeedbackJSON}},
			},
		})
	}))
	defer server.Close()

	svc, err := NewOpenAIService("test-key", server.URL)
	if err != nil {
		t.Fatalf("NewOpenAIService failed: %v", err)
	}
	schema, err := NewResponseSchema("ProcessFeedback", ProcessFeedback{})
	if err != nil {
		t.Fatalf("NewResponseSchema failed: %v", err)
	}

	candidates, err := svc.GenerateContent(context.Background(), GenerateRequest{
		Model:  "gpt-test",
		Schema: schema,
		Parts:  []Part{TextPart("REFLECT"), FilePart("https://example.com/frame.png", "image/png")},
	})
	if err != nil {
		t.Fatalf("GenerateContent failed: %v", err)
	}

	text, err := firstText(candidates)
	if err != nil {
		t.Fatalf("firstText failed: %v", err)
	}
	var fb ProcessFeedback
	if err := schema.Decode(text, &fb); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if fb.Rating != 4 {
		t.Errorf("Rating = %d, want 4", fb.Rating)
	}

	if got["model"] != "gpt-test" {
		t.Errorf("model = %v", got["model"])
	}
	format, _ := got["response_format"].(map[string]any)
	if format["type"] != string(openai.ChatCompletionResponseFormatTypeJSONSchema) {
		t.Errorf("Expected a json_schema response format, got %v", format)
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("Unexpected messages: %v", got["messages"])
	}
	content, _ := messages[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Errorf("Expected 2 content parts, got %v", content)
	}
}

func TestOpenAIServiceHasNoCache(t *testing.T) {
	svc, err := NewOpenAIService("test-key", "")
	if err != nil {
		t.Fatalf("NewOpenAIService failed: %v", err)
	}
	_, err = svc.CreateCachedContent(context.Background(), CacheRequest{Model: "gpt-test"})
	if !errors.Is(err, ErrCacheIneligible) {
		t.Errorf("Expected ErrCacheIneligible, got %v", err)
	}

	if _, err := NewOpenAIService("", ""); err == nil {
		t.Error("Expected an error without an API key")
	}
}

func TestChatParts(t *testing.T) {
	parts, err := chatParts([]Part{
		TextPart("hello"),
		FilePart("https://example.com/frame.png", "image/png"),
	})
	if err != nil {
		t.Fatalf("chatParts failed: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("Expected 2 parts, got %d", len(parts))
	}
	if parts[0].Type != openai.ChatMessagePartTypeText || parts[0].Text != "hello" {
		t.Errorf("Unexpected text part: %+v", parts[0])
	}
	if parts[1].Type != openai.ChatMessagePartTypeImageURL || parts[1].ImageURL.URL != "https://example.com/frame.png" {
		t.Errorf("Unexpected image part: %+v", parts[1])
	}
}

func TestOpenAIServiceRejectsVideo(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		http.Error(w, "unexpected request", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc, err := NewOpenAIService("test-key", server.URL)
	if err != nil {
		t.Fatalf("NewOpenAIService failed: %v", err)
	}
	_, err = svc.GenerateContent(context.Background(), GenerateRequest{
		Model: "gpt-test",
		Parts: []Part{
			TextPart("<VIDEO>"),
			FilePart("gs://bucket/clip.mp4", "video/mp4"),
			TextPart("</VIDEO>"),
		},
	})
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("Expected ErrUnsupportedMedia, got %v", err)
	}
	if !strings.Contains(err.Error(), "video/mp4") {
		t.Errorf("Expected the MIME type in %q", err)
	}
	if called {
		t.Error("Expected no request to reach the endpoint")
	}
}
