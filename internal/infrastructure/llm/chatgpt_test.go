package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"NewsDigest/internal/config"
	"NewsDigest/internal/ports"
)

func TestCompleteSendsRequestAndReturnsText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "gpt-4o" || req.Temperature != 0.7 || req.MaxTokens != 300 {
			t.Errorf("unexpected request: %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Content != "configured prompt" || req.Messages[1].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  SNIPPET: ok  "}}]}`))
	}))
	defer server.Close()

	c := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "gpt-4o", APIKey: "key", SystemPrompt: "configured prompt"})
	text, err := c.Complete(context.Background(), ports.CompletionRequest{Prompt: "hello", Temperature: 0.7, MaxTokens: 300})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != "SNIPPET: ok" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestCompleteDoesNotRetry(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "m", APIKey: "key"})
	if _, err := c.Complete(context.Background(), ports.CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatalf("expected error on 429")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c := NewChatGPTClient(config.ChatGPTConfig{Endpoint: server.URL, Model: "m", APIKey: "key"})
	if _, err := c.Complete(context.Background(), ports.CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatalf("expected error for empty choices")
	}

	var unconfigured *ChatGPTClient
	if _, err := unconfigured.Complete(context.Background(), ports.CompletionRequest{}); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
