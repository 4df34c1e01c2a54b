package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

func completionServer(t *testing.T, handle func(w http.ResponseWriter, req completionRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		handle(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeAnswer(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}}},
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": msg, "type": "error"}})
}

func TestOpenAIClientChat(t *testing.T) {
	var got completionRequest
	srv := completionServer(t, func(w http.ResponseWriter, req completionRequest) {
		got = req
		writeAnswer(w, "您好")
	})
	c := NewOpenAIClient(ProviderConfig{Name: "kimi", BaseURL: srv.URL + "/v1/", APIKey: "k", Model: "moonshot-v1-128k", Temperature: 0.25, MaxTokens: 8500})

	answer, err := c.Chat(context.Background(), []Message{{Role: "system", Content: "s"}, {Role: "tool", Content: "u"}}, Options{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "您好" {
		t.Fatalf("answer = %q", answer)
	}
	if got.Model != "moonshot-v1-128k" || got.MaxTokens != 8500 || got.Temperature != 0.25 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Messages[1].Role != RoleUser {
		t.Fatalf("unknown role not coerced: %+v", got.Messages[1])
	}

	if _, err := c.Chat(context.Background(), nil, Options{Model: "moonshot-v1-8k", Temperature: 0.7, MaxTokens: 500}); err != nil {
		t.Fatalf("Chat with options: %v", err)
	}
	if got.Model != "moonshot-v1-8k" || got.MaxTokens != 500 || got.Temperature != 0.7 {
		t.Fatalf("options not applied: %+v", got)
	}
}

func TestOpenAIClientEmptyCompletion(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, _ completionRequest) { writeAnswer(w, "  ") })
	c := NewOpenAIClient(ProviderConfig{BaseURL: srv.URL + "/v1"})
	if _, err := c.Chat(context.Background(), nil, Options{}); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		status int
		want   Failure
	}{
		{http.StatusTooManyRequests, FailureRateLimited},
		{http.StatusBadGateway, FailureServer},
		{http.StatusUnauthorized, FailureClient},
	}
	for _, tc := range cases {
		srv := completionServer(t, func(w http.ResponseWriter, _ completionRequest) { writeError(w, tc.status, "quota") })
		c := NewOpenAIClient(ProviderConfig{BaseURL: srv.URL + "/v1"})
		_, err := c.Chat(context.Background(), nil, Options{})
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		f, msg := Classify(err)
		if f != tc.want {
			t.Fatalf("status %d: class = %v, want %v", tc.status, f, tc.want)
		}
		if tc.status == http.StatusUnauthorized && msg != "quota" {
			t.Fatalf("message = %q", msg)
		}
	}
	if f, _ := Classify(errors.New("dial tcp: refused")); f != FailureNoResponse {
		t.Fatalf("network error class = %v", f)
	}
}

func TestRetryClient(t *testing.T) {
	var calls int32
	srv := completionServer(t, func(w http.ResponseWriter, _ completionRequest) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeError(w, http.StatusServiceUnavailable, "busy")
			return
		}
		writeAnswer(w, "ok")
	})
	c := NewRetryClient(NewOpenAIClient(ProviderConfig{BaseURL: srv.URL + "/v1"}), 3, time.Millisecond)
	answer, err := c.Chat(context.Background(), nil, Options{})
	if err != nil || answer != "ok" {
		t.Fatalf("answer=%q err=%v", answer, err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestRetryClientStopsOnClientError(t *testing.T) {
	var calls int32
	srv := completionServer(t, func(w http.ResponseWriter, _ completionRequest) {
		atomic.AddInt32(&calls, 1)
		writeError(w, http.StatusBadRequest, "bad")
	})
	c := NewRetryClient(NewOpenAIClient(ProviderConfig{BaseURL: srv.URL + "/v1"}), 3, time.Millisecond)
	if _, err := c.Chat(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d", calls)
	}
}
