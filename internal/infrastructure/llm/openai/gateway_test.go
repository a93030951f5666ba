package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/resilience"
)

func completionBody(content string) string {
	payload := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func newTestGateway(serverURL string, cfg Config) *Gateway {
	cfg.BaseURL = serverURL + "/v1/"
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	return New(cfg, resilience.NewExecutor(resilience.Config{BreakerEnabled: false}))
}

func TestCompleteSendsTaskParameters(t *testing.T) {
	var captured map[string]any
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`{"isPOA":true,"poaType":"General Power of Attorney","confidence":"high"}`)))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL, Config{})
	out, err := gw.Complete(context.Background(), "system text", "user text", domain.ClassifyTask())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !strings.Contains(out, `"isPOA":true`) {
		t.Fatalf("unexpected content %q", out)
	}
	if authHeader != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", authHeader)
	}
	if captured["model"] != DefaultModel {
		t.Fatalf("unexpected model %v", captured["model"])
	}
	if captured["temperature"] != 0.1 {
		t.Fatalf("unexpected temperature %v", captured["temperature"])
	}
	if captured["max_completion_tokens"] != float64(500) {
		t.Fatalf("unexpected max tokens %v", captured["max_completion_tokens"])
	}
	format, _ := captured["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", captured["response_format"])
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected two messages, got %v", captured["messages"])
	}
	first, _ := messages[0].(map[string]any)
	second, _ := messages[1].(map[string]any)
	if first["role"] != "system" || first["content"] != "system text" || second["role"] != "user" || second["content"] != "user text" {
		t.Fatalf("unexpected messages %v", messages)
	}
}

func TestCompleteUsesAnalyzeParameters(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`{"summary":"ok"}`)))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL, Config{Analyze: TaskParams{Model: "gpt-4o"}})
	if _, err := gw.Complete(context.Background(), "s", "u", domain.AnalyzeTask("Texas")); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if captured["model"] != "gpt-4o" || captured["temperature"] != 0.2 || captured["max_completion_tokens"] != float64(2000) {
		t.Fatalf("unexpected analyze params: %v", captured)
	}
}

func TestCompleteNon2xxIsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL, Config{})
	_, err := gw.Complete(context.Background(), "s", "u", domain.ClassifyTask())
	if !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("   ")))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL, Config{})
	_, err := gw.Complete(context.Background(), "s", "u", domain.ClassifyTask())
	if !errors.Is(err, domain.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	gw := newTestGateway(server.URL, Config{Classify: TaskParams{Timeout: 50 * time.Millisecond}})
	_, err := gw.Complete(context.Background(), "s", "u", domain.ClassifyTask())
	if !errors.Is(err, domain.ErrGateway) || !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected gateway timeout, got %v", err)
	}
}

func TestCompleteWithoutAPIKey(t *testing.T) {
	gw := New(Config{}, nil)
	gw.apiKey = ""
	_, err := gw.Complete(context.Background(), "s", "u", domain.ClassifyTask())
	if !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
}

func TestClassifyOpenAIErrorForContext(t *testing.T) {
	class := classifyOpenAIError(context.DeadlineExceeded)
	if class.Retryable || class.RecordFailure {
		t.Fatalf("deadline must be neither retryable nor recorded: %+v", class)
	}
}
