package llm

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/darklens/internal/schema"
)

func openAIReply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:      "chatcmpl-123",
		Object:  "chat.completion",
		Created: 1677652288,
		Model:   "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{
			{
				Index: 0,
				Message: openai.ChatCompletionMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: openai.Usage{TotalTokens: 1200},
	}
}

func TestOpenAIProvider_Analyze_Success(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}
		raw, _ := io.ReadAll(r.Body)
		body = decodeBody(raw)
		_ = json.NewEncoder(w).Encode(openAIReply(auditJSON))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if resp.Content != strings.TrimSpace(auditJSON) {
		t.Errorf("Unexpected content: %s", resp.Content)
	}
	if resp.TokensUsed != 1200 {
		t.Errorf("Expected 1200 tokens, got %d", resp.TokensUsed)
	}

	if temp, _ := body["temperature"].(float64); math.Abs(temp-0.2) > 1e-6 {
		t.Errorf("Expected temperature 0.2, got %v", body["temperature"])
	}

	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("Expected json_schema response format, got %v", format["type"])
	}
	js, _ := format["json_schema"].(map[string]any)
	if js["name"] != schema.Name || js["strict"] != true {
		t.Errorf("Unexpected json_schema block: %v", js)
	}

	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	user, _ := messages[1].(map[string]any)
	parts, _ := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("Expected text and image parts, got %v", user["content"])
	}
	image, _ := parts[1].(map[string]any)
	imageURL, _ := image["image_url"].(map[string]any)
	url, _ := imageURL["url"].(string)
	if !strings.HasPrefix(url, "data:image/png;base64,iVBORw0KGgo") {
		t.Errorf("Expected PNG data URI, got %.40s", url)
	}
}

func TestOpenAIProvider_Analyze_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})

	_, err := provider.Analyze(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "OpenAI API error") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestOpenAIProvider_Analyze_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply := openAIReply("")
		reply.Choices = nil
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})

	if _, err := provider.Analyze(context.Background(), testRequest()); err == nil {
		t.Fatal("Expected error for empty choices")
	}
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{})
	if err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			_ = json.NewEncoder(w).Encode(openai.ModelsList{Models: []openai.Model{{ID: "gpt-4o-mini"}}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}
}

func TestOpenAIProvider_Analyze_ZeroTemperatureSent(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = decodeBody(raw)
		_ = json.NewEncoder(w).Encode(openAIReply(auditJSON))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	req := testRequest()
	req.Temperature = 0
	if _, err := provider.Analyze(context.Background(), req); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	temp, ok := body["temperature"].(float64)
	if !ok {
		t.Fatalf("Expected temperature on the wire, got %v", body["temperature"])
	}
	if temp > 1e-6 {
		t.Errorf("Expected near-zero temperature, got %v", temp)
	}
}
