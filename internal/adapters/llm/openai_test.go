package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
)

func completionServer(t *testing.T, content string, inspect func(body map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if inspect != nil {
			inspect(body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]interface{}{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestOpenAIDispatcher_Chat(t *testing.T) {
	server := completionServer(t, "Xin chào!", func(body map[string]any) {
		if body["model"] != "test-model" {
			t.Errorf("unexpected model: %v", body["model"])
		}
		messages, _ := body["messages"].([]any)
		if len(messages) != 2 {
			t.Errorf("expected system and user messages, got %v", messages)
		}
	})
	defer server.Close()

	d := NewOpenAIDispatcher(server.URL+"/v1", "key", "test-model", nil)
	resp, err := d.Dispatch(context.Background(), ports.WebhookCall{
		Endpoint: "openai",
		Payload:  &entities.ChatPayload{UserMessage: "hello", Context: "You are helpful."},
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !resp.IsSuccess() || !resp.IsJSON() {
		t.Errorf("unexpected response: %+v", resp)
	}
	if string(resp.Body) != `{"output":"Xin chào!"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}
}

func TestOpenAIDispatcher_Recommendations(t *testing.T) {
	content := `{"data":[{"product_name":"Google Pixel 8","image_url":"i","price":"15.990.000₫","product_url":"u"}]}`
	server := completionServer(t, content, func(body map[string]any) {
		if _, ok := body["response_format"]; !ok {
			t.Error("expected a structured response format")
		}
	})
	defer server.Close()

	d := NewOpenAIDispatcher(server.URL+"/v1", "key", "test-model", nil)
	resp, err := d.Dispatch(context.Background(), ports.WebhookCall{
		Payload: &entities.RecommendationPayload{UserEmail: "a@b.com", Category: "digital", Limit: 1},
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if string(resp.Body) != content {
		t.Errorf("unexpected body: %s", resp.Body)
	}
}

func TestOpenAIDispatcher_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error","code":"model_not_found"}}`))
	}))
	defer server.Close()

	d := NewOpenAIDispatcher(server.URL+"/v1", "key", "missing", nil)
	resp, err := d.Dispatch(context.Background(), ports.WebhookCall{
		Payload: &entities.ChatPayload{UserMessage: "hi"},
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("api errors should become responses: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected status: %d", resp.StatusCode)
	}
}

func TestOpenAIDispatcher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer server.CloseClientConnections()

	d := NewOpenAIDispatcher(server.URL+"/v1", "key", "m", nil)
	_, err := d.Dispatch(context.Background(), ports.WebhookCall{
		Endpoint: "openai",
		Payload:  &entities.ChatPayload{UserMessage: "hi"},
		Timeout:  50 * time.Millisecond,
	})
	var timeoutErr *entities.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestOpenAIDispatcher_UnsupportedPayload(t *testing.T) {
	d := NewOpenAIDispatcher("http://127.0.0.1:1/v1", "key", "m", nil)
	if _, err := d.Dispatch(context.Background(), ports.WebhookCall{Payload: "text"}); err == nil {
		t.Fatal("expected an error for an unknown payload")
	}
}
