// SPDX-License-Identifier: Apache-2.0

package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/llm"
)

func TestNewProvider(t *testing.T) {
	p := New(WithAPIKey("test-key"))
	if p.model != "claude-sonnet-4-20250514" {
		t.Errorf("expected model claude-sonnet-4-20250514, got %s", p.model)
	}
	if p.maxTokens != 4096 {
		t.Errorf("expected maxTokens 4096, got %d", p.maxTokens)
	}
}

func TestOptions(t *testing.T) {
	p := New(WithAPIKey("k"), WithModel("claude-opus-4-20250514"), WithMaxTokens(8192))
	if p.model != "claude-opus-4-20250514" {
		t.Errorf("expected model claude-opus-4-20250514, got %s", p.model)
	}
	if p.maxTokens != 8192 {
		t.Errorf("expected maxTokens 8192, got %d", p.maxTokens)
	}
}

func TestChatSendsSystemSeparately(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "[]"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 2}
		}`))
	}))
	defer srv.Close()

	p := New(WithAPIKey("k"), WithBaseURL(srv.URL))
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: llm.UserMessages("be terse", "plan"),
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "[]" || resp.Usage.TotalTokens != 12 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, ok := got["system"]; !ok {
		t.Fatalf("system prompt not sent: %v", got)
	}
	if msgs, _ := got["messages"].([]any); len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", got["messages"])
	}
}
