package textgen_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/textgen"
)

func completionServer(t *testing.T, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var body map[string]any
	srv := completionServer(t, "  Hi Ada, quick question.  ", &body)

	gen := &textgen.OpenAIGenerator{Model: "gpt-4o-mini", BaseURL: srv.URL + "/"}
	text, err := gen.Generate(context.Background(), textgen.Request{
		APIKey: "sk-test",
		System: textgen.EmailSystemPrompt,
		Prompt: "Write to Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, quick question.", text)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Len(t, body["messages"], 2)
}

func TestOpenAIGenerator_EmptyCompletion(t *testing.T) {
	srv := completionServer(t, "   ", nil)

	gen := &textgen.OpenAIGenerator{Model: "gpt-4o-mini", BaseURL: srv.URL + "/"}
	_, err := gen.Generate(context.Background(), textgen.Request{APIKey: "sk-test", Prompt: "x"})
	assert.ErrorIs(t, err, textgen.ErrEmptyCompletion)
}
