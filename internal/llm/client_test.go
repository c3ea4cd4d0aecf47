package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return New(cfg)
}

func TestChatParsesTextResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "grok-4-1-fast-non-reasoning", req.Model)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}],
			"usage": {"total_tokens": 12}
		}`))
	})

	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{TextMessage("user", "hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestChatParsesToolCalls(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "generate_ad_image", "arguments": "{\"image_prompt\": \"a fox\", \"ad_copy\": \"buy foxes\"}"}}]},
				"finish_reason": "tool_calls"}]
		}`))
	})

	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{TextMessage("user", "go")},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "generate_ad_image", resp.ToolCalls[0].Function.Name)
	assert.Equal(t, "tool_calls", resp.FinishReason)

	var args map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.ToolCalls[0].Function.Arguments), &args))
	assert.Equal(t, "a fox", args["image_prompt"])
	assert.Equal(t, "buy foxes", args["ad_copy"])
}

func TestChatHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	})

	_, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{TextMessage("user", "hi")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatNoAPIKey(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost:1"})
	_, err := client.Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}

func TestVisionUsesVisionModel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "grok-2-vision-1212", req.Model)
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}]}`))
	})

	resp, err := client.Vision(context.Background(), ChatRequest{
		Messages: []Message{VisionMessage(ImagePart("https://img.example/a.png"), TextPart("describe"))},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestVisionMessageMarshalsParts(t *testing.T) {
	msg := VisionMessage(ImagePart("https://img.example/a.png"), TextPart("look"))
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"image_url"`)
	assert.Contains(t, string(data), `"detail":"high"`)
	assert.Contains(t, string(data), `"type":"text"`)
}

func TestGenerateImageReturnsURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "grok-2-image", req["model"])
		assert.Equal(t, "url", req["response_format"])

		w.Write([]byte(`{"data": [{"url": "https://imgen.example/out.png"}]}`))
	})

	url, err := client.GenerateImage(context.Background(), "a neon fox")
	require.NoError(t, err)
	assert.Equal(t, "https://imgen.example/out.png", url)
}

func TestGenerateImageEmptyData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	})

	_, err := client.GenerateImage(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no URL")
}
