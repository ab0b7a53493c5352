package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.deepseek.com", normalizeBaseURL(""))
	assert.Equal(t, "http://localhost:11434/v1", normalizeBaseURL("http://localhost:11434/v1/"))
	assert.Equal(t, "https://x.test", normalizeBaseURL("https://x.test/chat/completions"))
}

func TestOpenAICompatible_Complete(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAICompatibleWithClient("key", srv.URL, "test-model", srv.Client())
	text, err := p.Complete(context.Background(), Request{System: "sys", User: "usr", Temperature: 0.4})
	require.NoError(t, err)

	assert.Equal(t, "hello", text)
	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.4, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
}

func TestOpenAICompatible_CompleteEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	p := NewOpenAICompatibleWithClient("", srv.URL, "", srv.Client())
	_, err := p.Complete(context.Background(), Request{User: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAICompatible_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAICompatibleWithClient("", srv.URL, "", srv.Client())
	_, err := p.Complete(context.Background(), Request{User: "x"})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
}

func TestOpenAICompatible_CompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "", "lo", " world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAICompatibleWithClient("", srv.URL, "", srv.Client())
	chunks, errs := p.CompleteStream(context.Background(), Request{User: "x"})

	var got []string
	for c := range chunks {
		got = append(got, c)
	}
	assert.Equal(t, []string{"Hel", "lo", " world"}, got)
	assert.NoError(t, <-errs)
}

func TestOpenAICompatible_CompleteStreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenAICompatibleWithClient("", srv.URL, "", srv.Client())
	text, err := Drain(p.CompleteStream(context.Background(), Request{User: "x"}))

	assert.Empty(t, text)
	var se *StatusError
	assert.ErrorAs(t, err, &se)
}

func TestOpenAICompatible_CompleteStreamMalformedFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAICompatibleWithClient("", srv.URL, "", srv.Client())
	text, err := Drain(p.CompleteStream(context.Background(), Request{User: "x"}))

	assert.Equal(t, "Hel", text)
	assert.Error(t, err)
}
