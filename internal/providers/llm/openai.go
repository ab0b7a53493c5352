package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIBaseURL = "https://api.deepseek.com"
	DefaultOpenAIModel   = "deepseek-chat"
)

// OpenAICompatible talks to any chat-completions endpoint (DeepSeek, OpenAI, Ollama /v1).
type OpenAICompatible struct {
	client *openai.Client
	model  string
}

func NewOpenAICompatible(apiKey, baseURL, model string) *OpenAICompatible {
	return NewOpenAICompatibleWithClient(apiKey, baseURL, model, &http.Client{})
}

func NewOpenAICompatibleWithClient(apiKey, baseURL, model string, client HTTPClient) *OpenAICompatible {
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = normalizeBaseURL(baseURL)
	cfg.HTTPClient = client
	return &OpenAICompatible{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// normalizeBaseURL accepts either an API root or a full chat-completions URL.
func normalizeBaseURL(base string) string {
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	base = strings.TrimRight(base, "/")
	return strings.TrimSuffix(base, "/chat/completions")
}

func (o *OpenAICompatible) Name() string { return "openai:" + o.model }

func (o *OpenAICompatible) Close() error { return nil }

func (o *OpenAICompatible) chatRequest(req Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
	}
}

// statusError turns the library's HTTP failures into *StatusError.
func statusError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return err
}

func (o *OpenAICompatible) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.chatRequest(req))
	if err != nil {
		return "", statusError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAICompatible) CompleteStream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		stream, err := o.client.CreateChatCompletionStream(ctx, o.chatRequest(req))
		if err != nil {
			errs <- statusError(err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errs <- fmt.Errorf("read stream: %w", err)
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case out <- choice.Delta.Content:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return out, errs
}

var _ Provider = (*OpenAICompatible)(nil)
