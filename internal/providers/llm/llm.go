package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is one generation call: a system context, a user context and a sampling temperature.
type Request struct {
	System      string
	User        string
	Temperature float32
}

type Provider interface {
	Name() string
	// Complete returns the whole reply text.
	Complete(ctx context.Context, req Request) (string, error)
	// CompleteStream returns a stream of text fragments (incremental).
	// Fragments are sent in receipt order; the chunks channel is closed when the
	// backend ends the stream, after which errs yields at most one error.
	// Producers stop when ctx is cancelled.
	CompleteStream(ctx context.Context, req Request) (chunks <-chan string, errs <-chan error)
	Close() error
}

// ErrEmptyResponse is returned by providers when the reply carries no text content.
var ErrEmptyResponse = errors.New("llm: reply has no text content")

// StatusError is a non-2xx reply from an HTTP backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: backend returned status %d: %s", e.StatusCode, e.Body)
}
