package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/models"
	"github.com/bcllcc/MockMate/internal/utils"
)

// Auditor receives one entry per backend request, response and failure.
type Auditor interface {
	Record(e *models.LLMAuditEntry)
}

// Client is the generative backend client shared by every session. It holds
// no session state.
type Client struct {
	provider Provider
	auditor  Auditor
	log      *logrus.Logger
}

func NewClient(p Provider, auditor Auditor, l *logrus.Logger) *Client {
	if l == nil {
		l = logrus.New()
	}
	return &Client{provider: p, auditor: auditor, log: l}
}

func (c *Client) Provider() Provider { return c.provider }

func (c *Client) audit(id, event string, req Request, raw string, err error, dur time.Duration) {
	if c.auditor == nil {
		return
	}
	e := &models.LLMAuditEntry{
		RequestID:    id,
		Event:        event,
		Provider:     c.provider.Name(),
		SystemPrompt: req.System,
		UserPrompt:   req.User,
		Temperature:  req.Temperature,
		RawResponse:  raw,
		DurationMS:   dur.Milliseconds(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	c.auditor.Record(e)
}

// classify maps a provider error onto the backend taxonomy.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return utils.E(utils.CodeBadGateway, op, "LLM returned empty content", errors.Join(utils.ErrBackendMalformed, err))
	case errors.Is(err, context.DeadlineExceeded):
		return utils.E(utils.CodeTimeout, op, "LLM request timed out", errors.Join(utils.ErrBackendUnavailable, err))
	default:
		return utils.E(utils.CodeUnavailable, op, "LLM request failed", errors.Join(utils.ErrBackendUnavailable, err))
	}
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	const op = "llm.Complete"

	id := uuid.NewString()
	c.audit(id, EventRequest, req, "", nil, 0)

	start := time.Now()
	text, err := c.provider.Complete(ctx, req)
	dur := time.Since(start)
	if err != nil {
		c.audit(id, EventError, req, "", err, dur)
		c.log.WithError(err).WithFields(logrus.Fields{"op": op, "provider": c.provider.Name()}).Warn("llm request failed")
		return "", classify(op, err)
	}
	if strings.TrimSpace(text) == "" {
		c.audit(id, EventError, req, text, ErrEmptyResponse, dur)
		return "", classify(op, ErrEmptyResponse)
	}

	c.audit(id, EventResponse, req, text, nil, dur)
	return text, nil
}

// CompleteJSON asks for a reply and extracts the structured document from it.
func (c *Client) CompleteJSON(ctx context.Context, req Request) (map[string]any, error) {
	text, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return ParseStructured(text)
}

// CompleteStream forwards the provider's fragments, skipping empty ones, and
// reports a classified error once the stream ends. The full text is audited
// after the stream is drained. Cancel ctx to stop early.
func (c *Client) CompleteStream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	const op = "llm.CompleteStream"

	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		id := uuid.NewString()
		c.audit(id, EventRequestStream, req, "", nil, 0)

		start := time.Now()
		chunks, perrs := c.provider.CompleteStream(ctx, req)

		var full strings.Builder
		var streamErr error
	recv:
		for chunk := range chunks {
			if chunk == "" {
				continue
			}
			full.WriteString(chunk)
			select {
			case out <- chunk:
			case <-ctx.Done():
				streamErr = ctx.Err()
				break recv
			}
		}
		if streamErr != nil {
			// let the provider observe the cancellation and exit
			for range chunks {
			}
		}
		if err, ok := <-perrs; ok && err != nil && streamErr == nil {
			streamErr = err
		}

		dur := time.Since(start)
		if streamErr != nil {
			c.audit(id, EventErrorStream, req, full.String(), streamErr, dur)
			c.log.WithError(streamErr).WithFields(logrus.Fields{"op": op, "provider": c.provider.Name()}).Warn("llm stream failed")
			errs <- classify(op, streamErr)
			return
		}
		c.audit(id, EventResponseStream, req, full.String(), nil, dur)
	}()

	return out, errs
}

// Drain collects a stream into one string. It returns the text gathered so far
// together with the stream error, if any.
func Drain(chunks <-chan string, errs <-chan error) (string, error) {
	var b strings.Builder
	for chunk := range chunks {
		b.WriteString(chunk)
	}
	if err, ok := <-errs; ok && err != nil {
		return b.String(), err
	}
	return b.String(), nil
}
