package llm

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/models"
)

const (
	EventRequest        = "request"
	EventResponse       = "response"
	EventError          = "error"
	EventRequestStream  = "request_stream"
	EventResponseStream = "response_stream"
	EventErrorStream    = "error_stream"
)

// AuditSink persists audit entries.
type AuditSink interface {
	Write(ctx context.Context, e *models.LLMAuditEntry) error
}

// SinkFunc adapts a plain function (ex: a repository method) to AuditSink.
type SinkFunc func(ctx context.Context, e *models.LLMAuditEntry) error

func (f SinkFunc) Write(ctx context.Context, e *models.LLMAuditEntry) error { return f(ctx, e) }

// MultiSink writes to every sink and returns the first error.
type MultiSink []AuditSink

func (m MultiSink) Write(ctx context.Context, e *models.LLMAuditEntry) error {
	var first error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// FileAuditSink writes one JSON line per entry through a dedicated logger
// (see logger.NewRotating).
type FileAuditSink struct {
	l *logrus.Logger
}

func NewFileAuditSink(l *logrus.Logger) *FileAuditSink {
	return &FileAuditSink{l: l}
}

func (s *FileAuditSink) Write(_ context.Context, e *models.LLMAuditEntry) error {
	fields := logrus.Fields{
		"request_id":  e.RequestID,
		"event":       e.Event,
		"provider":    e.Provider,
		"temperature": e.Temperature,
	}
	if e.SystemPrompt != "" {
		fields["system_prompt"] = e.SystemPrompt
	}
	if e.UserPrompt != "" {
		fields["user_prompt"] = e.UserPrompt
	}
	if e.RawResponse != "" {
		fields["raw_response"] = e.RawResponse
	}
	if e.DurationMS > 0 {
		fields["duration_ms"] = e.DurationMS
	}

	entry := s.l.WithFields(fields).WithTime(e.Timestamp)
	if e.Error != "" {
		entry.WithField("error", e.Error).Error("llm")
		return nil
	}
	entry.Info("llm")
	return nil
}

type AuditOptions struct {
	MaxFieldBytes int           // per text field; default 16 KiB
	TTL           time.Duration // sets ExpiresAt; default 30 days
	QueueSize     int           // default 256
	WriteTimeout  time.Duration // per sink write; default 5s
}

// AsyncAuditor hands entries to a sink from a background goroutine.
// Record never blocks: entries are dropped when the queue is full, and sink
// errors are logged, never returned.
type AsyncAuditor struct {
	sink AuditSink
	opts AuditOptions
	log  *logrus.Logger

	mu      sync.RWMutex
	closed  bool
	entries chan *models.LLMAuditEntry
	done    chan struct{}
}

func NewAsyncAuditor(sink AuditSink, opts AuditOptions, l *logrus.Logger) *AsyncAuditor {
	if opts.MaxFieldBytes <= 0 {
		opts.MaxFieldBytes = 16 << 10
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * 24 * time.Hour
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if l == nil {
		l = logrus.New()
	}

	a := &AsyncAuditor{
		sink:    sink,
		opts:    opts,
		log:     l,
		entries: make(chan *models.LLMAuditEntry, opts.QueueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncAuditor) run() {
	defer close(a.done)
	for e := range a.entries {
		a.write(e)
	}
}

func (a *AsyncAuditor) write(e *models.LLMAuditEntry) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Warn("llm audit sink panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), a.opts.WriteTimeout)
	defer cancel()
	if err := a.sink.Write(ctx, e); err != nil {
		a.log.WithError(err).WithField("event", e.Event).Warn("llm audit write failed")
	}
}

func (a *AsyncAuditor) Record(e *models.LLMAuditEntry) {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.ExpiresAt = e.Timestamp.Add(a.opts.TTL)
	e.SystemPrompt = truncate(e.SystemPrompt, a.opts.MaxFieldBytes)
	e.UserPrompt = truncate(e.UserPrompt, a.opts.MaxFieldBytes)
	e.RawResponse = truncate(e.RawResponse, a.opts.MaxFieldBytes)
	e.Error = truncate(e.Error, a.opts.MaxFieldBytes)

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.entries <- e:
	default:
		a.log.WithField("event", e.Event).Debug("llm audit queue full, entry dropped")
	}
}

// Close flushes queued entries and stops the writer.
func (a *AsyncAuditor) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.entries)
	a.mu.Unlock()
	<-a.done
}

const truncatedSuffix = "...[truncated]"

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedSuffix
}
