package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bcllcc/MockMate/internal/lock"
	"github.com/bcllcc/MockMate/internal/models"
	"github.com/bcllcc/MockMate/internal/providers/llm"
	pgrepo "github.com/bcllcc/MockMate/internal/repositories/postgres"
)

const (
	kindQuestions = "questions"
	kindOpening   = "opening"
	kindFollowUp  = "follow_up"
	kindFeedback  = "feedback"
	kindResume    = "resume"
)

// scriptedBackend is an llm.Provider that answers by request kind.
type scriptedBackend struct {
	mu sync.Mutex

	questions []string
	// followUps is consumed one entry per decision; "" means no follow-up.
	// When exhausted, every decision is "no follow-up".
	followUps      []string
	alwaysFollowUp string
	opening        string
	feedback       string
	resume         string

	fail  map[string]error
	block map[string]bool // streams of this kind wait for cancellation
	// breakAfter cuts streams of this kind after n bytes with the given error.
	breakAfter map[string]streamBreak
	calls map[string]int
}

func newScriptedBackend(questions ...string) *scriptedBackend {
	return &scriptedBackend{
		questions: questions,
		opening:   "Welcome! To start, tell me about yourself.",
		feedback:  `{"overall_score": 78, "summary": "Solid answers.", "strengths": ["clear"], "weaknesses": ["brief"], "suggestions": ["add metrics"]}`,
		resume:    `{"summary": {"headline": "Go engineer", "overview": "Backend work.", "insights": ["ships"]}, "skills": ["go"], "highlights": ["scaled API"]}`,
		fail:      map[string]error{},
		block:     map[string]bool{},
		calls:     map[string]int{},

		breakAfter: map[string]streamBreak{},
	}
}

type streamBreak struct {
	n   int
	err error
}

func kindOf(req llm.Request) string {
	switch {
	case strings.Contains(req.System, "`questions` array"):
		return kindQuestions
	case strings.Contains(req.System, "opening a mock interview"):
		return kindOpening
	case strings.Contains(req.System, "follow-up question is needed"):
		return kindFollowUp
	case strings.Contains(req.System, "evaluate mock interviews"):
		return kindFeedback
	case strings.Contains(req.System, "resume analyst"):
		return kindResume
	}
	return "unknown"
}

func (b *scriptedBackend) Name() string { return "scripted" }
func (b *scriptedBackend) Close() error { return nil }

func (b *scriptedBackend) count(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[kind]
}

func (b *scriptedBackend) reply(req llm.Request) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kind := kindOf(req)
	b.calls[kind]++
	if err := b.fail[kind]; err != nil {
		return kind, "", err
	}

	switch kind {
	case kindQuestions:
		type q struct {
			Text  string `json:"text"`
			Topic string `json:"topic"`
		}
		items := make([]q, 0, len(b.questions))
		for i, text := range b.questions {
			items = append(items, q{Text: text, Topic: fmt.Sprintf("topic-%d", i+1)})
		}
		raw, _ := json.Marshal(map[string]any{"questions": items})
		return kind, "```json\n" + string(raw) + "\n```", nil
	case kindOpening:
		return kind, b.opening, nil
	case kindFollowUp:
		next := b.alwaysFollowUp
		if len(b.followUps) > 0 {
			next, b.followUps = b.followUps[0], b.followUps[1:]
		}
		if next == "" {
			return kind, `{"follow_up": null}`, nil
		}
		raw, _ := json.Marshal(map[string]any{"follow_up": next, "topic": "deep-dive"})
		return kind, string(raw), nil
	case kindFeedback:
		return kind, b.feedback, nil
	case kindResume:
		return kind, b.resume, nil
	}
	return kind, "", llm.ErrEmptyResponse
}

func (b *scriptedBackend) Complete(ctx context.Context, req llm.Request) (string, error) {
	_, text, err := b.reply(req)
	return text, err
}

func (b *scriptedBackend) CompleteStream(ctx context.Context, req llm.Request) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)
	kind, text, err := b.reply(req)

	b.mu.Lock()
	block := b.block[kind]
	brk, broken := b.breakAfter[kind]
	b.mu.Unlock()
	if broken && err == nil && brk.n < len(text) {
		text = text[:brk.n]
	}

	go func() {
		defer close(out)
		defer close(errs)
		if err != nil {
			errs <- err
			return
		}
		for len(text) > 0 {
			n := 4
			if n > len(text) {
				n = len(text)
			}
			select {
			case out <- text[:n]:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
			text = text[n:]
		}
		if broken {
			errs <- brk.err
			return
		}
		if block {
			<-ctx.Done()
			errs <- ctx.Err()
		}
	}()
	return out, errs
}

var _ llm.Provider = (*scriptedBackend)(nil)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, pgrepo.Migrate(db))
	return db
}

type fixture struct {
	backend     *scriptedBackend
	store       pgrepo.UnitOfWork
	interviewer Interviewer
	interviews  InterviewService
	streams     StreamService
}

func newFixture(t *testing.T, backend *scriptedBackend, opts InterviewOptions) *fixture {
	t.Helper()
	l := quietLogger()
	store := pgrepo.NewUnitOfWork(newTestDB(t))
	interviewer := NewInterviewer(llm.NewClient(backend, nil, l), l)
	interviews := NewInterviewService(store, interviewer, lock.NewLocalLocker(), opts, l)
	return &fixture{
		backend:     backend,
		store:       store,
		interviewer: interviewer,
		interviews:  interviews,
		streams:     NewStreamService(interviews, interviewer, l),
	}
}

func startInput(owner string, count int) StartInput {
	return StartInput{
		OwnerID:          owner,
		ResumeSummary:    "Five years of Go backend work.",
		JobDescription:   "Senior backend engineer.",
		Language:         "en",
		InterviewerStyle: "technical",
		QuestionCount:    count,
	}
}

// assertInvariants checks the persisted session against its turns.
func assertInvariants(t *testing.T, f *fixture, sessionID string) *models.InterviewSession {
	t.Helper()
	ctx := context.Background()

	s, err := f.store.Sessions().GetByID(ctx, sessionID)
	require.NoError(t, err)
	turns, err := f.store.Turns().ListBySession(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, s.TurnCount, len(turns), "turn_count matches persisted turns")
	for i, turn := range turns {
		assert.Equal(t, i+1, turn.Sequence, "sequences are contiguous")
	}
	assert.Equal(t, !s.Completed, s.CurrentPrompt != nil, "prompt present iff not completed")
	assert.Equal(t, s.Completed, s.Feedback != nil, "feedback present iff completed")
	return s
}

func collect(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func chunkText(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type != EventQuestionChunk {
			continue
		}
		chunk := ev.Data.(ChunkData)
		if chunk.Reset {
			b.Reset()
		}
		b.WriteString(chunk.Content)
	}
	return b.String()
}
