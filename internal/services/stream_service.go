package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/models"
	"github.com/bcllcc/MockMate/internal/providers/llm"
	"github.com/bcllcc/MockMate/internal/utils"
)

type EventType string

const (
	EventSessionStarted    EventType = "session_started"
	EventAnswerRecorded    EventType = "answer_recorded"
	EventQuestionChunk     EventType = "question_chunk"
	EventQuestionComplete  EventType = "question_complete"
	EventInterviewComplete EventType = "interview_complete"
	EventError             EventType = "error"
	// EventDone is always the last event of a stream, including after an error.
	EventDone EventType = "done"
)

type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

type SessionStartedData struct {
	SessionID string `json:"session_id"`
}

type AnswerRecordedData struct {
	SessionID string `json:"session_id"`
	Sequence  int    `json:"sequence"`
}

// ChunkData is a fragment of the next prompt's text. When Reset is set, the
// fragments received so far are discarded and the prompt restarts with Content.
type ChunkData struct {
	Content  string `json:"content"`
	Finished bool   `json:"finished"`
	Reset    bool   `json:"reset,omitempty"`
}

type CompleteData struct {
	SessionID    string           `json:"session_id"`
	Completed    bool             `json:"completed"`
	Prompt       *models.Prompt   `json:"prompt,omitempty"`
	TotalContent string           `json:"total_content,omitempty"`
	Feedback     *models.Feedback `json:"feedback,omitempty"`
}

type ErrorData struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// StreamService delivers Start and Answer as event streams. Persistence runs
// once, after the backend stream is drained, through the same transition as
// the synchronous calls. Every stream ends with EventDone and is then closed.
type StreamService interface {
	Start(ctx context.Context, in StartInput) <-chan Event
	Answer(ctx context.Context, in AnswerInput) <-chan Event
}

type streamService struct {
	interviews  InterviewService
	interviewer Interviewer
	log         *logrus.Logger
}

func NewStreamService(interviews InterviewService, interviewer Interviewer, l *logrus.Logger) StreamService {
	if l == nil {
		l = logrus.New()
	}
	return &streamService{interviews: interviews, interviewer: interviewer, log: l}
}

type emitter struct {
	ctx context.Context
	out chan Event
}

func (e *emitter) emit(typ EventType, data any) bool {
	select {
	case e.out <- Event{Type: typ, Data: data}:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *emitter) fail(err error) {
	e.emit(EventError, ErrorData{Code: utils.CodeOf(err), Message: utils.MessageOf(err)})
}

func (e *emitter) close() {
	select {
	case e.out <- Event{Type: EventDone}:
	case <-e.ctx.Done():
	}
	close(e.out)
}

// settle makes the chunks sent so far spell final. A prompt that was not
// streamed arrives in one piece; one that differs from what was streamed
// (a fallback after a failed stream) replaces it with a reset chunk.
func (e *emitter) settle(sent, final string) bool {
	if sent != "" && strings.TrimSpace(sent) == final {
		return true
	}
	return e.emit(EventQuestionChunk, ChunkData{Content: final, Reset: sent != ""})
}

func newEmitter(ctx context.Context) *emitter {
	return &emitter{ctx: ctx, out: make(chan Event, 16)}
}

func (s *streamService) Start(ctx context.Context, in StartInput) <-chan Event {
	e := newEmitter(ctx)
	go func() {
		defer e.close()
		s.start(ctx, e, in)
	}()
	return e.out
}

func (s *streamService) start(ctx context.Context, e *emitter, in StartInput) {
	const op = "StreamService.Start"

	res, err := s.interviews.Start(ctx, in)
	if err != nil {
		e.fail(err)
		return
	}
	if !e.emit(EventSessionStarted, SessionStartedData{SessionID: res.SessionID}) {
		return
	}

	lang, _ := normalizeLanguage(in.Language)
	style := strings.TrimSpace(in.InterviewerStyle)
	if style == "" {
		style = "general"
	}
	chunks, errs := s.interviewer.StreamOpening(ctx, OpeningRequest{
		ResumeSummary:    in.ResumeSummary,
		JobDescription:   in.JobDescription,
		Language:         lang,
		InterviewerStyle: style,
		Question:         res.Plan[0],
	})

	var text strings.Builder
	for chunk := range chunks {
		text.WriteString(chunk)
		if !e.emit(EventQuestionChunk, ChunkData{Content: chunk}) {
			drain(chunks, errs)
			return
		}
	}
	streamErr := <-errs
	if ctx.Err() != nil {
		return
	}

	prompt := res.Prompt
	opening := strings.TrimSpace(text.String())
	switch {
	case streamErr != nil || opening == "":
		// keep the planned question text
		s.log.WithError(streamErr).WithFields(logrus.Fields{"op": op, "session_id": res.SessionID}).Warn("opening stream failed, using planned question")
	default:
		updated, err := s.interviews.ReplaceOpeningPrompt(ctx, res.SessionID, opening)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"op": op, "session_id": res.SessionID}).Warn("failed to persist opening question")
		} else {
			prompt = *updated
		}
	}

	if !e.settle(text.String(), prompt.Text) {
		return
	}
	e.emit(EventQuestionComplete, CompleteData{
		SessionID:    res.SessionID,
		Completed:    false,
		Prompt:       &prompt,
		TotalContent: prompt.Text,
	})
}

func (s *streamService) Answer(ctx context.Context, in AnswerInput) <-chan Event {
	e := newEmitter(ctx)
	go func() {
		defer e.close()
		s.answer(ctx, e, in)
	}()
	return e.out
}

func (s *streamService) answer(ctx context.Context, e *emitter, in AnswerInput) {
	const op = "StreamService.Answer"

	p, err := s.interviews.BeginAnswer(ctx, in)
	if err != nil {
		e.fail(err)
		return
	}
	defer p.Release()

	if !e.emit(EventAnswerRecorded, AnswerRecordedData{SessionID: p.Session.ID, Sequence: p.Sequence}) {
		return
	}

	var followUp *models.Prompt
	var shown strings.Builder
	if p.AskFollowUp {
		req := p.FollowUpRequest()
		chunks, errs := s.interviewer.StreamFollowUp(ctx, req)

		field := llm.NewFieldStream("follow_up")
		var raw strings.Builder
		for chunk := range chunks {
			raw.WriteString(chunk)
			piece := field.Feed(chunk)
			if piece == "" {
				continue
			}
			shown.WriteString(piece)
			if !e.emit(EventQuestionChunk, ChunkData{Content: piece}) {
				drain(chunks, errs)
				return
			}
		}
		streamErr := <-errs
		if ctx.Err() != nil {
			return
		}

		if streamErr == nil {
			followUp, err = ParseFollowUp(raw.String(), req.Prompt)
		} else {
			err = streamErr
		}
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"op": op, "session_id": p.Session.ID}).Warn("follow-up decision failed")
			followUp = nil
		}
	}

	if ctx.Err() != nil {
		return
	}
	res, err := s.interviews.CommitAnswer(ctx, p, followUp)
	if err != nil {
		e.fail(err)
		return
	}

	if res.Completed {
		e.emit(EventInterviewComplete, CompleteData{
			SessionID: p.Session.ID,
			Completed: true,
			Feedback:  res.Feedback,
		})
		return
	}

	if !e.settle(shown.String(), res.Prompt.Text) {
		return
	}
	e.emit(EventQuestionComplete, CompleteData{
		SessionID:    p.Session.ID,
		Completed:    false,
		Prompt:       res.Prompt,
		TotalContent: res.Prompt.Text,
	})
}

// drain consumes what is left of an abandoned backend stream.
func drain(chunks <-chan string, errs <-chan error) {
	for range chunks {
	}
	<-errs
}
