package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/lock"
	"github.com/bcllcc/MockMate/internal/models"
	pgrepo "github.com/bcllcc/MockMate/internal/repositories/postgres"
	"github.com/bcllcc/MockMate/internal/utils"
)

type StartInput struct {
	OwnerID          string `json:"user_id"`
	ResumeSummary    string `json:"resume_summary"`
	JobDescription   string `json:"job_description"`
	Language         string `json:"language"`
	InterviewerStyle string `json:"interviewer_style"`
	QuestionCount    int    `json:"question_count"`
}

type StartResult struct {
	SessionID string        `json:"session_id"`
	Prompt    models.Prompt `json:"prompt"`
	// Plan is the generated question plan; not part of the response body.
	Plan []models.Question `json:"-"`
}

type AnswerInput struct {
	SessionID      string   `json:"session_id"`
	Answer         string   `json:"answer"`
	ElapsedSeconds *float64 `json:"elapsed_seconds,omitempty"`
}

type AnswerResult struct {
	Completed bool             `json:"completed"`
	Prompt    *models.Prompt   `json:"prompt,omitempty"`
	Feedback  *models.Feedback `json:"feedback,omitempty"`
}

// PendingAnswer is an accepted, not yet persisted answer. It holds the
// session lock until Release.
type PendingAnswer struct {
	Session  *models.InterviewSession
	Input    AnswerInput
	Sequence int
	// AskFollowUp is false once the consecutive follow-up limit is reached.
	AskFollowUp bool

	release func()
}

// FollowUpRequest returns the backend input for this answer's follow-up decision.
func (p *PendingAnswer) FollowUpRequest() FollowUpRequest {
	return FollowUpRequest{
		Language: p.Session.Language,
		Prompt:   *p.Session.CurrentPrompt,
		Answer:   p.Input.Answer,
	}
}

func (p *PendingAnswer) Release() {
	if p != nil && p.release != nil {
		p.release()
		p.release = nil
	}
}

type InterviewService interface {
	Start(ctx context.Context, in StartInput) (*StartResult, error)
	// GenerateQuestions produces a question plan without creating a session.
	GenerateQuestions(ctx context.Context, in StartInput) ([]models.Question, error)
	Answer(ctx context.Context, in AnswerInput) (*AnswerResult, error)
	End(ctx context.Context, sessionID string) (*models.Feedback, error)
	ListHistory(ctx context.Context, ownerID string) ([]models.HistoryItem, error)
	GetDetail(ctx context.Context, sessionID, ownerID string) (*models.SessionDetail, error)

	// BeginAnswer and CommitAnswer split Answer around the follow-up
	// decision so the decision can be streamed.
	BeginAnswer(ctx context.Context, in AnswerInput) (*PendingAnswer, error)
	CommitAnswer(ctx context.Context, p *PendingAnswer, followUp *models.Prompt) (*AnswerResult, error)
	// ReplaceOpeningPrompt rewrites the text of the first prompt while no
	// answer has been recorded yet.
	ReplaceOpeningPrompt(ctx context.Context, sessionID, text string) (*models.Prompt, error)
}

type InterviewOptions struct {
	DefaultQuestionCount int
	MaxQuestionCount     int
	// MaxFollowUps caps consecutive follow-ups per planned question; 0 = unlimited.
	MaxFollowUps int
	LockWait     time.Duration
}

type interviewService struct {
	store       pgrepo.UnitOfWork
	interviewer Interviewer
	locker      lock.Locker
	opts        InterviewOptions
	log         *logrus.Logger
}

func NewInterviewService(store pgrepo.UnitOfWork, interviewer Interviewer, locker lock.Locker, opts InterviewOptions, l *logrus.Logger) InterviewService {
	if opts.DefaultQuestionCount <= 0 {
		opts.DefaultQuestionCount = 6
	}
	if opts.MaxQuestionCount <= 0 {
		opts.MaxQuestionCount = 15
	}
	if opts.LockWait <= 0 {
		opts.LockWait = 10 * time.Second
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if l == nil {
		l = logrus.New()
	}
	return &interviewService{store: store, interviewer: interviewer, locker: locker, opts: opts, log: l}
}

func normalizeLanguage(lang string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", LangEnglish:
		return LangEnglish, true
	case LangChinese:
		return LangChinese, true
	}
	return "", false
}

// planRequest validates the interview context shared by Start and GenerateQuestions.
func (s *interviewService) planRequest(op string, in StartInput) (QuestionRequest, error) {
	req := QuestionRequest{
		ResumeSummary:    strings.TrimSpace(in.ResumeSummary),
		JobDescription:   strings.TrimSpace(in.JobDescription),
		InterviewerStyle: strings.TrimSpace(in.InterviewerStyle),
		Count:            in.QuestionCount,
	}
	if req.ResumeSummary == "" || req.JobDescription == "" {
		return req, utils.E(utils.CodeInvalidArgument, op, "resume_summary and job_description are required", nil)
	}
	lang, ok := normalizeLanguage(in.Language)
	if !ok {
		return req, utils.E(utils.CodeInvalidArgument, op, "language must be en or zh", nil)
	}
	req.Language = lang
	if req.InterviewerStyle == "" {
		req.InterviewerStyle = "general"
	}
	if req.Count == 0 {
		req.Count = s.opts.DefaultQuestionCount
	}
	if req.Count < 1 || req.Count > s.opts.MaxQuestionCount {
		return req, utils.E(utils.CodeInvalidArgument, op, "question_count is out of range", nil)
	}
	return req, nil
}

func (s *interviewService) GenerateQuestions(ctx context.Context, in StartInput) ([]models.Question, error) {
	req, err := s.planRequest("InterviewService.GenerateQuestions", in)
	if err != nil {
		return nil, err
	}
	return s.interviewer.GenerateQuestions(ctx, req)
}

func (s *interviewService) Start(ctx context.Context, in StartInput) (*StartResult, error) {
	const op = "InterviewService.Start"

	ownerID := strings.TrimSpace(in.OwnerID)
	if ownerID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	req, err := s.planRequest(op, in)
	if err != nil {
		return nil, err
	}

	plan, err := s.interviewer.GenerateQuestions(ctx, req)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"op": op, "owner_id": ownerID}).Warn("question plan generation failed")
		return nil, err
	}

	first := plan[0].Prompt()
	session := &models.InterviewSession{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		Language:         req.Language,
		InterviewerStyle: req.InterviewerStyle,
		ResumeSummary:    req.ResumeSummary,
		JobDescription:   req.JobDescription,
		QuestionPlan:     plan,
		CurrentPrompt:    &first,
		NextPlanIndex:    1,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	s.log.WithFields(logrus.Fields{
		"op":         op,
		"session_id": session.ID,
		"owner_id":   session.OwnerID,
		"questions":  len(plan),
	}).Info("interview started")

	return &StartResult{SessionID: session.ID, Prompt: first, Plan: plan}, nil
}

func (s *interviewService) lockSession(ctx context.Context, sessionID string) (func(), error) {
	lctx, cancel := context.WithTimeout(ctx, s.opts.LockWait)
	defer cancel()
	return s.locker.Lock(lctx, sessionID)
}

func (s *interviewService) load(ctx context.Context, op, sessionID string) (*models.InterviewSession, error) {
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrSessionNotFound)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load session", err)
	}
	return session, nil
}

func (s *interviewService) Answer(ctx context.Context, in AnswerInput) (*AnswerResult, error) {
	const op = "InterviewService.Answer"

	p, err := s.BeginAnswer(ctx, in)
	if err != nil {
		return nil, err
	}
	defer p.Release()

	var followUp *models.Prompt
	if p.AskFollowUp {
		followUp, err = s.interviewer.DecideFollowUp(ctx, p.FollowUpRequest())
		if err != nil {
			// optional step: degrade to the plan
			s.log.WithError(err).WithFields(logrus.Fields{"op": op, "session_id": p.Session.ID}).Warn("follow-up decision failed")
			followUp = nil
		}
	}
	return s.CommitAnswer(ctx, p, followUp)
}

func (s *interviewService) BeginAnswer(ctx context.Context, in AnswerInput) (*PendingAnswer, error) {
	const op = "InterviewService.Answer"

	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Answer = strings.TrimSpace(in.Answer)
	if in.SessionID == "" || in.Answer == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and answer are required", nil)
	}
	if in.ElapsedSeconds != nil && *in.ElapsedSeconds < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "elapsed_seconds must not be negative", nil)
	}

	unlock, err := s.lockSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.load(ctx, op, in.SessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	if session.Completed || session.CurrentPrompt == nil {
		unlock()
		return nil, utils.E(utils.CodeConflict, op, "interview already completed", utils.ErrSessionFinished)
	}

	return &PendingAnswer{
		Session:     session,
		Input:       in,
		Sequence:    session.TurnCount + 1,
		AskFollowUp: s.opts.MaxFollowUps == 0 || session.FollowUpStreak < s.opts.MaxFollowUps,
		release:     unlock,
	}, nil
}

func (s *interviewService) CommitAnswer(ctx context.Context, p *PendingAnswer, followUp *models.Prompt) (*AnswerResult, error) {
	const op = "InterviewService.Answer"

	session := p.Session
	asked := *session.CurrentPrompt
	turn := &models.InterviewTurn{
		SessionID:      session.ID,
		Sequence:       p.Sequence,
		Question:       asked.Text,
		QuestionType:   asked.Type,
		Topic:          asked.Topic,
		Answer:         p.Input.Answer,
		AskedAt:        time.Now().UTC(),
		ElapsedSeconds: p.Input.ElapsedSeconds,
	}
	session.TurnCount = p.Sequence

	switch {
	case followUp != nil && p.AskFollowUp:
		session.CurrentPrompt = followUp
		session.FollowUpStreak++

	case !session.PlanExhausted():
		next := session.QuestionPlan[session.NextPlanIndex].Prompt()
		session.CurrentPrompt = &next
		session.NextPlanIndex++
		session.FollowUpStreak = 0

	default:
		turns, err := s.store.Turns().ListBySession(ctx, session.ID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to load turns", err)
		}
		if err := s.finalize(ctx, session, append(turns, *turn)); err != nil {
			return nil, err
		}
	}

	err := s.store.Transaction(ctx, func(tx pgrepo.UnitOfWork) error {
		if err := tx.Turns().Insert(ctx, turn); err != nil {
			return err
		}
		return tx.Sessions().Update(ctx, session)
	})
	if err != nil {
		return nil, storeError(op, err)
	}

	s.log.WithFields(logrus.Fields{
		"op":         op,
		"session_id": session.ID,
		"sequence":   turn.Sequence,
		"completed":  session.Completed,
	}).Info("answer recorded")

	return &AnswerResult{Completed: session.Completed, Prompt: session.CurrentPrompt, Feedback: session.Feedback}, nil
}

// finalize synthesizes feedback over turns and marks session completed (in memory).
func (s *interviewService) finalize(ctx context.Context, session *models.InterviewSession, turns []models.InterviewTurn) error {
	feedback, err := s.interviewer.GenerateFeedback(ctx, session.InterviewerStyle, session.Language, turns)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"op": "InterviewService.finalize", "session_id": session.ID}).Warn("feedback synthesis failed")
		return err
	}
	now := time.Now().UTC()
	session.Feedback = feedback
	session.Completed = true
	session.CompletedAt = &now
	session.CurrentPrompt = nil
	session.FollowUpStreak = 0
	return nil
}

func storeError(op string, err error) error {
	if errors.Is(err, utils.ErrConcurrentUpdate) {
		return utils.E(utils.CodeConflict, op, "session was modified concurrently", err)
	}
	return utils.E(utils.CodeInternal, op, "failed to persist session", err)
}

func (s *interviewService) End(ctx context.Context, sessionID string) (*models.Feedback, error) {
	const op = "InterviewService.End"

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed {
		return session.Feedback, nil
	}

	turns, err := s.store.Turns().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load turns", err)
	}
	if err := s.finalize(ctx, session, turns); err != nil {
		return nil, err
	}
	if err := s.store.Sessions().Update(ctx, session); err != nil {
		return nil, storeError(op, err)
	}

	s.log.WithFields(logrus.Fields{"op": op, "session_id": sessionID, "turns": len(turns)}).Info("interview ended")
	return session.Feedback, nil
}

func (s *interviewService) ReplaceOpeningPrompt(ctx context.Context, sessionID, text string) (*models.Prompt, error) {
	const op = "InterviewService.ReplaceOpeningPrompt"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "prompt text is required", nil)
	}

	unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed || session.CurrentPrompt == nil || session.TurnCount > 0 {
		return nil, utils.E(utils.CodeConflict, op, "opening question already answered", utils.ErrSessionFinished)
	}

	session.CurrentPrompt.Text = text
	if err := s.store.Sessions().Update(ctx, session); err != nil {
		return nil, storeError(op, err)
	}
	return session.CurrentPrompt, nil
}

func (s *interviewService) ListHistory(ctx context.Context, ownerID string) ([]models.HistoryItem, error) {
	const op = "InterviewService.ListHistory"

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	rows, err := s.store.Sessions().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}

	items := make([]models.HistoryItem, 0, len(rows))
	for i := range rows {
		items = append(items, models.NewHistoryItem(&rows[i]))
	}
	return items, nil
}

// GetDetail returns the full record of a session. When ownerID is set, a
// session owned by someone else is reported as not found.
func (s *interviewService) GetDetail(ctx context.Context, sessionID, ownerID string) (*models.SessionDetail, error) {
	const op = "InterviewService.GetDetail"

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	session, err := s.load(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && session.OwnerID != ownerID {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrSessionNotFound)
	}

	turns, err := s.store.Turns().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load turns", err)
	}
	if turns == nil {
		turns = []models.InterviewTurn{}
	}
	return &models.SessionDetail{Session: session, Turns: turns, Feedback: session.Feedback}, nil
}
