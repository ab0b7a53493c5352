package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/models"
	"github.com/bcllcc/MockMate/internal/providers/stt"
	pgrepo "github.com/bcllcc/MockMate/internal/repositories/postgres"
	"github.com/bcllcc/MockMate/internal/storage"
	"github.com/bcllcc/MockMate/internal/utils"
)

type VoiceAnswerInput struct {
	SessionID      string
	Audio          []byte
	ContentType    string
	ElapsedSeconds *float64
}

type VoiceAnswerResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	AudioPath  string  `json:"audio_path,omitempty"`
	*AnswerResult
}

// VoiceAnswerService answers the current question with recorded audio.
type VoiceAnswerService interface {
	Answer(ctx context.Context, in VoiceAnswerInput) (*VoiceAnswerResult, error)
}

type voiceAnswerService struct {
	store      pgrepo.UnitOfWork
	interviews InterviewService
	stt        stt.Provider
	uploader   storage.Uploader // optional
	log        *logrus.Logger
}

func NewVoiceAnswerService(store pgrepo.UnitOfWork, interviews InterviewService, sttProvider stt.Provider, uploader storage.Uploader, l *logrus.Logger) VoiceAnswerService {
	if l == nil {
		l = logrus.New()
	}
	return &voiceAnswerService{store: store, interviews: interviews, stt: sttProvider, uploader: uploader, log: l}
}

func (s *voiceAnswerService) session(ctx context.Context, op, id string) (*models.InterviewSession, error) {
	session, err := s.store.Sessions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrSessionNotFound)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load session", err)
	}
	if session.Completed {
		return nil, utils.E(utils.CodeConflict, op, "interview already completed", utils.ErrSessionFinished)
	}
	return session, nil
}

func (s *voiceAnswerService) Answer(ctx context.Context, in VoiceAnswerInput) (*VoiceAnswerResult, error) {
	const op = "VoiceAnswerService.Answer"

	if strings.TrimSpace(in.SessionID) == "" || len(in.Audio) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and audio are required", nil)
	}
	if s.stt == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech recognition is not configured", nil)
	}

	session, err := s.session(ctx, op, in.SessionID)
	if err != nil {
		return nil, err
	}

	text, conf, err := s.stt.Transcribe(ctx, stt.Audio{Data: in.Audio, ContentType: in.ContentType}, stt.LanguageCode(session.Language))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech recognition failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no speech recognized in audio", nil)
	}

	out := &VoiceAnswerResult{Transcript: text, Confidence: conf}

	if s.uploader != nil {
		object := fmt.Sprintf("answers/%s/%s.%s", session.ID, uuid.NewString(), stt.Extension(in.ContentType))
		path, err := s.uploader.Upload(ctx, object, in.ContentType, bytes.NewReader(in.Audio))
		if err != nil {
			// archiving is best effort
			s.log.WithError(err).WithFields(logrus.Fields{"op": op, "session_id": session.ID}).Warn("failed to archive answer audio")
		} else {
			out.AudioPath = path
		}
	}

	res, err := s.interviews.Answer(ctx, AnswerInput{
		SessionID:      session.ID,
		Answer:         text,
		ElapsedSeconds: in.ElapsedSeconds,
	})
	if err != nil {
		return nil, err
	}
	out.AnswerResult = res
	return out, nil
}
