package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcllcc/MockMate/internal/providers/stt"
	"github.com/bcllcc/MockMate/internal/utils"
)

type fakeSTT struct {
	text     string
	conf     float64
	err      error
	language string
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio stt.Audio, language string) (string, float64, error) {
	f.language = language
	return f.text, f.conf, f.err
}

func (f *fakeSTT) Close() error { return nil }

type memoryUploader struct {
	objects map[string][]byte
	err     error
}

func (u *memoryUploader) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[objectName] = data
	return "gs://answers-bucket/" + objectName, nil
}

func TestVoiceAnswerService_Answer(t *testing.T) {
	f := newFixture(t, newScriptedBackend("q1", "q2"), InterviewOptions{})
	ctx := context.Background()
	start, err := f.interviews.Start(ctx, startInput("u1", 2))
	require.NoError(t, err)

	recognizer := &fakeSTT{text: "  I led the migration.  ", conf: 0.9}
	uploader := &memoryUploader{}
	svc := NewVoiceAnswerService(f.store, f.interviews, recognizer, uploader, quietLogger())

	res, err := svc.Answer(ctx, VoiceAnswerInput{SessionID: start.SessionID, Audio: []byte("RIFF"), ContentType: "audio/wav"})
	require.NoError(t, err)
	assert.Equal(t, "I led the migration.", res.Transcript)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, "en-US", recognizer.language)
	assert.True(t, strings.HasPrefix(res.AudioPath, "gs://answers-bucket/answers/"+start.SessionID+"/"))
	assert.True(t, strings.HasSuffix(res.AudioPath, ".wav"))
	require.Len(t, uploader.objects, 1)
	require.NotNil(t, res.AnswerResult)
	assert.Equal(t, "q2", res.Prompt.Text)

	turns, err := f.store.Turns().ListBySession(ctx, start.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "I led the migration.", turns[0].Answer)
}

func TestVoiceAnswerService_ArchiveFailureIsIgnored(t *testing.T) {
	f := newFixture(t, newScriptedBackend("q1", "q2"), InterviewOptions{})
	ctx := context.Background()
	start, err := f.interviews.Start(ctx, startInput("u1", 2))
	require.NoError(t, err)

	svc := NewVoiceAnswerService(f.store, f.interviews, &fakeSTT{text: "answer"}, &memoryUploader{err: errors.New("bucket missing")}, quietLogger())
	res, err := svc.Answer(ctx, VoiceAnswerInput{SessionID: start.SessionID, Audio: []byte("x"), ContentType: "audio/webm"})
	require.NoError(t, err)
	assert.Empty(t, res.AudioPath)
	assert.Equal(t, "q2", res.Prompt.Text)
}

func TestVoiceAnswerService_Errors(t *testing.T) {
	f := newFixture(t, newScriptedBackend("q1"), InterviewOptions{})
	ctx := context.Background()
	start, err := f.interviews.Start(ctx, startInput("u1", 1))
	require.NoError(t, err)
	audio := []byte("x")

	svc := NewVoiceAnswerService(f.store, f.interviews, nil, nil, quietLogger())
	_, err = svc.Answer(ctx, VoiceAnswerInput{SessionID: start.SessionID, Audio: audio})
	assert.Equal(t, utils.CodeUnavailable, utils.CodeOf(err))

	svc = NewVoiceAnswerService(f.store, f.interviews, &fakeSTT{text: "   "}, nil, quietLogger())
	_, err = svc.Answer(ctx, VoiceAnswerInput{SessionID: start.SessionID})
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	_, err = svc.Answer(ctx, VoiceAnswerInput{SessionID: start.SessionID, Audio: audio})
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err), "silence is not an answer")

	_, err = svc.Answer(ctx, VoiceAnswerInput{SessionID: "missing", Audio: audio})
	assert.True(t, errors.Is(err, utils.ErrSessionNotFound))

	svc = NewVoiceAnswerService(f.store, f.interviews, &fakeSTT{err: errors.New("quota")}, nil, quietLogger())
	_, err = svc.Answer(ctx, VoiceAnswerInput{SessionID: start.SessionID, Audio: audio})
	assert.Equal(t, utils.CodeUnavailable, utils.CodeOf(err))

	_, err = f.interviews.End(ctx, start.SessionID)
	require.NoError(t, err)
	svc = NewVoiceAnswerService(f.store, f.interviews, &fakeSTT{text: "late"}, nil, quietLogger())
	_, err = svc.Answer(ctx, VoiceAnswerInput{SessionID: start.SessionID, Audio: audio})
	assert.True(t, errors.Is(err, utils.ErrSessionFinished))
	assert.Equal(t, utils.CodeConflict, utils.CodeOf(err))

	turns, err := f.store.Turns().ListBySession(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
