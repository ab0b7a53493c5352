package stt

import (
	"context"
	"strings"
)

// Audio is one recorded answer.
type Audio struct {
	Data        []byte
	ContentType string // ex: "audio/webm", "audio/wav"
}

type Provider interface {
	// Transcribe returns the best transcript for audio. language is a BCP-47
	// code such as "en-US" or "zh-CN".
	Transcribe(ctx context.Context, audio Audio, language string) (text string, confidence float64, err error)
	Close() error
}

// LanguageCode maps an interview language to a recognition language.
func LanguageCode(lang string) string {
	if lang == "zh" {
		return "zh-CN"
	}
	return "en-US"
}

// Extension returns the file extension used when archiving audio of the
// given content type.
func Extension(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"):
		return "wav"
	case strings.Contains(ct, "ogg"):
		return "ogg"
	case strings.Contains(ct, "flac"):
		return "flac"
	case strings.Contains(ct, "webm"):
		return "webm"
	}
	return "bin"
}
