package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

type GoogleSpeech struct {
	c *speech.Client
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{c: c}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// recognitionConfig picks the encoding from the content type. WAV and FLAC
// carry their sample rate in the header; Opus containers are 48 kHz.
func recognitionConfig(contentType, language string) *speechpb.RecognitionConfig {
	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"):
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(ct, "flac"):
		cfg.Encoding = speechpb.RecognitionConfig_FLAC
	case strings.Contains(ct, "ogg"):
		cfg.Encoding = speechpb.RecognitionConfig_OGG_OPUS
		cfg.SampleRateHertz = 48000
	case strings.Contains(ct, "webm"):
		cfg.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
		cfg.SampleRateHertz = 48000
	default:
		cfg.Encoding = speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
	return cfg
}

func (g *GoogleSpeech) Transcribe(ctx context.Context, audio Audio, language string) (string, float64, error) {
	if language == "" {
		language = "en-US"
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig(audio.ContentType, language),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.Data},
		},
	})
	if err != nil {
		return "", 0, err
	}

	// results are consecutive portions of the audio; join their best alternatives
	var parts []string
	var confSum float64
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		best := r.Alternatives[0]
		for _, alt := range r.Alternatives[1:] {
			if alt.Confidence > best.Confidence {
				best = alt
			}
		}
		if t := strings.TrimSpace(best.Transcript); t != "" {
			parts = append(parts, t)
			confSum += float64(best.Confidence)
		}
	}
	if len(parts) == 0 {
		return "", 0, nil
	}
	return strings.Join(parts, " "), confSum / float64(len(parts)), nil
}

var _ Provider = (*GoogleSpeech)(nil)
