package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/cache"
	"github.com/bcllcc/MockMate/internal/models"
	"github.com/bcllcc/MockMate/internal/utils"
)

type ResumeAnalyzer interface {
	Analyze(ctx context.Context, text, language string) (*models.ResumeInsights, error)
}

type ResumeOptions struct {
	CacheSize int           // in-process LRU capacity
	MaxChars  int           // longer texts are truncated before analysis
	CacheTTL  time.Duration // shared cache expiry
}

type resumeAnalyzer struct {
	interviewer Interviewer
	local       *cache.LRU[string, models.ResumeInsights]
	shared      cache.Cache // optional
	opts        ResumeOptions
	log         *logrus.Logger
}

func NewResumeAnalyzer(interviewer Interviewer, shared cache.Cache, opts ResumeOptions, l *logrus.Logger) ResumeAnalyzer {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 12000
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if l == nil {
		l = logrus.New()
	}
	return &resumeAnalyzer{
		interviewer: interviewer,
		local:       cache.NewLRU[string, models.ResumeInsights](opts.CacheSize),
		shared:      shared,
		opts:        opts,
		log:         l,
	}
}

// DetectLanguage reports zh when more than 5% of the characters are Han.
func DetectLanguage(text string) string {
	var total, han int
	for _, r := range text {
		total++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	if total > 0 && float64(han)/float64(total) > 0.05 {
		return LangChinese
	}
	return LangEnglish
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	i := 0
	for pos := range s {
		if i == max {
			return s[:pos]
		}
		i++
	}
	return s
}

func resumeCacheKey(text, language string) string {
	sum := sha256.Sum256([]byte(text))
	return "resume:" + language + ":" + hex.EncodeToString(sum[:])
}

func (a *resumeAnalyzer) Analyze(ctx context.Context, text, language string) (*models.ResumeInsights, error) {
	const op = "ResumeAnalyzer.Analyze"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "resume text is empty", nil)
	}
	if strings.TrimSpace(language) == "" {
		language = DetectLanguage(text)
	}
	lang, ok := normalizeLanguage(language)
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "language must be en or zh", nil)
	}
	text = truncateRunes(text, a.opts.MaxChars)

	key := resumeCacheKey(text, lang)
	if v, ok := a.local.Get(key); ok {
		return v.Clone(), nil
	}

	if a.shared != nil {
		var v models.ResumeInsights
		hit, err := a.shared.GetJSON(ctx, key, &v)
		if err != nil {
			a.log.WithError(err).WithField("op", op).Warn("resume cache read failed")
		} else if hit {
			a.local.Put(key, *v.Clone())
			return &v, nil
		}
	}

	insights, err := a.interviewer.AnalyzeResume(ctx, text, lang)
	if err != nil {
		return nil, err
	}

	a.local.Put(key, *insights.Clone())
	if a.shared != nil {
		if err := a.shared.SetJSON(ctx, key, insights, a.opts.CacheTTL); err != nil {
			a.log.WithError(err).WithField("op", op).Warn("resume cache write failed")
		}
	}
	return insights, nil
}
