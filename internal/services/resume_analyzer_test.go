package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcllcc/MockMate/internal/cache"
	"github.com/bcllcc/MockMate/internal/providers/llm"
	"github.com/bcllcc/MockMate/internal/utils"
)

func newAnalyzer(backend *scriptedBackend, shared cache.Cache, opts ResumeOptions) ResumeAnalyzer {
	l := quietLogger()
	return NewResumeAnalyzer(NewInterviewer(llm.NewClient(backend, nil, l), l), shared, opts, l)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LangEnglish, DetectLanguage("Senior Go engineer"))
	assert.Equal(t, LangChinese, DetectLanguage("高级后端工程师"))
	assert.Equal(t, LangChinese, DetectLanguage("Go 工程师 with five years"))
	assert.Equal(t, LangEnglish, DetectLanguage(strings.Repeat("a", 100)+"中"))
	assert.Equal(t, LangEnglish, DetectLanguage(""))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "你好", truncateRunes("你好世界", 2))
}

func TestResumeAnalyzer_Analyze(t *testing.T) {
	backend := newScriptedBackend()
	a := newAnalyzer(backend, nil, ResumeOptions{})
	ctx := context.Background()

	got, err := a.Analyze(ctx, "  Five years of Go.  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Go engineer", got.Headline)
	assert.Equal(t, []string{"go"}, got.Skills)
	assert.Equal(t, LangEnglish, got.Language)

	_, err = a.Analyze(ctx, "Five years of Go.", "en")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.count(kindResume), "second call served from the local cache")

	_, err = a.Analyze(ctx, "Five years of Go.", "zh")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.count(kindResume), "language is part of the cache key")
}

func TestResumeAnalyzer_CachedResultIsNotShared(t *testing.T) {
	backend := newScriptedBackend()
	a := newAnalyzer(backend, nil, ResumeOptions{})
	ctx := context.Background()

	first, err := a.Analyze(ctx, "Five years of Go.", "en")
	require.NoError(t, err)
	first.Skills[0] = "cobol"
	first.Highlights = append(first.Highlights[:0], "edited")

	second, err := a.Analyze(ctx, "Five years of Go.", "en")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.count(kindResume))
	assert.Equal(t, []string{"go"}, second.Skills)
	assert.Equal(t, []string{"scaled API"}, second.Highlights)

	second.Skills[0] = "fortran"
	third, err := a.Analyze(ctx, "Five years of Go.", "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, third.Skills)
}

func TestResumeAnalyzer_Errors(t *testing.T) {
	backend := newScriptedBackend()
	backend.resume = "not json"
	a := newAnalyzer(backend, nil, ResumeOptions{})
	ctx := context.Background()

	_, err := a.Analyze(ctx, "   ", "")
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	_, err = a.Analyze(ctx, "resume", "fr")
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	_, err = a.Analyze(ctx, "resume", "en")
	assert.Equal(t, utils.CodeBadGateway, utils.CodeOf(err))

	// failures are not cached
	_, err = a.Analyze(ctx, "resume", "en")
	require.Error(t, err)
	assert.Equal(t, 2, backend.count(kindResume))
}

func TestResumeAnalyzer_TruncatesBeforeCaching(t *testing.T) {
	backend := newScriptedBackend()
	a := newAnalyzer(backend, nil, ResumeOptions{MaxChars: 10})
	ctx := context.Background()

	_, err := a.Analyze(ctx, "0123456789 first tail", "en")
	require.NoError(t, err)
	_, err = a.Analyze(ctx, "0123456789 other tail", "en")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.count(kindResume), "texts equal after truncation share an entry")
}

func TestResumeAnalyzer_SharedCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	shared := cache.NewRedisCache(rdb, cache.DefaultPrefix)

	backend := newScriptedBackend()
	ctx := context.Background()

	first := newAnalyzer(backend, shared, ResumeOptions{})
	want, err := first.Analyze(ctx, "Five years of Go.", "en")
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.DefaultPrefix+resumeCacheKey("Five years of Go.", "en")))

	second := newAnalyzer(backend, shared, ResumeOptions{})
	got, err := second.Analyze(ctx, "Five years of Go.", "en")
	require.NoError(t, err)
	assert.Equal(t, want.Headline, got.Headline)
	assert.Equal(t, want.Skills, got.Skills)
	assert.Equal(t, want.Insights, got.Insights)
	assert.Equal(t, 1, backend.count(kindResume), "second analyzer reads the shared cache")
}

func TestResumeAnalyzer_SharedCacheDown(t *testing.T) {
	// nothing listens on port 1
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	backend := newScriptedBackend()
	a := newAnalyzer(backend, cache.NewRedisCache(rdb, cache.DefaultPrefix), ResumeOptions{})

	got, err := a.Analyze(context.Background(), "Five years of Go.", "en")
	require.NoError(t, err)
	assert.Equal(t, "Go engineer", got.Headline)
}
