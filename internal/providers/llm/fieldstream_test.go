package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func feedAll(f *FieldStream, fragments ...string) string {
	var b strings.Builder
	for _, frag := range fragments {
		b.WriteString(f.Feed(frag))
	}
	return b.String()
}

func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}

func TestFieldStream_ExtractsValue(t *testing.T) {
	doc := `{"topic": "follow_up", "follow_up": "Can you walk me through \"the\" design?\nBriefly.", "x": 1}`

	for _, n := range []int{1, 2, 3, 7, len(doc)} {
		f := NewFieldStream("follow_up")
		got := feedAll(f, splitEvery(doc, n)...)
		assert.Equal(t, "Can you walk me through \"the\" design?\nBriefly.", got, "split %d", n)
		assert.True(t, f.Done())
		assert.True(t, f.Started())
	}
}

func TestFieldStream_Null(t *testing.T) {
	f := NewFieldStream("follow_up")
	got := feedAll(f, `{"follow_up"`, `: nu`, `ll, "topic": "go"}`)
	assert.Empty(t, got)
	assert.True(t, f.Done())
	assert.False(t, f.Started())
}

func TestFieldStream_MissingKey(t *testing.T) {
	f := NewFieldStream("follow_up")
	got := feedAll(f, `{"topic": "go"}`)
	assert.Empty(t, got)
	assert.False(t, f.Done())
}

func TestFieldStream_Unicode(t *testing.T) {
	doc := `{"follow_up": "请介绍 你好 😀 ok"}`

	for _, n := range []int{1, 2, 5} {
		f := NewFieldStream("follow_up")
		var pieces []string
		for _, frag := range splitEvery(doc, n) {
			if p := f.Feed(frag); p != "" {
				pieces = append(pieces, p)
			}
		}
		for _, p := range pieces {
			assert.True(t, strings.ToValidUTF8(p, "?") == p, "piece %q is not valid UTF-8", p)
		}
		assert.Equal(t, "请介绍 你好 😀 ok", strings.Join(pieces, ""), "split %d", n)
	}
}

func TestFieldStream_IgnoresInputAfterDone(t *testing.T) {
	f := NewFieldStream("follow_up")
	assert.Equal(t, "a", f.Feed(`{"follow_up":"a"}`))
	assert.Empty(t, f.Feed(`{"follow_up":"b"}`))
}
