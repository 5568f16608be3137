package textx

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_StripsScriptMarkup(t *testing.T) {
	t.Parallel()
	in := `hello <script>alert("x")</script>world`
	assert.Equal(t, "hello world", Sanitize(in))
}

func TestSanitize_StripsEventHandlers(t *testing.T) {
	t.Parallel()
	in := `click <img src="a" onerror="steal()"> here`
	out := Sanitize(in)
	assert.NotContains(t, out, "onerror")
}

func TestSanitize_StripsJavascriptURL(t *testing.T) {
	t.Parallel()
	out := Sanitize(`<a href="javascript:evil()">x</a> ok`)
	assert.NotContains(t, out, "javascript:")
}

func TestSanitize_TruncatesLongInput(t *testing.T) {
	t.Parallel()
	in := strings.Repeat("a", MaxInputLen+500)
	out := Sanitize(in)
	assert.Len(t, out, MaxInputLen+3)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestSanitize_EmptyAndControlChars(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Sanitize(""))
	assert.Equal(t, "ab", Sanitize("a\x00b"))
	assert.Equal(t, "a\tb", Sanitize(" a\tb "))
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hell...", Truncate("hello world", 7))
	assert.Equal(t, "hello", Truncate("hello", 0))
}

func TestTruncate_KeepsMultiByteRunesIntact(t *testing.T) {
	t.Parallel()
	out := Truncate(strings.Repeat("é", 10), 8)
	assert.Equal(t, "ééééé...", out)
	assert.True(t, utf8.ValidString(out))
}

func TestSanitize_TruncatesMultiByteInputCleanly(t *testing.T) {
	t.Parallel()
	out := Sanitize(strings.Repeat("ü", MaxInputLen+50))
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, MaxInputLen+3, utf8.RuneCountInString(out))
}
