package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains a lexer goroutine's items into a slice, stopping after EOF
// or the first error item.
func collect(t *testing.T, src string) []item {
	t.Helper()
	l := newLexer(src)
	go l.run()

	var items []item
	for {
		it := l.nextItem()
		items = append(items, it)
		if it.typ == itemEOF || it.typ == itemError {
			break
		}
	}
	return items
}

func TestLexerParens(t *testing.T) {
	items := collect(t, "(())")
	require.Len(t, items, 5)
	assert.Equal(t, itemLparen, items[0].typ)
	assert.Equal(t, itemLparen, items[1].typ)
	assert.Equal(t, itemRparen, items[2].typ)
	assert.Equal(t, itemRparen, items[3].typ)
	assert.Equal(t, itemEOF, items[4].typ)
}

func TestLexerIdentifiers(t *testing.T) {
	items := collect(t, "(+ foo? bar_baz <=)")
	require.GreaterOrEqual(t, len(items), 6)
	assert.Equal(t, itemIdentifier, items[1].typ)
	assert.Equal(t, "+", items[1].val)
	assert.Equal(t, itemIdentifier, items[2].typ)
	assert.Equal(t, "foo?", items[2].val)
	assert.Equal(t, itemIdentifier, items[3].typ)
	assert.Equal(t, "bar_baz", items[3].val)
	assert.Equal(t, itemIdentifier, items[4].typ)
	assert.Equal(t, "<=", items[4].val)
}

func TestLexerIntegers(t *testing.T) {
	items := collect(t, "42 -7 0x2A")
	require.GreaterOrEqual(t, len(items), 3)
	assert.Equal(t, "42", items[0].val)
	assert.Equal(t, "-7", items[1].val)
	assert.Equal(t, "0x2A", items[2].val)
	for _, it := range items[:3] {
		assert.Equal(t, itemInt, it.typ)
	}
}

func TestLexerByteSuffix(t *testing.T) {
	items := collect(t, "65u8")
	require.GreaterOrEqual(t, len(items), 1)
	assert.Equal(t, itemByte, items[0].typ)
	assert.Equal(t, "65u8", items[0].val)
}

func TestLexerMalformedNumber(t *testing.T) {
	items := collect(t, "42abc")
	require.GreaterOrEqual(t, len(items), 1)
	assert.Equal(t, itemError, items[len(items)-1].typ)
}

func TestLexerString(t *testing.T) {
	items := collect(t, `"hello\nworld"`)
	require.GreaterOrEqual(t, len(items), 1)
	assert.Equal(t, itemString, items[0].typ)
	assert.Equal(t, `"hello\nworld"`, items[0].val)
}

func TestLexerUnterminatedString(t *testing.T) {
	items := collect(t, `"hello`)
	assert.Equal(t, itemError, items[len(items)-1].typ)
}

func TestLexerChar(t *testing.T) {
	items := collect(t, `'A'`)
	require.GreaterOrEqual(t, len(items), 1)
	assert.Equal(t, itemChar, items[0].typ)
}

func TestLexerCharUnicodeEscape(t *testing.T) {
	items := collect(t, "'\\u0041'")
	require.GreaterOrEqual(t, len(items), 1)
	assert.Equal(t, itemChar, items[0].typ)
	assert.Equal(t, "'\\u0041'", items[0].val)
}

func TestLexerLineComment(t *testing.T) {
	items := collect(t, "; a comment\n(foo)")
	require.GreaterOrEqual(t, len(items), 3)
	assert.Equal(t, itemLparen, items[0].typ)
	assert.Equal(t, itemIdentifier, items[1].typ)
	assert.Equal(t, "foo", items[1].val)
}

func TestLexerLineTracking(t *testing.T) {
	items := collect(t, "(foo\n(bar))")
	var bar item
	for _, it := range items {
		if it.typ == itemIdentifier && it.val == "bar" {
			bar = it
		}
	}
	assert.Equal(t, 2, bar.line)
}
