package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWrapsTopLevelInMain(t *testing.T) {
	n, err := Parse("(var ((x int)) (set x 1))")
	require.NoError(t, err)
	require.Equal(t, List, n.Kind)
	require.Len(t, n.Children, 4)
	assert.Equal(t, "def", n.Children[0].Name)
	assert.Equal(t, "main", n.Children[1].Children[0].Name)
	assert.Equal(t, "int", n.Children[1].Children[1].Name)
	assert.Equal(t, List, n.Children[2].Kind)
	assert.Empty(t, n.Children[2].Children)

	body := n.Children[3]
	require.Equal(t, List, body.Kind)
	assert.Equal(t, "do", body.Children[0].Name)
	require.Len(t, body.Children, 2)
	assert.Equal(t, "var", body.Children[1].Children[0].Name)
}

func TestParseNestedLists(t *testing.T) {
	n, err := Parse("(+ 1 2)")
	require.NoError(t, err)
	body := n.Children[3]
	form := body.Children[1]
	require.Equal(t, List, form.Kind)
	require.Len(t, form.Children, 3)
	assert.Equal(t, "+", form.Children[0].Name)
	assert.Equal(t, int64(1), form.Children[1].IntVal)
	assert.Equal(t, int64(2), form.Children[2].IntVal)
}

func TestParseUnterminatedList(t *testing.T) {
	_, err := Parse("(+ 1 2")
	require.Error(t, err)
}

func TestParseUnexpectedCloseParen(t *testing.T) {
	_, err := Parse(")")
	require.Error(t, err)
}

func TestParseByteAndStringLiterals(t *testing.T) {
	n, err := Parse(`(poke8 p 65u8) ("hello")`)
	require.NoError(t, err)
	body := n.Children[3]
	poke := body.Children[1]
	assert.Equal(t, Byte, poke.Children[2].Kind)
	assert.Equal(t, uint8(65), poke.Children[2].ByteVal)
	str := body.Children[2].Children[0]
	assert.Equal(t, String, str.Kind)
	assert.Equal(t, "hello", str.Str)
}

func TestParseCharLiteralAsByte(t *testing.T) {
	n, err := Parse("'A'")
	require.NoError(t, err)
	body := n.Children[3]
	assert.Equal(t, Byte, body.Children[1].Kind)
	assert.Equal(t, uint8('A'), body.Children[1].ByteVal)
}

func TestParseHexLiteral(t *testing.T) {
	n, err := Parse("0x2A")
	require.NoError(t, err)
	body := n.Children[3]
	assert.Equal(t, int64(42), body.Children[1].IntVal)
}

func TestParseNegativeLiteral(t *testing.T) {
	n, err := Parse("-7")
	require.NoError(t, err)
	body := n.Children[3]
	assert.Equal(t, int64(-7), body.Children[1].IntVal)
}

func TestParseByteLiteralOutOfRange(t *testing.T) {
	_, err := Parse("256u8")
	require.Error(t, err)
}

func TestNodeStringRoundTrip(t *testing.T) {
	n, err := Parse("(+ 1 2)")
	require.NoError(t, err)
	form := n.Children[3].Children[1]
	assert.Equal(t, "(+ 1 2)", form.String())
}
