package amd64_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sxc/src/backend/amd64"
)

func TestLabelPatchTableResolvesRelativeOffset(t *testing.T) {
	buf := &amd64.Buf{}
	lt := amd64.NewLabelPatchTable()
	buf.U8(0xE9) // jmp
	site := buf.Len()
	buf.I32(0)
	lt.Add(site, 7)
	buf.U8(0x90) // filler
	dest := buf.Len()

	require.NoError(t, lt.Resolve(buf, map[int]int{7: dest}))
	rel := int32(buf.Bytes()[site]) | int32(buf.Bytes()[site+1])<<8 | int32(buf.Bytes()[site+2])<<16 | int32(buf.Bytes()[site+3])<<24
	assert.EqualValues(t, dest-(site+4), rel)
}

func TestLabelPatchTableUnresolvedIsError(t *testing.T) {
	buf := &amd64.Buf{}
	lt := amd64.NewLabelPatchTable()
	lt.Add(0, 99)
	buf.U32(0)
	require.Error(t, lt.Resolve(buf, map[int]int{}))
}

func TestCallPatchTableUnresolvedIsError(t *testing.T) {
	buf := &amd64.Buf{}
	ct := amd64.NewCallPatchTable()
	ct.Add(0, 3)
	buf.U32(0)
	require.Error(t, ct.Resolve(buf, []int{0, 1, 2}))
}

func TestStringPatchTableResolves(t *testing.T) {
	buf := &amd64.Buf{}
	st := amd64.NewStringPatchTable()
	st.Add(0, 1)
	buf.U32(0)
	require.NoError(t, st.Resolve(buf, []int{100, 200}))
}
