package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sxc/src/ir"
)

func TestTypeDefKeyDistinguishesPointerLevel(t *testing.T) {
	assert.NotEqual(t, ir.IntType.Key(), ir.IntType.PointerTo().Key())
}

func TestTypeDefEquality(t *testing.T) {
	assert.Equal(t, ir.IntType, ir.TypeDef{Scalar: ir.Int})
	assert.NotEqual(t, ir.IntType, ir.ByteType)
}

func TestCanCastTo(t *testing.T) {
	ok, narrowing := ir.IntType.CanCastTo(ir.ByteType)
	assert.True(t, ok)
	assert.True(t, narrowing)

	ok, narrowing = ir.ByteType.CanCastTo(ir.IntType)
	assert.True(t, ok)
	assert.False(t, narrowing)

	ok, _ = ir.IntType.PointerTo().CanCastTo(ir.IntType)
	assert.True(t, ok)

	ok, _ = ir.ByteType.CanCastTo(ir.IntType.PointerTo())
	assert.False(t, ok)
}
