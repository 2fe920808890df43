package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sxc/src/frontend"
	"sxc/src/ir"
)

func lower(t *testing.T, src string) (*ir.Unit, error) {
	t.Helper()
	tree, err := frontend.Parse(src)
	require.NoError(t, err)
	return ir.Lower(tree)
}

func TestLowerSimpleReturn(t *testing.T) {
	u, err := lower(t, "(return (+ 2 3))")
	require.NoError(t, err)
	require.Len(t, u.Functions, 1)
	main := u.Functions[0]
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, ir.IntType, main.ReturnType)
	assert.NotEmpty(t, main.Instructions)
}

func TestLowerLocalsAndScopeDiscipline(t *testing.T) {
	u, err := lower(t, "(var x 10) (var y 4) (return (- x y))")
	require.NoError(t, err)
	main := u.Functions[0]
	assert.Equal(t, 2, main.VarCount)
}

func TestLowerVoidInitializerIsError(t *testing.T) {
	_, err := lower(t, "(var x (do))")
	require.Error(t, err)
}

func TestLowerTypeMismatchBinop(t *testing.T) {
	_, err := lower(t, `(+ 1 "a")`)
	require.Error(t, err)
}

func TestLowerBreakOutsideLoopIsError(t *testing.T) {
	_, err := lower(t, "(break)")
	require.Error(t, err)
}

func TestLowerUndefinedIdentifier(t *testing.T) {
	_, err := lower(t, "(return undefined_name)")
	require.Error(t, err)
}

func TestLowerFunctionOverloading(t *testing.T) {
	u, err := lower(t, `
		(def (f int) ((x int)) (return x))
		(def (f int) ((x byte)) (return (cast int x)))
		(return (call f 1))
	`)
	require.NoError(t, err)
	require.Len(t, u.Functions, 3)
}

func TestLowerDuplicateFunctionSignatureIsError(t *testing.T) {
	_, err := lower(t, `
		(def (f int) ((x int)) (return x))
		(def (f int) ((x int)) (return x))
	`)
	require.Error(t, err)
}

func TestLowerMutualRecursionInGroup(t *testing.T) {
	u, err := lower(t, `
		(def (isEven int) ((n int)) (if (eq n 0) 1 (call isOdd (- n 1))))
		(def (isOdd int) ((n int)) (if (eq n 0) 0 (call isEven (- n 1))))
		(return (call isEven 10))
	`)
	require.NoError(t, err)
	require.Len(t, u.Functions, 3)
}

func TestLowerVarBreaksMutualRecursionGroup(t *testing.T) {
	_, err := lower(t, `
		(def (isEven int) ((n int)) (if (eq n 0) 1 (call isOdd (- n 1))))
		(var unused 0)
		(def (isOdd int) ((n int)) (if (eq n 0) 0 (call isEven (- n 1))))
		(return 0)
	`)
	require.Error(t, err)
}

func TestLowerLoopSummation(t *testing.T) {
	u, err := lower(t, `
		(var n 0) (var i 1)
		(loop (le i 10) (do (set n (+ n i)) (set i (+ i 1))))
		(return n)
	`)
	require.NoError(t, err)
	main := u.Functions[0]
	assert.NotEmpty(t, main.Labels)
}

func TestLowerFactorialRecursion(t *testing.T) {
	u, err := lower(t, `
		(def (fact int) ((n int)) (if (le n 1) 1 (* n (call fact (- n 1)))))
		(return (call fact 5))
	`)
	require.NoError(t, err)
	require.Len(t, u.Functions, 2)
	assert.Equal(t, 2, u.Functions[1].Level)
}

func TestLowerCastNarrowingEmitsCast8(t *testing.T) {
	u, err := lower(t, `(var x 300) (return (cast int (cast byte x)))`)
	require.NoError(t, err)
	main := u.Functions[0]
	found := false
	for _, ins := range main.Instructions {
		if ins.Op == ir.OpCast8 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLowerPeek8OfString(t *testing.T) {
	u, err := lower(t, `(var s "hi") (return (cast int (peek8 s)))`)
	require.NoError(t, err)
	require.NotNil(t, u)
}

func TestLowerStringLiteralEmitsConstString(t *testing.T) {
	u, err := lower(t, `(var s "x") (return 0)`)
	require.NoError(t, err)
	main := u.Functions[0]
	foundConstWithStr := false
	for _, ins := range main.Instructions {
		if ins.Op == ir.OpConst && ins.Str >= 0 {
			foundConstWithStr = true
		}
	}
	assert.True(t, foundConstWithStr)
}

func TestLowerImplicitReturnTypeMismatchIsError(t *testing.T) {
	_, err := lower(t, `(def (f int) () "not an int") (return (call f))`)
	require.Error(t, err)
}
