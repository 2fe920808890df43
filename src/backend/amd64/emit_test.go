package amd64_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sxc/src/backend/amd64"
	"sxc/src/frontend"
	"sxc/src/ir"
)

func lowerUnit(t *testing.T, src string) *ir.Unit {
	t.Helper()
	tree, err := frontend.Parse(src)
	require.NoError(t, err)
	u, err := ir.Lower(tree)
	require.NoError(t, err)
	return u
}

func TestEmitSimpleProgramProducesBytes(t *testing.T) {
	u := lowerUnit(t, `(return (+ 2 3))`)
	em := amd64.NewEmitter(u)
	code, entry, err := em.Emit(amd64.ModeInMemory)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.GreaterOrEqual(t, entry, 0)
	assert.Less(t, entry, len(code))
}

func TestEmitOverloadedFunctionsProducesBytes(t *testing.T) {
	u := lowerUnit(t, `
		(def (f int) ((x int)) (return x))
		(def (g int) ((x byte)) (return (cast int x)))
		(return (call f 1))
	`)
	em := amd64.NewEmitter(u)
	code, _, err := em.Emit(amd64.ModeInMemory)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
}

func TestEmitELFModeProducesBytes(t *testing.T) {
	u := lowerUnit(t, `(var s "hi") (return (cast int (peek8 s)))`)
	em := amd64.NewEmitter(u)
	code, entry, err := em.Emit(amd64.ModeELF)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, 0, entry)
}

func TestEmitRecursiveFunctionCompiles(t *testing.T) {
	u := lowerUnit(t, `
		(def (fact int) ((n int)) (if (le n 1) 1 (* n (call fact (- n 1)))))
		(return (call fact 5))
	`)
	em := amd64.NewEmitter(u)
	_, _, err := em.Emit(amd64.ModeInMemory)
	require.NoError(t, err)
}

func TestEmitStatsReportedAtDrainTime(t *testing.T) {
	u := lowerUnit(t, `
		(def (f int) ((x int)) (return x))
		(var s "hi")
		(return (call f 1))
	`)
	em := amd64.NewEmitter(u)
	_, _, err := em.Emit(amd64.ModeInMemory)
	require.NoError(t, err)

	stats := em.Stats()
	assert.Equal(t, 2, stats.Functions)
	assert.Greater(t, stats.Instructions, 0)
	assert.Equal(t, 3, stats.StringPoolBytes) // "hi" + trailing NUL
	assert.Equal(t, 2, stats.CallPatchSites)  // the prolog's call into main, plus main's call to f
}

func TestEmitLoopCompiles(t *testing.T) {
	u := lowerUnit(t, `
		(var n 0) (var i 1)
		(loop (le i 10) (do (set n (+ n i)) (set i (+ i 1))))
		(return n)
	`)
	em := amd64.NewEmitter(u)
	_, _, err := em.Emit(amd64.ModeInMemory)
	require.NoError(t, err)
}
