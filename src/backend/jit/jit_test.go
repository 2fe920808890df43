//go:build linux

package jit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sxc/src/backend/jit"
	"sxc/src/frontend"
	"sxc/src/ir"
	"sxc/src/util"
)

// run lowers src and executes it in memory, returning main's return slot
// value, matching spec.md §8's end-to-end scenario table.
func run(t *testing.T, src string) int64 {
	t.Helper()
	tree, err := frontend.Parse(src)
	require.NoError(t, err)
	unit, err := ir.Lower(tree)
	require.NoError(t, err)
	prog, err := jit.Compile(unit, util.Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, prog.Close()) }()
	return prog.Run()
}

func TestScenarioA_SimpleAddition(t *testing.T) {
	require.EqualValues(t, 5, run(t, `(return (+ 2 3))`))
}

func TestScenarioB_LocalsSubtraction(t *testing.T) {
	require.EqualValues(t, 6, run(t, `(var x 10) (var y 4) (return (- x y))`))
}

func TestScenarioC_StringPeek(t *testing.T) {
	require.EqualValues(t, 104, run(t, `(var s "hi") (return (cast int (peek8 s)))`))
}

func TestScenarioD_LoopSummation(t *testing.T) {
	require.EqualValues(t, 55, run(t, `
		(var n 0) (var i 1)
		(loop (le i 10) (do (set n (+ n i)) (set i (+ i 1))))
		(return n)
	`))
}

func TestScenarioE_FactorialRecursion(t *testing.T) {
	require.EqualValues(t, 120, run(t, `
		(def (fact int) ((n int)) (if (le n 1) 1 (* n (call fact (- n 1)))))
		(return (call fact 5))
	`))
}

func TestScenarioF_SyscallMmapAndPoke(t *testing.T) {
	require.EqualValues(t, 65, run(t, `
		(var buf (syscall 9 0 4096 3 0x22 -1 0))
		(poke8 (cast (ptr byte) buf) 'A'u8)
		(return (cast int (peek8 (cast (ptr byte) buf))))
	`))
}

func TestLiteralRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 0x7FFFFFFF, 0x80000000, -0x80000000, 0x7FFFFFFFFFFFFFFF}
	for _, n := range cases {
		t.Run("", func(t *testing.T) {
			require.EqualValues(t, n, run(t, "(return "+itoa(n)+")"))
		})
	}
}

func itoa(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := ""
	if n == 0 {
		s = "0"
	}
	for n > 0 {
		s = string(rune('0'+n%10)) + s
		n /= 10
	}
	if neg {
		s = "-" + s
	}
	return s
}
