package util

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Diagnostics is an ordered list of compile errors. No caller uses it at
// present: the parser, the lowerer and the emitter all stop at their first
// error, and main.go prints that single error. The teacher's perror was a channel-based listener guarding a buffer
// written to from worker goroutines; sxc's core pipeline returns on its
// first fatal error (spec.md §7), so Diagnostics has no listener goroutine
// left to run — it is just an ordered, unsynchronised slice.
type Diagnostics struct {
	errors []error
}

// ---------------------
// ----- functions -----
// ---------------------

// NewDiagnostics returns an empty Diagnostics with room for n errors.
func NewDiagnostics(n int) *Diagnostics {
	if n < 1 {
		n = 16
	}
	return &Diagnostics{errors: make([]error, 0, n)}
}

// Append records err. Nil errors are ignored.
func (d *Diagnostics) Append(err error) {
	if err != nil {
		d.errors = append(d.errors, err)
	}
}

// Len returns the number of recorded errors.
func (d *Diagnostics) Len() int {
	return len(d.errors)
}

// Errors returns the recorded errors in the order they were appended.
func (d *Diagnostics) Errors() []error {
	return d.errors
}

// String renders every recorded error, one per line, tab-aligned the way
// the teacher's printHelp aligns flag descriptions.
func (d *Diagnostics) String() string {
	sb := strings.Builder{}
	tw := tabwriter.NewWriter(&sb, 2, 4, 1, ' ', 0)
	for i1, e1 := range d.errors {
		_, _ = fmt.Fprintf(tw, "%d:\t%s\n", i1+1, e1)
	}
	_ = tw.Flush()
	return sb.String()
}
