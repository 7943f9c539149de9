package frametest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/scalde/scalde-go/pkg/datafactory"
)

// maxReportedCells bounds how many differing cells a failure lists.
const maxReportedCells = 10

type tHelper interface {
	Helper()
}

// Option relaxes or tightens frame comparison.
type Option func(*options)

type options struct {
	ignoreRowOrder    bool
	ignoreColumnOrder bool
	checkDTypes       bool
}

// IgnoreRowOrder compares rows as a multiset.
func IgnoreRowOrder() Option { return func(o *options) { o.ignoreRowOrder = true } }

// IgnoreColumnOrder only requires the same set of columns.
func IgnoreColumnOrder() Option { return func(o *options) { o.ignoreColumnOrder = true } }

// CheckDTypes also requires the recorded column dtypes to match.
func CheckDTypes() Option { return func(o *options) { o.checkDTypes = true } }

// AssertFrameEquals asserts that left and right hold the same cells.
// Numbers compare by value across Go types.
func AssertFrameEquals(t assert.TestingT, left, right *datafactory.Frame, opts ...Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if msg := diffFrames(left, right, opts); msg != "" {
		return assert.Fail(t, msg)
	}
	return true
}

// AssertFramePartiallyEquals compares only columns. Both frames must have
// all of them.
func AssertFramePartiallyEquals(t assert.TestingT, left, right *datafactory.Frame, columns []string, opts ...Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if msg := missingColumns(left, columns, "left"); msg != "" {
		return assert.Fail(t, msg)
	}
	if msg := missingColumns(right, columns, "right"); msg != "" {
		return assert.Fail(t, msg)
	}

	l, _ := left.Select(columns...)
	r, _ := right.Select(columns...)
	if msg := diffFrames(l, r, opts); msg != "" {
		return assert.Fail(t, msg)
	}
	return true
}

// AssertContainsLine asserts that some row of f equals line, given in
// column order.
func AssertContainsLine(t assert.TestingT, f *datafactory.Frame, line []any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return AssertContainsLines(t, f, [][]any{line})
}

// AssertContainsLines asserts that every line appears in f.
func AssertContainsLines(t assert.TestingT, f *datafactory.Frame, lines [][]any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	for _, line := range lines {
		if len(line) != len(f.Columns) {
			return assert.Fail(t, fmt.Sprintf("Line size mismatch: expected %d, got %d", len(f.Columns), len(line)))
		}
	}

	var missing []string
	for _, line := range lines {
		if !containsLine(f, line) {
			missing = append(missing, renderLine(f.Columns, line))
		}
	}
	switch len(missing) {
	case 0:
		return true
	case 1:
		return assert.Fail(t, fmt.Sprintf("Expected line %s not found in frame", missing[0]))
	}
	return assert.Fail(t, fmt.Sprintf("Expected lines %s not found in frame", strings.Join(missing, ", ")))
}

// FrameExpectation is an expected frame argument with its own comparison
// options. Build it with [Expect].
type FrameExpectation struct {
	Frame   *datafactory.Frame
	Options []Option
}

// Expect wraps a frame argument for [AssertCalledOnceWithFrame].
func Expect(f *datafactory.Frame, opts ...Option) FrameExpectation {
	return FrameExpectation{Frame: f, Options: opts}
}

// AssertCalledOnceWithFrame asserts that method was called exactly once
// on m, with args. Arguments that are *datafactory.Frame or
// [FrameExpectation] are compared as frames. mock.Anything matches any
// value, everything else is compared with assert.ObjectsAreEqual.
func AssertCalledOnceWithFrame(t assert.TestingT, m *mock.Mock, method string, args ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	var calls []mock.Call
	for _, c := range m.Calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	if len(calls) != 1 {
		return assert.Fail(t, fmt.Sprintf("Expected %s to be called once but was called %d times", method, len(calls)))
	}

	actual := calls[0].Arguments
	if len(actual) != len(args) {
		return assert.Fail(t, fmt.Sprintf("Expected %d argument(s) but got %d", len(args), len(actual)))
	}

	for i, want := range args {
		got := actual[i]
		var msg string
		switch w := want.(type) {
		case *datafactory.Frame:
			msg = diffFrameArg(got, w, nil)
		case FrameExpectation:
			msg = diffFrameArg(got, w.Frame, w.Options)
		default:
			if want != mock.Anything && !assert.ObjectsAreEqual(want, got) {
				msg = fmt.Sprintf("Expected %v but got %v", want, got)
			}
		}
		if msg != "" {
			return assert.Fail(t, fmt.Sprintf("argument %d of %s: %s", i, method, msg))
		}
	}
	return true
}

func diffFrameArg(got any, want *datafactory.Frame, opts []Option) string {
	f, ok := got.(*datafactory.Frame)
	if !ok {
		return fmt.Sprintf("Expected a frame but got %T", got)
	}
	return diffFrames(f, want, opts)
}

// diffFrames returns "" when the frames match, or a description of the
// first kind of difference found.
func diffFrames(left, right *datafactory.Frame, opts []Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if left == nil || right == nil {
		if left == right {
			return ""
		}
		return fmt.Sprintf("Expected both frames to be set, got left=%v right=%v", left, right)
	}

	lc, rc := slices.Sorted(slices.Values(left.Columns)), slices.Sorted(slices.Values(right.Columns))
	if !slices.Equal(lc, rc) {
		return fmt.Sprintf("Columns are different. left ones are %s and right ones are %s",
			formatColumns(lc), formatColumns(rc))
	}
	if !o.ignoreColumnOrder && !slices.Equal(left.Columns, right.Columns) {
		return fmt.Sprintf("Column order is different. left is %s and right is %s",
			formatColumns(left.Columns), formatColumns(right.Columns))
	}

	// Align right on left's column order, then optionally on row order.
	right, _ = right.Select(left.Columns...)
	if o.ignoreRowOrder {
		left, _ = left.SortBy(left.Columns...)
		right, _ = right.SortBy(left.Columns...)
	}

	if left.Len() != right.Len() {
		return fmt.Sprintf("Row count is different. left has %d rows and right has %d", left.Len(), right.Len())
	}

	if o.checkDTypes {
		for _, c := range left.Columns {
			if lt, rt := left.DTypes[c], right.DTypes[c]; lt != rt {
				return fmt.Sprintf("Column %q dtype is different. left is %q and right is %q", c, lt, rt)
			}
		}
	}

	var diffs []string
	total := 0
	for r := range left.Rows {
		for i, c := range left.Columns {
			lv, rv := left.Rows[r][i], right.Rows[r][i]
			if datafactory.Equal(lv, rv) {
				continue
			}
			total++
			if len(diffs) < maxReportedCells {
				diffs = append(diffs, fmt.Sprintf("row %d column %q: left=%s right=%s", r, c, renderValue(lv), renderValue(rv)))
			}
		}
	}
	if total == 0 {
		return ""
	}
	msg := fmt.Sprintf("Frames are different (%d cell(s)):\n  %s", total, strings.Join(diffs, "\n  "))
	if total > len(diffs) {
		msg += fmt.Sprintf("\n  ... and %d more", total-len(diffs))
	}
	return msg
}

func containsLine(f *datafactory.Frame, line []any) bool {
	for _, row := range f.Rows {
		match := true
		for i, v := range line {
			if !datafactory.Equal(row[i], v) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func missingColumns(f *datafactory.Frame, columns []string, side string) string {
	var missing []string
	for _, c := range columns {
		if f.Index(c) < 0 {
			missing = append(missing, fmt.Sprintf("'%s'", c))
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("Column(s) %s not found in %s frame", strings.Join(missing, ", "), side)
}

func formatColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = fmt.Sprintf("'%s'", c)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func renderLine(columns []string, line []any) string {
	parts := make([]string, len(line))
	for i, v := range line {
		parts[i] = fmt.Sprintf("%s=%s", columns[i], renderValue(v))
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func renderValue(v any) string {
	if v == nil {
		return "<nil>"
	}
	return datafactory.FormatValue(v)
}
