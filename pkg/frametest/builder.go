// Package frametest provides a frame builder and testify-style assertions
// for datafactory frames.
//
//	want := frametest.ADataFrame().
//	    WithColumns("name", "age").
//	    WithRow("toto", 12).
//	    Build()
//	frametest.AssertFrameEquals(t, got, want, frametest.IgnoreRowOrder())
//
// Assertions take assert.TestingT and return whether they passed, so they
// combine with require-style early exits:
//
//	if !frametest.AssertFrameEquals(t, got, want) {
//	    t.FailNow()
//	}
package frametest

import (
	"fmt"
	"maps"
	"slices"

	"github.com/scalde/scalde-go/pkg/datafactory"
)

// Builder assembles a frame for a test. Build panics on malformed input.
type Builder struct {
	columns []string
	rows    [][]any
	dtypes  map[string]datafactory.DType
}

// ADataFrame starts an empty frame.
func ADataFrame() *Builder {
	return &Builder{}
}

// WithColumns appends columns. Existing rows get nil cells for them.
func (b *Builder) WithColumns(columns ...string) *Builder {
	for _, c := range columns {
		b.addColumn(c)
	}
	return b
}

// WithRow appends a row given in column order.
func (b *Builder) WithRow(values ...any) *Builder {
	b.rows = append(b.rows, slices.Clone(values))
	return b
}

// WithRecord appends a row given by column name. Unknown columns are
// added in sorted order; columns the record omits get nil.
func (b *Builder) WithRecord(record map[string]any) *Builder {
	for _, c := range slices.Sorted(maps.Keys(record)) {
		b.addColumn(c)
	}
	row := make([]any, len(b.columns))
	for i, c := range b.columns {
		row[i] = record[c]
	}
	b.rows = append(b.rows, row)
	return b
}

// WithDTypes casts columns when the frame is built.
func (b *Builder) WithDTypes(dtypes map[string]datafactory.DType) *Builder {
	if b.dtypes == nil {
		b.dtypes = map[string]datafactory.DType{}
	}
	maps.Copy(b.dtypes, dtypes)
	return b
}

// Build returns the frame.
func (b *Builder) Build() *datafactory.Frame {
	f, err := datafactory.NewFrame(b.columns, b.rows...)
	if err != nil {
		panic(fmt.Sprintf("frametest: %v", err))
	}
	if len(b.dtypes) == 0 {
		return f
	}
	typed, err := f.AsType(b.dtypes)
	if err != nil {
		panic(fmt.Sprintf("frametest: %v", err))
	}
	return typed
}

func (b *Builder) addColumn(c string) {
	if slices.Contains(b.columns, c) {
		return
	}
	b.columns = append(b.columns, c)
	for i := range b.rows {
		if len(b.rows[i]) < len(b.columns) {
			b.rows[i] = append(b.rows[i], nil)
		}
	}
}
