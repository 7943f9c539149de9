package datafactory

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// Frame is an in-memory table. Rows hold one cell per column, in column
// order. Cells are nil, string, int64, float64, bool or time.Time once a
// dtype has been applied; loaders produce strings.
type Frame struct {
	Columns []string
	Rows    [][]any

	// DTypes records the types applied with AsType. Columns without an
	// entry are untyped.
	DTypes map[string]DType
}

// NewFrame builds a frame and checks that column names are unique and
// every row has one cell per column.
func NewFrame(columns []string, rows ...[]any) (*Frame, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, sserr.Newf(sserr.CodePipelineDefinition, "datafactory: duplicate column %q", c)
		}
		seen[c] = true
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, sserr.Newf(sserr.CodePipelineDefinition,
				"datafactory: row %d has %d values, expected %d", i, len(row), len(columns))
		}
	}
	return &Frame{Columns: slices.Clone(columns), Rows: rows}, nil
}

// Len is the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Shape returns the number of rows and columns.
func (f *Frame) Shape() (rows, columns int) { return len(f.Rows), len(f.Columns) }

// Index returns the position of column, or -1.
func (f *Frame) Index(column string) int {
	return slices.Index(f.Columns, column)
}

// Column returns the cells of one column.
func (f *Frame) Column(name string) ([]any, bool) {
	i := f.Index(name)
	if i < 0 {
		return nil, false
	}
	out := make([]any, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row[i]
	}
	return out, true
}

// Record returns row r keyed by column name.
func (f *Frame) Record(r int) map[string]any {
	rec := make(map[string]any, len(f.Columns))
	for i, c := range f.Columns {
		rec[c] = f.Rows[r][i]
	}
	return rec
}

// Copy returns a frame that shares no slices or maps with f.
func (f *Frame) Copy() *Frame {
	out := &Frame{
		Columns: slices.Clone(f.Columns),
		Rows:    make([][]any, len(f.Rows)),
		DTypes:  maps.Clone(f.DTypes),
	}
	for i, row := range f.Rows {
		out.Rows[i] = slices.Clone(row)
	}
	return out
}

// Select returns a frame with only columns, in the given order.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		if idx[i] = f.Index(c); idx[i] < 0 {
			return nil, sserr.Newf(sserr.CodePipelineProcess, "datafactory: column %q not found", c)
		}
	}

	out := &Frame{Columns: slices.Clone(columns), Rows: make([][]any, len(f.Rows))}
	for r, row := range f.Rows {
		sel := make([]any, len(idx))
		for i, j := range idx {
			sel[i] = row[j]
		}
		out.Rows[r] = sel
	}
	for _, c := range columns {
		if t, ok := f.DTypes[c]; ok {
			if out.DTypes == nil {
				out.DTypes = map[string]DType{}
			}
			out.DTypes[c] = t
		}
	}
	return out, nil
}

// AsType converts the listed columns. Every column must exist and every
// value must convert, otherwise a PIPE_002 error names the first failure.
func (f *Frame) AsType(dtypes map[string]DType) (*Frame, error) {
	out := f.Copy()
	if len(dtypes) == 0 {
		return out, nil
	}
	if out.DTypes == nil {
		out.DTypes = make(map[string]DType, len(dtypes))
	}

	// Sorted so the reported failure is deterministic.
	for _, col := range slices.Sorted(maps.Keys(dtypes)) {
		t := dtypes[col]
		if !t.Valid() {
			return nil, sserr.Newf(sserr.CodePipelineDefinition, "datafactory: unknown dtype %q for column %q", t, col)
		}
		i := out.Index(col)
		if i < 0 {
			return nil, sserr.Newf(sserr.CodePipelineProcess, "datafactory: cannot cast missing column %q", col)
		}
		for r, row := range out.Rows {
			v, err := Convert(row[i], t)
			if err != nil {
				return nil, sserr.Wrapf(err, sserr.CodePipelineProcess,
					"datafactory: cannot cast column %q row %d to %s", col, r, t).
					WithDetail("column", col)
			}
			row[i] = v
		}
		out.DTypes[col] = t
	}
	return out, nil
}

// SortBy returns a copy sorted by columns, left to right. The sort is
// stable.
func (f *Frame) SortBy(columns ...string) (*Frame, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		if idx[i] = f.Index(c); idx[i] < 0 {
			return nil, sserr.Newf(sserr.CodePipelineProcess, "datafactory: column %q not found", c)
		}
	}

	out := f.Copy()
	sort.SliceStable(out.Rows, func(a, b int) bool {
		for _, j := range idx {
			if c := Compare(out.Rows[a][j], out.Rows[b][j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out, nil
}

// String renders the shape, handy in failure messages.
func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%d rows x %d columns %v)", len(f.Rows), len(f.Columns), f.Columns)
}

// Concat stacks frames vertically. All frames must have the same columns
// in the same order. The result keeps the first frame's dtypes.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return &Frame{}, nil
	}
	first := frames[0]
	out := &Frame{Columns: slices.Clone(first.Columns), DTypes: maps.Clone(first.DTypes)}
	for _, fr := range frames {
		if !slices.Equal(fr.Columns, first.Columns) {
			return nil, sserr.Newf(sserr.CodePipelineProcess,
				"datafactory: cannot concat columns %v with %v", fr.Columns, first.Columns)
		}
		for _, row := range fr.Rows {
			out.Rows = append(out.Rows, slices.Clone(row))
		}
	}
	return out, nil
}
