package datafactory

// Validation checks the final frame before it is exported.
type Validation interface {
	IsValid(f *Frame) bool
	Name() string
}

// NewValidation returns a named Validation around fn.
func NewValidation(name string, fn func(f *Frame) bool) Validation {
	return validationFunc{name: name, fn: fn}
}

type validationFunc struct {
	name string
	fn   func(*Frame) bool
}

func (v validationFunc) IsValid(f *Frame) bool { return v.fn(f) }
func (v validationFunc) Name() string          { return v.name }

// NotEmpty fails on a frame without rows.
func NotEmpty() Validation {
	return NewValidation("NotEmpty", func(f *Frame) bool { return f.Len() > 0 })
}

// NoNulls fails when any of columns holds a nil cell or is missing.
func NoNulls(columns ...string) Validation {
	return NewValidation("NoNulls", func(f *Frame) bool {
		for _, c := range columns {
			cells, ok := f.Column(c)
			if !ok {
				return false
			}
			for _, v := range cells {
				if v == nil {
					return false
				}
			}
		}
		return true
	})
}

// UniqueBy fails when two rows share the same values in columns.
func UniqueBy(columns ...string) Validation {
	return NewValidation("UniqueBy", func(f *Frame) bool {
		sel, err := f.Select(columns...)
		if err != nil {
			return false
		}
		seen := make(map[string]bool, sel.Len())
		for _, row := range sel.Rows {
			key := ""
			for _, v := range row {
				key += FormatValue(v) + "\x1f"
			}
			if seen[key] {
				return false
			}
			seen[key] = true
		}
		return true
	})
}
