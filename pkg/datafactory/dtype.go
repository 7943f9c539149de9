package datafactory

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DType is the logical type of a column.
type DType string

const (
	String   DType = "string"
	Int64    DType = "int64"
	Float64  DType = "float64"
	Bool     DType = "bool"
	Datetime DType = "datetime"
)

// Valid reports whether t is a known type.
func (t DType) Valid() bool {
	switch t {
	case String, Int64, Float64, Bool, Datetime:
		return true
	}
	return false
}

// datetimeLayouts are tried in order when parsing datetime strings.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Convert casts v to t. A nil value stays nil, and so does an empty string
// for every type but String.
func Convert(v any, t DType) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && s == "" && t != String {
		return nil, nil
	}

	switch t {
	case String:
		return FormatValue(v), nil
	case Int64:
		return toInt64(v)
	case Float64:
		return toFloat64(v)
	case Bool:
		return toBool(v)
	case Datetime:
		return toTime(v)
	}
	return nil, fmt.Errorf("unknown dtype %q", t)
}

func toInt64(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return nil, fmt.Errorf("cannot convert %T to int64", v)
}

func floatToInt(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("cannot convert %v to int64 without losing precision", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	if i, err := toInt64(v); err == nil {
		return float64(i.(int64)), nil
	}
	return nil, fmt.Errorf("cannot convert %T to float64", v)
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	}
	if f, err := toFloat64(v); err == nil {
		return f.(float64) != 0, nil
	}
	return nil, fmt.Errorf("cannot convert %T to bool", v)
}

func toTime(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as datetime", x)
	}
	// Integers are unix seconds.
	if i, err := toInt64(v); err == nil {
		return time.Unix(i.(int64), 0).UTC(), nil
	}
	return nil, fmt.Errorf("cannot convert %T to datetime", v)
}

// FormatValue renders a cell the way CSV exports write it. nil is the
// empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Compare orders two cells. nil sorts first, numbers compare by value
// whatever their Go type, and mismatched types fall back to comparing
// their formatted text.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

// Equal reports whether two cells hold the same value. Numbers are equal
// across Go numeric types, so int 3 equals float64 3.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if _, ok := asFloat(a); ok {
		if _, ok := asFloat(b); ok {
			return Compare(a, b) == 0
		}
		return false
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
