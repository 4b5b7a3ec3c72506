// Package value holds the small tagged-union scalar type shared by the
// record schema, the query AST and the function library. A Value is either
// a string, an integer or a float; every component of the query pipeline
// that crosses a component boundary (record field, predicate operand,
// projected column, function result) speaks this type rather than bare
// interface{}.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies which of the three representations a Value holds.
type Kind int

const (
	// String holds an opaque string value.
	String Kind = iota
	// Int holds a 64 bit integer value.
	Int
	// Float holds a float64 value, produced by division-style functions.
	Float
)

// Value is a scalar produced by record extraction, a literal in the query
// tree, or a function library result.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	Flt  float64
}

// OfString is a convenience constructor for a string value.
func OfString(s string) Value { return Value{Kind: String, Str: s} }

// OfInt is a convenience constructor for an integer value.
func OfInt(i int64) Value { return Value{Kind: Int, Int: i} }

// OfFloat is a convenience constructor for a float value.
func OfFloat(f float64) Value { return Value{Kind: Float, Flt: f} }

// String renders the value the way it is displayed in a result table.
func (v Value) String() string {
	switch v.Kind {
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return strconv.FormatFloat(v.Flt, 'f', -1, 64)
	default:
		return v.Str
	}
}

// Int64 coerces the value to an integer, the way the row extractor and
// the query pipeline coerce raw strings and literal operands for numeric
// comparison and arithmetic. A lone "-" (Apache's empty-value marker)
// coerces to 0; any other string that does not parse as a decimal integer
// fails.
func (v Value) Int64() (int64, bool) {
	switch v.Kind {
	case Int:
		return v.Int, true
	case Float:
		return int64(v.Flt), true
	default:
		if v.Str == "-" {
			return 0, true
		}
		n, err := strconv.ParseInt(v.Str, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
}

// Float64 coerces the value to a float64.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case Int:
		return float64(v.Int), true
	case Float:
		return v.Flt, true
	default:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// GoString supports debug/tree dumps (-debug).
func (v Value) GoString() string {
	switch v.Kind {
	case Int:
		return fmt.Sprintf("Int(%d)", v.Int)
	case Float:
		return fmt.Sprintf("Float(%g)", v.Flt)
	default:
		return fmt.Sprintf("String(%q)", v.Str)
	}
}
