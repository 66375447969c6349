package protocol

import (
	"github.com/danmuck/dstctl/internal/protocol/cursor"
)

// ValueKind distinguishes scalars, rectangular arrays and jagged rows.
type ValueKind uint8

const (
	KindScalar ValueKind = iota + 1
	KindArray
	KindJagged
)

func (k ValueKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindJagged:
		return "jagged"
	default:
		return "invalid"
	}
}

// Value is a decoded field value.
//
// Scalars use Int or Float depending on Type. Arrays keep row-major elements in
// Ints or Floats with Shape giving the extents. Jagged values hold one Value per
// outer row in Rows; rows are arrays or, for two-level partitions, jagged.
type Value struct {
	Kind   ValueKind
	Type   cursor.ElemType
	Int    int64
	Float  float64
	Shape  []int
	Ints   []int64
	Floats []float64
	Rows   []Value
}

func IntScalar(t cursor.ElemType, v int64) Value {
	return Value{Kind: KindScalar, Type: t, Int: v}
}

func FloatScalar(t cursor.ElemType, v float64) Value {
	return Value{Kind: KindScalar, Type: t, Float: v}
}

func IntArray(t cursor.ElemType, shape []int, vs []int64) Value {
	return Value{Kind: KindArray, Type: t, Shape: shape, Ints: vs}
}

func FloatArray(t cursor.ElemType, shape []int, vs []float64) Value {
	return Value{Kind: KindArray, Type: t, Shape: shape, Floats: vs}
}

func Jagged(t cursor.ElemType, rows []Value) Value {
	return Value{Kind: KindJagged, Type: t, Rows: rows}
}

// Len is the element count of an array, the row count of a jagged value and 1
// for a scalar.
func (v Value) Len() int {
	switch v.Kind {
	case KindScalar:
		return 1
	case KindArray:
		if v.Type.IsFloat() {
			return len(v.Floats)
		}
		return len(v.Ints)
	case KindJagged:
		return len(v.Rows)
	default:
		return 0
	}
}

// FlatInts returns every integer element in row-major order, descending into rows.
func (v Value) FlatInts() []int64 {
	switch v.Kind {
	case KindScalar:
		return []int64{v.Int}
	case KindArray:
		return v.Ints
	case KindJagged:
		var out []int64
		for _, row := range v.Rows {
			out = append(out, row.FlatInts()...)
		}
		return out
	default:
		return nil
	}
}

// FlatFloats is FlatInts for float values.
func (v Value) FlatFloats() []float64 {
	switch v.Kind {
	case KindScalar:
		return []float64{v.Float}
	case KindArray:
		return v.Floats
	case KindJagged:
		var out []float64
		for _, row := range v.Rows {
			out = append(out, row.FlatFloats()...)
		}
		return out
	default:
		return nil
	}
}
