package protocol

import (
	"math"
	"strconv"
)

// MarshalJSON renders the record as one object with keys in layout order.
func (r *Record) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range r.Fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, f.Name)
		buf = append(buf, ':')
		buf = f.Value.appendJSON(buf)
	}
	return append(buf, '}'), nil
}

// MarshalJSON renders scalars as numbers, arrays nested by Shape and jagged
// values as arrays of rows. Non-finite floats become null.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil), nil
}

func (v Value) appendJSON(buf []byte) []byte {
	switch v.Kind {
	case KindScalar:
		if v.Type.IsFloat() {
			return appendFloat(buf, v.Float)
		}
		return strconv.AppendInt(buf, v.Int, 10)
	case KindArray:
		shape := v.Shape
		if n, err := product(shape...); err != nil || n != v.Len() || len(shape) == 0 {
			shape = []int{v.Len()}
		}
		buf, _ = v.appendDims(buf, shape, 0)
		return buf
	case KindJagged:
		buf = append(buf, '[')
		for i, row := range v.Rows {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = row.appendJSON(buf)
		}
		return append(buf, ']')
	default:
		return append(buf, "null"...)
	}
}

// appendDims writes elements starting at off nested by shape and returns the
// offset after the last element written.
func (v Value) appendDims(buf []byte, shape []int, off int) ([]byte, int) {
	buf = append(buf, '[')
	for i := 0; i < shape[0]; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		if len(shape) > 1 {
			buf, off = v.appendDims(buf, shape[1:], off)
			continue
		}
		if v.Type.IsFloat() {
			buf = appendFloat(buf, v.Floats[off])
		} else {
			buf = strconv.AppendInt(buf, v.Ints[off], 10)
		}
		off++
	}
	return append(buf, ']'), off
}

func appendFloat(buf []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(buf, "null"...)
	}
	return strconv.AppendFloat(buf, f, 'g', -1, 64)
}
