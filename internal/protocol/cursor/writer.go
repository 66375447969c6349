package cursor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer appends typed elements to a growing buffer.
type Writer struct {
	buf   []byte
	order binary.ByteOrder
	tmp   [8]byte
}

func NewWriter(order binary.ByteOrder) *Writer {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Writer{order: order}
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) Int8(v int8) {
	w.buf = append(w.buf, byte(v))
}

func (w *Writer) Int16(v int16) {
	w.order.PutUint16(w.tmp[:2], uint16(v))
	w.buf = append(w.buf, w.tmp[:2]...)
}

func (w *Writer) Uint16(v uint16) {
	w.order.PutUint16(w.tmp[:2], v)
	w.buf = append(w.buf, w.tmp[:2]...)
}

func (w *Writer) Int32(v int32) {
	w.order.PutUint32(w.tmp[:4], uint32(v))
	w.buf = append(w.buf, w.tmp[:4]...)
}

func (w *Writer) Float32(v float32) {
	w.order.PutUint32(w.tmp[:4], math.Float32bits(v))
	w.buf = append(w.buf, w.tmp[:4]...)
}

func (w *Writer) Float64(v float64) {
	w.order.PutUint64(w.tmp[:8], math.Float64bits(v))
	w.buf = append(w.buf, w.tmp[:8]...)
}

func (w *Writer) Int16s(vs ...int16) {
	for _, v := range vs {
		w.Int16(v)
	}
}

func (w *Writer) Int32s(vs ...int32) {
	for _, v := range vs {
		w.Int32(v)
	}
}

func (w *Writer) Float32s(vs ...float32) {
	for _, v := range vs {
		w.Float32(v)
	}
}

func (w *Writer) Float64s(vs ...float64) {
	for _, v := range vs {
		w.Float64(v)
	}
}

// WriteInts narrows each value to t and appends it.
func (w *Writer) WriteInts(t ElemType, vs []int64) error {
	for _, v := range vs {
		switch t {
		case Int8:
			w.Int8(int8(v))
		case Int16:
			w.Int16(int16(v))
		case Int32:
			w.Int32(int32(v))
		default:
			return fmt.Errorf("%w: %s is not an integer type", ErrUnknownType, t)
		}
	}
	return nil
}

// WriteFloats narrows each value to t and appends it.
func (w *Writer) WriteFloats(t ElemType, vs []float64) error {
	for _, v := range vs {
		switch t {
		case Float32:
			w.Float32(float32(v))
		case Float64:
			w.Float64(v)
		default:
			return fmt.Errorf("%w: %s is not a float type", ErrUnknownType, t)
		}
	}
	return nil
}
