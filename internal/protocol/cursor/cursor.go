package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrBufferUnderrun = errors.New("cursor: buffer underrun")
	ErrNegativeCount  = errors.New("cursor: negative element count")
	ErrUnknownType    = errors.New("cursor: unknown element type")
)

// Cursor is a forward-only reader over a byte buffer.
// A failed read never advances the offset.
type Cursor struct {
	buf   []byte
	off   int
	order binary.ByteOrder
}

// New returns a cursor positioned at offset. A nil order means little-endian.
func New(buf []byte, offset int, order binary.ByteOrder) *Cursor {
	if order == nil {
		order = binary.LittleEndian
	}
	if offset < 0 {
		offset = 0
	}
	return &Cursor{buf: buf, off: offset, order: order}
}

func (c *Cursor) Offset() int {
	return c.off
}

func (c *Cursor) Len() int {
	return len(c.buf)
}

func (c *Cursor) Remaining() int {
	if c.off >= len(c.buf) {
		return 0
	}
	return len(c.buf) - c.off
}

func (c *Cursor) Order() binary.ByteOrder {
	return c.order
}

// take reserves n elements of size bytes and returns their backing bytes.
func (c *Cursor) take(n, size int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d at offset %d", ErrNegativeCount, n, c.off)
	}
	if c.off > len(c.buf) {
		return nil, fmt.Errorf("%w: offset=%d past end of %d-byte buffer", ErrBufferUnderrun, c.off, len(c.buf))
	}
	have := c.Remaining()
	if size > 0 && n > have/size {
		return nil, fmt.Errorf("%w: offset=%d need=%d have=%d", ErrBufferUnderrun, c.off, uint64(n)*uint64(size), have)
	}
	end := c.off + n*size
	b := c.buf[c.off:end]
	c.off = end
	return b, nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.take(n, 1)
	return err
}

// Bytes returns a copy of the next n bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	b, err := c.take(n, 1)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (c *Cursor) Int8() (int8, error) {
	b, err := c.take(1, 1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (c *Cursor) Int16() (int16, error) {
	b, err := c.take(1, 2)
	if err != nil {
		return 0, err
	}
	return int16(c.order.Uint16(b)), nil
}

func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.take(1, 2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

func (c *Cursor) Int32() (int32, error) {
	b, err := c.take(1, 4)
	if err != nil {
		return 0, err
	}
	return int32(c.order.Uint32(b)), nil
}

func (c *Cursor) Float32() (float32, error) {
	b, err := c.take(1, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(c.order.Uint32(b)), nil
}

func (c *Cursor) Float64() (float64, error) {
	b, err := c.take(1, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(c.order.Uint64(b)), nil
}

func (c *Cursor) Int8s(n int) ([]int8, error) {
	b, err := c.take(n, 1)
	if err != nil {
		return nil, err
	}
	out := make([]int8, n)
	for i := range out {
		out[i] = int8(b[i])
	}
	return out, nil
}

func (c *Cursor) Int16s(n int) ([]int16, error) {
	b, err := c.take(n, 2)
	if err != nil {
		return nil, err
	}
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(c.order.Uint16(b[i*2:]))
	}
	return out, nil
}

func (c *Cursor) Int32s(n int) ([]int32, error) {
	b, err := c.take(n, 4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(c.order.Uint32(b[i*4:]))
	}
	return out, nil
}

func (c *Cursor) Float32s(n int) ([]float32, error) {
	b, err := c.take(n, 4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(c.order.Uint32(b[i*4:]))
	}
	return out, nil
}

func (c *Cursor) Float64s(n int) ([]float64, error) {
	b, err := c.take(n, 8)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(c.order.Uint64(b[i*8:]))
	}
	return out, nil
}

// ReadInts reads n integer elements of type t widened to int64.
func (c *Cursor) ReadInts(t ElemType, n int) ([]int64, error) {
	if !t.IsInteger() {
		return nil, fmt.Errorf("%w: %s is not an integer type", ErrUnknownType, t)
	}
	size := t.Size()
	b, err := c.take(n, size)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		p := b[i*size:]
		switch t {
		case Int8:
			out[i] = int64(int8(p[0]))
		case Int16:
			out[i] = int64(int16(c.order.Uint16(p)))
		case Int32:
			out[i] = int64(int32(c.order.Uint32(p)))
		}
	}
	return out, nil
}

// ReadFloats reads n floating point elements of type t widened to float64.
func (c *Cursor) ReadFloats(t ElemType, n int) ([]float64, error) {
	if !t.IsFloat() {
		return nil, fmt.Errorf("%w: %s is not a float type", ErrUnknownType, t)
	}
	size := t.Size()
	b, err := c.take(n, size)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		p := b[i*size:]
		if t == Float32 {
			out[i] = float64(math.Float32frombits(c.order.Uint32(p)))
		} else {
			out[i] = math.Float64frombits(c.order.Uint64(p))
		}
	}
	return out, nil
}
