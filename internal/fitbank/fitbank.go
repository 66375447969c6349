package fitbank

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/dstctl/internal/protocol"
	"github.com/danmuck/dstctl/internal/protocol/cursor"
)

const (
	// MaxFit is the number of fit slots in mask-gated banks.
	MaxFit = 16
	// Success is the failure-mode code of a completed fit.
	Success = 0
	// MaxMatrixElements caps the PRFC matrix read per fit.
	MaxMatrixElements = 10
)

const (
	HCTIMBankID int32 = 15006
	HCBINBankID int32 = 15007
	STPS2BankID int32 = 15042
	STPLNBankID int32 = 15043
	PRFCBankID  int32 = 30002
)

// DecodeMask expands a packed mask MSB-first: bit 15 is slot 0, bit 0 is slot 15.
func DecodeMask(mask uint16) [MaxFit]bool {
	var slots [MaxFit]bool
	for i := range slots {
		slots[i] = mask&(0x8000>>uint(i)) != 0
	}
	return slots
}

// EncodeMask is the inverse of DecodeMask.
func EncodeMask(slots [MaxFit]bool) uint16 {
	var mask uint16
	for i, set := range slots {
		if set {
			mask |= 0x8000 >> uint(i)
		}
	}
	return mask
}

type options struct {
	offset int
	order  binary.ByteOrder
}

type Option func(*options)

// WithOffset overrides where decoding starts in the payload.
func WithOffset(n int) Option {
	return func(o *options) {
		o.offset = n
	}
}

// WithOrder overrides the little-endian default.
func WithOrder(order binary.ByteOrder) Option {
	return func(o *options) {
		o.order = order
	}
}

func newReader(bank string, payload []byte, offset int, opts []Option) *reader {
	o := options{offset: offset, order: binary.LittleEndian}
	for _, opt := range opts {
		opt(&o)
	}
	return &reader{bank: bank, c: cursor.New(payload, o.offset, o.order)}
}

// reader wraps a cursor with a sticky error. After the first failure every
// read returns a zero value and the error is reported once by finish.
type reader struct {
	bank    string
	section string
	at      int
	c       *cursor.Cursor
	err     error
}

func (r *reader) enter(format string, args ...any) {
	if r.err == nil {
		r.section = fmt.Sprintf(format, args...)
	}
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
		r.at = r.c.Offset()
	}
}

func (r *reader) finish() error {
	if r.err == nil {
		return nil
	}
	return &protocol.DecodeError{Bank: r.bank, Field: r.section, Offset: r.at, Err: r.err}
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.Uint16()
	r.fail(err)
	return v
}

func (r *reader) i8() int8 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.Int8()
	r.fail(err)
	return v
}

func (r *reader) i16() int16 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.Int16()
	r.fail(err)
	return v
}

func (r *reader) i32() int32 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.Int32()
	r.fail(err)
	return v
}

func (r *reader) f32() float32 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.Float32()
	r.fail(err)
	return v
}

func (r *reader) f64() float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.Float64()
	r.fail(err)
	return v
}

func (r *reader) i16s(n int) []int16 {
	if r.err != nil {
		return []int16{}
	}
	v, err := r.c.Int16s(n)
	if err != nil {
		r.fail(err)
		return []int16{}
	}
	return v
}

func (r *reader) i32s(n int) []int32 {
	if r.err != nil {
		return []int32{}
	}
	v, err := r.c.Int32s(n)
	if err != nil {
		r.fail(err)
		return []int32{}
	}
	return v
}

func (r *reader) f32s(n int) []float32 {
	if r.err != nil {
		return []float32{}
	}
	v, err := r.c.Float32s(n)
	if err != nil {
		r.fail(err)
		return []float32{}
	}
	return v
}

func (r *reader) f64s(n int) []float64 {
	if r.err != nil {
		return []float64{}
	}
	v, err := r.c.Float64s(n)
	if err != nil {
		r.fail(err)
		return []float64{}
	}
	return v
}

func (r *reader) vec3() [3]float64 {
	var v [3]float64
	copy(v[:], r.f64s(3))
	return v
}

func emptyFloats() [MaxFit][]float64 {
	var t [MaxFit][]float64
	for i := range t {
		t[i] = []float64{}
	}
	return t
}

func emptyInt16s() [MaxFit][]int16 {
	var t [MaxFit][]int16
	for i := range t {
		t[i] = []int16{}
	}
	return t
}

func emptyInt32s() [MaxFit][]int32 {
	var t [MaxFit][]int32
	for i := range t {
		t[i] = []int32{}
	}
	return t
}
