package protocol

import (
	"fmt"
	"math"

	"github.com/danmuck/dstctl/internal/protocol/cursor"
	"github.com/danmuck/dstctl/internal/protocol/schema"
)

// DefaultOffset skips the bank id and version words that precede every payload.
const DefaultOffset = 8

type decodeOptions struct {
	offset int
}

type DecodeOption func(*decodeOptions)

// WithOffset starts decoding at n instead of DefaultOffset.
func WithOffset(n int) DecodeOption {
	return func(o *decodeOptions) {
		o.offset = n
	}
}

// Decode executes the layout of s against payload. On any error the partial
// record is discarded and the error is a *DecodeError naming the failing field.
func Decode(s *schema.Schema, payload []byte, opts ...DecodeOption) (*Record, error) {
	o := decodeOptions{offset: DefaultOffset}
	for _, opt := range opts {
		opt(&o)
	}
	d := &decoder{
		cur: cursor.New(payload, o.offset, s.Order),
		ctx: newDecodeContext(),
		rec: NewRecord(s.Name),
	}
	for _, f := range s.Fields {
		start := d.cur.Offset()
		if err := d.field(f); err != nil {
			return nil, &DecodeError{Bank: s.Name, Field: f.FieldName(), Offset: start, Err: err}
		}
	}
	d.rec.End = d.cur.Offset()
	return d.rec, nil
}

type decoder struct {
	cur *cursor.Cursor
	ctx *decodeContext
	rec *Record
}

func (d *decoder) field(f schema.Field) error {
	switch f := f.(type) {
	case *schema.Primitive:
		return d.primitive(f)
	case *schema.InterleavedSequence:
		return d.sequence(f)
	case *schema.BulkJagged:
		return d.bulk(f)
	case *schema.InterleavedMixed:
		return d.mixed(f)
	default:
		return fmt.Errorf("unsupported field %T", f)
	}
}

func (d *decoder) primitive(f *schema.Primitive) error {
	if len(f.Shape) == 0 {
		if f.Type.IsInteger() {
			vs, err := d.cur.ReadInts(f.Type, 1)
			if err != nil {
				return err
			}
			d.ctx.scalars[f.Name] = vs[0]
			d.rec.Set(f.Name, IntScalar(f.Type, vs[0]))
			return nil
		}
		vs, err := d.cur.ReadFloats(f.Type, 1)
		if err != nil {
			return err
		}
		d.rec.Set(f.Name, FloatScalar(f.Type, vs[0]))
		return nil
	}

	shape := make([]int, len(f.Shape))
	for i, dim := range f.Shape {
		n, err := d.dim(dim)
		if err != nil {
			return err
		}
		shape[i] = n
	}
	count, err := product(shape...)
	if err != nil {
		return err
	}
	v, err := d.read(f.Type, shape, count)
	if err != nil {
		return err
	}
	if f.Type.IsInteger() {
		d.ctx.arrays[f.Name] = v.Ints
	}
	d.rec.Set(f.Name, v)
	return nil
}

func (d *decoder) sequence(f *schema.InterleavedSequence) error {
	loops, err := d.dim(f.Count)
	if err != nil {
		return err
	}
	var sizes []int64
	if f.SizeRef != "" {
		sizes, _ = d.ctx.array(f.SizeRef)
		if len(sizes) < loops {
			return fmt.Errorf("%w: %s has %d entries, loop runs %d", ErrReferenceRange, f.SizeRef, len(sizes), loops)
		}
	}

	rows := make([][]Value, len(f.Items))
	for i := 0; i < loops; i++ {
		base := 1
		if sizes != nil {
			b, err := toCount(sizes[i])
			if err != nil {
				return err
			}
			base = b
		}
		for j, it := range f.Items {
			fixed, err := product(it.Shape...)
			if err != nil {
				return err
			}
			count, err := product(base, fixed)
			if err != nil {
				return err
			}
			shape := []int{count}
			if len(it.Shape) > 0 {
				shape = append([]int(nil), it.Shape...)
				if base != 1 {
					shape = append([]int{base}, shape...)
				}
			}
			v, err := d.read(it.Type, shape, count)
			if err != nil {
				return err
			}
			rows[j] = append(rows[j], v)
		}
	}
	d.storeRows(f.Items, rows)
	return nil
}

func (d *decoder) mixed(f *schema.InterleavedMixed) error {
	loops, err := d.dim(f.Count)
	if err != nil {
		return err
	}
	sizes := make([][]int64, len(f.Items))
	for j, it := range f.Items {
		if it.SizeFrom == "" {
			continue
		}
		ref, _ := d.ctx.array(it.SizeFrom)
		if len(ref) < loops {
			return fmt.Errorf("%w: %s has %d entries, loop runs %d", ErrReferenceRange, it.SizeFrom, len(ref), loops)
		}
		sizes[j] = ref
	}

	rows := make([][]Value, len(f.Items))
	for i := 0; i < loops; i++ {
		for j, it := range f.Items {
			count, err := product(it.Shape...)
			if err != nil {
				return err
			}
			if sizes[j] != nil {
				n, err := toCount(sizes[j][i])
				if err != nil {
					return err
				}
				if count, err = product(n, count); err != nil {
					return err
				}
			}
			v, err := d.read(it.Type, []int{count}, count)
			if err != nil {
				return err
			}
			rows[j] = append(rows[j], v)
		}
	}
	d.storeRows(f.Items, rows)
	return nil
}

// storeRows publishes per-item rows to the record and, for integer items, the
// flattened rows to the context.
func (d *decoder) storeRows(items []schema.Item, rows [][]Value) {
	for j, it := range items {
		v := Jagged(it.Type, rows[j])
		if v.Rows == nil {
			v.Rows = []Value{}
		}
		if it.Type.IsInteger() {
			d.ctx.arrays[it.Name] = v.FlatInts()
		}
		d.rec.Set(it.Name, v)
	}
}

func (d *decoder) bulk(f *schema.BulkJagged) error {
	outer, err := counts(d.ctx.arrays[f.OuterCounts])
	if err != nil {
		return err
	}
	perItem, err := product(f.ItemShape...)
	if err != nil {
		return err
	}

	var inner []int
	leaves := outer
	if f.InnerCounts != "" {
		if inner, err = counts(d.ctx.arrays[f.InnerCounts]); err != nil {
			return err
		}
		want, err := sum(outer)
		if err != nil {
			return err
		}
		if len(inner) != want {
			return fmt.Errorf("%w: %s has %d entries, sum(%s)=%d", ErrShapeMismatch, f.InnerCounts, len(inner), f.OuterCounts, want)
		}
		leaves = inner
	}

	total, err := sum(leaves)
	if err != nil {
		return err
	}
	n, err := product(total, perItem)
	if err != nil {
		return err
	}
	flat, err := d.read(f.Type, []int{n}, n)
	if err != nil {
		return err
	}

	level := partition(flat, leaves, f.ItemShape, perItem)
	if inner != nil {
		level = group(f.Type, level, outer)
	}
	if f.Type.IsInteger() {
		d.ctx.arrays[f.Name] = flat.Ints
	}
	d.rec.Set(f.Name, Jagged(f.Type, level))
	return nil
}

// partition splits a flat array into rows of sizes[i] items of itemShape.
func partition(flat Value, sizes []int, itemShape []int, perItem int) []Value {
	rows := make([]Value, 0, len(sizes))
	off := 0
	for _, n := range sizes {
		shape := append([]int{n}, itemShape...)
		end := off + n*perItem
		row := Value{Kind: KindArray, Type: flat.Type, Shape: shape}
		if flat.Type.IsFloat() {
			row.Floats = flat.Floats[off:end:end]
		} else {
			row.Ints = flat.Ints[off:end:end]
		}
		rows = append(rows, row)
		off = end
	}
	return rows
}

// group gathers consecutive rows into sizes[i]-length jagged rows.
func group(t cursor.ElemType, rows []Value, sizes []int) []Value {
	out := make([]Value, 0, len(sizes))
	off := 0
	for _, n := range sizes {
		out = append(out, Jagged(t, rows[off:off+n:off+n]))
		off += n
	}
	return out
}

func (d *decoder) read(t cursor.ElemType, shape []int, count int) (Value, error) {
	if t.IsInteger() {
		vs, err := d.cur.ReadInts(t, count)
		if err != nil {
			return Value{}, err
		}
		return IntArray(t, shape, vs), nil
	}
	vs, err := d.cur.ReadFloats(t, count)
	if err != nil {
		return Value{}, err
	}
	return FloatArray(t, shape, vs), nil
}

func (d *decoder) dim(dim schema.Dim) (int, error) {
	if !dim.IsRef() {
		return dim.Value, nil
	}
	v, ok := d.ctx.scalar(dim.Ref)
	if !ok {
		return 0, fmt.Errorf("unresolved reference %q", dim.Ref)
	}
	return toCount(v)
}

func toCount(v int64) (int, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d", cursor.ErrNegativeCount, v)
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: count %d", cursor.ErrBufferUnderrun, v)
	}
	return int(v), nil
}

func counts(vs []int64) ([]int, error) {
	out := make([]int, len(vs))
	for i, v := range vs {
		n, err := toCount(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// product multiplies non-negative extents. A product no buffer could hold is
// reported as an underrun.
func product(dims ...int) (int, error) {
	n := 1
	for _, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("%w: %d", cursor.ErrNegativeCount, d)
		}
		if d != 0 && n > math.MaxInt32/d {
			return 0, fmt.Errorf("%w: element count overflows", cursor.ErrBufferUnderrun)
		}
		n *= d
	}
	return n, nil
}

func sum(vs []int) (int, error) {
	n := 0
	for _, v := range vs {
		if n > math.MaxInt32-v {
			return 0, fmt.Errorf("%w: element count overflows", cursor.ErrBufferUnderrun)
		}
		n += v
	}
	return n, nil
}
