package protocol

import (
	"fmt"

	"github.com/danmuck/dstctl/internal/protocol/cursor"
	"github.com/danmuck/dstctl/internal/protocol/schema"
)

// Encode writes rec in the layout of s and returns the payload body, without
// the bank id and version words. Decode(s, header+body) yields rec again.
func Encode(s *schema.Schema, rec *Record) ([]byte, error) {
	e := &encoder{w: cursor.NewWriter(s.Order), rec: rec, ctx: newDecodeContext()}
	for _, f := range s.Fields {
		if err := e.field(f); err != nil {
			return nil, fmt.Errorf("protocol: encode bank=%s field=%s: %w", s.Name, f.FieldName(), err)
		}
	}
	return e.w.Bytes(), nil
}

type encoder struct {
	w   *cursor.Writer
	rec *Record
	ctx *decodeContext
}

func (e *encoder) get(name string, t cursor.ElemType) (Value, error) {
	v, ok := e.rec.Get(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	if v.Type != t {
		return Value{}, fmt.Errorf("%w: %s is %s, layout wants %s", ErrValueMismatch, name, v.Type, t)
	}
	return v, nil
}

func (e *encoder) field(f schema.Field) error {
	switch f := f.(type) {
	case *schema.Primitive:
		v, err := e.get(f.Name, f.Type)
		if err != nil {
			return err
		}
		if len(f.Shape) == 0 {
			if v.Kind != KindScalar {
				return fmt.Errorf("%w: %s is %s, want scalar", ErrValueMismatch, f.Name, v.Kind)
			}
			if f.Type.IsInteger() {
				e.ctx.scalars[f.Name] = v.Int
				return e.w.WriteInts(f.Type, []int64{v.Int})
			}
			return e.w.WriteFloats(f.Type, []float64{v.Float})
		}
		want := 1
		for _, dim := range f.Shape {
			n := dim.Value
			if dim.IsRef() {
				n = int(e.ctx.scalars[dim.Ref])
			}
			want *= n
		}
		if v.Kind != KindArray || v.Len() != want {
			return fmt.Errorf("%w: %s has %d elements, layout wants %d", ErrValueMismatch, f.Name, v.Len(), want)
		}
		if f.Type.IsInteger() {
			e.ctx.arrays[f.Name] = v.Ints
		}
		return e.write(v)
	case *schema.InterleavedSequence:
		return e.loop(f.Count, f.Items)
	case *schema.InterleavedMixed:
		return e.loop(f.Count, f.Items)
	case *schema.BulkJagged:
		v, err := e.get(f.Name, f.Type)
		if err != nil {
			return err
		}
		if f.Type.IsInteger() {
			flat := v.FlatInts()
			e.ctx.arrays[f.Name] = flat
			return e.w.WriteInts(f.Type, flat)
		}
		return e.w.WriteFloats(f.Type, v.FlatFloats())
	default:
		return fmt.Errorf("unsupported field %T", f)
	}
}

func (e *encoder) loop(count schema.Dim, items []schema.Item) error {
	loops := count.Value
	if count.IsRef() {
		loops = int(e.ctx.scalars[count.Ref])
	}
	values := make([]Value, len(items))
	for j, it := range items {
		v, err := e.get(it.Name, it.Type)
		if err != nil {
			return err
		}
		if v.Kind != KindJagged || len(v.Rows) != loops {
			return fmt.Errorf("%w: %s has %d rows, loop runs %d", ErrValueMismatch, it.Name, len(v.Rows), loops)
		}
		values[j] = v
	}
	for i := 0; i < loops; i++ {
		for j := range items {
			if err := e.write(values[j].Rows[i]); err != nil {
				return err
			}
		}
	}
	for j, it := range items {
		if it.Type.IsInteger() {
			e.ctx.arrays[it.Name] = values[j].FlatInts()
		}
	}
	return nil
}

func (e *encoder) write(v Value) error {
	if v.Type.IsInteger() {
		return e.w.WriteInts(v.Type, v.FlatInts())
	}
	return e.w.WriteFloats(v.Type, v.FlatFloats())
}
