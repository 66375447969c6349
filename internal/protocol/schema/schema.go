package schema

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/danmuck/dstctl/internal/protocol/cursor"
)

// Kind enumerates the four layout kinds.
type Kind int

const (
	KindPrimitive Kind = iota
	KindInterleavedSequence
	KindBulkJagged
	KindInterleavedMixed
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindInterleavedSequence:
		return "interleaved_sequence"
	case KindBulkJagged:
		return "bulk_jagged"
	case KindInterleavedMixed:
		return "interleaved_mixed"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Dim is either a literal extent or a reference to an earlier integer scalar.
type Dim struct {
	Value int
	Ref   string
}

func Lit(v int) Dim {
	return Dim{Value: v}
}

func Ref(name string) Dim {
	return Dim{Ref: name}
}

func (d Dim) IsRef() bool {
	return d.Ref != ""
}

func (d Dim) String() string {
	if d.IsRef() {
		return d.Ref
	}
	return strconv.Itoa(d.Value)
}

// Field is one layout entry. The concrete types in this file are the closed set
// of implementations; decoders switch over them exhaustively.
type Field interface {
	FieldName() string
	Kind() Kind
	sealed()
}

// Primitive reads a scalar, or a shaped array when Shape is set.
type Primitive struct {
	Name  string
	Type  cursor.ElemType
	Shape []Dim
}

// Item is a sub-field of an interleaved loop.
type Item struct {
	Name     string
	Type     cursor.ElemType
	Shape    []int
	SizeFrom string
}

// InterleavedSequence reads Items in turn for Count iterations. SizeRef, when set,
// names an integer array giving each iteration's base multiplicity.
type InterleavedSequence struct {
	Name    string
	Count   Dim
	SizeRef string
	Items   []Item
}

// BulkJagged reads one flat run and partitions it by OuterCounts (and InnerCounts).
type BulkJagged struct {
	Name        string
	Type        cursor.ElemType
	OuterCounts string
	InnerCounts string
	ItemShape   []int
}

// InterleavedMixed is an interleaved loop where each Item picks its own row size.
type InterleavedMixed struct {
	Name  string
	Count Dim
	Items []Item
}

func (f *Primitive) FieldName() string           { return f.Name }
func (f *InterleavedSequence) FieldName() string { return f.Name }
func (f *BulkJagged) FieldName() string          { return f.Name }
func (f *InterleavedMixed) FieldName() string    { return f.Name }

func (f *Primitive) Kind() Kind           { return KindPrimitive }
func (f *InterleavedSequence) Kind() Kind { return KindInterleavedSequence }
func (f *BulkJagged) Kind() Kind          { return KindBulkJagged }
func (f *InterleavedMixed) Kind() Kind    { return KindInterleavedMixed }

func (*Primitive) sealed()           {}
func (*InterleavedSequence) sealed() {}
func (*BulkJagged) sealed()          {}
func (*InterleavedMixed) sealed()    {}

// Schema is an immutable, validated bank layout.
type Schema struct {
	Name   string
	BankID int32
	Order  binary.ByteOrder
	Fields []Field
}

// New validates fields and returns a Schema. A nil order means little-endian.
func New(name string, bankID int32, order binary.ByteOrder, fields ...Field) (*Schema, error) {
	if order == nil {
		order = binary.LittleEndian
	}
	s := &Schema{Name: name, BankID: bankID, Order: order, Fields: fields}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is New for statically known layouts.
func MustNew(name string, bankID int32, order binary.ByteOrder, fields ...Field) *Schema {
	s, err := New(name, bankID, order, fields...)
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return s
}
