package cursor

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ElemType is the on-disk element type of a scalar or array field.
type ElemType uint8

const (
	Int8 ElemType = iota + 1
	Int16
	Int32
	Float32
	Float64
)

// Size returns the encoded width in bytes, or 0 for an unknown type.
func (t ElemType) Size() int {
	switch t {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

func (t ElemType) IsInteger() bool {
	return t == Int8 || t == Int16 || t == Int32
}

func (t ElemType) IsFloat() bool {
	return t == Float32 || t == Float64
}

func (t ElemType) String() string {
	switch t {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("elemtype(%d)", uint8(t))
	}
}

// ParseElemType maps a schema type name to an ElemType.
func ParseElemType(raw string) (ElemType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "int8", "i1", "integer1":
		return Int8, nil
	case "int16", "i2", "integer2":
		return Int16, nil
	case "int32", "i4", "integer4":
		return Int32, nil
	case "float32", "f4", "real4":
		return Float32, nil
	case "float64", "f8", "real8":
		return Float64, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
}

// ParseOrder maps an endian tag ("<", ">", "little", "big") to a byte order.
// An empty tag means little-endian, matching the DST default.
func ParseOrder(raw string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "<", "little", "le":
		return binary.LittleEndian, nil
	case ">", "big", "be":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("cursor: unknown endian tag %q", raw)
	}
}
