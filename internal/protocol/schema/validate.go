package schema

import (
	"fmt"
	"strings"

	"github.com/danmuck/dstctl/internal/protocol/cursor"
	"github.com/rs/zerolog/log"
)

type ValidationError struct {
	Bank   string
	Field  string
	Reason string
	Err    error
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: bank=%s: %s", e.Bank, e.Reason)
	}
	return fmt.Sprintf("schema: bank=%s field=%s: %s", e.Bank, e.Field, e.Reason)
}

type symbol int

const (
	symScalarInt symbol = iota + 1
	symArrayInt
	symOther
)

func (s symbol) String() string {
	switch s {
	case symScalarInt:
		return "integer scalar"
	case symArrayInt:
		return "integer array"
	default:
		return "non-integer value"
	}
}

type validator struct {
	bank    string
	symbols map[string]symbol
}

// Validate checks that every name reference resolves to an earlier field of the
// right shape, that names are unique and that literal extents are non-negative.
func Validate(s *Schema) error {
	log.Debug().Str("bank", s.Name).Int("fields", len(s.Fields)).Msg("schema.Validate")
	if strings.TrimSpace(s.Name) == "" {
		return ValidationError{Reason: "missing bank name"}
	}
	v := &validator{bank: s.Name, symbols: make(map[string]symbol)}
	for _, f := range s.Fields {
		if err := v.field(f); err != nil {
			log.Error().Err(err).Msg("schema.Validate failed")
			return err
		}
	}
	return nil
}

func (v *validator) fail(field, format string, args ...any) error {
	return ValidationError{Bank: v.bank, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (v *validator) field(f Field) error {
	switch f := f.(type) {
	case *Primitive:
		if err := v.declare(f.Name, f.Type); err != nil {
			return err
		}
		for _, d := range f.Shape {
			if err := v.dim(f.Name, d); err != nil {
				return err
			}
		}
		sym := symOther
		if f.Type.IsInteger() {
			sym = symScalarInt
			if len(f.Shape) > 0 {
				sym = symArrayInt
			}
		}
		v.symbols[f.Name] = sym
	case *InterleavedSequence:
		if err := v.dim(f.Name, f.Count); err != nil {
			return err
		}
		if f.SizeRef != "" {
			if err := v.ref(f.Name, f.SizeRef, symArrayInt); err != nil {
				return err
			}
		}
		if err := v.items(f.Name, f.Items, false); err != nil {
			return err
		}
	case *BulkJagged:
		if err := v.declare(f.Name, f.Type); err != nil {
			return err
		}
		if err := v.ref(f.Name, f.OuterCounts, symArrayInt); err != nil {
			return err
		}
		if f.InnerCounts != "" {
			if err := v.ref(f.Name, f.InnerCounts, symArrayInt); err != nil {
				return err
			}
		}
		if err := v.literals(f.Name, f.ItemShape); err != nil {
			return err
		}
		v.symbols[f.Name] = symOther
		if f.Type.IsInteger() {
			v.symbols[f.Name] = symArrayInt
		}
	case *InterleavedMixed:
		if err := v.dim(f.Name, f.Count); err != nil {
			return err
		}
		if err := v.items(f.Name, f.Items, true); err != nil {
			return err
		}
	case nil:
		return v.fail("", "nil field")
	default:
		return v.fail(f.FieldName(), "unsupported field kind %s", f.Kind())
	}
	return nil
}

func (v *validator) declare(name string, t cursor.ElemType) error {
	if strings.TrimSpace(name) == "" {
		return v.fail("", "field without name")
	}
	if _, ok := v.symbols[name]; ok {
		return v.fail(name, "duplicate field name")
	}
	if t.Size() == 0 {
		return v.fail(name, "unknown element type %s", t)
	}
	return nil
}

func (v *validator) dim(field string, d Dim) error {
	if d.IsRef() {
		return v.ref(field, d.Ref, symScalarInt)
	}
	if d.Value < 0 {
		return v.fail(field, "negative extent %d", d.Value)
	}
	return nil
}

func (v *validator) literals(field string, dims []int) error {
	for _, d := range dims {
		if d < 0 {
			return v.fail(field, "negative extent %d", d)
		}
	}
	return nil
}

func (v *validator) ref(field, name string, want symbol) error {
	got, ok := v.symbols[name]
	if !ok {
		return v.fail(field, "reference %q is not an earlier field", name)
	}
	if got != want {
		return v.fail(field, "reference %q is a %s, want %s", name, got, want)
	}
	return nil
}

func (v *validator) items(loop string, items []Item, mixed bool) error {
	if len(items) == 0 {
		return v.fail(loop, "loop declares no items")
	}
	for _, it := range items {
		if err := v.declare(it.Name, it.Type); err != nil {
			return err
		}
		if err := v.literals(it.Name, it.Shape); err != nil {
			return err
		}
		if it.SizeFrom != "" {
			if !mixed {
				return v.fail(it.Name, "size_from is only valid in interleaved_mixed")
			}
			if err := v.ref(it.Name, it.SizeFrom, symArrayInt); err != nil {
				return err
			}
		}
	}
	// Integer sub-items become flat integer arrays once the loop completes.
	for _, it := range items {
		v.symbols[it.Name] = symOther
		if it.Type.IsInteger() {
			v.symbols[it.Name] = symArrayInt
		}
	}
	return nil
}
