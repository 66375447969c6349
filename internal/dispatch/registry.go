package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/dstctl/internal/protocol/frame"
)

var (
	ErrDecoderExists   = errors.New("dispatch: decoder already registered")
	ErrDecoderNil      = errors.New("dispatch: decoder is nil")
	ErrInvalidMetadata = errors.New("dispatch: invalid decoder metadata")
	// ErrSchemaLookup marks a bank id with no registered decoder. Callers skip
	// such banks; the rest of the stream is unaffected.
	ErrSchemaLookup = errors.New("dispatch: no decoder for bank")
)

// Kind tells how a bank is decoded.
type Kind string

const (
	KindSchema Kind = "schema"
	KindFit    Kind = "fit"
	KindMarker Kind = "marker"
)

type Metadata struct {
	ID          int32
	Name        string
	Kind        Kind
	Description string
}

// Decoder turns one bank payload (header included) into a value.
type Decoder interface {
	Metadata() Metadata
	Decode(payload []byte) (any, error)
}

// Decoded is the result of dispatching one bank.
type Decoded struct {
	ID      int32
	Version int32
	Name    string
	Kind    Kind
	Value   any
}

// Registry stores decoders by bank id and by name.
type Registry struct {
	items  map[int32]Decoder
	byName map[string]int32
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[int32]Decoder), byName: make(map[string]int32)}
}

// ValidateMetadata checks required metadata fields and the name format.
func ValidateMetadata(meta Metadata) error {
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMetadata)
	}
	if !isValidName(name) {
		return fmt.Errorf("%w: invalid name %q", ErrInvalidMetadata, name)
	}
	switch meta.Kind {
	case KindSchema, KindFit, KindMarker:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMetadata, meta.Kind)
	}
	return nil
}

func (r *Registry) Register(d Decoder) error {
	if d == nil {
		return ErrDecoderNil
	}
	meta := d.Metadata()
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	if prev, ok := r.items[meta.ID]; ok {
		return fmt.Errorf("%w: id %d (%s, %s)", ErrDecoderExists, meta.ID, prev.Metadata().Name, meta.Name)
	}
	if _, ok := r.byName[meta.Name]; ok {
		return fmt.Errorf("%w: name %s", ErrDecoderExists, meta.Name)
	}
	r.items[meta.ID] = d
	r.byName[meta.Name] = meta.ID
	return nil
}

func (r *Registry) Resolve(id int32) (Decoder, bool) {
	d, ok := r.items[id]
	return d, ok
}

func (r *Registry) ResolveName(name string) (Decoder, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.items[id], true
}

// ListMetadata returns metadata ordered by bank id.
func (r *Registry) ListMetadata() []Metadata {
	list := make([]Metadata, 0, len(r.items))
	for _, d := range r.items {
		list = append(list, d.Metadata())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

func (r *Registry) Len() int {
	return len(r.items)
}

// Decode resolves b.ID and decodes its payload. Unknown ids yield ErrSchemaLookup.
func (r *Registry) Decode(b frame.Bank) (Decoded, error) {
	d, ok := r.items[b.ID]
	if !ok {
		return Decoded{}, fmt.Errorf("%w: id=%d version=%d", ErrSchemaLookup, b.ID, b.Version)
	}
	meta := d.Metadata()
	out := Decoded{ID: b.ID, Version: b.Version, Name: meta.Name, Kind: meta.Kind}
	v, err := d.Decode(b.Payload)
	if err != nil {
		return out, err
	}
	out.Value = v
	return out, nil
}

// DecodeName decodes payload with the decoder registered under name.
func (r *Registry) DecodeName(name string, payload []byte) (any, error) {
	d, ok := r.ResolveName(name)
	if !ok {
		return nil, fmt.Errorf("%w: name=%q", ErrSchemaLookup, name)
	}
	return d.Decode(payload)
}

func isValidName(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		if !(isLower || isDigit || c == '_' || c == '-') {
			return false
		}
	}
	return name != ""
}
