package schema

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/dstctl/internal/protocol/cursor"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Format selects the definition file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var ErrUnknownFormat = errors.New("schema: unknown definition format")

// FormatOf infers a Format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

type fileSchema struct {
	Name   string      `yaml:"name" toml:"name"`
	BankID int32       `yaml:"bank_id" toml:"bank_id"`
	Endian string      `yaml:"endian" toml:"endian"`
	Layout []fileField `yaml:"layout" toml:"layout"`
}

type fileField struct {
	Name        string     `yaml:"name" toml:"name"`
	Type        string     `yaml:"type" toml:"type"`
	Shape       []any      `yaml:"shape" toml:"shape"`
	Count       any        `yaml:"count" toml:"count"`
	SizeRef     string     `yaml:"size_ref" toml:"size_ref"`
	Items       []fileItem `yaml:"items" toml:"items"`
	DType       string     `yaml:"dtype" toml:"dtype"`
	OuterCounts string     `yaml:"outer_counts" toml:"outer_counts"`
	InnerCounts string     `yaml:"inner_counts" toml:"inner_counts"`
	ItemShape   []int      `yaml:"item_shape" toml:"item_shape"`
}

type fileItem struct {
	Name     string `yaml:"name" toml:"name"`
	Type     string `yaml:"type" toml:"type"`
	Shape    []int  `yaml:"shape" toml:"shape"`
	SizeFrom string `yaml:"size_from" toml:"size_from"`
}

// LoadFile reads one definition file. The bank name defaults to the file stem.
func LoadFile(path string) (*Schema, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := Parse(data, format, stem)
	if err != nil {
		return nil, fmt.Errorf("schema: load %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a definition. defaultName is used when the
// document does not carry a name.
func Parse(data []byte, format Format, defaultName string) (*Schema, error) {
	var doc fileSchema
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("schema: parse yaml: %w", err)
		}
	case FormatTOML:
		meta, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("schema: parse toml: %w", err)
		}
		for _, key := range meta.Undecoded() {
			log.Debug().Str("key", key.String()).Msg("schema: ignoring toml key")
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if doc.Name == "" {
		doc.Name = defaultName
	}
	return doc.compile()
}

func (doc fileSchema) compile() (*Schema, error) {
	order, err := cursor.ParseOrder(doc.Endian)
	if err != nil {
		return nil, ValidationError{Bank: doc.Name, Reason: err.Error(), Err: err}
	}
	fields := make([]Field, 0, len(doc.Layout))
	for i, raw := range doc.Layout {
		f, err := raw.compile()
		if err != nil {
			name := raw.Name
			if name == "" {
				name = fmt.Sprintf("layout[%d]", i)
			}
			return nil, ValidationError{Bank: doc.Name, Field: name, Reason: err.Error(), Err: err}
		}
		fields = append(fields, f)
	}
	return New(doc.Name, doc.BankID, order, fields...)
}

func (raw fileField) compile() (Field, error) {
	switch raw.Type {
	case "interleaved_sequence":
		count, err := parseDim(raw.Count)
		if err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
		items, err := compileItems(raw.Items)
		if err != nil {
			return nil, err
		}
		return &InterleavedSequence{Name: raw.Name, Count: count, SizeRef: raw.SizeRef, Items: items}, nil
	case "bulk_jagged":
		t, err := cursor.ParseElemType(raw.DType)
		if err != nil {
			return nil, err
		}
		if raw.OuterCounts == "" {
			return nil, errors.New("bulk_jagged requires outer_counts")
		}
		return &BulkJagged{
			Name:        raw.Name,
			Type:        t,
			OuterCounts: raw.OuterCounts,
			InnerCounts: raw.InnerCounts,
			ItemShape:   raw.ItemShape,
		}, nil
	case "interleaved_mixed":
		count, err := parseDim(raw.Count)
		if err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
		items, err := compileItems(raw.Items)
		if err != nil {
			return nil, err
		}
		return &InterleavedMixed{Name: raw.Name, Count: count, Items: items}, nil
	}
	t, err := cursor.ParseElemType(raw.Type)
	if err != nil {
		return nil, err
	}
	var shape []Dim
	for _, d := range raw.Shape {
		dim, err := parseDim(d)
		if err != nil {
			return nil, fmt.Errorf("shape: %w", err)
		}
		shape = append(shape, dim)
	}
	return &Primitive{Name: raw.Name, Type: t, Shape: shape}, nil
}

func compileItems(raw []fileItem) ([]Item, error) {
	items := make([]Item, 0, len(raw))
	for _, it := range raw {
		t, err := cursor.ParseElemType(it.Type)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.Name, err)
		}
		items = append(items, Item{Name: it.Name, Type: t, Shape: it.Shape, SizeFrom: it.SizeFrom})
	}
	return items, nil
}

// parseDim accepts the decoded form of a literal or a name reference.
func parseDim(v any) (Dim, error) {
	switch x := v.(type) {
	case nil:
		return Dim{}, errors.New("missing extent")
	case string:
		if strings.TrimSpace(x) == "" {
			return Dim{}, errors.New("empty reference")
		}
		return Ref(x), nil
	case int:
		return Lit(x), nil
	case int64:
		return Lit(int(x)), nil
	case uint64:
		return Lit(int(x)), nil
	case float64:
		if x != math.Trunc(x) {
			return Dim{}, fmt.Errorf("non-integral extent %v", x)
		}
		return Lit(int(x)), nil
	default:
		return Dim{}, fmt.Errorf("unsupported extent %T", v)
	}
}
