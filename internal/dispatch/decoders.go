package dispatch

import (
	"fmt"
	"strings"

	"github.com/danmuck/dstctl/internal/fitbank"
	"github.com/danmuck/dstctl/internal/protocol"
	"github.com/danmuck/dstctl/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

// Marker bank ids carry no payload beyond their header.
const (
	StartBankID int32 = 1400000023
	StopBankID  int32 = 1400000101
)

// Marker is the decoded value of a START or STOP bank.
type Marker struct {
	Active bool `json:"active"`
}

type schemaDecoder struct {
	s    *schema.Schema
	opts []protocol.DecodeOption
}

// SchemaDecoder decodes banks with a declarative layout.
func SchemaDecoder(s *schema.Schema, opts ...protocol.DecodeOption) Decoder {
	return schemaDecoder{s: s, opts: opts}
}

func (d schemaDecoder) Metadata() Metadata {
	return Metadata{
		ID:          d.s.BankID,
		Name:        d.s.Name,
		Kind:        KindSchema,
		Description: fmt.Sprintf("schema layout, %d fields", len(d.s.Fields)),
	}
}

func (d schemaDecoder) Decode(payload []byte) (any, error) {
	return protocol.Decode(d.s, payload, d.opts...)
}

type funcDecoder struct {
	meta Metadata
	fn   func([]byte) (any, error)
}

func (d funcDecoder) Metadata() Metadata {
	return d.meta
}

func (d funcDecoder) Decode(payload []byte) (any, error) {
	return d.fn(payload)
}

// FitDecoders returns the decoders of the five conditional fit banks.
func FitDecoders() []Decoder {
	return []Decoder{
		funcDecoder{
			meta: Metadata{ID: fitbank.HCTIMBankID, Name: "hctim", Kind: KindFit, Description: "time geometry fits"},
			fn:   func(p []byte) (any, error) { return fitbank.DecodeHCTIM(p) },
		},
		funcDecoder{
			meta: Metadata{ID: fitbank.HCBINBankID, Name: "hcbin", Kind: KindFit, Description: "light flux bins"},
			fn:   func(p []byte) (any, error) { return fitbank.DecodeHCBIN(p) },
		},
		funcDecoder{
			meta: Metadata{ID: fitbank.STPS2BankID, Name: "stps2", Kind: KindFit, Description: "stereo filter values"},
			fn:   func(p []byte) (any, error) { return fitbank.DecodeSTPS2(p) },
		},
		funcDecoder{
			meta: Metadata{ID: fitbank.STPLNBankID, Name: "stpln", Kind: KindFit, Description: "stereo plane fits"},
			fn:   func(p []byte) (any, error) { return fitbank.DecodeSTPLN(p) },
		},
		funcDecoder{
			meta: Metadata{ID: fitbank.PRFCBankID, Name: "prfc", Kind: KindFit, Description: "profile constraint fits"},
			fn:   func(p []byte) (any, error) { return fitbank.DecodePRFC(p) },
		},
	}
}

// MarkerDecoders returns the START and STOP marker decoders.
func MarkerDecoders() []Decoder {
	marker := func([]byte) (any, error) { return Marker{Active: true}, nil }
	return []Decoder{
		funcDecoder{meta: Metadata{ID: StartBankID, Name: "start", Kind: KindMarker, Description: "event start marker"}, fn: marker},
		funcDecoder{meta: Metadata{ID: StopBankID, Name: "stop", Kind: KindMarker, Description: "event stop marker"}, fn: marker},
	}
}

// New builds a registry of fit banks, markers and every catalog schema that
// declares a bank id. A nil catalog registers only the built-in decoders.
// opts apply to every schema decoder.
func New(catalog *schema.Catalog, opts ...protocol.DecodeOption) (*Registry, error) {
	r := NewRegistry()
	builtins := append(FitDecoders(), MarkerDecoders()...)
	for _, d := range builtins {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	if catalog == nil {
		return r, nil
	}
	for _, s := range catalog.List() {
		if s.BankID == 0 {
			log.Debug().Str("bank", s.Name).Msg("dispatch: schema has no bank_id, skipped")
			continue
		}
		if err := r.Register(SchemaDecoder(s, opts...)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Select narrows names to known decoders. An empty list selects every bank.
func (r *Registry) Select(names []string) (map[int32]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	sel := make(map[int32]bool, len(names))
	var unknown []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, ok := r.byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		sel[id] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaLookup, strings.Join(unknown, ","))
	}
	return sel, nil
}
