package schema

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/dstctl/internal/protocol/cursor"
	"github.com/danmuck/dstctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const hitsYAML = `
name: hits
bank_id: 12345
endian: "<"
layout:
  - name: nhit
    type: int32
  - name: pos
    type: float32
    shape: [nhit, 3]
  - name: loop
    type: interleaved_sequence
    count: nhit
    items:
      - name: npe
        type: int16
      - name: t
        type: float64
        shape: [2]
  - name: trace
    type: bulk_jagged
    dtype: int16
    outer_counts: npe
`

const hitsTOML = `
name = "hits"
bank_id = 12345
endian = "<"

[[layout]]
name = "nhit"
type = "int32"

[[layout]]
name = "pos"
type = "float32"
shape = ["nhit", 3]

[[layout]]
name = "loop"
type = "interleaved_sequence"
count = "nhit"

  [[layout.items]]
  name = "npe"
  type = "int16"

  [[layout.items]]
  name = "t"
  type = "float64"
  shape = [2]

[[layout]]
name = "trace"
type = "bulk_jagged"
dtype = "int16"
outer_counts = "npe"
`

func expectedHits() *Schema {
	return &Schema{
		Name:   "hits",
		BankID: 12345,
		Order:  binary.LittleEndian,
		Fields: []Field{
			&Primitive{Name: "nhit", Type: cursor.Int32},
			&Primitive{Name: "pos", Type: cursor.Float32, Shape: []Dim{Ref("nhit"), Lit(3)}},
			&InterleavedSequence{Name: "loop", Count: Ref("nhit"), Items: []Item{
				{Name: "npe", Type: cursor.Int16},
				{Name: "t", Type: cursor.Float64, Shape: []int{2}},
			}},
			&BulkJagged{Name: "trace", Type: cursor.Int16, OuterCounts: "npe"},
		},
	}
}

func TestParseYAMLAndTOMLAgree(t *testing.T) {
	testlog.Start(t)

	fromYAML, err := Parse([]byte(hitsYAML), FormatYAML, "")
	require.NoError(t, err)
	fromTOML, err := Parse([]byte(hitsTOML), FormatTOML, "")
	require.NoError(t, err)

	want := expectedHits()
	if diff := cmp.Diff(want, fromYAML); diff != "" {
		t.Fatalf("yaml schema mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, fromTOML); diff != "" {
		t.Fatalf("toml schema mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBigEndianAndDefaultName(t *testing.T) {
	testlog.Start(t)

	s, err := Parse([]byte("endian: \">\"\nlayout:\n  - {name: a, type: i4}\n"), FormatYAML, "stem")
	require.NoError(t, err)
	require.Equal(t, "stem", s.Name)
	require.Equal(t, binary.BigEndian, s.Order)
	require.Zero(t, s.BankID)
}

func TestValidateRejectsForwardReference(t *testing.T) {
	testlog.Start(t)

	_, err := New("bad", 0, nil,
		&Primitive{Name: "xs", Type: cursor.Float32, Shape: []Dim{Ref("n")}},
		&Primitive{Name: "n", Type: cursor.Int32},
	)
	var vErr ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	require.Equal(t, "bad", vErr.Bank)
	require.Equal(t, "xs", vErr.Field)
}

func TestValidateReferenceShapes(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		name   string
		fields []Field
	}{
		{
			name: "shape ref to float scalar",
			fields: []Field{
				&Primitive{Name: "f", Type: cursor.Float64},
				&Primitive{Name: "xs", Type: cursor.Int16, Shape: []Dim{Ref("f")}},
			},
		},
		{
			name: "outer counts is scalar",
			fields: []Field{
				&Primitive{Name: "n", Type: cursor.Int32},
				&BulkJagged{Name: "b", Type: cursor.Int16, OuterCounts: "n"},
			},
		},
		{
			name: "size_ref is float array",
			fields: []Field{
				&Primitive{Name: "sz", Type: cursor.Float32, Shape: []Dim{Lit(2)}},
				&InterleavedSequence{Name: "l", Count: Lit(2), SizeRef: "sz", Items: []Item{{Name: "a", Type: cursor.Int8}}},
			},
		},
		{
			name: "size_from outside mixed loop",
			fields: []Field{
				&Primitive{Name: "sz", Type: cursor.Int32, Shape: []Dim{Lit(2)}},
				&InterleavedSequence{Name: "l", Count: Lit(2), Items: []Item{{Name: "a", Type: cursor.Int8, SizeFrom: "sz"}}},
			},
		},
		{
			name: "duplicate name",
			fields: []Field{
				&Primitive{Name: "n", Type: cursor.Int32},
				&Primitive{Name: "n", Type: cursor.Int16},
			},
		},
		{
			name: "negative literal",
			fields: []Field{
				&Primitive{Name: "xs", Type: cursor.Int16, Shape: []Dim{Lit(-1)}},
			},
		},
		{
			name: "empty loop",
			fields: []Field{
				&InterleavedMixed{Name: "m", Count: Lit(1)},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("bank", 0, nil, tc.fields...)
			var vErr ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestLoopItemsBecomeIntegerArrays(t *testing.T) {
	testlog.Start(t)

	_, err := New("mixed", 0, nil,
		&Primitive{Name: "n", Type: cursor.Int32},
		&InterleavedMixed{Name: "m", Count: Ref("n"), Items: []Item{
			{Name: "cnt", Type: cursor.Int32},
		}},
		&BulkJagged{Name: "vals", Type: cursor.Float32, OuterCounts: "cnt", ItemShape: []int{2}},
	)
	require.NoError(t, err)
}

func TestParseRejectsUnknownType(t *testing.T) {
	testlog.Start(t)

	_, err := Parse([]byte("name: x\nlayout:\n  - {name: a, type: complex128}\n"), FormatYAML, "")
	require.ErrorIs(t, err, cursor.ErrUnknownType)

	_, err = Parse([]byte("name: x\nlayout:\n  - {name: a, type: interleaved_jagged, count: 1}\n"), FormatYAML, "")
	require.Error(t, err)
}

func TestCatalogLoadDir(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hits.yaml"), []byte(hitsYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geo.toml"), []byte("bank_id = 7\n[[layout]]\nname = \"x\"\ntype = \"real8\"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	c := NewCatalog()
	require.NoError(t, c.LoadDir(dir))
	require.Equal(t, 2, c.Len())

	s, ok := c.LookupID(12345)
	require.True(t, ok)
	require.Equal(t, "hits", s.Name)

	s, ok = c.Lookup("geo")
	require.True(t, ok)
	require.Equal(t, int32(7), s.BankID)

	names := []string{}
	for _, s := range c.List() {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{"geo", "hits"}, names)
}

func TestCatalogRejectsDuplicateID(t *testing.T) {
	testlog.Start(t)

	c := NewCatalog()
	require.NoError(t, c.Register(MustNew("a", 9, nil, &Primitive{Name: "x", Type: cursor.Int8})))
	err := c.Register(MustNew("b", 9, nil, &Primitive{Name: "x", Type: cursor.Int8}))
	require.ErrorIs(t, err, ErrDuplicateSchema)
}

func TestCatalogLoadDirAllCollectsFailures(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte("layout:\n  - {name: a, type: int8}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("layout:\n  - {name: a, type: int8, shape: [n]}\n"), 0o600))

	c := NewCatalog()
	failures, err := c.LoadDirAll(dir)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Equal(t, 1, c.Len())
}
