package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/dstctl/internal/fitbank"
	"github.com/danmuck/dstctl/internal/protocol/cursor"
	"github.com/danmuck/dstctl/internal/protocol/frame"
	"github.com/danmuck/dstctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

const rusdrawYAML = `
name: rusdraw
bank_id: 2000
layout:
  - name: event_num
    type: int32
`

// execute runs dstctl with args against a config path that does not exist.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(dir, "absent.toml")}, args...))
	err := root.Execute()
	return out.String(), err
}

// fixture writes a schema dir and a packed stream of two events.
func fixture(t *testing.T) (dir, stream string) {
	t.Helper()
	dir = t.TempDir()
	schemas := filepath.Join(dir, "schemas")
	require.NoError(t, os.Mkdir(schemas, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(schemas, "rusdraw.yaml"), []byte(rusdrawYAML), 0o600))

	var inputs []string
	for i := int32(1); i <= 2; i++ {
		w := cursor.NewWriter(nil)
		w.Int32(i)
		path := filepath.Join(dir, "rusdraw"+string(rune('0'+i))+".bin")
		require.NoError(t, os.WriteFile(path, frame.EncodeBank(2000, 1, w.Bytes()), 0o600))
		inputs = append(inputs, path)
	}
	stream = filepath.Join(dir, "run.dst")
	_, err := execute(t, dir, append([]string{"pack", "-o", stream}, inputs...)...)
	require.NoError(t, err)

	hcbin := filepath.Join(dir, "hcbin.body")
	w := cursor.NewWriter(nil)
	w.Uint16(0)
	require.NoError(t, os.WriteFile(hcbin, w.Bytes(), 0o600))
	withFit := filepath.Join(dir, "fit.dst")
	_, err = execute(t, dir, "pack", "--raw", "--id", "15007", "-o", withFit, hcbin)
	require.NoError(t, err)
	return dir, stream
}

func TestDecodeWritesEvents(t *testing.T) {
	testlog.Start(t)

	dir, stream := fixture(t)
	out := filepath.Join(dir, "events.jsonl")
	_, err := execute(t, dir, "--schemas", filepath.Join(dir, "schemas"), "decode", "-o", out, stream, filepath.Join(dir, "fit.dst"))
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 3)

	first := lines[0]["banks"].(map[string]any)["rusdraw"].(map[string]any)
	require.EqualValues(t, 1, first["value"].(map[string]any)["event_num"])
	require.EqualValues(t, 2, lines[2]["event"], "event index continues across files")
	fit := lines[2]["banks"].(map[string]any)["hcbin"].(map[string]any)
	require.EqualValues(t, fitbank.HCBINBankID, fit["id"])
}

func TestDecodeLimitAndBankFilter(t *testing.T) {
	testlog.Start(t)

	dir, stream := fixture(t)
	out := filepath.Join(dir, "events.jsonl")
	_, err := execute(t, dir, "--schemas", filepath.Join(dir, "schemas"), "--limit", "1", "decode", "-o", out, stream)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), "\n"))

	_, err = execute(t, dir, "--banks", "nope", "decode", "-o", out, stream)
	require.Error(t, err)
}

func TestBanksListsStream(t *testing.T) {
	testlog.Start(t)

	dir, stream := fixture(t)
	out, err := execute(t, dir, "--schemas", filepath.Join(dir, "schemas"), "banks", stream)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(out, "rusdraw"))
	require.Contains(t, out, "2000")
	require.Contains(t, out, "banks=2")
}

func TestBanksMaxRows(t *testing.T) {
	testlog.Start(t)

	dir, stream := fixture(t)
	out, err := execute(t, dir, "--schemas", filepath.Join(dir, "schemas"), "banks", "--max-rows", "1", stream)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(out, "rusdraw"))
}

func TestDecodeStartOffsetFlag(t *testing.T) {
	testlog.Start(t)

	dir, stream := fixture(t)
	out := filepath.Join(dir, "events.jsonl")
	_, err := execute(t, dir, "--schemas", filepath.Join(dir, "schemas"), "--start-offset", "0", "decode", "-o", out, stream)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	first := strings.SplitN(string(data), "\n", 2)[0]
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(first), &line))
	rusdraw := line["banks"].(map[string]any)["rusdraw"].(map[string]any)
	require.EqualValues(t, 2000, rusdraw["value"].(map[string]any)["event_num"], "offset 0 reads the bank id")
}

func TestValidate(t *testing.T) {
	testlog.Start(t)

	dir, stream := fixture(t)
	schemas := filepath.Join(dir, "schemas")
	out, err := execute(t, dir, "--schemas", schemas, "validate", stream)
	require.NoError(t, err)
	require.Contains(t, out, "ok: 1 file(s)")

	require.NoError(t, os.WriteFile(filepath.Join(schemas, "bad.yaml"), []byte("layout:\n  - {name: a, type: int8, shape: [n]}\n"), 0o600))
	_, err = execute(t, dir, "--schemas", schemas, "validate", "--schemas-only")
	require.Error(t, err)

	truncated := filepath.Join(dir, "truncated.dst")
	data, err := os.ReadFile(stream)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(truncated, append(data, 1, 2, 3), 0o600))
	_, err = execute(t, dir, "validate", truncated)
	require.ErrorIs(t, err, frame.ErrTruncatedBlock)
}

func TestDecodersAndInit(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	out, err := execute(t, dir, "decoders")
	require.NoError(t, err)
	for _, name := range []string{"hcbin", "hctim", "prfc", "stpln", "stps2", "start", "stop"} {
		require.Contains(t, out, name)
	}

	path := filepath.Join(dir, "dstctl.toml")
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "init"})
	require.NoError(t, root.Execute())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "schema_dir")
}
