package frame

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/danmuck/dstctl/internal/testutil/testlog"
	"github.com/klauspost/compress/gzip"
)

// blockBuilder assembles a single raw block by hand.
type blockBuilder struct {
	buf []byte
}

func (b *blockBuilder) cmd(c Command) *blockBuilder {
	b.buf = append(b.buf, OpCode, byte(c))
	return b
}

func (b *blockBuilder) i32(v int32) *blockBuilder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(v))
	return b
}

func (b *blockBuilder) raw(p []byte) *blockBuilder {
	b.buf = append(b.buf, p...)
	return b
}

func (b *blockBuilder) block() []byte {
	out := make([]byte, BlockLen)
	copy(out, b.buf)
	return out
}

func collect(t *testing.T, stream []byte, opts Options) ([]Bank, *Demuxer, error) {
	t.Helper()
	d := NewDemuxer(bytes.NewReader(stream), opts)
	var banks []Bank
	for {
		b, err := d.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return banks, d, nil
		}
		if err != nil {
			return banks, d, err
		}
		banks = append(banks, b)
	}
}

func TestSingleBankInOneBlock(t *testing.T) {
	testlog.Start(t)
	header := EncodeBank(1000, 1, nil)
	stream := (&blockBuilder{}).
		cmd(CmdStartBlock).i32(7).
		cmd(CmdStartBank).i32(8).raw(header).
		cmd(CmdEndBank).i32(0).
		block()

	banks, _, err := collect(t, stream, DefaultOptions())
	if err != nil {
		t.Fatalf("demux: %v", err)
	}
	if len(banks) != 1 {
		t.Fatalf("expected 1 bank, got %d", len(banks))
	}
	if banks[0].ID != 1000 || banks[0].Version != 1 || !bytes.Equal(banks[0].Payload, header) {
		t.Fatalf("unexpected bank: %+v", banks[0])
	}
}

func TestSplitBankReassembles(t *testing.T) {
	testlog.Start(t)
	payload := EncodeBank(12001, 3, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9})

	first := (&blockBuilder{}).
		cmd(CmdStartBlock).i32(0).
		cmd(CmdStartBank).i32(4).raw(payload[:4]).
		cmd(CmdToBeContinued).i32(0).
		cmd(CmdEndBlockLogical).
		block()
	second := (&blockBuilder{}).
		cmd(CmdStartBlock).i32(1).
		cmd(CmdContinue).i32(int32(len(payload) - 4)).raw(payload[4:]).
		cmd(CmdEndBank).i32(0).
		cmd(CmdEndBlockPhysical).
		block()

	split, _, err := collect(t, append(first, second...), DefaultOptions())
	if err != nil {
		t.Fatalf("demux split: %v", err)
	}

	whole := (&blockBuilder{}).
		cmd(CmdStartBlock).i32(0).
		cmd(CmdStartBank).i32(int32(len(payload))).raw(payload).
		cmd(CmdEndBank).i32(0).
		block()
	unsplit, _, err := collect(t, whole, DefaultOptions())
	if err != nil {
		t.Fatalf("demux unsplit: %v", err)
	}

	if len(split) != 1 || len(unsplit) != 1 {
		t.Fatalf("expected one bank each, got split=%d unsplit=%d", len(split), len(unsplit))
	}
	if !bytes.Equal(split[0].Payload, unsplit[0].Payload) {
		t.Fatalf("split payload differs: %v vs %v", split[0].Payload, unsplit[0].Payload)
	}
	if split[0].ID != 12001 || split[0].Version != 3 {
		t.Fatalf("unexpected header: id=%d ver=%d", split[0].ID, split[0].Version)
	}
}

func TestWriterRoundTripAcrossBlocks(t *testing.T) {
	testlog.Start(t)
	big := make([]byte, 3*BlockLen+123)
	for i := range big {
		big[i] = byte(i * 7)
	}
	payloads := [][]byte{
		EncodeBank(1, 0, []byte("small")),
		EncodeBank(2, 1, big),
		EncodeBank(3, 2, nil),
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, p := range payloads {
		if err := w.WriteBank(p); err != nil {
			t.Fatalf("write bank: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.Len()%BlockLen != 0 {
		t.Fatalf("stream not block aligned: %d", buf.Len())
	}

	banks, d, err := collect(t, buf.Bytes(), Options{Strict: true})
	if err != nil {
		t.Fatalf("demux: %v", err)
	}
	if len(banks) != len(payloads) {
		t.Fatalf("expected %d banks, got %d", len(payloads), len(banks))
	}
	for i := range payloads {
		if !bytes.Equal(banks[i].Payload, payloads[i]) {
			t.Fatalf("bank %d payload mismatch", i)
		}
	}
	if d.Stats().Warnings != 0 {
		t.Fatalf("unexpected warnings: %+v", d.Stats())
	}
	if d.Stats().Blocks < 4 {
		t.Fatalf("expected bank to span blocks, stats=%+v", d.Stats())
	}
}

func TestGarbageBytesAreSkipped(t *testing.T) {
	testlog.Start(t)
	header := EncodeBank(5, 0, []byte{0xAA})
	stream := (&blockBuilder{}).
		raw([]byte{0x01, 0x02, 0xFF}).
		cmd(CmdFiller).
		cmd(Command(0x55)).
		cmd(CmdStartBank).i32(int32(len(header))).raw(header).
		raw([]byte{0x00, 0x13}).
		cmd(CmdEndBank).i32(0).
		block()

	banks, d, err := collect(t, stream, DefaultOptions())
	if err != nil {
		t.Fatalf("demux: %v", err)
	}
	if len(banks) != 1 || banks[0].ID != 5 {
		t.Fatalf("unexpected banks: %+v", banks)
	}
	if d.Stats().Warnings != 0 {
		t.Fatalf("filler should not warn: %+v", d.Stats())
	}
}

func TestLenientRecoveryWarns(t *testing.T) {
	testlog.Start(t)
	first := EncodeBank(10, 0, []byte{1})
	second := EncodeBank(11, 0, []byte{2})
	stream := (&blockBuilder{}).
		cmd(CmdContinue).i32(3).raw([]byte{9, 9, 9}).
		cmd(CmdStartBank).i32(int32(len(first))).raw(first).
		cmd(CmdStartBank).i32(int32(len(second))).raw(second).
		cmd(CmdEndBank).i32(0).
		block()

	var warnings []Warning
	opts := DefaultOptions()
	opts.OnWarning = func(w Warning) { warnings = append(warnings, w) }
	banks, d, err := collect(t, stream, opts)
	if err != nil {
		t.Fatalf("demux: %v", err)
	}
	if len(banks) != 1 || banks[0].ID != 11 {
		t.Fatalf("expected only the second bank, got %+v", banks)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %+v", len(warnings), warnings)
	}
	for _, w := range warnings {
		if !errors.Is(w.Kind, ErrUnexpectedState) {
			t.Fatalf("unexpected warning kind: %v", w)
		}
	}
	if d.Stats().DroppedBanks != 1 {
		t.Fatalf("expected 1 dropped bank, got %+v", d.Stats())
	}
}

func TestStrictModeFails(t *testing.T) {
	testlog.Start(t)
	stream := (&blockBuilder{}).
		cmd(CmdContinue).i32(1).raw([]byte{0}).
		block()
	_, _, err := collect(t, stream, Options{Strict: true})
	var se *StreamError
	if !errors.As(err, &se) {
		t.Fatalf("expected StreamError, got %v", err)
	}
	if !errors.Is(err, ErrUnexpectedState) {
		t.Fatalf("expected ErrUnexpectedState, got %v", err)
	}
}

func TestShortBankIsDropped(t *testing.T) {
	testlog.Start(t)
	stream := (&blockBuilder{}).
		cmd(CmdStartBank).i32(4).raw([]byte{1, 2, 3, 4}).
		cmd(CmdEndBank).i32(0).
		block()
	banks, d, err := collect(t, stream, DefaultOptions())
	if err != nil {
		t.Fatalf("demux: %v", err)
	}
	if len(banks) != 0 || d.Stats().DroppedBanks != 1 {
		t.Fatalf("expected short bank dropped, banks=%d stats=%+v", len(banks), d.Stats())
	}
}

func TestSegmentCrossingBlockEnd(t *testing.T) {
	testlog.Start(t)
	b := (&blockBuilder{}).cmd(CmdStartBank).i32(BlockLen).block()
	_, _, err := collect(t, b, Options{Strict: true})
	if !errors.Is(err, ErrMalformedStream) {
		t.Fatalf("expected ErrMalformedStream, got %v", err)
	}
}

func TestOversizeDeclaredBankIsDroppedWithoutAllocating(t *testing.T) {
	testlog.Start(t)
	var stream []byte
	for i := 0; i < 4; i++ {
		stream = append(stream, (&blockBuilder{}).cmd(CmdStartBank).i32(0x7fffffff).raw([]byte{1, 2, 3}).block()...)
	}
	header := EncodeBank(42, 1, nil)
	stream = append(stream, (&blockBuilder{}).cmd(CmdStartBank).i32(8).raw(header).cmd(CmdEndBank).i32(0).block()...)

	var warnings []Warning
	opts := DefaultOptions()
	opts.OnWarning = func(w Warning) { warnings = append(warnings, w) }

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	banks, d, err := collect(t, stream, opts)
	runtime.ReadMemStats(&after)
	if err != nil {
		t.Fatalf("demux: %v", err)
	}
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 16<<20 {
		t.Fatalf("demux allocated %d bytes for oversize declarations", grew)
	}
	if len(banks) != 1 || banks[0].ID != 42 {
		t.Fatalf("expected the valid bank to survive, got %+v", banks)
	}
	if d.Stats().DroppedBanks != 4 || len(warnings) != 4 {
		t.Fatalf("expected 4 dropped banks and warnings, stats=%+v warnings=%d", d.Stats(), len(warnings))
	}
	for _, w := range warnings {
		if !errors.Is(w.Kind, ErrMalformedStream) {
			t.Fatalf("unexpected warning kind %v", w.Kind)
		}
	}

	strict := DefaultOptions()
	strict.Strict = true
	if _, _, err := collect(t, stream, strict); !errors.Is(err, ErrMalformedStream) {
		t.Fatalf("expected ErrMalformedStream in strict mode, got %v", err)
	}
}

func TestBankGrowingPastLimitIsDropped(t *testing.T) {
	testlog.Start(t)
	first := (&blockBuilder{}).
		cmd(CmdStartBank).i32(10).raw(make([]byte, 10)).
		cmd(CmdToBeContinued).i32(0).
		block()
	header := EncodeBank(7, 2, nil)
	second := (&blockBuilder{}).
		cmd(CmdContinue).i32(10).raw(make([]byte, 10)).
		cmd(CmdEndBank).i32(0).
		cmd(CmdStartBank).i32(8).raw(header).
		cmd(CmdEndBank).i32(0).
		block()

	var warnings []Warning
	banks, d, err := collect(t, append(first, second...), Options{
		MaxBankBytes: 16,
		OnWarning:    func(w Warning) { warnings = append(warnings, w) },
	})
	if err != nil {
		t.Fatalf("demux: %v", err)
	}
	if len(banks) != 1 || banks[0].ID != 7 {
		t.Fatalf("expected only the small bank, got %+v", banks)
	}
	if d.Stats().DroppedBanks != 1 {
		t.Fatalf("expected 1 dropped bank, got %+v", d.Stats())
	}
	if len(warnings) != 1 || !errors.Is(warnings[0].Kind, ErrMalformedStream) {
		t.Fatalf("expected one malformed-stream warning, got %+v", warnings)
	}
}

func TestTruncatedFinalBlock(t *testing.T) {
	testlog.Start(t)
	header := EncodeBank(1, 1, nil)
	full := (&blockBuilder{}).
		cmd(CmdStartBank).i32(8).raw(header).
		cmd(CmdEndBank).i32(0).
		block()
	stream := append(full, make([]byte, 100)...)

	var warnings []Warning
	banks, _, err := collect(t, stream, Options{OnWarning: func(w Warning) { warnings = append(warnings, w) }})
	if err != nil {
		t.Fatalf("lenient demux: %v", err)
	}
	if len(banks) != 1 {
		t.Fatalf("expected 1 bank, got %d", len(banks))
	}
	if len(warnings) != 1 || !errors.Is(warnings[0].Kind, ErrTruncatedBlock) {
		t.Fatalf("expected truncation warning, got %+v", warnings)
	}

	_, _, err = collect(t, stream, Options{Strict: true})
	if !errors.Is(err, ErrTruncatedBlock) {
		t.Fatalf("expected ErrTruncatedBlock in strict mode, got %v", err)
	}
}

func TestByteBudgetAndCancel(t *testing.T) {
	testlog.Start(t)
	stream := make([]byte, 3*BlockLen)
	_, _, err := collect(t, stream, Options{MaxBytes: BlockLen})
	if !errors.Is(err, ErrByteBudget) {
		t.Fatalf("expected ErrByteBudget, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDemuxer(bytes.NewReader(stream), DefaultOptions())
	if _, err := d.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenGzip(t *testing.T) {
	testlog.Start(t)
	var raw bytes.Buffer
	w := NewWriter(&raw)
	if err := w.WriteBank(EncodeBank(42, 1, []byte{7})); err != nil {
		t.Fatalf("write bank: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(t.TempDir(), "run.dst.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}

	rc, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	d := NewDemuxer(rc, DefaultOptions())
	b, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if b.ID != 42 || len(b.Body()) != 1 {
		t.Fatalf("unexpected bank: %+v", b)
	}
}
