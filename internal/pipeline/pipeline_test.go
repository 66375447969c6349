package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/danmuck/dstctl/internal/dispatch"
	"github.com/danmuck/dstctl/internal/event"
	"github.com/danmuck/dstctl/internal/fitbank"
	"github.com/danmuck/dstctl/internal/protocol"
	"github.com/danmuck/dstctl/internal/protocol/cursor"
	"github.com/danmuck/dstctl/internal/protocol/frame"
	"github.com/danmuck/dstctl/internal/protocol/schema"
	"github.com/danmuck/dstctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

const rufptnID int32 = 1000

func testRegistry(t *testing.T) *dispatch.Registry {
	t.Helper()
	c := schema.NewCatalog()
	require.NoError(t, c.Register(schema.MustNew("rufptn", rufptnID, nil,
		&schema.Primitive{Name: "nhits", Type: cursor.Int32},
	)))
	r, err := dispatch.New(c)
	require.NoError(t, err)
	return r
}

func rufptn(n int32) []byte {
	w := cursor.NewWriter(nil)
	w.Int32(n)
	return frame.EncodeBank(rufptnID, 1, w.Bytes())
}

func hcbin() []byte {
	w := cursor.NewWriter(nil)
	w.Uint16(0)
	return frame.EncodeBank(fitbank.HCBINBankID, 0, w.Bytes())
}

func stream(t *testing.T, banks ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := frame.NewWriter(&buf)
	for _, b := range banks {
		require.NoError(t, w.WriteBank(b))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type collector struct {
	events []*event.Event
}

func (c *collector) WriteEvent(ev *event.Event) error {
	c.events = append(c.events, ev)
	return nil
}

// mixed holds two complete events, an unknown bank and a truncated rufptn.
func mixed(t *testing.T) []byte {
	return stream(t,
		rufptn(1), hcbin(),
		frame.EncodeBank(9999, 0, nil),
		rufptn(2),
		frame.EncodeBank(rufptnID, 1, []byte{1}),
		hcbin(),
	)
}

func TestRunGroupsEventsInOrder(t *testing.T) {
	testlog.Start(t)

	r := New(testRegistry(t), Options{Workers: 3, BatchSize: 2, Demux: frame.DefaultOptions()})
	var sink collector
	require.NoError(t, r.Run(context.Background(), bytes.NewReader(mixed(t)), &sink))

	require.Len(t, sink.events, 3)
	require.Equal(t, []string{"rufptn", "hcbin"}, sink.events[0].Names())
	require.Equal(t, []string{"rufptn"}, sink.events[1].Names())
	require.Equal(t, []string{"hcbin"}, sink.events[2].Names())

	d, ok := sink.events[1].Get("rufptn")
	require.True(t, ok)
	v, ok := d.Value.(*protocol.Record).Get("nhits")
	require.True(t, ok)
	require.EqualValues(t, 2, v.Int)

	s := r.Stats()
	require.Equal(t, r.RunID(), s.RunID)
	require.EqualValues(t, 6, s.Banks)
	require.EqualValues(t, 4, s.Decoded)
	require.EqualValues(t, 1, s.Failed)
	require.EqualValues(t, 1, s.Skipped)
	require.Equal(t, 3, s.Events)
	require.EqualValues(t, 1, s.Blocks)
	require.Equal(t, map[string]int64{"rufptn": 2, "hcbin": 2}, s.ByBank)
	require.NoError(t, r.Warnings())
}

func TestRunLimit(t *testing.T) {
	testlog.Start(t)

	r := New(testRegistry(t), Options{Limit: 1})
	var sink collector
	require.NoError(t, r.Run(context.Background(), bytes.NewReader(mixed(t)), &sink))
	require.Len(t, sink.events, 1)

	require.NoError(t, r.Run(context.Background(), bytes.NewReader(mixed(t)), &sink))
	require.Len(t, sink.events, 1, "limit spans runs")
}

func TestRunSelect(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	sel, err := reg.Select([]string{"hcbin"})
	require.NoError(t, err)

	r := New(reg, Options{Select: sel})
	var sink collector
	require.NoError(t, r.Run(context.Background(), bytes.NewReader(mixed(t)), &sink))

	require.Len(t, sink.events, 2)
	for _, ev := range sink.events {
		require.Equal(t, []string{"hcbin"}, ev.Names())
	}
	require.EqualValues(t, 3, r.Stats().Filtered)
}

func TestRunTruncatedStream(t *testing.T) {
	testlog.Start(t)

	data := append(stream(t, rufptn(7)), make([]byte, 100)...)

	r := New(testRegistry(t), Options{})
	var sink collector
	require.NoError(t, r.Run(context.Background(), bytes.NewReader(data), &sink))
	require.Len(t, sink.events, 1)
	require.EqualValues(t, 1, r.Stats().Warnings)
	require.ErrorIs(t, r.Warnings(), frame.ErrTruncatedBlock)

	strict := New(testRegistry(t), Options{Demux: frame.Options{Strict: true}})
	err := strict.Run(context.Background(), bytes.NewReader(data), &sink)
	require.ErrorIs(t, err, frame.ErrTruncatedBlock)
	var se *frame.StreamError
	require.True(t, errors.As(err, &se))
}

func TestRunSinkError(t *testing.T) {
	testlog.Start(t)

	boom := errors.New("disk full")
	r := New(testRegistry(t), Options{})
	err := r.Run(context.Background(), bytes.NewReader(mixed(t)), SinkFunc(func(*event.Event) error { return boom }))
	require.ErrorIs(t, err, boom)
}

func TestRunCancelled(t *testing.T) {
	testlog.Start(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(testRegistry(t), Options{})
	err := r.Run(ctx, bytes.NewReader(mixed(t)), &collector{})
	require.ErrorIs(t, err, context.Canceled)
}
