// Package sink writes assembled events as JSON lines.
package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/danmuck/dstctl/internal/dispatch"
	"github.com/danmuck/dstctl/internal/event"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

// Writer emits one JSON object per event:
//
//	{"event":0,"run_id":"...","banks":{"rusdraw":{"id":..,"version":..,"kind":"schema","value":{..}}}}
//
// Bank keys follow stream order. NaN and Inf floats are written as null. A
// bank whose value still cannot be encoded is written with an "error" string
// in place of "value".
type Writer struct {
	w      *bufio.Writer
	closer []io.Closer
	runID  string
	lines  int64
}

func NewWriter(w io.Writer, runID string) *Writer {
	return &Writer{w: bufio.NewWriter(w), runID: runID}
}

// Create opens path for writing. "-" or "" is stdout; a ".gz" suffix
// compresses the output.
func Create(path, runID string) (*Writer, error) {
	if path == "" || path == "-" {
		return NewWriter(os.Stdout, runID), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: create %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		sw := NewWriter(f, runID)
		sw.closer = []io.Closer{f}
		return sw, nil
	}
	zw := gzip.NewWriter(f)
	sw := NewWriter(zw, runID)
	sw.closer = []io.Closer{zw, f}
	return sw, nil
}

func (s *Writer) WriteEvent(ev *event.Event) error {
	buf := []byte(`{"event":`)
	buf = strconv.AppendInt(buf, int64(ev.Index), 10)
	if s.runID != "" {
		buf = append(buf, `,"run_id":`...)
		buf = strconv.AppendQuote(buf, s.runID)
	}
	buf = append(buf, `,"banks":{`...)
	for i, d := range ev.Banks {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, d.Name)
		buf = append(buf, ':')
		buf = appendBank(buf, d)
	}
	buf = append(buf, "}}\n"...)

	if _, err := s.w.Write(buf); err != nil {
		return fmt.Errorf("sink: write: %w", err)
	}
	s.lines++
	return nil
}

type bankHeader struct {
	ID      int32         `json:"id"`
	Version int32         `json:"version"`
	Kind    dispatch.Kind `json:"kind"`
}

func appendBank(buf []byte, d dispatch.Decoded) []byte {
	head, _ := json.Marshal(bankHeader{ID: d.ID, Version: d.Version, Kind: d.Kind})
	buf = append(buf, head[:len(head)-1]...)

	value, err := marshalFinite(d.Value)
	if err != nil {
		log.Warn().Err(err).Str("bank", d.Name).Msg("sink: bank value not encodable")
		buf = append(buf, `,"error":`...)
		buf = strconv.AppendQuote(buf, err.Error())
		return append(buf, '}')
	}
	buf = append(buf, `,"value":`...)
	buf = append(buf, value...)
	return append(buf, '}')
}

// Lines reports how many events were written.
func (s *Writer) Lines() int64 {
	return s.lines
}

func (s *Writer) Flush() error {
	return s.w.Flush()
}

// Close flushes buffered output and closes any file opened by Create.
func (s *Writer) Close() error {
	err := s.w.Flush()
	for _, c := range s.closer {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
