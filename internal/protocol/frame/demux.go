package frame

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

// Options configures demuxer leniency and guards.
type Options struct {
	// Strict turns every warning into a returned *StreamError.
	Strict bool
	// MaxBytes caps total bytes read from the stream (0 = unlimited).
	MaxBytes int64
	// MaxBankBytes caps a single reassembled bank (0 = unlimited).
	MaxBankBytes int
	// OnWarning receives lenient-mode warnings. Nil logs them.
	OnWarning func(Warning)
}

func DefaultOptions() Options {
	return Options{
		MaxBankBytes: 64 * 1024 * 1024,
	}
}

type demuxState int

const (
	stateAwaitingBlock demuxState = iota
	stateScanning
	stateBuilding
)

// Demuxer turns a DST byte stream into banks.
type Demuxer struct {
	r     io.Reader
	opts  Options
	block []byte
	pos   int
	index int64
	state demuxState
	eof   bool

	acc      []byte
	accStart int64
	stats    Stats
}

func NewDemuxer(r io.Reader, opts Options) *Demuxer {
	return &Demuxer{
		r:     r,
		opts:  opts,
		block: make([]byte, BlockLen),
		index: -1,
		state: stateAwaitingBlock,
	}
}

func (d *Demuxer) Stats() Stats {
	return d.stats
}

func (d *Demuxer) building() bool {
	return d.state == stateBuilding
}

// streamOffset is the absolute stream position of the block cursor.
func (d *Demuxer) streamOffset() int64 {
	return d.index*BlockLen + int64(d.pos)
}

// Next returns the next complete bank, or io.EOF when the stream is exhausted.
func (d *Demuxer) Next(ctx context.Context) (Bank, error) {
	for {
		if d.eof {
			return Bank{}, io.EOF
		}
		if d.state == stateAwaitingBlock || d.pos >= BlockLen {
			if err := ctx.Err(); err != nil {
				return Bank{}, err
			}
			ok, err := d.refill()
			if err != nil {
				return Bank{}, err
			}
			if !ok {
				d.eof = true
				if d.building() {
					d.stats.DroppedBanks++
					if err := d.warn(ErrMalformedStream, "stream ended inside bank; partial bank dropped"); err != nil {
						return Bank{}, err
					}
				}
				return Bank{}, io.EOF
			}
		}

		if d.block[d.pos] != OpCode {
			d.pos++
			d.stats.SkippedBytes++
			continue
		}
		if d.pos+1 >= BlockLen {
			d.pos++
			d.stats.SkippedBytes++
			continue
		}
		start := d.streamOffset()
		cmd := Command(d.block[d.pos+1])
		d.pos += 2

		switch cmd {
		case CmdStartBlock:
			if _, _, err := d.readControl(); err != nil {
				return Bank{}, err
			}

		case CmdEndBlockLogical, CmdEndBlockPhysical:
			d.pos = BlockLen

		case CmdStartBank:
			if d.building() {
				d.stats.DroppedBanks++
				d.resetBank()
				if err := d.warn(ErrUnexpectedState, "START_BANK while building previous bank; previous bank discarded"); err != nil {
					return Bank{}, err
				}
			}
			n, ok, err := d.readLength()
			if err != nil {
				return Bank{}, err
			}
			if !ok {
				continue
			}
			if d.opts.MaxBankBytes > 0 && n > d.opts.MaxBankBytes {
				d.stats.DroppedBanks++
				d.skipSegment(n)
				if err := d.warnf(ErrMalformedStream, "bank segment of %d bytes exceeds %d; dropped", n, d.opts.MaxBankBytes); err != nil {
					return Bank{}, err
				}
				continue
			}
			d.state = stateBuilding
			d.acc = make([]byte, 0, min(n, BlockLen-d.pos))
			d.accStart = start
			if err := d.appendSegment(n); err != nil {
				return Bank{}, err
			}

		case CmdContinue:
			n, ok, err := d.readLength()
			if err != nil {
				return Bank{}, err
			}
			if !ok {
				continue
			}
			if !d.building() {
				if err := d.warn(ErrUnexpectedState, "CONTINUE without START_BANK; segment skipped"); err != nil {
					return Bank{}, err
				}
				d.skipSegment(n)
				continue
			}
			if err := d.appendSegment(n); err != nil {
				return Bank{}, err
			}

		case CmdToBeContinued:
			if _, _, err := d.readControl(); err != nil {
				return Bank{}, err
			}

		case CmdEndBank:
			if _, _, err := d.readControl(); err != nil {
				return Bank{}, err
			}
			if !d.building() {
				continue
			}
			payload := d.acc
			bankStart := d.accStart
			d.resetBank()
			id, ver, err := ParseBankHeader(payload)
			if err != nil {
				d.stats.DroppedBanks++
				if err := d.warn(ErrMalformedStream, err.Error()); err != nil {
					return Bank{}, err
				}
				continue
			}
			d.stats.Banks++
			return Bank{
				ID:       id,
				Version:  ver,
				Payload:  payload,
				Offset:   bankStart,
				Consumed: d.streamOffset() - bankStart,
			}, nil

		default:
			// FILLER and unknown commands carry no payload.
		}
	}
}

func (d *Demuxer) refill() (bool, error) {
	if d.opts.MaxBytes > 0 && d.stats.BytesRead+BlockLen > d.opts.MaxBytes {
		return false, ErrByteBudget
	}
	n, err := io.ReadFull(d.r, d.block)
	d.stats.BytesRead += int64(n)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return false, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		d.index++
		d.pos = 0
		if werr := d.warnf(ErrTruncatedBlock, "last block incomplete (%d bytes)", n); werr != nil {
			return false, werr
		}
		return false, nil
	default:
		return false, err
	}
	d.index++
	d.pos = 0
	d.stats.Blocks++
	if d.state == stateAwaitingBlock {
		d.state = stateScanning
	}
	return true, nil
}

// readControl consumes a 4-byte little-endian control word.
// ok=false means the word crossed the block end and the block was abandoned.
func (d *Demuxer) readControl() (int32, bool, error) {
	if d.pos+controlLen > BlockLen {
		d.pos = BlockLen
		return 0, false, d.warn(ErrMalformedStream, "control word crosses block end")
	}
	v := int32(binary.LittleEndian.Uint32(d.block[d.pos:]))
	d.pos += controlLen
	return v, true, nil
}

func (d *Demuxer) readLength() (int, bool, error) {
	v, ok, err := d.readControl()
	if !ok || err != nil {
		return 0, false, err
	}
	if v < 0 {
		d.pos = BlockLen
		return 0, false, d.warnf(ErrMalformedStream, "negative segment length %d", v)
	}
	return int(v), true, nil
}

func (d *Demuxer) appendSegment(n int) error {
	avail := BlockLen - d.pos
	clamped := n
	if clamped > avail {
		clamped = avail
	}
	if d.opts.MaxBankBytes > 0 && len(d.acc)+clamped > d.opts.MaxBankBytes {
		d.stats.DroppedBanks++
		d.resetBank()
		d.skipSegment(clamped)
		return d.warnf(ErrMalformedStream, "bank exceeds %d bytes; dropped", d.opts.MaxBankBytes)
	}
	d.acc = append(d.acc, d.block[d.pos:d.pos+clamped]...)
	d.pos += clamped
	if clamped < n {
		d.pos = BlockLen
		return d.warnf(ErrMalformedStream, "segment of %d bytes crosses block end; kept %d", n, clamped)
	}
	return nil
}

func (d *Demuxer) skipSegment(n int) {
	if n > BlockLen-d.pos {
		n = BlockLen - d.pos
	}
	d.pos += n
	d.stats.SkippedBytes += int64(n)
}

func (d *Demuxer) resetBank() {
	d.acc = nil
	d.accStart = 0
	d.state = stateScanning
}

func (d *Demuxer) warnf(kind error, format string, args ...any) error {
	return d.warn(kind, fmt.Sprintf(format, args...))
}

func (d *Demuxer) warn(kind error, msg string) error {
	w := Warning{Kind: kind, Block: d.index, Offset: d.pos, Message: msg}
	d.stats.Warnings++
	if d.opts.Strict {
		return &StreamError{Warning: w}
	}
	if d.opts.OnWarning != nil {
		d.opts.OnWarning(w)
		return nil
	}
	log.Warn().
		Int64("block", w.Block).
		Int("offset", w.Offset).
		Str("kind", kind.Error()).
		Msg(msg)
	return nil
}
