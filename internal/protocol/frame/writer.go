package frame

import (
	"encoding/binary"
	"fmt"
	"io"
)

// bankTrailerLen reserves room for END_BANK or TO_BE_CONTINUED plus END_BLOCK.
const bankTrailerLen = 2 + controlLen + 2

// segmentHeaderLen is OPCODE, command and the 4-byte segment length.
const segmentHeaderLen = 2 + controlLen

// Writer packs bank payloads into fixed-size DST blocks.
// Banks that do not fit the current block are split with TO_BE_CONTINUED.
type Writer struct {
	w     io.Writer
	block []byte
	pos   int
	seq   int32
	open  bool
	banks int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, block: make([]byte, BlockLen)}
}

// WriteBank appends one bank. payload must start with the id/version header.
func (w *Writer) WriteBank(payload []byte) error {
	if len(payload) < BankHeaderLen {
		return fmt.Errorf("%w: %d bytes", ErrShortBank, len(payload))
	}
	rem := payload
	cmd := CmdStartBank
	for {
		if !w.open {
			w.beginBlock()
		}
		avail := BlockLen - w.pos - segmentHeaderLen - bankTrailerLen
		if avail <= 0 {
			if err := w.endBlock(); err != nil {
				return err
			}
			continue
		}
		n := len(rem)
		if n > avail {
			n = avail
		}
		w.command(cmd)
		w.control(int32(n))
		copy(w.block[w.pos:], rem[:n])
		w.pos += n
		rem = rem[n:]
		cmd = CmdContinue

		if len(rem) == 0 {
			w.command(CmdEndBank)
			w.control(0)
			w.banks++
			return nil
		}
		w.command(CmdToBeContinued)
		w.control(0)
		if err := w.endBlock(); err != nil {
			return err
		}
	}
}

// Close flushes the current partial block.
func (w *Writer) Close() error {
	if !w.open {
		return nil
	}
	return w.endBlock()
}

func (w *Writer) Banks() int64 {
	return w.banks
}

func (w *Writer) beginBlock() {
	clear(w.block)
	w.pos = 0
	w.open = true
	w.command(CmdStartBlock)
	w.control(w.seq)
}

func (w *Writer) endBlock() error {
	w.command(CmdEndBlockLogical)
	w.open = false
	w.seq++
	_, err := w.w.Write(w.block)
	return err
}

func (w *Writer) command(c Command) {
	w.block[w.pos] = OpCode
	w.block[w.pos+1] = byte(c)
	w.pos += 2
}

func (w *Writer) control(v int32) {
	binary.LittleEndian.PutUint32(w.block[w.pos:], uint32(v))
	w.pos += controlLen
}

// EncodeBank prefixes body with the little-endian id/version header.
func EncodeBank(id, version int32, body []byte) []byte {
	out := make([]byte, BankHeaderLen+len(body))
	binary.LittleEndian.PutUint32(out[0:4], uint32(id))
	binary.LittleEndian.PutUint32(out[4:8], uint32(version))
	copy(out[BankHeaderLen:], body)
	return out
}
