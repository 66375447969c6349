package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	BlockLen      = 32000
	BankHeaderLen = 8
	controlLen    = 4
)

// OpCode prefixes every command token inside a block.
const OpCode byte = 0x60

// Command is the byte following OpCode.
type Command byte

const (
	CmdStartBank        Command = 0x07
	CmdContinue         Command = 0x08
	CmdEndBank          Command = 0x0E
	CmdToBeContinued    Command = 0x0F
	CmdStartBlock       Command = 0x61
	CmdEndBlockLogical  Command = 0x62
	CmdEndBlockPhysical Command = 0x63
	CmdFiller           Command = 0x64
)

func (c Command) String() string {
	switch c {
	case CmdStartBank:
		return "START_BANK"
	case CmdContinue:
		return "CONTINUE"
	case CmdEndBank:
		return "END_BANK"
	case CmdToBeContinued:
		return "TO_BE_CONTINUED"
	case CmdStartBlock:
		return "START_BLOCK"
	case CmdEndBlockLogical:
		return "END_BLOCK_LOGICAL"
	case CmdEndBlockPhysical:
		return "END_BLOCK_PHYSICAL"
	case CmdFiller:
		return "FILLER"
	default:
		return fmt.Sprintf("CMD(%#02x)", byte(c))
	}
}

var (
	ErrMalformedStream = errors.New("frame: malformed stream")
	ErrUnexpectedState = errors.New("frame: unexpected state")
	ErrTruncatedBlock  = errors.New("frame: truncated final block")
	ErrByteBudget      = errors.New("frame: byte budget exceeded")
	ErrShortBank       = errors.New("frame: bank shorter than header")
)

// Bank is one reassembled bank. Payload includes the 8-byte id/version header.
type Bank struct {
	ID       int32
	Version  int32
	Payload  []byte
	Offset   int64
	Consumed int64
}

// Body returns the payload after the id/version header.
func (b Bank) Body() []byte {
	if len(b.Payload) < BankHeaderLen {
		return nil
	}
	return b.Payload[BankHeaderLen:]
}

// ParseBankHeader reads the little-endian (id, version) pair at the start of payload.
func ParseBankHeader(payload []byte) (int32, int32, error) {
	if len(payload) < BankHeaderLen {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrShortBank, len(payload))
	}
	id := int32(binary.LittleEndian.Uint32(payload[0:4]))
	ver := int32(binary.LittleEndian.Uint32(payload[4:8]))
	return id, ver, nil
}

// Warning records a recoverable stream defect.
type Warning struct {
	Kind    error
	Block   int64
	Offset  int
	Message string
}

func (w Warning) Error() string {
	return fmt.Sprintf("%v: block=%d offset=%d: %s", w.Kind, w.Block, w.Offset, w.Message)
}

func (w Warning) Unwrap() error {
	return w.Kind
}

// StreamError is returned in strict mode in place of a Warning.
type StreamError struct {
	Warning
}

func (e *StreamError) Error() string {
	return e.Warning.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Kind
}

// Stats counts demuxer activity for a single stream.
type Stats struct {
	Blocks       int64
	BytesRead    int64
	Banks        int64
	DroppedBanks int64
	SkippedBytes int64
	Warnings     int64
}

// KindLabel names a warning kind for metric labels and summaries.
func KindLabel(kind error) string {
	switch {
	case errors.Is(kind, ErrMalformedStream):
		return "malformed_stream"
	case errors.Is(kind, ErrUnexpectedState):
		return "unexpected_state"
	case errors.Is(kind, ErrTruncatedBlock):
		return "truncated_block"
	case errors.Is(kind, ErrByteBudget):
		return "byte_budget"
	case errors.Is(kind, ErrShortBank):
		return "short_bank"
	default:
		return "other"
	}
}
