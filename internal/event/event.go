// Package event groups decoded banks into physics events.
//
// A bank closes the open event when a bank of the same name is already in it
// or when it is a START marker. A STOP marker is kept and then closes the
// event it belongs to.
package event

import (
	"github.com/danmuck/dstctl/internal/dispatch"
)

// Event is one group of banks in stream order.
type Event struct {
	Index int
	Banks []dispatch.Decoded

	names map[string]int
}

func newEvent(index int) *Event {
	return &Event{Index: index, names: make(map[string]int)}
}

func (e *Event) Get(name string) (dispatch.Decoded, bool) {
	i, ok := e.names[name]
	if !ok || i < 0 {
		return dispatch.Decoded{}, false
	}
	return e.Banks[i], true
}

func (e *Event) Has(name string) bool {
	_, ok := e.names[name]
	return ok
}

func (e *Event) Names() []string {
	out := make([]string, len(e.Banks))
	for i, b := range e.Banks {
		out[i] = b.Name
	}
	return out
}

func (e *Event) empty() bool {
	return len(e.Banks) == 0 && len(e.names) == 0
}

// Assembler builds events from decoded banks fed in stream order.
type Assembler struct {
	limit   int
	emitted int
	cur     *Event
}

// NewAssembler stops emitting after limit events; limit <= 0 means no limit.
func NewAssembler(limit int) *Assembler {
	return &Assembler{limit: limit, cur: newEvent(0)}
}

// Done reports whether the event limit was reached.
func (a *Assembler) Done() bool {
	return a.limit > 0 && a.emitted >= a.limit
}

func (a *Assembler) Emitted() int {
	return a.emitted
}

// Add feeds one bank. decodeErr marks a bank whose payload failed to decode:
// it still takes part in boundary detection but is not stored.
// Add returns a completed event when this bank closed one.
func (a *Assembler) Add(d dispatch.Decoded, decodeErr error) (*Event, bool) {
	if a.Done() {
		return nil, false
	}

	var closed *Event
	if a.cur.Has(d.Name) || (d.ID == dispatch.StartBankID && !a.cur.empty()) {
		closed = a.rotate()
		if a.Done() {
			return closed, true
		}
	}

	if decodeErr == nil {
		a.cur.names[d.Name] = len(a.cur.Banks)
		a.cur.Banks = append(a.cur.Banks, d)
	} else {
		a.cur.names[d.Name] = -1
	}

	if d.ID == dispatch.StopBankID && closed == nil {
		if len(a.cur.Banks) == 0 {
			a.cur = newEvent(a.emitted)
			return nil, false
		}
		closed = a.rotate()
	}
	return closed, closed != nil
}

// Flush returns the open event if it holds any bank.
func (a *Assembler) Flush() (*Event, bool) {
	if a.Done() || len(a.cur.Banks) == 0 {
		return nil, false
	}
	return a.rotate(), true
}

func (a *Assembler) rotate() *Event {
	closed := a.cur
	closed.compact()
	a.emitted++
	a.cur = newEvent(a.emitted)
	return closed
}

// compact drops names of banks that failed to decode.
func (e *Event) compact() {
	for name, i := range e.names {
		if i < 0 {
			delete(e.names, name)
		}
	}
}
