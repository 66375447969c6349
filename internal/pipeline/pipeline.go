package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/danmuck/dstctl/internal/dispatch"
	"github.com/danmuck/dstctl/internal/event"
	"github.com/danmuck/dstctl/internal/observability"
	"github.com/danmuck/dstctl/internal/protocol/frame"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// maxKeptWarnings bounds the warnings retained for the run summary.
const maxKeptWarnings = 64

// Sink receives assembled events in stream order.
type Sink interface {
	WriteEvent(ev *event.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev *event.Event) error

func (f SinkFunc) WriteEvent(ev *event.Event) error {
	return f(ev)
}

type Options struct {
	Workers   int
	BatchSize int
	Demux     frame.Options
	// Select keeps only these bank ids; nil keeps every registered bank.
	Select map[int32]bool
	// Limit stops the run after this many events; 0 means unlimited.
	Limit int
	RunID string
}

// Stats summarises one run. Counters accumulate across Run calls.
type Stats struct {
	RunID     string           `json:"run_id"`
	Streams   int              `json:"streams"`
	Blocks    int64            `json:"blocks"`
	BytesRead int64            `json:"bytes_read"`
	Banks     int64            `json:"banks"`
	Decoded   int64            `json:"decoded"`
	Failed    int64            `json:"failed"`
	Skipped   int64            `json:"skipped"`
	Filtered  int64            `json:"filtered"`
	Events    int              `json:"events"`
	Warnings  int64            `json:"warnings"`
	ByBank    map[string]int64 `json:"by_bank"`
	Elapsed   time.Duration    `json:"elapsed_ns"`
}

// Runner decodes streams with a fixed registry. It is safe to read Stats
// from another goroutine while Run is in progress.
type Runner struct {
	reg  *dispatch.Registry
	opts Options

	mu       sync.Mutex
	stats    Stats
	warnings error
	kept     int
}

func New(reg *dispatch.Registry, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 256
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Runner{
		reg:   reg,
		opts:  opts,
		stats: Stats{RunID: opts.RunID, ByBank: make(map[string]int64)},
	}
}

func (r *Runner) RunID() string {
	return r.opts.RunID
}

type job struct {
	bank    frame.Bank
	decoded dispatch.Decoded
	err     error
}

// Run decodes src until EOF, the event limit or ctx cancellation, writing
// events to sink. Per-bank decode failures are logged and counted; only
// stream errors (strict mode, I/O, byte budget), sink errors and
// cancellation stop the run.
func (r *Runner) Run(ctx context.Context, src io.Reader, sink Sink) error {
	started := time.Now()
	demuxOpts := r.opts.Demux
	userHook := demuxOpts.OnWarning
	demuxOpts.OnWarning = func(w frame.Warning) {
		r.warn(w)
		if userHook != nil {
			userHook(w)
		}
	}
	base := r.eventCount()
	remaining := 0
	if r.opts.Limit > 0 {
		remaining = r.opts.Limit - base
		if remaining <= 0 {
			return nil
		}
	}
	demux := frame.NewDemuxer(src, demuxOpts)
	asm := event.NewAssembler(remaining)

	var last frame.Stats
	defer func() {
		r.mu.Lock()
		r.stats.Streams++
		r.stats.Elapsed += time.Since(started)
		r.mu.Unlock()
	}()

	for {
		batch, eof, err := r.fill(ctx, demux)
		last = r.recordStream(demux.Stats(), last)
		if err != nil {
			return err
		}
		if err := r.decode(ctx, batch); err != nil {
			return err
		}
		for _, j := range batch {
			ev, ok := asm.Add(j.decoded, j.err)
			if !ok {
				continue
			}
			ev.Index += base
			if err := r.emit(sink, ev); err != nil {
				return err
			}
			if asm.Done() {
				return nil
			}
		}
		if eof {
			break
		}
	}
	if ev, ok := asm.Flush(); ok {
		ev.Index += base
		return r.emit(sink, ev)
	}
	return nil
}

// fill pulls up to BatchSize decodable banks from the demuxer.
func (r *Runner) fill(ctx context.Context, demux *frame.Demuxer) ([]job, bool, error) {
	batch := make([]job, 0, r.opts.BatchSize)
	for len(batch) < r.opts.BatchSize {
		b, err := demux.Next(ctx)
		if errors.Is(err, io.EOF) {
			return batch, true, nil
		}
		if err != nil {
			return batch, false, err
		}
		r.count(func(s *Stats) { s.Banks++ })

		if _, ok := r.reg.Resolve(b.ID); !ok {
			r.count(func(s *Stats) { s.Skipped++ })
			observability.RecordBankSkipped()
			log.Debug().Int32("bank_id", b.ID).Int32("version", b.Version).Msg("no decoder for bank, skipped")
			continue
		}
		if r.opts.Select != nil && !r.opts.Select[b.ID] {
			r.count(func(s *Stats) { s.Filtered++ })
			continue
		}
		batch = append(batch, job{bank: b})
	}
	return batch, false, nil
}

// decode runs the registry over batch with at most Workers goroutines.
// Results land in place so the batch keeps stream order.
func (r *Runner) decode(ctx context.Context, batch []job) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range batch {
		j := &batch[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			j.decoded, j.err = r.reg.Decode(j.bank)
			observability.RecordBankDecode(j.decoded.Name, string(j.decoded.Kind), time.Since(start), j.err == nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, j := range batch {
		name := j.decoded.Name
		if j.err != nil {
			r.count(func(s *Stats) { s.Failed++ })
			log.Warn().
				Err(j.err).
				Str("bank", name).
				Int32("version", j.bank.Version).
				Int64("offset", j.bank.Offset).
				Msg("bank decode failed")
			continue
		}
		r.count(func(s *Stats) {
			s.Decoded++
			s.ByBank[name]++
		})
	}
	return nil
}

func (r *Runner) emit(sink Sink, ev *event.Event) error {
	if err := sink.WriteEvent(ev); err != nil {
		return fmt.Errorf("pipeline: write event %d: %w", ev.Index, err)
	}
	observability.RecordEvent()
	r.count(func(s *Stats) { s.Events++ })
	return nil
}

func (r *Runner) warn(w frame.Warning) {
	kind := frame.KindLabel(w.Kind)
	observability.RecordStreamWarning(kind)
	log.Warn().
		Str("kind", kind).
		Int64("block", w.Block).
		Int("offset", w.Offset).
		Msg(w.Message)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Warnings++
	if r.kept < maxKeptWarnings {
		r.warnings = multierr.Append(r.warnings, w)
		r.kept++
	}
}

func (r *Runner) recordStream(cur, last frame.Stats) frame.Stats {
	observability.RecordStream(cur.Blocks-last.Blocks, cur.BytesRead-last.BytesRead)
	r.count(func(s *Stats) {
		s.Blocks += cur.Blocks - last.Blocks
		s.BytesRead += cur.BytesRead - last.BytesRead
	})
	return cur
}

func (r *Runner) count(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

func (r *Runner) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats.Events
}

// Stats returns a snapshot of the run counters.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.stats
	out.ByBank = make(map[string]int64, len(r.stats.ByBank))
	for k, v := range r.stats.ByBank {
		out.ByBank[k] = v
	}
	return out
}

// Warnings returns the first retained stream warnings combined with multierr,
// or nil when the stream was clean.
func (r *Runner) Warnings() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warnings
}

// LogSummary writes the run statistics at info level.
func (r *Runner) LogSummary() {
	s := r.Stats()
	log.Info().
		Str("run_id", s.RunID).
		Int("streams", s.Streams).
		Int64("blocks", s.Blocks).
		Str("read", humanize.Bytes(uint64(s.BytesRead))).
		Int64("banks", s.Banks).
		Int64("decoded", s.Decoded).
		Int64("failed", s.Failed).
		Int64("skipped", s.Skipped).
		Int64("filtered", s.Filtered).
		Int("events", s.Events).
		Int64("warnings", s.Warnings).
		Dur("elapsed", s.Elapsed).
		Msg("run summary")
}
