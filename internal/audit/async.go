package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Defaults for AsyncOptions.
const (
	DefaultBuffer        = 1024
	DefaultBatchSize     = 64
	DefaultFlushInterval = time.Second
)

// AsyncOptions tunes an AsyncSink.
type AsyncOptions struct {
	Buffer        int
	BatchSize     int
	FlushInterval time.Duration
	// OnEvent is called with a counter name when a record is dropped or a
	// write fails. May be nil.
	OnEvent func(name string)
}

// Event names passed to AsyncOptions.OnEvent.
const (
	EventDropped    = "audit:dropped"
	EventWriteError = "audit:write_error"
)

// AsyncSink buffers records in a bounded channel and writes them in batches
// from a single background worker. A full buffer drops the record.
type AsyncSink struct {
	w    Writer
	opts AsyncOptions
	log  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan Record
	done   chan struct{}
}

// NewAsyncSink starts the background worker.
func NewAsyncSink(w Writer, opts AsyncOptions, log zerolog.Logger) *AsyncSink {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	s := &AsyncSink{
		w:    w,
		opts: opts,
		log:  log.With().Str("component", "audit").Logger(),
		ch:   make(chan Record, opts.Buffer),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues rec, dropping it when the buffer is full or the sink is
// closed.
func (s *AsyncSink) Record(rec Record) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.event(EventDropped)
		return
	}
	select {
	case s.ch <- rec:
	default:
		s.event(EventDropped)
	}
}

// Close stops accepting records, drains the buffer, and closes the writer.
// It returns ctx.Err() if draining does not finish in time.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.w.Close()
}

func (s *AsyncSink) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, s.opts.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.w.Write(ctx, batch); err != nil {
			s.log.Warn().Err(err).Int("records", len(batch)).Msg("audit write failed")
			s.event(EventWriteError)
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-s.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= s.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (s *AsyncSink) event(name string) {
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(name)
	}
}
