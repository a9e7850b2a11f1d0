package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/explore-jakarta/recocache/pkg/models"
)

// ErrRecorderFull is returned when the async buffer has no room.
var ErrRecorderFull = errors.New("tracker buffer full")

// ErrRecorderClosed is returned by Record after Close.
var ErrRecorderClosed = errors.New("tracker recorder closed")

// AsyncRecorder queues lookup records and writes them to a Tracker from a
// single background goroutine, so callers never wait on the database.
type AsyncRecorder struct {
	tr      Tracker
	log     *slog.Logger
	queue   chan models.LookupRecord
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncRecorder starts a writer for tr with room for buffer pending records.
func NewAsyncRecorder(tr Tracker, buffer int, log *slog.Logger) *AsyncRecorder {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = slog.Default()
	}
	a := &AsyncRecorder{
		tr:    tr,
		log:   log,
		queue: make(chan models.LookupRecord, buffer),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Record enqueues rec. It never blocks; a full buffer drops the record.
func (a *AsyncRecorder) Record(_ context.Context, rec models.LookupRecord) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrRecorderClosed
	}
	select {
	case a.queue <- rec:
		return nil
	default:
		a.dropped.Add(1)
		return ErrRecorderFull
	}
}

// Dropped returns how many records were discarded because the buffer was full.
func (a *AsyncRecorder) Dropped() int64 {
	return a.dropped.Load()
}

// Close flushes queued records and stops the writer. It does not close the
// underlying Tracker.
func (a *AsyncRecorder) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	return nil
}

func (a *AsyncRecorder) run() {
	defer a.wg.Done()
	for rec := range a.queue {
		if err := a.tr.Record(context.Background(), rec); err != nil {
			a.log.Warn("write lookup record", "key", rec.Key, "error", err)
		}
	}
}
