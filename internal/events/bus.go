// Package events provides the host event facility shared by the data model
// and the view layer.
//
// Events are delivered synchronously through Fire, in listener registration
// order. Payload events are coalesced: producers enqueue individual payloads
// with AddPayload and the bus delivers one Batch per (source, kind) pair on
// the next Flush, preserving first-enqueue order across batches.
package events

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/metrics"
)

// Event is anything delivered through the bus. Source identifies the object
// that produced it and is what listeners filter on.
type Event interface {
	Source() any
}

// Listener receives events.
type Listener interface {
	Handle(e Event)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(e Event)

// Handle implements Listener.
func (f ListenerFunc) Handle(e Event) { f(e) }

// Firer is the minimal interface producers depend on.
type Firer interface {
	Fire(e Event)
}

// PayloadSink accepts payloads for batched delivery.
type PayloadSink interface {
	AddPayload(source any, kind string, payload any)
}

// Hub is the full bus surface used by components that both listen and
// produce.
type Hub interface {
	Firer
	PayloadSink
	Subscribe(l Listener) func()
}

// Batch is the coalesced delivery of every payload enqueued for one
// (source, kind) pair since the previous flush.
type Batch struct {
	Src      any
	Kind     string
	Payloads []any
}

// Source implements Event.
func (b *Batch) Source() any { return b.Src }

// Payloads returns the batch payloads that have type T, in enqueue order.
func Payloads[T any](b *Batch) []T {
	out := make([]T, 0, len(b.Payloads))
	for _, p := range b.Payloads {
		if v, ok := p.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type batchKey struct {
	source any
	kind   string
}

type subscription struct {
	id       uint64
	listener Listener
}

// Bus is a synchronous event bus with payload coalescing.
type Bus struct {
	mu        sync.RWMutex
	listeners []subscription
	nextID    uint64

	pmu     sync.Mutex
	order   []batchKey
	pending map[batchKey]*Batch

	// flushMu serializes flushes so batches never interleave.
	flushMu sync.Mutex

	log *logrus.Logger
}

// NewBus creates an empty bus. A nil logger discards output.
func NewBus(log *logrus.Logger) *Bus {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Bus{
		pending: make(map[batchKey]*Batch),
		log:     log,
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, subscription{id: id, listener: l})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.listeners {
			if s.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (b *Bus) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Fire delivers an event to every listener on the calling goroutine.
func (b *Bus) Fire(e Event) {
	b.mu.RLock()
	snapshot := make([]Listener, len(b.listeners))
	for i, s := range b.listeners {
		snapshot[i] = s.listener
	}
	b.mu.RUnlock()

	for _, l := range snapshot {
		b.deliver(l, e)
	}
}

func (b *Bus) deliver(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("panic", r).Error("event listener panicked")
		}
	}()
	l.Handle(e)
}

// AddPayload enqueues a payload for the next flush. Nil payloads are dropped.
func (b *Bus) AddPayload(source any, kind string, payload any) {
	if payload == nil {
		return
	}

	b.pmu.Lock()
	defer b.pmu.Unlock()

	key := batchKey{source: source, kind: kind}
	batch, ok := b.pending[key]
	if !ok {
		batch = &Batch{Src: source, Kind: kind}
		b.pending[key] = batch
		b.order = append(b.order, key)
	}
	batch.Payloads = append(batch.Payloads, payload)
}

// Pending returns the number of payloads waiting for the next flush.
func (b *Bus) Pending() int {
	b.pmu.Lock()
	defer b.pmu.Unlock()

	n := 0
	for _, batch := range b.pending {
		n += len(batch.Payloads)
	}
	return n
}

// Flush delivers every pending batch and returns how many were fired.
// Payloads enqueued by listeners during the flush are delivered by the same
// call, after the batches that triggered them.
func (b *Bus) Flush() int {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	fired := 0
	for {
		b.pmu.Lock()
		order := b.order
		pending := b.pending
		b.order = nil
		b.pending = make(map[batchKey]*Batch)
		b.pmu.Unlock()

		if len(order) == 0 {
			return fired
		}

		for _, key := range order {
			batch := pending[key]
			metrics.EventsFlushed.WithLabelValues(batch.Kind).Add(float64(len(batch.Payloads)))
			b.Fire(batch)
			fired++
		}
	}
}

// Run flushes pending payloads every interval until the context is
// cancelled, then flushes once more and returns.
func (b *Bus) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.Flush()
			return
		case <-ticker.C:
			if n := b.Flush(); n > 0 {
				b.log.WithField("batches", n).Debug("flushed event payloads")
			}
		}
	}
}
