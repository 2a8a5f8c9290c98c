package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// EventData is the name of the event carrying captured audio
const EventData = "data"

// Event is one streamed chunk. Data is base64 of the raw PCM bytes.
type Event struct {
	Name string
	Seq  uint64
	Data string
}

// Listener receives streamed events. Implementations are called from a
// single goroutine.
type Listener interface {
	OnEvent(Event)
}

type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// MultiListener fans an event out in order
type MultiListener []Listener

func (m MultiListener) OnEvent(e Event) {
	for _, l := range m {
		l.OnEvent(e)
	}
}

const (
	DefaultQueueSize = 64
	// DefaultDrainTimeout bounds how long Close waits on a slow listener
	DefaultDrainTimeout = 2 * time.Second
)

// AsyncListener decouples a Listener from the capture goroutine. Events
// that don't fit in the queue are dropped.
type AsyncListener struct {
	next      Listener
	queue     chan Event
	done      chan struct{}
	dropped   atomic.Int64
	abandoned atomic.Bool
	log       zerolog.Logger

	// DrainTimeout is how long Close waits for queued events to be delivered
	DrainTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewAsyncListener(next Listener, size int, log zerolog.Logger) *AsyncListener {
	if size <= 0 {
		size = DefaultQueueSize
	}
	a := &AsyncListener{
		next:         next,
		queue:        make(chan Event, size),
		done:         make(chan struct{}),
		log:          log,
		DrainTimeout: DefaultDrainTimeout,
	}
	go a.run()
	return a
}

func (a *AsyncListener) run() {
	defer close(a.done)
	for e := range a.queue {
		if a.abandoned.Load() {
			a.dropped.Add(1)
			continue
		}
		a.next.OnEvent(e)
	}
}

func (a *AsyncListener) OnEvent(e Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.queue <- e:
	default:
		if n := a.dropped.Add(1); n == 1 || n%100 == 0 {
			a.log.Debug().Int64("dropped", n).Msg("Listener queue full, dropping event")
		}
	}
}

// Dropped is the number of events discarded so far
func (a *AsyncListener) Dropped() int64 {
	return a.dropped.Load()
}

// Close delivers what is queued and waits for the dispatcher to exit. If
// the listener doesn't keep up within DrainTimeout, the rest of the queue
// is dropped and Close returns without waiting for the blocked call.
func (a *AsyncListener) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	if a.abandoned.Load() {
		return
	}

	select {
	case <-a.done:
		return
	case <-time.After(a.DrainTimeout):
	}

	a.abandoned.Store(true)
	for range a.queue {
		a.dropped.Add(1)
	}
	a.log.Warn().Dur("timeout", a.DrainTimeout).Msg("Listener stalled, abandoning queued events")
}
