package capture

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petems/micwav/internal/audio"
)

// fakeDevice hands out fakeHandles that replay frames pushed to feed.
type fakeDevice struct {
	minBytes int
	minErr   error
	openErr  error

	// applied to the next handle
	readErr    error
	panicAfter int

	mu      sync.Mutex
	opened  int
	params  audio.Params
	handles []*fakeHandle
	feed    chan []byte
}

func newFakeDevice(minBytes int) *fakeDevice {
	return &fakeDevice{minBytes: minBytes, feed: make(chan []byte, 256)}
}

func (d *fakeDevice) MinBufferSize(p audio.Params) (int, error) {
	if d.minErr != nil {
		return 0, d.minErr
	}
	return d.minBytes, nil
}

func (d *fakeDevice) Open(p audio.Params, readBytes, bufferBytes int) (audio.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened++
	d.params = p
	h := &fakeHandle{
		feed:       d.feed,
		readBytes:  readBytes,
		bufBytes:   bufferBytes,
		readErr:    d.readErr,
		panicAfter: d.panicAfter,
	}
	d.handles = append(d.handles, h)
	return h, nil
}

func (d *fakeDevice) ListDevices() ([]audio.AudioDevice, error) {
	return []audio.AudioDevice{{ID: "fake", Name: "Fake Input", Default: true}}, nil
}

func (d *fakeDevice) Close() error { return nil }

func (d *fakeDevice) push(frames ...[]byte) {
	for _, f := range frames {
		d.feed <- f
	}
}

func (d *fakeDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func (d *fakeDevice) lastHandle() *fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.handles) == 0 {
		return nil
	}
	return d.handles[len(d.handles)-1]
}

type fakeHandle struct {
	feed       chan []byte
	readBytes  int
	bufBytes   int
	readErr    error
	panicAfter int

	reads    atomic.Int64
	stopped  atomic.Bool
	released atomic.Bool
}

// Read returns the next pushed frame, or 0 bytes after a short wait so the
// loop keeps observing its flags.
func (h *fakeHandle) Read(p []byte) (int, error) {
	n := h.reads.Add(1)
	if h.panicAfter > 0 && int(n) > h.panicAfter {
		panic("device went away")
	}
	select {
	case f := <-h.feed:
		return copy(p, f), nil
	case <-time.After(time.Millisecond):
		if h.readErr != nil {
			return 0, h.readErr
		}
		return 0, nil
	}
}

func (h *fakeHandle) Stop() error {
	h.stopped.Store(true)
	return nil
}

func (h *fakeHandle) Release() error {
	h.released.Store(true)
	return nil
}

// fakeRoute records calls
type fakeRoute struct {
	available   bool
	activateErr error
	selected    string

	mu          sync.Mutex
	activated   int
	deactivated int
}

func (r *fakeRoute) WirelessAvailable() bool { return r.available }

func (r *fakeRoute) Activate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activateErr != nil {
		return r.activateErr
	}
	r.activated++
	return nil
}

func (r *fakeRoute) Deactivate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivated++
	return nil
}

func (r *fakeRoute) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activated, r.deactivated
}

type selectingRoute struct {
	*fakeRoute
}

func (r selectingRoute) SelectedDevice() string { return r.selected }

// capturingListener keeps every event it sees
type capturingListener struct {
	mu     sync.Mutex
	events []Event
}

func (c *capturingListener) OnEvent(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capturingListener) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

var errUnplugged = errors.New("device unplugged")

// frame returns a size-byte frame filled with a recognisable value
func frame(size int, v byte) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = v + byte(i%7)
	}
	return b
}
