package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/petems/micwav/internal/audio"
	"github.com/rs/zerolog"
)

// captureLoop reads the hardware handle until recording is cleared.
type captureLoop struct {
	handle    audio.Handle
	sink      *frameSink
	recording *atomic.Bool
	paused    *atomic.Bool
	stats     *counters
	buf       []byte
	log       zerolog.Logger
}

// run returns nil when stopped through the recording flag and an
// ErrCaptureIO error when the loop died on its own.
func (l *captureLoop) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in capture loop: %v", ErrCaptureIO, r)
		}
	}()

	var seq uint64
	for {
		n, rerr := l.handle.Read(l.buf)

		// Stop wins over whatever the read returned.
		if !l.recording.Load() {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("%w: read audio: %w", ErrCaptureIO, rerr)
		}

		l.stats.framesRead.Add(1)
		if n == 0 {
			l.stats.emptyReads.Add(1)
			continue
		}

		// Keep draining the device while paused so it doesn't overflow.
		if l.paused.Load() {
			l.stats.framesPaused.Add(1)
			continue
		}

		if err := l.sink.consume(Frame{Data: l.buf, Filled: n, Seq: seq}); err != nil {
			return err
		}
		seq++
	}
}
