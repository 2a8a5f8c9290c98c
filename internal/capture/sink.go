package capture

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"sync/atomic"
)

// skipFrames leading frames are dropped to elide the input's start-up click
const skipFrames = 2

// Frame is one hardware read. Data[:Filled] holds the samples.
type Frame struct {
	Data   []byte
	Filled int
	Seq    uint64
}

func (f Frame) Bytes() []byte {
	return f.Data[:f.Filled]
}

// Stats counts what happened to each read of a recording
type Stats struct {
	FramesRead     uint64 // successful reads, including empty ones
	EmptyReads     uint64
	FramesPaused   uint64 // drained while paused
	FramesSkipped  uint64
	FramesAccepted uint64
	BytesWritten   int64
}

type counters struct {
	framesRead     atomic.Uint64
	emptyReads     atomic.Uint64
	framesPaused   atomic.Uint64
	framesSkipped  atomic.Uint64
	framesAccepted atomic.Uint64
	bytesWritten   atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesRead:     c.framesRead.Load(),
		EmptyReads:     c.emptyReads.Load(),
		FramesPaused:   c.framesPaused.Load(),
		FramesSkipped:  c.framesSkipped.Load(),
		FramesAccepted: c.framesAccepted.Load(),
		BytesWritten:   c.bytesWritten.Load(),
	}
}

// frameSink persists accepted frames to the temp file and streams them to
// the listener. It is owned by the capture goroutine.
type frameSink struct {
	file     *os.File
	w        *bufio.Writer
	listener Listener
	stats    *counters
	seen     int
}

func newFrameSink(file *os.File, listener Listener, stats *counters) *frameSink {
	return &frameSink{
		file:     file,
		w:        bufio.NewWriter(file),
		listener: listener,
		stats:    stats,
	}
}

func (s *frameSink) consume(f Frame) error {
	if f.Filled == 0 {
		return nil
	}

	s.seen++
	if s.seen <= skipFrames {
		s.stats.framesSkipped.Add(1)
		return nil
	}

	data := f.Bytes()
	if s.listener != nil {
		s.listener.OnEvent(Event{
			Name: EventData,
			Seq:  f.Seq,
			Data: base64.StdEncoding.EncodeToString(data),
		})
	}

	n, err := s.w.Write(data)
	s.stats.bytesWritten.Add(int64(n))
	if err != nil {
		return fmt.Errorf("%w: write temp file: %w", ErrCaptureIO, err)
	}
	s.stats.framesAccepted.Add(1)
	return nil
}

// close flushes and closes the temp file
func (s *frameSink) close() error {
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
