package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/petems/micwav/internal/audio"
	"github.com/petems/micwav/internal/route"
	"github.com/petems/micwav/internal/wav"
	"github.com/rs/zerolog"
)

type Deps struct {
	Device    audio.Device
	Route     route.Controller // optional
	Listener  Listener         // optional
	Logger    zerolog.Logger
	DataDir   string // where relative output names and the temp file live
	QueueSize int    // listener queue, DefaultQueueSize when zero
	// DrainTimeout bounds the wait for the listener at stop,
	// DefaultDrainTimeout when zero
	DrainTimeout time.Duration
}

// Session records one input at a time: Init, Start, Pause, Stop.
// Stop doesn't wait for the capture goroutine; the returned Pending does.
type Session struct {
	dev       audio.Device
	route     route.Controller
	listener  Listener
	log       zerolog.Logger
	dataDir   string
	queueSize int
	drain     time.Duration

	// shared with the capture goroutine
	recording atomic.Bool
	paused    atomic.Bool

	mu           sync.Mutex
	state        State
	cfg          *SessionConfig
	id           string
	stats        *counters
	pending      *Pending
	pendingTaken bool
	routeActive  bool
}

func New(deps Deps) *Session {
	rc := deps.Route
	if rc == nil {
		rc = route.Nop{}
	}
	return &Session{
		dev:       deps.Device,
		route:     rc,
		listener:  deps.Listener,
		log:       deps.Logger,
		dataDir:   deps.DataDir,
		queueSize: deps.QueueSize,
		drain:     deps.DrainTimeout,
		stats:     &counters{},
	}
}

// Init replaces the configuration and resets counters. It fails while a
// recording is in progress.
func (s *Session) Init(opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Active() {
		return fmt.Errorf("%w: init while %s", ErrInvalidState, s.state)
	}

	cfg, err := Resolve(opts, s.dataDir, s.dev)
	if err != nil {
		return err
	}

	s.cfg = &cfg
	s.state = Idle
	s.stats = &counters{}
	s.pending = nil
	s.pendingTaken = false

	s.log.Debug().
		Uint32("sample_rate", cfg.SampleRate).
		Uint16("channels", cfg.Channels).
		Uint16("bits", cfg.BitsPerSample).
		Str("source", string(cfg.Source)).
		Int("read_bytes", cfg.ReadChunkBytes).
		Str("output", cfg.OutputPath).
		Msg("Session initialized")
	return nil
}

// Start opens the device and spawns the capture goroutine. A session that
// has Stopped may be started again with the same configuration. On failure
// the session is left Idle.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Active() {
		return fmt.Errorf("%w: start while %s", ErrInvalidState, s.state)
	}
	if s.cfg == nil {
		return ErrNotInitialized
	}
	cfg := *s.cfg
	id := uuid.NewString()
	log := s.log.With().Str("session", id).Logger()

	params := cfg.Params()
	s.activateRouteLocked(log, &params)

	handle, err := s.dev.Open(params, cfg.ReadChunkBytes, cfg.ReadChunkBytes*bufferMultiplier)
	if err != nil {
		s.deactivateRouteLocked(log)
		s.state = Idle
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	file, err := createTemp(cfg.TempPath)
	if err != nil {
		handle.Stop()
		handle.Release()
		s.deactivateRouteLocked(log)
		s.state = Idle
		return fmt.Errorf("%w: %w", ErrCaptureIO, err)
	}

	var (
		listener Listener
		async    *AsyncListener
	)
	if s.listener != nil {
		async = NewAsyncListener(s.listener, s.queueSize, log)
		if s.drain > 0 {
			async.DrainTimeout = s.drain
		}
		listener = async
	}

	stats := &counters{}
	pending := newPending()

	s.id = id
	s.stats = stats
	s.pending = pending
	s.pendingTaken = false
	s.paused.Store(false)
	s.recording.Store(true)
	s.state = Recording

	loop := &captureLoop{
		handle:    handle,
		sink:      newFrameSink(file, listener, stats),
		recording: &s.recording,
		paused:    &s.paused,
		stats:     stats,
		buf:       make([]byte, cfg.ReadChunkBytes),
		log:       log,
	}

	log.Info().Str("device", params.DeviceID).Msg("Recording started")
	go s.run(loop, async, cfg, pending, log)
	return nil
}

func createTemp(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return f, nil
}

// activateRouteLocked engages a wireless route when one is offered.
// Failure leaves capture on the default route.
func (s *Session) activateRouteLocked(log zerolog.Logger, params *audio.Params) {
	if !s.route.WirelessAvailable() {
		return
	}
	if err := s.route.Activate(); err != nil {
		log.Warn().Err(fmt.Errorf("%w: %w", ErrRouteActivation, err)).Msg("Continuing on default route")
		return
	}
	s.routeActive = true

	if sel, ok := s.route.(route.Selector); ok {
		if id := sel.SelectedDevice(); id != "" {
			params.DeviceID = id
		}
	}
}

func (s *Session) deactivateRouteLocked(log zerolog.Logger) {
	if !s.routeActive {
		return
	}
	s.routeActive = false
	if err := s.route.Deactivate(); err != nil {
		log.Warn().Err(err).Msg("Failed to release audio route")
	}
}

// Pause flips the pause flag. It does nothing unless recording.
func (s *Session) Pause(pause bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == Recording && pause:
		s.paused.Store(true)
		s.state = Paused
	case s.state == Paused && !pause:
		s.paused.Store(false)
		s.state = Recording
	default:
		return
	}
	s.log.Debug().Str("session", s.id).Bool("paused", pause).Msg("Pause toggled")
}

// Stop signals the capture goroutine and returns immediately. The Pending
// resolves with the WAV path once finalized.
//
// Stop on an idle or stopped session fails with ErrInvalidState, except
// that a recording which failed on its own is handed out once.
func (s *Session) Stop() (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Recording, Paused:
		s.state = Stopping
		s.recording.Store(false)
		s.deactivateRouteLocked(s.log.With().Str("session", s.id).Logger())
		s.pendingTaken = true
		s.log.Info().Str("session", s.id).Msg("Stopping recording")
		return s.pending, nil
	case Stopping:
		s.pendingTaken = true
		return s.pending, nil
	case Stopped:
		if s.pending != nil && !s.pendingTaken {
			s.pendingTaken = true
			return s.pending, nil
		}
	}
	return nil, fmt.Errorf("%w: stop while %s", ErrInvalidState, s.state)
}

// run owns the hardware handle and temp file until the loop exits, then
// finalizes and resolves pending.
func (s *Session) run(loop *captureLoop, async *AsyncListener, cfg SessionConfig, pending *Pending, log zerolog.Logger) {
	started := time.Now()
	err := loop.run()
	if err != nil {
		log.Error().Err(err).Msg("Capture loop failed")
	}

	// Best-effort hardware teardown
	if serr := loop.handle.Stop(); serr != nil {
		log.Warn().Err(serr).Msg("Failed to stop audio handle")
	}
	if rerr := loop.handle.Release(); rerr != nil {
		log.Warn().Err(rerr).Msg("Failed to release audio handle")
	}

	if cerr := loop.sink.close(); cerr != nil && err == nil {
		err = fmt.Errorf("%w: close temp file: %w", ErrCaptureIO, cerr)
	}
	if async != nil {
		async.Close()
		if n := async.Dropped(); n > 0 {
			log.Warn().Int64("dropped", n).Msg("Listener dropped events")
		}
	}

	var path string
	if err == nil {
		path, err = s.finalize(cfg, log)
	}

	stats := loop.stats.snapshot()

	s.mu.Lock()
	if s.state == Recording || s.state == Paused {
		// Loop died without Stop
		s.deactivateRouteLocked(log)
	}
	s.recording.Store(false)
	s.paused.Store(false)
	s.state = Stopped
	s.mu.Unlock()

	if err == nil {
		log.Info().
			Str("path", path).
			Dur("elapsed", time.Since(started)).
			Dur("duration", cfg.payloadDuration(stats.BytesWritten)).
			Uint64("frames", stats.FramesAccepted).
			Uint64("skipped", stats.FramesSkipped).
			Uint64("paused", stats.FramesPaused).
			Int64("bytes", stats.BytesWritten).
			Msg("Recording finalized")
	}
	pending.resolve(Result{Path: path, Stats: stats}, err)
}

func (s *Session) finalize(cfg SessionConfig, log zerolog.Logger) (string, error) {
	path, err := wav.Finalize(cfg.TempPath, cfg.OutputPath, cfg.Format(), wav.DefaultChunkSize)
	if errors.Is(err, wav.ErrTempNotRemoved) {
		log.Warn().Err(err).Str("temp", cfg.TempPath).Msg("Recording written but temp file kept")
		return path, nil
	}
	if err != nil {
		log.Error().Err(err).Str("temp", cfg.TempPath).Msg("Finalize failed, temp file kept")
		return "", fmt.Errorf("%w: %w", ErrFinalize, err)
	}
	return path, nil
}

// Done is closed once the current recording has finished, whether it was
// stopped or failed on its own. It is nil before the first Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	return s.pending.Done()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID of the current or last recording, empty before the first Start
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Config returns the active configuration, false before Init
func (s *Session) Config() (SessionConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return SessionConfig{}, false
	}
	return *s.cfg, true
}

// Stats of the current or last recording
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.snapshot()
}
