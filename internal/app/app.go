package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/petems/micwav/internal/audio"
	"github.com/petems/micwav/internal/capture"
	"github.com/petems/micwav/internal/config"
	"github.com/rs/zerolog"
)

type Mode int

const (
	PushToTalk Mode = iota
	Toggle
)

// ErrNoRecording is returned by CopyLastRecording before anything was saved
var ErrNoRecording = errors.New("no recording yet")

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetRecording()
	SetPaused()
	SetFinalizing()
	SetError()
}

// Recorder is the part of capture.Session the app drives
type Recorder interface {
	Init(opts capture.Options) error
	Start() error
	Pause(pause bool)
	Stop() (*capture.Pending, error)
	State() capture.State
	Done() <-chan struct{}
}

// DeviceLister enumerates inputs for the device menu
type DeviceLister interface {
	ListDevices() ([]audio.AudioDevice, error)
}

type Config struct {
	Session       Recorder
	Devices       DeviceLister
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater        // Optional - can be nil
	CopyPath      func(string) error   // Optional - defaults to the system clipboard
	OnFinalized   func(capture.Result) // Optional
}

type App struct {
	session     Recorder
	devices     DeviceLister
	cfg         *config.Config
	log         zerolog.Logger
	status      StatusUpdater
	copyPath    func(string) error
	onFinalized func(capture.Result)

	mu      sync.Mutex
	pending *capture.Pending
	last    string
}

func New(cfg Config) *App {
	copyPath := cfg.CopyPath
	if copyPath == nil {
		copyPath = clipboard.WriteAll
	}
	return &App{
		session:     cfg.Session,
		devices:     cfg.Devices,
		cfg:         cfg.Config,
		log:         cfg.Logger,
		status:      cfg.StatusUpdater,
		copyPath:    copyPath,
		onFinalized: cfg.OnFinalized,
	}
}

// CaptureOptions maps the audio config onto session Init options
func CaptureOptions(cfg *config.Config) capture.Options {
	return capture.Options{
		SampleRate:     cfg.Audio.SampleRate,
		Channels:       cfg.Audio.Channels,
		BitsPerSample:  cfg.Audio.BitsPerSample,
		Source:         audio.Source(cfg.Audio.AudioSource),
		DeviceID:       cfg.Audio.DeviceID,
		OutputFileName: cfg.Audio.OutputFileName,
	}
}

func (a *App) OnHotkey(pressed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	mode := PushToTalk
	if a.cfg.Mode == config.ModeToggle {
		mode = Toggle
	}

	var err error
	switch mode {
	case PushToTalk:
		if pressed {
			err = a.startLocked()
		} else {
			_, err = a.stopLocked()
		}
	case Toggle:
		if !pressed {
			return
		}
		if !a.recordingLocked() {
			err = a.startLocked()
		} else {
			_, err = a.stopLocked()
		}
	}
	if err != nil {
		a.log.Error().Err(err).Msg("Hotkey action failed")
	}
}

func (a *App) recordingLocked() bool {
	s := a.session.State()
	return s == capture.Recording || s == capture.Paused
}

// StartRecording begins a new recording with the current config
func (a *App) StartRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startLocked()
}

func (a *App) startLocked() error {
	switch a.session.State() {
	case capture.Recording, capture.Paused:
		return nil
	case capture.Stopping:
		a.log.Info().Msg("Still finalizing the last recording")
		return nil
	case capture.Stopped:
		// Surface a failure the watcher hasn't collected yet
		if err := a.collectLocked(); err != nil {
			return err
		}
	}

	// Re-init so device and format changes apply
	if err := a.session.Init(CaptureOptions(a.cfg)); err != nil {
		a.setError()
		return fmt.Errorf("failed to configure capture: %w", err)
	}
	if err := a.session.Start(); err != nil {
		a.setError()
		return fmt.Errorf("failed to start capture: %w", err)
	}

	a.log.Info().Msg("Recording started")
	if a.status != nil {
		a.status.SetRecording()
	}
	go a.watch(a.session.Done())
	return nil
}

// watch picks up a recording that ends without StopRecording, e.g. when
// the device goes away.
func (a *App) watch(done <-chan struct{}) {
	if done == nil {
		return
	}
	<-done

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session.State() != capture.Stopped {
		return
	}
	if err := a.collectLocked(); err != nil {
		a.log.Error().Err(err).Msg("Recording stopped unexpectedly")
	}
}

// collectLocked takes a finished recording nobody stopped and reports it.
func (a *App) collectLocked() error {
	p, err := a.session.Stop()
	if err != nil {
		// already collected
		return nil
	}
	if _, err := p.Result(); err != nil {
		a.setError()
		return fmt.Errorf("recording failed: %w", err)
	}
	return nil
}

// StopRecording stops capture; the WAV is finalized in the background
func (a *App) StopRecording() (*capture.Pending, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopLocked()
}

func (a *App) stopLocked() (*capture.Pending, error) {
	state := a.session.State()
	if state == capture.Stopped {
		return nil, a.collectLocked()
	}
	if state != capture.Recording && state != capture.Paused {
		return nil, nil
	}

	p, err := a.session.Stop()
	if err != nil {
		a.setError()
		return nil, err
	}
	a.pending = p

	if a.status != nil {
		a.status.SetFinalizing()
	}
	go a.awaitResult(p)
	return p, nil
}

func (a *App) awaitResult(p *capture.Pending) {
	res, err := p.Result()

	a.mu.Lock()
	if a.pending == p {
		a.pending = nil
	}
	if err != nil {
		a.setError()
		a.mu.Unlock()
		a.log.Error().Err(err).Msg("Recording failed")
		return
	}
	a.last = res.Path
	if a.status != nil && !a.recordingLocked() {
		a.status.SetIdle()
	}
	copyPath := a.cfg.CopyPathOnStop
	a.mu.Unlock()

	a.log.Info().Str("path", res.Path).Msg("Recording saved")
	if copyPath {
		if err := a.copyPath(res.Path); err != nil {
			a.log.Warn().Err(err).Msg("Failed to copy path to clipboard")
		}
	}
	if a.onFinalized != nil {
		a.onFinalized(res)
	}
}

func (a *App) setError() {
	if a.status != nil {
		a.status.SetError()
	}
}

// TogglePause pauses or resumes the current recording
func (a *App) TogglePause() {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.session.State() {
	case capture.Recording:
		a.session.Pause(true)
		a.log.Info().Msg("Recording paused")
		if a.status != nil {
			a.status.SetPaused()
		}
	case capture.Paused:
		a.session.Pause(false)
		a.log.Info().Msg("Recording resumed")
		if a.status != nil {
			a.status.SetRecording()
		}
	}
}

// Shutdown stops any recording and waits for it to be finalized
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if _, err := a.stopLocked(); err != nil {
		a.mu.Unlock()
		return err
	}
	p := a.pending
	a.mu.Unlock()

	if p == nil {
		return nil
	}
	_, err := p.Wait(ctx)
	return err
}

// Tray actions

func (a *App) SetMode(mode string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Mode = mode
	return a.cfg.Save()
}

func (a *App) SetDevice(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recordingLocked() {
		return fmt.Errorf("cannot change while recording")
	}

	a.cfg.Audio.DeviceID = id
	return a.cfg.Save()
}

func (a *App) SetCopyPathOnStop(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.CopyPathOnStop = enabled
	return a.cfg.Save()
}

// CopyLastRecording puts the last saved path on the clipboard
func (a *App) CopyLastRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == "" {
		return ErrNoRecording
	}
	return a.copyPath(a.last)
}

func (a *App) LastRecording() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *App) IsRecording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recordingLocked()
}

func (a *App) IsPaused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.State() == capture.Paused
}

func (a *App) ListDevices() ([]audio.AudioDevice, error) {
	return a.devices.ListDevices()
}
