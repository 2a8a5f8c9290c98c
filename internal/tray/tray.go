package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
	"github.com/petems/micwav/internal/app"
	"github.com/petems/micwav/internal/config"
	"github.com/petems/micwav/internal/logging"
	"github.com/rs/zerolog"
)

const (
	statusIdle       = "idle"
	statusRecording  = "recording"
	statusPaused     = "paused"
	statusFinalizing = "finalizing"
	statusError      = "error"
)

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	mu     sync.Mutex
	ready  bool
	status string

	// Menu items
	mStartStop  *systray.MenuItem
	mPause      *systray.MenuItem
	mMode       *systray.MenuItem
	mDevices    *systray.MenuItem
	mCopyOnStop *systray.MenuItem
	mCopyLast   *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus(statusIdle)
}

func (u *UI) SetRecording() {
	u.updateStatus(statusRecording)
}

func (u *UI) SetPaused() {
	u.updateStatus(statusPaused)
}

func (u *UI) SetFinalizing() {
	u.updateStatus(statusFinalizing)
}

func (u *UI) SetError() {
	u.updateStatus(statusError)
}

func New(application *app.App, cfg *config.Config, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		app:     application,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log.With().Str("component", "tray").Logger(),
		status:  statusIdle,
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// Run blocks until Quit is chosen or ctx is cancelled
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTooltip("Microphone recorder")

	// Build menu
	u.mStartStop = systray.AddMenuItem("Start Recording", "Start or stop recording")
	u.mPause = systray.AddMenuItem("Pause", "Pause or resume recording")
	u.mPause.Disable()
	systray.AddSeparator()

	u.mMode = systray.AddMenuItem(modeTitle(u.cfg.Mode), "Toggle between modes")
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Microphone", "Select audio device")
	u.buildDeviceMenu()

	systray.AddSeparator()
	u.mCopyOnStop = systray.AddMenuItemCheckbox("Copy Path On Stop", "Copy the WAV path to the clipboard when a recording is saved", u.cfg.CopyPathOnStop)
	u.mCopyLast = systray.AddMenuItem("Copy Last Recording Path", "Copy the last WAV path to the clipboard")

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About micwav")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	status := u.status
	u.mu.Unlock()
	u.updateStatus(status)

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			u.toggleRecording()
		case <-u.mPause.ClickedCh:
			u.app.TogglePause()
		case <-u.mMode.ClickedCh:
			u.toggleMode()
		case <-u.mCopyOnStop.ClickedCh:
			u.toggleCopyOnStop()
		case <-u.mCopyLast.ClickedCh:
			if err := u.app.CopyLastRecording(); err != nil {
				u.log.Warn().Err(err).Msg("Failed to copy last recording path")
			}
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) toggleRecording() {
	if u.app.IsRecording() {
		if _, err := u.app.StopRecording(); err != nil {
			u.log.Error().Err(err).Msg("Failed to stop recording")
		}
		return
	}
	if err := u.app.StartRecording(); err != nil {
		u.log.Error().Err(err).Msg("Failed to start recording")
	}
}

func (u *UI) buildDeviceMenu() {
	// Get devices from app
	devices, err := u.app.ListDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	var itemsMu sync.Mutex
	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItem(dev.Name, "")
		if dev.ID == u.cfg.Audio.DeviceID || (u.cfg.Audio.DeviceID == "" && dev.Default) {
			item.Check()
		}
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				if err := u.app.SetDevice(deviceID); err != nil {
					u.log.Warn().Err(err).Str("device", deviceName).Msg("Failed to change audio device")
					continue
				}

				itemsMu.Lock()
				// Uncheck all other items
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				itemsMu.Unlock()
				// Check this item
				menuItem.Check()
				u.log.Info().Str("device", deviceName).Msg("Changed audio device")
			}
		}(dev.ID, dev.Name, item)
	}
}

func (u *UI) toggleMode() {
	oldMode := u.cfg.Mode
	newMode := config.ModePushToTalk
	if oldMode == config.ModePushToTalk {
		newMode = config.ModeToggle
	}
	if err := u.app.SetMode(newMode); err != nil {
		u.log.Warn().Err(err).Msg("Failed to save mode")
	}
	u.mMode.SetTitle(modeTitle(newMode))
	u.log.Info().Str("from", oldMode).Str("to", newMode).Msg("Changed mode")
}

func (u *UI) toggleCopyOnStop() {
	enabled := !u.mCopyOnStop.Checked()
	if err := u.app.SetCopyPathOnStop(enabled); err != nil {
		u.log.Warn().Err(err).Msg("Failed to save config")
	}
	if enabled {
		u.mCopyOnStop.Check()
		u.log.Info().Msg("Enabled copy path on stop")
	} else {
		u.mCopyOnStop.Uncheck()
		u.log.Info().Msg("Disabled copy path on stop")
	}
}

func (u *UI) openLogs() {
	name, args := openCommand(runtime.GOOS, logging.Path())
	if err := exec.Command(name, args...).Start(); err != nil {
		u.log.Error().Err(err).Msg("Failed to open logs")
	}
}

func (u *UI) showAbout() {
	// TODO: Show about dialog with native UI
	fmt.Printf("micwav %s (%s)\nMicrophone to WAV recorder\n", u.version, u.commit)
}

func (u *UI) onExit() {
	// Cleanup
}

// updateStatus sets the tray title with microphone emoji and status indicator
func (u *UI) updateStatus(status string) {
	u.mu.Lock()
	u.status = status
	ready := u.ready
	u.mu.Unlock()

	if !ready {
		return
	}

	systray.SetTitle(fmt.Sprintf("🎤 %s", emojiForStatus(status)))

	startStop, pause, pauseEnabled := menuTitles(status)
	u.mStartStop.SetTitle(startStop)
	u.mPause.SetTitle(pause)
	if pauseEnabled {
		u.mPause.Enable()
	} else {
		u.mPause.Disable()
	}
	if status == statusFinalizing {
		u.mStartStop.Disable()
	} else {
		u.mStartStop.Enable()
	}
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case statusRecording:
		return "🔴" // Red - recording
	case statusPaused:
		return "⏸️" // Paused
	case statusFinalizing:
		return "🟡" // Yellow - writing the WAV file
	case statusIdle:
		return "🟢" // Green - ready/idle
	case statusError:
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}

// menuTitles returns the Start/Stop and Pause/Resume titles for status
func menuTitles(status string) (startStop, pause string, pauseEnabled bool) {
	switch status {
	case statusRecording:
		return "Stop Recording", "Pause", true
	case statusPaused:
		return "Stop Recording", "Resume", true
	case statusFinalizing:
		return "Saving…", "Pause", false
	default:
		return "Start Recording", "Pause", false
	}
}

func modeTitle(mode string) string {
	if mode == config.ModeToggle {
		return "Mode: Toggle"
	}
	return "Mode: Push-to-Talk"
}

// openCommand returns the command that opens path in the default app
func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	default:
		return "xdg-open", []string{path}
	}
}
