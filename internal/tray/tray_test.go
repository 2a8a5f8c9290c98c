package tray

import (
	"testing"

	"github.com/petems/micwav/internal/config"
)

func TestMenuTitles(t *testing.T) {
	tests := []struct {
		status       string
		startStop    string
		pause        string
		pauseEnabled bool
	}{
		{statusIdle, "Start Recording", "Pause", false},
		{statusRecording, "Stop Recording", "Pause", true},
		{statusPaused, "Stop Recording", "Resume", true},
		{statusFinalizing, "Saving…", "Pause", false},
		{statusError, "Start Recording", "Pause", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			startStop, pause, enabled := menuTitles(tt.status)
			if startStop != tt.startStop {
				t.Errorf("expected %q, got %q", tt.startStop, startStop)
			}
			if pause != tt.pause {
				t.Errorf("expected %q, got %q", tt.pause, pause)
			}
			if enabled != tt.pauseEnabled {
				t.Errorf("expected pause enabled %v, got %v", tt.pauseEnabled, enabled)
			}
		})
	}
}

func TestEmojiForStatus(t *testing.T) {
	seen := map[string]string{}
	for _, s := range []string{statusIdle, statusRecording, statusPaused, statusFinalizing, statusError} {
		e := emojiForStatus(s)
		if prev, ok := seen[e]; ok {
			t.Errorf("statuses %s and %s share emoji %s", prev, s, e)
		}
		seen[e] = s
	}

	if emojiForStatus("bogus") != emojiForStatus(statusIdle) {
		t.Error("unknown status should look idle")
	}
}

func TestModeTitle(t *testing.T) {
	if got := modeTitle(config.ModeToggle); got != "Mode: Toggle" {
		t.Errorf("unexpected title %q", got)
	}
	if got := modeTitle(config.ModePushToTalk); got != "Mode: Push-to-Talk" {
		t.Errorf("unexpected title %q", got)
	}
}

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
	}{
		{"darwin", "open"},
		{"linux", "xdg-open"},
		{"windows", "cmd"},
	}

	for _, tt := range tests {
		name, args := openCommand(tt.goos, "/tmp/micwav.log")
		if name != tt.name {
			t.Errorf("%s: expected %s, got %s", tt.goos, tt.name, name)
		}
		if args[len(args)-1] != "/tmp/micwav.log" {
			t.Errorf("%s: path should be last arg, got %v", tt.goos, args)
		}
	}
}
