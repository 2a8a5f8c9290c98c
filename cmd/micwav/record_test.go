package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/petems/micwav/internal/capture"
	"github.com/petems/micwav/internal/config"
	"github.com/petems/micwav/internal/wav"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRecordFlags(t *testing.T) {
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	cmd := &cobra.Command{Use: "record"}
	cmd.Flags().IntVar(&argSampleRate, "sample-rate", 0, "")
	cmd.Flags().IntVar(&argChannels, "channels", 0, "")
	cmd.Flags().StringVar(&argOutput, "output", "", "")
	cmd.Flags().StringVar(&argStreamAddr, "stream-addr", "", "")
	require.NoError(t, cmd.Flags().Parse([]string{"--sample-rate=16000", "--output=take1.wav", "--stream-addr="}))

	applyRecordFlags(cmd, cfg)

	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, "take1.wav", cfg.Audio.OutputFileName)
	// untouched flags keep the config value
	assert.Equal(t, 1, cfg.Audio.Channels)
	assert.False(t, cfg.Stream.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestPrintSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	pcm := make([]byte, 8000)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i+1] = 0x40
	}
	require.NoError(t, os.WriteFile(path, wav.Encode(pcm, 8000, 1, 16), 0o644))

	var out bytes.Buffer
	printSummary(&out, capture.Result{
		Path:  path,
		Stats: capture.Stats{FramesAccepted: 4, FramesSkipped: 2},
	})

	s := out.String()
	assert.Contains(t, s, "Saved "+path)
	assert.Contains(t, s, "500ms, 8000 Hz, 1 ch, 16 bit, 8000 bytes")
	assert.Contains(t, s, "peak")
	assert.Contains(t, s, "frames: 4 kept, 2 skipped, 0 paused")
}

func TestPrintSummaryMissingFile(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, capture.Result{Path: filepath.Join(t.TempDir(), "gone.wav")})
	assert.Contains(t, out.String(), "could not inspect")
}
