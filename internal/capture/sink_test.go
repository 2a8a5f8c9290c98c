package capture

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/petems/micwav/internal/audio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameSinkSkipsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), TempFileName)
	f, err := os.Create(path)
	require.NoError(t, err)

	listener := &capturingListener{}
	stats := &counters{}
	sink := newFrameSink(f, listener, stats)

	buf := make([]byte, 8)
	for i := 0; i < 4; i++ {
		copy(buf, []byte{byte(i), byte(i), byte(i), byte(i)})
		require.NoError(t, sink.consume(Frame{Data: buf, Filled: 4, Seq: uint64(i)}))
	}
	// empty frames don't count towards the skip
	require.NoError(t, sink.consume(Frame{Data: buf, Filled: 0, Seq: 4}))
	require.NoError(t, sink.close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 2, 2, 2, 3, 3, 3, 3}, data)

	st := stats.snapshot()
	assert.Equal(t, uint64(2), st.FramesSkipped)
	assert.Equal(t, uint64(2), st.FramesAccepted)
	assert.Equal(t, int64(8), st.BytesWritten)

	events := listener.all()
	require.Len(t, events, 2)
	assert.Equal(t, "AgICAg==", events[0].Data)
}

func TestFrameSinkWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), TempFileName)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	sink := newFrameSink(f, nil, &counters{})
	big := make([]byte, 8192) // larger than the bufio buffer, forces a write
	for i := 0; i < 2; i++ {
		require.NoError(t, sink.consume(Frame{Data: big, Filled: len(big)}))
	}

	err = sink.consume(Frame{Data: big, Filled: len(big)})
	assert.ErrorIs(t, err, ErrCaptureIO)
}

func TestAsyncListenerDeliversInOrder(t *testing.T) {
	capture := &capturingListener{}
	a := NewAsyncListener(capture, 16, zerolog.Nop())

	for i := 0; i < 10; i++ {
		a.OnEvent(Event{Name: EventData, Seq: uint64(i)})
	}
	a.Close()

	events := capture.all()
	require.Len(t, events, 10)
	for i, e := range events {
		assert.Equal(t, uint64(i), e.Seq)
	}
	assert.Zero(t, a.Dropped())

	// no panic after close
	a.OnEvent(Event{Name: EventData})
	a.Close()
}

func TestAsyncListenerDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})
	slow := ListenerFunc(func(Event) {
		once.Do(func() { close(started) })
		<-release
	})

	a := NewAsyncListener(slow, 2, zerolog.Nop())
	a.OnEvent(Event{Seq: 0})
	<-started // dispatcher is now blocked holding event 0

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 5; i++ {
			a.OnEvent(Event{Seq: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnEvent blocked on a slow listener")
	}
	assert.Equal(t, int64(3), a.Dropped())

	close(release)
	a.Close()
}

func TestMultiListener(t *testing.T) {
	a, b := &capturingListener{}, &capturingListener{}
	MultiListener{a, b}.OnEvent(Event{Name: EventData, Seq: 7})

	assert.Len(t, a.all(), 1)
	assert.Len(t, b.all(), 1)
}

func TestAsyncListenerCloseAbandonsStalledListener(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	var once sync.Once
	stuck := ListenerFunc(func(Event) {
		once.Do(func() { close(started) })
		<-release
	})

	a := NewAsyncListener(stuck, 8, zerolog.Nop())
	a.DrainTimeout = 20 * time.Millisecond
	a.OnEvent(Event{Seq: 0})
	<-started
	for i := 1; i <= 3; i++ {
		a.OnEvent(Event{Seq: uint64(i)})
	}

	closed := make(chan struct{})
	go func() {
		a.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close waited on a stalled listener")
	}
	assert.Equal(t, int64(3), a.Dropped())
}

func TestResolve(t *testing.T) {
	dev := newFakeDevice(641) // not frame aligned

	cfg, err := Resolve(Options{}, "/data", dev)
	require.NoError(t, err)
	assert.Equal(t, uint32(44100), cfg.SampleRate)
	assert.Equal(t, uint16(1), cfg.Channels)
	assert.Equal(t, uint16(16), cfg.BitsPerSample)
	assert.Equal(t, audio.SourceVoiceRecognition, cfg.Source)
	assert.Equal(t, filepath.Join("/data", "audio.wav"), cfg.OutputPath)
	assert.Equal(t, filepath.Join("/data", "temp.pcm"), cfg.TempPath)
	assert.Equal(t, 640, cfg.ReadChunkBytes)

	cfg, err = Resolve(Options{Channels: 2, OutputFileName: filepath.Join("takes", "take.wav")}, "/data", dev)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "takes", "take.wav"), cfg.OutputPath)
	assert.Equal(t, 640, cfg.ReadChunkBytes)

	_, err = Resolve(Options{BitsPerSample: 24}, "/data", dev)
	assert.ErrorIs(t, err, audio.ErrUnsupportedFormat)
}

func TestResolveRejectsOutsideNames(t *testing.T) {
	dev := newFakeDevice(640)

	for _, name := range []string{
		"/abs/take.wav",
		filepath.Join("..", "take.wav"),
		filepath.Join("takes", "..", "..", "take.wav"),
		TempFileName,
	} {
		_, err := Resolve(Options{OutputFileName: name}, "/data", dev)
		assert.ErrorIs(t, err, ErrInvalidOutputName, name)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "recording", Recording.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.True(t, Stopping.Active())
	assert.False(t, Stopped.Active())
}
