package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// DefaultChunkSize is used by Finalize when chunkSize <= 0.
const DefaultChunkSize = 32 * 1024

// ErrTempNotRemoved is returned together with a valid output path when the
// WAV file was written but the temporary PCM file could not be deleted.
var ErrTempNotRemoved = errors.New("temporary pcm file not removed")

// Format describes the PCM layout of a raw sample stream.
type Format struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
}

// Finalize wraps the raw PCM stream in tempPath into a WAV file at
// outputPath and deletes tempPath. It returns the absolute output path.
//
// The header is written first with the payload length measured from the
// temp file, then the payload is streamed across in chunkSize pieces. On
// failure the temp file is left in place and any partial output removed.
func Finalize(tempPath, outputPath string, f Format, chunkSize int) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	in, err := os.Open(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to open temp file: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat temp file: %w", err)
	}
	size := info.Size()
	if size > math.MaxUint32-riffOverhead {
		return "", fmt.Errorf("temp file too large for wav: %d bytes", size)
	}

	outPath, err := filepath.Abs(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	if err := writeFile(out, in, size, f, chunkSize); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("failed to close output file: %w", err)
	}

	in.Close()
	if err := os.Remove(tempPath); err != nil {
		return outPath, fmt.Errorf("%w: %w", ErrTempNotRemoved, err)
	}

	return outPath, nil
}

func writeFile(out io.Writer, in io.Reader, size int64, f Format, chunkSize int) error {
	header := BuildHeader(uint32(size), f.SampleRate, f.Channels, f.BitsPerSample)
	if _, err := out.Write(header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}

	// *os.File implements io.ReaderFrom, which would make io.CopyBuffer
	// ignore chunkSize.
	buf := make([]byte, chunkSize)
	var copied int64
	for copied < size {
		want := int64(len(buf))
		if left := size - copied; left < want {
			want = left
		}
		n, err := io.ReadFull(in, buf[:want])
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write pcm payload: %w", werr)
			}
			copied += int64(n)
		}
		if err != nil {
			return fmt.Errorf("short pcm payload: copied %d of %d bytes: %w", copied, size, err)
		}
	}
	return nil
}
