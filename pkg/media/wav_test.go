package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, path string, sampleRate, channels int, samples []int16) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	writer, err := NewWAVWriter(f, sampleRate, channels)
	require.NoError(t, err)
	require.NoError(t, writer.WriteSamples(samples))
	require.NoError(t, writer.Finalize())
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")

	// Two frames of stereo audio
	samples := []int16{0, 16384, -16384, 32767}
	writeTestWAV(t, path, 8000, 2, samples)

	reader, err := NewWAVReader(path)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, 8000, reader.SampleRate)
	assert.Equal(t, 2, reader.Channels)
	assert.Equal(t, 16, reader.BitsPerSample)
	assert.Equal(t, 2, reader.FrameCount())

	decoded, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, decoded, 4)

	assert.InDelta(t, 0.0, decoded[0], 1e-9)
	assert.InDelta(t, 0.5, decoded[1], 1e-9)
	assert.InDelta(t, -0.5, decoded[2], 1e-9)
	assert.InDelta(t, 32767.0/32768.0, decoded[3], 1e-9)
}

func TestWAVReaderMissingFile(t *testing.T) {
	_, err := NewWAVReader(filepath.Join(t.TempDir(), "does-not-exist.wav"))
	assert.Error(t, err)
}

func TestWAVReaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("this is not a wav file at all"), 0644))

	_, err := NewWAVReader(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid WAV file")
}

func TestWAVWriterRejectsWriteAfterFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finalized.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	writer, err := NewWAVWriter(f, 8000, 1)
	require.NoError(t, err)
	require.NoError(t, writer.WriteSamples([]int16{1, 2, 3}))
	require.NoError(t, writer.Finalize())

	assert.Error(t, writer.WriteSamples([]int16{4}))
}
