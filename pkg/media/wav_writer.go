package media

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// WAVWriter handles writing PCM samples into a WAV container.
type WAVWriter struct {
	file          *os.File
	sampleRate    int
	channels      int
	bytesWritten  uint32
	headerWritten bool
	finalized     bool
	mu            sync.Mutex
}

// NewWAVWriter creates a WAV writer and writes an initial header.
func NewWAVWriter(file *os.File, sampleRate, channels int) (*WAVWriter, error) {
	if file == nil {
		return nil, fmt.Errorf("nil file provided for WAV writer")
	}
	if sampleRate <= 0 {
		sampleRate = 8000
	}
	if channels <= 0 {
		channels = 1
	}

	writer := &WAVWriter{
		file:       file,
		sampleRate: sampleRate,
		channels:   channels,
	}

	if err := writer.writeHeaderLocked(); err != nil {
		return nil, err
	}
	return writer, nil
}

// WriteSamples appends 16-bit PCM samples, interleaved by channel.
func (w *WAVWriter) WriteSamples(samples []int16) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized {
		return fmt.Errorf("cannot write to finalized WAV file")
	}

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	n, err := w.file.Write(buf)
	w.bytesWritten += uint32(n)
	return err
}

// Finalize updates the WAV header with the final data sizes.
func (w *WAVWriter) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized {
		return nil
	}

	if err := w.updateSizesLocked(); err != nil {
		return err
	}

	w.finalized = true
	return nil
}

func (w *WAVWriter) writeHeaderLocked() error {
	header := make([]byte, 44)

	copy(header[0:], []byte("RIFF"))
	// ChunkSize placeholder, patched in Finalize
	binary.LittleEndian.PutUint32(header[4:], 36)
	copy(header[8:], []byte("WAVE"))
	copy(header[12:], []byte("fmt "))
	// Subchunk1Size for PCM
	binary.LittleEndian.PutUint32(header[16:], 16)
	// AudioFormat 1 = PCM
	binary.LittleEndian.PutUint16(header[20:], 1)
	binary.LittleEndian.PutUint16(header[22:], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(w.sampleRate))
	// ByteRate = SampleRate * Channels * BytesPerSample
	binary.LittleEndian.PutUint32(header[28:], uint32(w.sampleRate*w.channels*2))
	// BlockAlign = Channels * BytesPerSample
	binary.LittleEndian.PutUint16(header[32:], uint16(w.channels*2))
	// BitsPerSample
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], []byte("data"))
	// Subchunk2Size placeholder, patched in Finalize
	binary.LittleEndian.PutUint32(header[40:], 0)

	if _, err := w.file.Write(header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	w.headerWritten = true
	return nil
}

func (w *WAVWriter) updateSizesLocked() error {
	// RIFF chunk size
	if _, err := w.file.Seek(4, io.SeekStart); err != nil {
		return err
	}
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, 36+w.bytesWritten)
	if _, err := w.file.Write(sizeBuf); err != nil {
		return err
	}

	// data chunk size
	if _, err := w.file.Seek(40, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sizeBuf, w.bytesWritten)
	if _, err := w.file.Write(sizeBuf); err != nil {
		return err
	}

	_, err := w.file.Seek(0, io.SeekEnd)
	return err
}
