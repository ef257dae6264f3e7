// Package wavfile reads and writes the mono 16-bit PCM recordings the
// decoder consumes.
package wavfile

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/klauspost/compress/zstd"
)

const (
	pcmFormat   = 1
	numChannels = 1
	bitDepth    = 16
)

// ErrUnsupported is matched by every format rejection from Load
var ErrUnsupported = errors.New("unsupported audio format")

// zstdMagic starts every zstd frame
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Metadata describes a loaded recording
type Metadata struct {
	Path        string
	Compressed  bool // file was a zstd-compressed WAV
	SampleRate  uint32
	NumChannels uint16
	BitDepth    uint16
	AudioFormat uint16
	NumSamples  int
}

// Duration returns the playing time of the recording
func (m *Metadata) Duration() time.Duration {
	if m.SampleRate == 0 {
		return 0
	}
	return time.Duration(m.NumSamples) * time.Second / time.Duration(m.SampleRate)
}

// Load reads a whole recording. The file must be RIFF/WAVE linear PCM,
// one channel, 16 bits, at sampleRate, optionally compressed with zstd.
func Load(path string, sampleRate int) (*Metadata, []int16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	compressed := bytes.HasPrefix(data, zstdMagic)
	if compressed {
		if data, err = decompress(data); err != nil {
			return nil, nil, fmt.Errorf("failed to decompress %s: %w", path, err)
		}
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnsupported, path)
	}

	meta := &Metadata{
		Path:        path,
		Compressed:  compressed,
		SampleRate:  dec.SampleRate,
		NumChannels: dec.NumChans,
		BitDepth:    dec.BitDepth,
		AudioFormat: dec.WavAudioFormat,
	}

	if meta.AudioFormat != pcmFormat {
		return meta, nil, fmt.Errorf("%w: format %d, expected linear PCM", ErrUnsupported, meta.AudioFormat)
	}
	if meta.NumChannels != numChannels {
		return meta, nil, fmt.Errorf("%w: %d channels, expected mono", ErrUnsupported, meta.NumChannels)
	}
	if meta.BitDepth != bitDepth {
		return meta, nil, fmt.Errorf("%w: %d bits per sample, expected %d", ErrUnsupported, meta.BitDepth, bitDepth)
	}
	if int(meta.SampleRate) != sampleRate {
		return meta, nil, fmt.Errorf("%w: sample rate %d, expected %d", ErrUnsupported, meta.SampleRate, sampleRate)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return meta, nil, fmt.Errorf("failed to read samples: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(max(math.MinInt16, min(math.MaxInt16, v)))
	}
	meta.NumSamples = len(samples)

	return meta, samples, nil
}

// WriteFile writes samples as a mono 16-bit PCM recording
func WriteFile(path string, sampleRate int, samples []int16) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	enc := wav.NewEncoder(file, sampleRate, bitDepth, numChannels, pcmFormat)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: numChannels},
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize header: %w", err)
	}

	return file.Close()
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
