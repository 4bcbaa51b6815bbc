// Package wavio reads PCM WAV files of any channel count (downmixed to
// mono) and writes mono 16-bit PCM WAV files. It is the one
// component in this repository built directly on the standard library: no
// WAV-parsing library appears anywhere in the retrieved example corpus
// (see DESIGN.md), and a minimal RIFF/WAVE reader/writer is a small,
// self-contained surface.
package wavio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Format describes the PCM layout of a WAV file's data chunk.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// File is a fully-decoded WAV file: its format and mono float samples in
// [-1, 1]. Multi-channel input is downmixed to mono by averaging channels.
type File struct {
	Format  Format
	Samples []float32
}

// ReadFile reads and decodes a PCM WAV file from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wavio: read file: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode parses a RIFF/WAVE container from r, requiring an integer PCM
// ("fmt " tag 1) data chunk of 8, 16, 24, or 32 bits per sample.
func Decode(r io.Reader) (*File, error) {
	var riffHeader struct {
		ChunkID   [4]byte
		ChunkSize uint32
		Format    [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riffHeader); err != nil {
		return nil, fmt.Errorf("wavio: read RIFF header: %w", err)
	}
	if string(riffHeader.ChunkID[:]) != "RIFF" || string(riffHeader.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("wavio: not a RIFF/WAVE file")
	}

	var format Format
	var havefmt bool
	var rawData []byte

	for {
		var id [4]byte
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			break
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("wavio: read chunk size: %w", err)
		}

		switch string(id[:]) {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return nil, fmt.Errorf("wavio: read fmt chunk: %w", err)
			}
			if fmtChunk.AudioFormat != 1 {
				return nil, fmt.Errorf("wavio: unsupported audio format %d (only PCM is supported)", fmtChunk.AudioFormat)
			}
			format = Format{
				SampleRate:    int(fmtChunk.SampleRate),
				Channels:      int(fmtChunk.Channels),
				BitsPerSample: int(fmtChunk.BitsPerSample),
			}
			havefmt = true
			if extra := int64(size) - 16; extra > 0 {
				if _, err := io.CopyN(io.Discard, r, extra); err != nil {
					return nil, fmt.Errorf("wavio: skip fmt chunk extension: %w", err)
				}
			}

		case "data":
			buf := make([]byte, size)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("wavio: read data chunk: %w", err)
			}
			rawData = buf

		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				break
			}
		}

		if size%2 == 1 {
			// chunks are word-aligned; skip the pad byte
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				break
			}
		}
	}

	if !havefmt {
		return nil, fmt.Errorf("wavio: missing fmt chunk")
	}
	if rawData == nil {
		return nil, fmt.Errorf("wavio: missing data chunk")
	}

	samples, err := decodeSamples(rawData, format)
	if err != nil {
		return nil, err
	}
	mono := downmix(samples, format.Channels)

	return &File{Format: format, Samples: mono}, nil
}

func decodeSamples(raw []byte, format Format) ([]float32, error) {
	bytesPerSample := format.BitsPerSample / 8
	if bytesPerSample == 0 {
		return nil, fmt.Errorf("wavio: unsupported bits per sample %d", format.BitsPerSample)
	}
	n := len(raw) / bytesPerSample
	out := make([]float32, n)

	for i := 0; i < n; i++ {
		b := raw[i*bytesPerSample : (i+1)*bytesPerSample]
		switch format.BitsPerSample {
		case 8:
			out[i] = (float32(b[0]) - 128) / 128
		case 16:
			v := int16(binary.LittleEndian.Uint16(b))
			out[i] = float32(v) / 32768
		case 24:
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if v&0x800000 != 0 {
				v |= ^0xffffff
			}
			out[i] = float32(v) / 8388608
		case 32:
			v := int32(binary.LittleEndian.Uint32(b))
			out[i] = float32(v) / 2147483648
		default:
			return nil, fmt.Errorf("wavio: unsupported bits per sample %d", format.BitsPerSample)
		}
	}
	return out, nil
}

func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	n := len(samples) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// WriteFile encodes mono float samples (clamped to [-1, 1]) as 16-bit PCM
// and writes them to path.
func WriteFile(path string, sampleRate int, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: create file: %w", err)
	}
	defer f.Close()
	return Encode(f, sampleRate, samples)
}

// Encode writes a 16-bit mono PCM WAV container to w.
func Encode(w io.Writer, sampleRate int, samples []float32) error {
	const bitsPerSample = 16
	const channels = 1
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(samples) * 2

	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(36+dataSize)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}

	if _, err := w.Write([]byte("fmt ")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	fmtFields := []any{
		uint16(1), uint16(channels), uint32(sampleRate),
		uint32(byteRate), uint16(blockAlign), uint16(bitsPerSample),
	}
	for _, f := range fmtFields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("wavio: write fmt chunk: %w", err)
		}
	}

	if _, err := w.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dataSize)); err != nil {
		return err
	}
	for _, s := range samples {
		v := s
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		if err := binary.Write(w, binary.LittleEndian, int16(v*32767)); err != nil {
			return fmt.Errorf("wavio: write sample: %w", err)
		}
	}
	return nil
}

// MixSinePulse mixes a short sine-wave pulse into samples, in place,
// centered at centerSample. Used to mark accented-event timestamps in an
// annotated output WAV.
func MixSinePulse(samples []float32, sampleRate int, centerSample int, freqHz, durationMs, amplitude float64) {
	halfLen := int(durationMs / 1000.0 * float64(sampleRate) / 2)
	start := centerSample - halfLen
	end := centerSample + halfLen
	if start < 0 {
		start = 0
	}
	if end > len(samples) {
		end = len(samples)
	}
	for i := start; i < end; i++ {
		t := float64(i-centerSample) / float64(sampleRate)
		window := 0.5 * (1 + math.Cos(2*math.Pi*float64(i-start)/float64(end-start)-math.Pi))
		samples[i] += float32(amplitude * window * math.Sin(2*math.Pi*freqHz*t))
	}
}
