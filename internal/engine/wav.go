package engine

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// WAVEncoder writes 16-bit PCM RIFF/WAVE files.
type WAVEncoder struct{}

func NewWAVEncoder() *WAVEncoder {
	return &WAVEncoder{}
}

// Encode interleaves the per-channel samples and writes them as 16-bit PCM.
func (e *WAVEncoder) Encode(samples Samples, sampleRate int, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("encode %s: no channels", path)
	}
	frames := len(samples[0])
	for _, ch := range samples {
		if len(ch) != frames {
			return fmt.Errorf("encode %s: channel length mismatch", path)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	channels := len(samples)
	const bytesPerSample = 2
	dataSize := uint32(frames * channels * bytesPerSample)
	byteRate := uint32(sampleRate * channels * bytesPerSample)
	blockAlign := uint16(channels * bytesPerSample)

	// RIFF header
	w.WriteString("RIFF")
	binary.Write(w, binary.LittleEndian, uint32(36+dataSize))
	w.WriteString("WAVE")

	// fmt chunk
	w.WriteString("fmt ")
	binary.Write(w, binary.LittleEndian, uint32(16))
	binary.Write(w, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(w, binary.LittleEndian, uint16(channels))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, byteRate)
	binary.Write(w, binary.LittleEndian, blockAlign)
	binary.Write(w, binary.LittleEndian, uint16(8*bytesPerSample))

	// data chunk
	w.WriteString("data")
	binary.Write(w, binary.LittleEndian, dataSize)
	for i := 0; i < frames; i++ {
		for _, ch := range samples {
			if err := binary.Write(w, binary.LittleEndian, pcm16(ch[i])); err != nil {
				return fmt.Errorf("write samples to %s: %w", path, err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

func pcm16(v float32) int16 {
	clamped := math.Max(-1, math.Min(1, float64(v)))
	return int16(clamped * math.MaxInt16)
}
