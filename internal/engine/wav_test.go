package engine

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestWAVEncoderStereo(t *testing.T) {
	enc := NewWAVEncoder()
	path := filepath.Join(t.TempDir(), "out.wav")

	samples := Samples{
		{0, 0.5, -0.5, 1},
		{1, -1, 0.25, -0.25},
	}
	if err := enc.Encode(samples, 44100, path); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	// 44-byte header + 4 frames * 2 channels * 2 bytes
	if len(data) != 44+16 {
		t.Fatalf("unexpected file size %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("bad RIFF header: %q %q", data[0:4], data[8:12])
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 2 {
		t.Errorf("channel count = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 44100 {
		t.Errorf("sample rate = %d, want 44100", got)
	}
	if got := binary.LittleEndian.Uint16(data[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != 16 {
		t.Errorf("data size = %d, want 16", got)
	}

	// First frame: left 0, right full scale.
	if got := int16(binary.LittleEndian.Uint16(data[44:46])); got != 0 {
		t.Errorf("frame 0 left = %d, want 0", got)
	}
	if got := int16(binary.LittleEndian.Uint16(data[46:48])); got != 32767 {
		t.Errorf("frame 0 right = %d, want 32767", got)
	}
}

func TestWAVEncoderClamps(t *testing.T) {
	enc := NewWAVEncoder()
	path := filepath.Join(t.TempDir(), "clip.wav")

	if err := enc.Encode(Samples{{2.0, -3.0}}, 22050, path); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := int16(binary.LittleEndian.Uint16(data[44:46])); got != 32767 {
		t.Errorf("overdriven sample = %d, want 32767", got)
	}
	if got := int16(binary.LittleEndian.Uint16(data[46:48])); got != -32767 {
		t.Errorf("underdriven sample = %d, want -32767", got)
	}
}

func TestWAVEncoderRejectsBadInput(t *testing.T) {
	enc := NewWAVEncoder()
	dir := t.TempDir()

	if err := enc.Encode(Samples{}, 44100, filepath.Join(dir, "empty.wav")); err == nil {
		t.Error("expected error for zero channels")
	}
	if err := enc.Encode(Samples{{0, 0}, {0}}, 44100, filepath.Join(dir, "ragged.wav")); err == nil {
		t.Error("expected error for mismatched channel lengths")
	}
}
