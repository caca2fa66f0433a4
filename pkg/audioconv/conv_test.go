package audioconv

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"jarvis/pkg/pcm"
)

func writeTone(t *testing.T, name string, rate, n int) string {
	t.Helper()
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(16000 * math.Sin(2*math.Pi*880*float64(i)/float64(rate)))
	}
	path := filepath.Join(t.TempDir(), name)
	if err := pcm.WriteWAV(path, pcm.Buffer{Samples: samples, SampleRate: rate}); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeFile_WAVResampled(t *testing.T) {
	path := writeTone(t, "cue.wav", 44100, 44100)

	x, err := DecodeFile(context.Background(), path, Options{SampleRate: 16000})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(x); n < 15999 || n > 16001 {
		t.Fatalf("got %d samples, want 16000±1", n)
	}
	for i, v := range x {
		if v < -1 || v > 1 {
			t.Fatalf("sample %d out of range: %v", i, v)
		}
	}
}

func TestDecodeFile_DefaultRateAndLimit(t *testing.T) {
	path := writeTone(t, "cue.wav", 16000, 8000)

	x, err := DecodeFile(context.Background(), path, Options{MaxSamples: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if len(x) != 1000 {
		t.Errorf("got %d samples, want 1000", len(x))
	}
}

func TestDecodeFile_SniffsRIFF(t *testing.T) {
	src := writeTone(t, "cue.wav", 22050, 2205)
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "cue")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	x, err := DecodeFile(context.Background(), path, Options{SampleRate: 22050})
	if err != nil {
		t.Fatal(err)
	}
	if len(x) != 2205 {
		t.Errorf("got %d samples, want 2205", len(x))
	}
}

func TestDecodeFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cue.xyz")
	if err := os.WriteFile(path, []byte("JUNKJUNKJUNK"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeFile(context.Background(), path, Options{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestDownmixInterleaved(t *testing.T) {
	got := downmixInterleaved([]float32{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float32{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResampleLinear(t *testing.T) {
	in := make([]float32, 480)
	if got := len(resampleLinear(in, 48000, 16000)); got != 160 {
		t.Errorf("downsample: got %d, want 160", got)
	}
	if got := len(resampleLinear(in, 16000, 48000)); got != 1440 {
		t.Errorf("upsample: got %d, want 1440", got)
	}
	if got := resampleLinear(in, 16000, 16000); len(got) != len(in) {
		t.Errorf("identity changed length")
	}
}
