// Package pcm holds mono 16-bit PCM buffers and their wave file encoding.
package pcm

import (
	"math"
	"time"
)

// Buffer is a mono, signed 16-bit PCM recording.
type Buffer struct {
	Samples    []int16
	SampleRate int
}

// SamplesFor returns the number of samples covering d at sampleRate.
func SamplesFor(d time.Duration, sampleRate int) int {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * float64(sampleRate)))
}

// Len returns the number of samples.
func (b Buffer) Len() int { return len(b.Samples) }

// Duration returns the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Peak returns the largest absolute sample value scaled to [0, 1].
func (b Buffer) Peak() float64 {
	var peak int
	for _, s := range b.Samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return float64(peak) / 32768.0
}
