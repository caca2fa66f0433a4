// Package notify plays the short cue that tells the user the microphone is open.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"jarvis/pkg/audioconv"
)

const cueRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// Cue is a decoded sound ready for repeated playback.
type Cue struct {
	samples []float32
}

// LoadCue decodes a wav, mp3 or ogg file.
func LoadCue(ctx context.Context, path string) (*Cue, error) {
	x, err := audioconv.DecodeFile(ctx, path, audioconv.Options{
		SampleRate: int(cueRate),
		MaxSamples: int(cueRate) * 3,
	})
	if err != nil {
		return nil, fmt.Errorf("decode cue %s: %w", path, err)
	}
	return &Cue{samples: x}, nil
}

func (c *Cue) Duration() time.Duration {
	return cueRate.D(len(c.samples))
}

// Play blocks until the cue has finished or ctx is done.
func (c *Cue) Play(ctx context.Context) error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(cueRate, cueRate.N(time.Second/10))
	})
	if speakerErr != nil {
		return fmt.Errorf("init speaker: %w", speakerErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(c.streamer(), beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func (c *Cue) streamer() beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(out [][2]float64) (int, bool) {
		if pos >= len(c.samples) {
			return 0, false
		}
		n := 0
		for n < len(out) && pos < len(c.samples) {
			v := float64(c.samples[pos])
			out[n][0], out[n][1] = v, v
			n++
			pos++
		}
		return n, true
	})
}
