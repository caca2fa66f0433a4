package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"jarvis/pkg/pcm"
)

// DeviceError reports that the input device could not be opened or read.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Ducker quiets other applications while the microphone is open.
type Ducker interface {
	Duck(ctx context.Context, factor float64, fade time.Duration) error
	Restore(ctx context.Context, fade time.Duration) error
}

type DuckOptions struct {
	Factor float64
	Fade   time.Duration
}

type Recorder struct {
	ducker Ducker
	duck   DuckOptions
}

func NewRecorder() *Recorder { return &Recorder{} }

// WithDucker makes every capture duck other streams for its duration.
func (r *Recorder) WithDucker(d Ducker, opt DuckOptions) *Recorder {
	r.ducker = d
	r.duck = opt
	return r
}

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return &DeviceError{Op: "init", Err: err}
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture records exactly duration worth of mono int16 samples from the
// default input device. The stream is opened and released within the call.
func (r *Recorder) Capture(ctx context.Context, duration time.Duration, sampleRate int) (pcm.Buffer, error) {
	total := pcm.SamplesFor(duration, sampleRate)
	if total == 0 {
		return pcm.Buffer{}, errors.New("capture: duration and sample rate must be positive")
	}

	frameSize := max(sampleRate/10, 1) // 100ms
	buf := make([]int16, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buf), buf)
	if err != nil {
		return pcm.Buffer{}, &DeviceError{Op: "open", Err: err}
	}
	defer stream.Close()

	if r.ducker != nil {
		if err := r.ducker.Duck(ctx, r.duck.Factor, r.duck.Fade); err != nil {
			log.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			// ctx may already be cancelled; restoring volumes must still happen.
			if err := r.ducker.Restore(context.WithoutCancel(ctx), r.duck.Fade); err != nil {
				log.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}

	if err := stream.Start(); err != nil {
		return pcm.Buffer{}, &DeviceError{Op: "start", Err: err}
	}
	defer stream.Stop()

	out := make([]int16, 0, total)
	for len(out) < total {
		select {
		case <-ctx.Done():
			return pcm.Buffer{}, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return pcm.Buffer{}, &DeviceError{Op: "read", Err: err}
		}

		n := min(total-len(out), len(buf))
		out = append(out, buf[:n]...)
	}

	log.Debug("Captured", "samples", len(out), "rate", sampleRate)

	return pcm.Buffer{Samples: out, SampleRate: sampleRate}, nil
}
