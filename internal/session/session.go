// Package session runs the listen, transcribe, respond, speak cycle.
package session

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"jarvis/internal/dialog"
	"jarvis/pkg/pcm"
	"jarvis/pkg/util"
)

type Capturer interface {
	Capture(ctx context.Context, duration time.Duration, sampleRate int) (pcm.Buffer, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

type Responder interface {
	Respond(ctx context.Context, history []dialog.Utterance) (string, error)
}

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Chime interface {
	Play(ctx context.Context) error
}

type Config struct {
	Persona         string
	Greeting        string
	Farewell        string
	ExitPhrases     []string
	CaptureDuration time.Duration
	SampleRate      int
	AudioPath       string
	Cooldown        time.Duration
	MaxTurns        int  // replies before stopping; 0 = unlimited
	KeepAudio       bool // leave the last recording on disk after stop
}

// Deps are the long-lived collaborators of a loop. Capturer and Transcriber
// are required. A nil Responder transcribes only, a nil Speaker prints replies
// without voicing them.
type Deps struct {
	Capturer    Capturer
	Transcriber Transcriber
	Responder   Responder
	Speaker     Speaker
	Chime       Chime
	Reporter    Reporter
}

type Loop struct {
	id      string
	cfg     Config
	deps    Deps
	log     *log.Logger
	history *dialog.History
	state   State
	replies int
}

func New(cfg Config, deps Deps) (*Loop, error) {
	if deps.Capturer == nil || deps.Transcriber == nil {
		return nil, errors.New("session: capturer and transcriber are required")
	}
	if cfg.CaptureDuration <= 0 || cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("session: invalid capture %v @ %d Hz", cfg.CaptureDuration, cfg.SampleRate)
	}
	if cfg.AudioPath == "" {
		return nil, errors.New("session: empty audio path")
	}
	if deps.Reporter == nil {
		deps.Reporter = nopReporter{}
	}

	id := uuid.Must(uuid.NewV7()).String()
	return &Loop{
		id:      id,
		cfg:     cfg,
		deps:    deps,
		log:     log.With("session", id),
		history: dialog.NewHistory(cfg.Persona),
		state:   StateIdle,
	}, nil
}

func (l *Loop) ID() string { return l.id }

func (l *Loop) State() State { return l.state }

// History returns a copy of the conversation so far.
func (l *Loop) History() []dialog.Utterance { return l.history.Utterances() }

// Run blocks until the session stops. It returns nil when the user said an
// exit phrase, the turn limit was reached or ctx was cancelled, and the
// failing stage's error otherwise.
func (l *Loop) Run(ctx context.Context) error {
	if l.state != StateIdle {
		return errors.New("session: already run")
	}
	defer l.cleanup()

	l.transition(StateIdle, "")
	l.log.Info("Session started", "persona", l.cfg.Persona != "")
	l.say(ctx, l.cfg.Greeting)

	for {
		if ctx.Err() != nil {
			l.stop("interrupted")
			return nil
		}

		done, err := l.turn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.stop("interrupted")
				return nil
			}
			l.log.Error("Session failed", "state", l.state, "err", err)
			l.stop(err.Error())
			return err
		}
		if done {
			return nil
		}
	}
}

// turn runs one listen/respond cycle. done reports a graceful stop.
func (l *Loop) turn(ctx context.Context) (done bool, err error) {
	l.transition(StateListening, "")
	if l.deps.Chime != nil {
		if err := l.deps.Chime.Play(ctx); err != nil && ctx.Err() == nil {
			l.log.Warn("Failed to play cue", "err", err)
		}
	}

	buf, err := l.deps.Capturer.Capture(ctx, l.cfg.CaptureDuration, l.cfg.SampleRate)
	if err != nil {
		return false, err
	}
	if err := pcm.WriteWAV(l.cfg.AudioPath, buf); err != nil {
		return false, fmt.Errorf("write %s: %w", l.cfg.AudioPath, err)
	}
	l.log.Debug("Recorded", "samples", buf.Len(), "peak", buf.Peak())

	l.transition(StateTranscribing, "")
	text, err := l.deps.Transcriber.Transcribe(ctx, l.cfg.AudioPath)
	if err != nil {
		return false, err
	}

	if util.IsBlank(text) {
		l.transition(StateSilent, "")
		l.log.Info("Silence")
		return false, nil
	}

	text = strings.TrimSpace(text)
	if l.deps.Responder != nil {
		if err := l.history.Append(dialog.RoleUser, text); err != nil {
			return false, err
		}
	}
	l.transition(StateHasText, text)
	l.log.Info("Heard", "text", text)

	if phrase, ok := util.ContainsAnyFold(text, l.cfg.ExitPhrases); ok {
		l.say(ctx, l.cfg.Farewell)
		l.stop("exit phrase " + phrase)
		return true, nil
	}

	if l.deps.Responder == nil {
		return false, nil
	}

	l.transition(StateResponding, "")
	reply, err := l.deps.Responder.Respond(ctx, l.history.Utterances())
	if err != nil {
		return false, err
	}
	if err := l.history.Append(dialog.RoleAssistant, reply); err != nil {
		return false, err
	}

	l.say(ctx, reply)
	l.replies++

	if l.cfg.MaxTurns > 0 && l.replies >= l.cfg.MaxTurns {
		l.stop("turn limit")
		return true, nil
	}

	return false, l.cooldown(ctx)
}

// say reports text as spoken and voices it when a speaker is configured.
// Speech failures never end the session.
func (l *Loop) say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	l.transition(StateSpeaking, text)
	if l.deps.Speaker == nil {
		return
	}
	if err := l.deps.Speaker.Speak(ctx, text); err != nil && ctx.Err() == nil {
		l.log.Warn("Failed to voice out", "err", err)
	}
}

// cooldown keeps the next capture from hearing the tail of our own playback.
func (l *Loop) cooldown(ctx context.Context) error {
	if l.cfg.Cooldown <= 0 {
		return nil
	}
	t := time.NewTimer(l.cfg.Cooldown)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) stop(reason string) {
	l.transition(StateStopped, reason)
	l.log.Info("Session stopped", "reason", reason, "turns", l.history.Turns())
}

func (l *Loop) transition(s State, text string) {
	if s != l.state {
		l.log.Debug("Transition", "from", l.state, "to", s)
	}
	l.state = s
	l.deps.Reporter.Report(Event{
		Session: l.id,
		State:   s,
		Text:    text,
		At:      time.Now(),
	})
}

func (l *Loop) cleanup() {
	if l.cfg.KeepAudio {
		return
	}
	if err := os.Remove(l.cfg.AudioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.log.Warn("Failed to remove recording", "path", l.cfg.AudioPath, "err", err)
	}
}
