package session

import "time"

type State int

const (
	StateIdle State = iota
	StateListening
	StateTranscribing
	StateSilent
	StateHasText
	StateResponding
	StateSpeaking
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateTranscribing:
		return "transcribing"
	case StateSilent:
		return "silent"
	case StateHasText:
		return "has_text"
	case StateResponding:
		return "responding"
	case StateSpeaking:
		return "speaking"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is emitted on every state change. Text carries the transcript in
// HasText, the reply or announcement in Speaking and the reason in Stopped.
type Event struct {
	Session string
	State   State
	Text    string
	At      time.Time
}

// Reporter receives session events. Implementations must not block for long;
// the loop calls them inline.
type Reporter interface {
	Report(Event)
}

type Reporters []Reporter

func (rs Reporters) Report(ev Event) {
	for _, r := range rs {
		r.Report(ev)
	}
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}
