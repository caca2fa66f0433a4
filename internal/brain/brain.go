// Package brain turns the conversation so far into the assistant's next reply.
package brain

import (
	"fmt"
	"strings"

	"jarvis/internal/dialog"
)

// DefaultPersona is used when no system instruction is configured.
const DefaultPersona = "You are Jarvis, a highly intelligent voice assistant. " +
	"Keep answers extremely brief (1-2 sentences max) and conversational."

// Mode selects how much of the history reaches the model.
type Mode string

const (
	// ModeHistory sends the whole conversation.
	ModeHistory Mode = "history"
	// ModeStateless sends only the system instruction and the latest user utterance.
	ModeStateless Mode = "stateless"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeHistory, ModeStateless:
		return m, nil
	case "":
		return ModeHistory, nil
	default:
		return "", fmt.Errorf("unknown responder mode %q", s)
	}
}

type Options struct {
	Model       string
	Mode        Mode
	Temperature float64
	MaxTokens   int
}

// GenerationError wraps any failure to obtain a reply.
type GenerationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Window picks the utterances sent to the model for the given mode.
func Window(history []dialog.Utterance, mode Mode) []dialog.Utterance {
	if mode != ModeStateless {
		return history
	}

	var out []dialog.Utterance
	for _, u := range history {
		if u.Role == dialog.RoleSystem {
			out = append(out, u)
			break
		}
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == dialog.RoleUser {
			out = append(out, history[i])
			break
		}
	}
	return out
}
