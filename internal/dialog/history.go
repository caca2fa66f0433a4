// Package dialog keeps the conversation history of a session.
package dialog

import (
	"errors"
	"fmt"
	"slices"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Utterance is one role-tagged turn. It is passed by value and never mutated.
type Utterance struct {
	Role    Role
	Content string
}

var ErrOutOfTurn = errors.New("utterance out of turn")

// History is the ordered, append-only record of a session. It always starts
// with exactly one system utterance and alternates user/assistant after it.
// It is owned by a single session loop and is not safe for concurrent use.
type History struct {
	items []Utterance
}

// NewHistory seeds a history with the system instruction.
func NewHistory(system string) *History {
	return &History{
		items: []Utterance{{Role: RoleSystem, Content: system}},
	}
}

// Append adds an utterance if role is the one expected next.
func (h *History) Append(role Role, content string) error {
	if want := h.next(); role != want {
		return fmt.Errorf("%w: got %s, want %s", ErrOutOfTurn, role, want)
	}
	h.items = append(h.items, Utterance{Role: role, Content: content})
	return nil
}

func (h *History) next() Role {
	if h.Last().Role == RoleUser {
		return RoleAssistant
	}
	return RoleUser
}

// Utterances returns a copy of the history.
func (h *History) Utterances() []Utterance {
	return slices.Clone(h.items)
}

func (h *History) Len() int { return len(h.items) }

func (h *History) Last() Utterance { return h.items[len(h.items)-1] }

// Turns counts completed user/assistant pairs.
func (h *History) Turns() int { return (len(h.items) - 1) / 2 }
