// Package console prints one human-readable line per session stage.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"jarvis/internal/session"
)

type Theme struct {
	Primary lipgloss.Color
	User    lipgloss.Color
	Dim     lipgloss.Color
	Alert   lipgloss.Color
}

var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	User:    lipgloss.Color("#58a6ff"),
	Dim:     lipgloss.Color("#6e7681"),
	Alert:   lipgloss.Color("#ff7b72"),
}

type styles struct {
	status    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	dim       lipgloss.Style
	alert     lipgloss.Style
}

// Printer implements session.Reporter on top of a terminal writer.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	name  string
	style styles
}

// New returns a printer that announces assistant replies under name.
// Colors are dropped automatically when w is not a terminal.
func New(w io.Writer, name string, t Theme) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:    w,
		name: name,
		style: styles{
			status:    r.NewStyle().Foreground(t.Primary),
			user:      r.NewStyle().Bold(true).Foreground(t.User),
			assistant: r.NewStyle().Bold(true).Foreground(t.Primary),
			dim:       r.NewStyle().Foreground(t.Dim),
			alert:     r.NewStyle().Bold(true).Foreground(t.Alert),
		},
	}
}

func (p *Printer) Report(ev session.Event) {
	line, ok := p.line(ev)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}

func (p *Printer) line(ev session.Event) (string, bool) {
	switch ev.State {
	case session.StateListening:
		return p.style.status.Render("🎤 Listening..."), true
	case session.StateTranscribing:
		return p.style.dim.Render("📝 Transcribing..."), true
	case session.StateSilent:
		return p.style.dim.Render("... (silence) ..."), true
	case session.StateHasText:
		return p.style.user.Render("🗣️  You:") + " " + ev.Text, true
	case session.StateResponding:
		return p.style.dim.Render("🧠 Thinking..."), true
	case session.StateSpeaking:
		return p.style.assistant.Render("🤖 "+p.name+":") + " " + ev.Text, true
	case session.StateStopped:
		return p.style.alert.Render("⏹  Stopped:") + " " + ev.Text, true
	default:
		return "", false
	}
}
