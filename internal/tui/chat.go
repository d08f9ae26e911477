package tui

import (
	"context"
	"errors"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/fieldlog/internal/capture"
)

type turnDoneMsg struct{}

type listenDoneMsg struct {
	err error
}

// chatPanel drives the conversational capture. Turns and recognition run
// as commands so the screen keeps redrawing while the model works.
type chatPanel struct {
	ctx     context.Context
	capture *capture.ConversationalCapture
	input   textinput.Model
	spinner spinner.Model
	theme   Theme
	notice  string
}

func newChatPanel(ctx context.Context, c *capture.ConversationalCapture, theme Theme) chatPanel {
	in := textinput.New()
	in.Placeholder = "Describe the interaction..."
	in.Focus()
	return chatPanel{
		ctx:     ctx,
		capture: c,
		input:   in,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:   theme,
	}
}

func (p chatPanel) send() tea.Cmd {
	return func() tea.Msg {
		p.capture.SendInput(p.ctx)
		return turnDoneMsg{}
	}
}

func (p chatPanel) listen() tea.Cmd {
	return func() tea.Msg {
		return listenDoneMsg{err: p.capture.Listen(p.ctx)}
	}
}

func (p chatPanel) update(msg tea.Msg) (chatPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case turnDoneMsg:
		return p, nil

	case listenDoneMsg:
		switch {
		case errors.Is(msg.err, capture.ErrVoiceUnsupported):
			p.notice = "Speech recognition is not supported on this host. Set FIELDLOG_VOICE_CMD to enable it."
		case msg.err != nil:
			p.notice = ""
		}
		p.input.SetValue(p.capture.Input())
		p.input.CursorEnd()
		return p, nil

	case spinner.TickMsg:
		if p.capture.State() != capture.StateAwaitingResponse && !p.capture.Listening() {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyPressMsg:
		switch msg.String() {
		case "enter":
			if p.capture.State() == capture.StateAwaitingResponse || strings.TrimSpace(p.input.Value()) == "" {
				return p, nil
			}
			p.capture.SetInput(p.input.Value())
			p.input.SetValue("")
			return p, tea.Batch(p.send(), p.spinner.Tick)
		case "ctrl+r":
			if p.capture.Listening() || !p.capture.VoiceAvailable() {
				return p, nil
			}
			p.capture.SetInput(p.input.Value())
			return p, tea.Batch(p.listen(), p.spinner.Tick)
		}
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return p, cmd
	}
	return p, nil
}

func (p chatPanel) view(width, height int, focused bool) string {
	var lines []string
	for _, m := range p.capture.Transcript() {
		prefix := p.theme.titleStyle().Render("AI: ")
		if m.Role == capture.RoleUser {
			prefix = p.theme.userStyle().Render("You: ")
		}
		body := lipgloss.NewStyle().Width(max(10, width-6)).Render(m.Content)
		if strings.HasPrefix(m.Content, "Error: ") {
			body = p.theme.errorStyle().Width(max(10, width-6)).Render(m.Content)
		}
		lines = append(lines, prefix, body, "")
	}
	transcript := strings.Join(lines, "\n")

	// keep the tail in view
	if height > 0 {
		rows := strings.Split(transcript, "\n")
		if len(rows) > height {
			rows = rows[len(rows)-height:]
		}
		transcript = strings.Join(rows, "\n")
	}

	var b strings.Builder
	b.WriteString(p.theme.titleStyle().Render("AI Assistant"))
	b.WriteString("\n\n")
	b.WriteString(transcript)
	b.WriteString("\n")

	switch {
	case p.capture.State() == capture.StateAwaitingResponse:
		b.WriteString(p.spinner.View() + " Processing...\n")
	case p.capture.Listening():
		b.WriteString(p.spinner.View() + " Listening...\n")
	case p.notice != "":
		b.WriteString(p.theme.errorStyle().Render(p.notice) + "\n")
	}

	if focused {
		p.input.SetWidth(max(10, width-6))
	}
	b.WriteString(p.input.View())
	b.WriteString("\n")

	hint := "enter send"
	if p.capture.VoiceAvailable() {
		hint += " · ctrl+r voice"
	}
	b.WriteString(p.theme.hintStyle().Render(hint))
	return b.String()
}
