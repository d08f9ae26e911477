// Package tui is the interactive capture screen: the structured form, the
// conversational assistant and the insight panel side by side.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/fieldlog/internal/capture"
	"github.com/raphaelgruber/fieldlog/internal/insight"
	"github.com/raphaelgruber/fieldlog/internal/notify"
)

// Backend is what the screen needs from the server.
type Backend interface {
	capture.Directory
	capture.InteractionSink
	capture.Extractor
}

// Options configures the capture screen.
type Options struct {
	Backend    Backend
	RepID      string
	Recognizer capture.Recognizer
	Logger     *slog.Logger
}

type panel int

const (
	panelForm panel = iota
	panelChat
)

// insightMsg signals that the insight display holds a new snapshot.
type insightMsg struct{}

type model struct {
	form    formPanel
	chat    chatPanel
	display *insight.Display
	theme   Theme

	focus  panel
	width  int
	height int
}

// components holds what one screen is composed of. The bus is created here
// and shared by the chat capture, which publishes, and the display, which
// subscribes.
type components struct {
	bus        *notify.Bus
	structured *capture.StructuredCapture
	chat       *capture.ConversationalCapture
	display    *insight.Display
}

func compose(opts Options, onInsight func()) components {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	copts := []capture.Option{capture.WithLogger(logger)}
	if opts.Recognizer != nil {
		copts = append(copts, capture.WithRecognizer(opts.Recognizer))
	}

	bus := notify.NewBus()
	return components{
		bus:        bus,
		structured: capture.NewStructuredCapture(opts.Backend, opts.Backend, opts.RepID, copts...),
		chat:       capture.NewConversationalCapture(opts.Backend, bus, opts.RepID, copts...),
		display:    insight.NewDisplay(bus, onInsight),
	}
}

func newModel(ctx context.Context, c components) model {
	return model{
		form:    newFormPanel(ctx, c.structured, defaultTheme),
		chat:    newChatPanel(ctx, c.chat, defaultTheme),
		display: c.display,
		theme:   defaultTheme,
		width:   120,
		height:  40,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case insightMsg:
		return m, nil

	case searchDoneMsg, submitDoneMsg:
		m.form, cmd = m.form.update(msg)
		return m, cmd

	case turnDoneMsg, listenDoneMsg:
		m.chat, cmd = m.chat.update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "f1":
			m.focus = panelForm
			return m, nil
		case "f2":
			m.focus = panelChat
			return m, nil
		case "ctrl+o":
			m.focus = (m.focus + 1) % 2
			return m, nil
		}
		if m.focus == panelForm {
			m.form, cmd = m.form.update(msg)
		} else {
			m.chat, cmd = m.chat.update(msg)
		}
		return m, cmd
	}

	// spinner ticks and cursor blinks
	m.chat, cmd = m.chat.update(msg)
	return m, cmd
}

func (m model) View() tea.View {
	return tea.NewView(m.render())
}

func (m model) render() string {
	// form | chat | insights, roughly 40/35/25
	inner := max(m.width-6, 60)
	formW := inner * 40 / 100
	chatW := inner * 35 / 100
	insightW := inner - formW - chatW
	bodyH := max(m.height-8, 10)

	form := m.theme.panelStyle(m.focus == panelForm, formW).
		Render(m.form.view(formW, m.focus == panelForm))
	chat := m.theme.panelStyle(m.focus == panelChat, chatW).
		Render(m.chat.view(chatW, bodyH, m.focus == panelChat))
	insights := m.theme.panelStyle(false, insightW).
		Render(m.renderInsights())

	help := m.theme.hintStyle().Render("f1 form · f2 chat · ctrl+o switch · ctrl+c quit")
	return lipgloss.JoinHorizontal(lipgloss.Top, form, chat, insights) + "\n" + help
}

func (m model) renderInsights() string {
	var b strings.Builder
	b.WriteString(m.theme.titleStyle().Render("AI Insights"))
	b.WriteString("\n\n")

	sections := m.display.Sections()
	if len(sections) == 0 {
		b.WriteString(m.theme.hintStyle().Render("Start a conversation to see extracted insights"))
		return b.String()
	}
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.theme.labelStyle(true).Render(s.Title))
		b.WriteString("\n")
		for _, f := range s.Fields {
			if f.Label != "" {
				b.WriteString(m.theme.labelStyle(false).Render(f.Label+": ") + f.Value + "\n")
			} else {
				b.WriteString(f.Value + "\n")
			}
		}
	}
	return b.String()
}

// Run shows the capture screen until the user quits.
func Run(ctx context.Context, opts Options) error {
	var p *tea.Program
	c := compose(opts, func() {
		if p != nil {
			p.Send(insightMsg{})
		}
	})
	defer c.display.Close()

	p = tea.NewProgram(newModel(ctx, c), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("capture UI error: %w", err)
	}
	return nil
}
