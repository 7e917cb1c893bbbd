package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/klix-code/klix/internal/agent"
	"github.com/klix-code/klix/internal/cli/formatter"
	"github.com/klix-code/klix/internal/config"
)

// rendererCache keeps one glamour renderer per width; creating them is
// expensive.
var rendererCache sync.Map // map[int]*glamour.TermRenderer

func renderMarkdown(text string, width int) string {
	if width < 20 {
		width = 20
	}
	var renderer *glamour.TermRenderer
	if cached, ok := rendererCache.Load(width); ok {
		renderer = cached.(*glamour.TermRenderer)
	} else {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		rendererCache.Store(width, r)
		renderer = r
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

type answerMsg struct {
	text string
	err  error
}

// chatModel is the bubbletea model for the interactive chat session.
type chatModel struct {
	agent *agent.Agent
	cfg   config.Config

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	transcript []string
	waiting    bool
	ready      bool
	quitting   bool
}

func newChatModel(a *agent.Agent, cfg config.Config) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask anything (esc to quit)"
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = formatter.StyleYellow

	return chatModel{
		agent:   a,
		cfg:     cfg,
		input:   ti,
		spinner: sp,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.input.Width = msg.Width - 4
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.transcript = append(m.transcript,
				formatter.StyleBlue.Render("you ")+question)
			m.refreshViewport()
			return m, tea.Batch(m.spinner.Tick, m.ask(question))
		}

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.transcript = append(m.transcript,
				formatter.StyleRed.Render("error ")+msg.err.Error())
		} else {
			m.transcript = append(m.transcript,
				formatter.StyleGreen.Render("klix")+"\n"+renderMarkdown(msg.text, m.viewport.Width-2))
		}
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *chatModel) ask(question string) tea.Cmd {
	a := m.agent
	return func() tea.Msg {
		answer, err := a.Run(context.Background(), question)
		return answerMsg{text: answer, err: err}
	}
}

func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting..."
	}

	header := formatter.Header(fmt.Sprintf("klix chat · %s", m.cfg.CurrentModel()))

	footer := m.input.View()
	if m.waiting {
		footer = m.spinner.View() + " thinking..."
	}

	return fmt.Sprintf("%s\n%s\n\n%s", header, m.viewport.View(), footer)
}
