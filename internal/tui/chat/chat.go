// Package chat implements the interactive question-answering TUI over the
// query engine.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codegraph-labs/codegraph/internal/engine"
	"github.com/codegraph-labs/codegraph/internal/tui/styles"
)

// Querier is the slice of the engine the chat needs.
type Querier interface {
	Query(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// message is one entry in the transcript.
type message struct {
	role     string // "user" or "assistant"
	text     string
	sources  []string
	degraded bool
	err      bool
}

// resultMsg carries an engine response back into the update loop.
type resultMsg struct {
	result *engine.Result
	err    error
}

// Model is the bubbletea model for the chat session.
type Model struct {
	querier Querier
	request engine.Request // template: K, graph context, depth, timeout

	input    textinput.Model
	view     viewport.Model
	spin     spinner.Model
	messages []message
	waiting  bool
	ready    bool
	width    int
	height   int
}

// NewModel creates a chat model. The request acts as a template; its
// Query field is replaced per question.
func NewModel(querier Querier, request engine.Request) Model {
	input := textinput.New()
	input.Placeholder = "Ask about the codebase..."
	input.Focus()
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.MutedText

	return Model{
		querier: querier,
		request: request,
		input:   input,
		spin:    spin,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			m.messages = append(m.messages, message{role: "user", text: question})
			m.input.Reset()
			m.waiting = true
			m.refreshViewport()
			return m, tea.Batch(m.spin.Tick, m.ask(question))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewHeight := msg.Height - 6
		if viewHeight < 3 {
			viewHeight = 3
		}
		if !m.ready {
			m.view = viewport.New(msg.Width, viewHeight)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = viewHeight
		}
		m.refreshViewport()

	case resultMsg:
		m.waiting = false
		m.messages = append(m.messages, toMessage(msg))
		m.refreshViewport()
		m.view.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// ask issues the query off the update loop.
func (m Model) ask(question string) tea.Cmd {
	req := m.request
	req.Query = question
	return func() tea.Msg {
		result, err := m.querier.Query(context.Background(), req)
		return resultMsg{result: result, err: err}
	}
}

func toMessage(msg resultMsg) message {
	if msg.err != nil {
		return message{
			role: "assistant",
			text: fmt.Sprintf("Query failed: %v", msg.err),
			err:  true,
		}
	}

	out := message{
		role:     "assistant",
		text:     msg.result.Answer,
		degraded: msg.result.Degraded,
	}
	for _, m := range msg.result.Chunks {
		out.sources = append(out.sources, fmt.Sprintf("%s (%.2f)", m.Chunk.ChunkID, m.Score))
	}
	return out
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("codegraph chat"))
	b.WriteString("\n")
	b.WriteString(m.view.View())
	b.WriteString("\n")

	if m.waiting {
		b.WriteString(m.spin.View())
		b.WriteString(styles.MutedText.Render(" thinking..."))
	} else {
		b.WriteString(styles.InputBox.Width(m.width - 4).Render(m.input.View()))
	}
	b.WriteString("\n")
	b.WriteString(styles.HelpText.Render("enter: ask • esc: quit"))
	return b.String()
}

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.view.SetContent(renderTranscript(m.messages, m.view.Width))
	m.view.GotoBottom()
}

func renderTranscript(messages []message, width int) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.role {
		case "user":
			b.WriteString(styles.UserLabel.Render("you"))
		default:
			b.WriteString(styles.AssistantLabel.Render("codegraph"))
			if msg.degraded {
				b.WriteString(" ")
				b.WriteString(styles.DegradedBadge.Render("(degraded)"))
			}
		}
		b.WriteString("\n")
		if msg.err {
			b.WriteString(styles.ErrorText.Render(msg.text))
		} else {
			b.WriteString(msg.text)
		}
		b.WriteString("\n")
		if len(msg.sources) > 0 {
			b.WriteString(styles.SourceLine.Render("sources: " + strings.Join(msg.sources, ", ")))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Run starts the chat session and blocks until the user quits.
func Run(querier Querier, request engine.Request) error {
	p := tea.NewProgram(NewModel(querier, request), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
