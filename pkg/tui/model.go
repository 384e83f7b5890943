package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xhad/askmydocs/internal/models"
	"github.com/xhad/askmydocs/pkg/rag"
	"github.com/xhad/askmydocs/pkg/session"
)

// ChatPort is the TUI-facing subset of a chat session.
type ChatPort interface {
	Ask(ctx context.Context, question string) (*models.Message, error)
	Upload(ctx context.Context, files []models.Upload) (*models.IngestionReport, error)
	Messages() []models.Message
}

type answerMsg struct {
	err error
}

type uploadMsg struct {
	report *models.IngestionReport
	err    error
}

// Model is the Bubble Tea model for the terminal chat.
type Model struct {
	ctx      context.Context
	chat     ChatPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	status   string
	pending  string // question shown until the session records it
	busy     bool
	ready    bool
}

// New creates a chat model. status is shown until the first action, usually
// the warning returned by Session.Start.
func New(ctx context.Context, chat ChatPort, status string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /upload <files...>"
	ti.Focus()
	ti.CharLimit = 0
	if status == "" {
		status = "Index loaded. Ask away!"
	}
	return Model{
		ctx:      ctx,
		chat:     chat,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		status:   status,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}

	case answerMsg:
		m.busy = false
		m.pending = ""
		if msg.err != nil {
			m.status = "Warning: " + msg.err.Error()
		} else {
			m.status = "Ready"
		}
		m.refresh()
		return m, nil

	case uploadMsg:
		m.busy = false
		var degraded *session.DegradedError
		switch {
		case errors.As(msg.err, &degraded):
			m.status = "Warning: " + degraded.Error()
		case msg.err != nil:
			m.status = "Error: " + msg.err.Error()
		case msg.report.NothingToDo:
			m.status = "No new documents to ingest."
		default:
			m.status = fmt.Sprintf("Ingested %d file(s), %d chunk(s). Ask away!", msg.report.Count(), msg.report.Chunks)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.busy {
		return m, nil
	}
	m.input.SetValue("")

	if text == "/upload" || strings.HasPrefix(text, "/upload ") {
		paths := strings.Fields(strings.TrimPrefix(text, "/upload"))
		if len(paths) == 0 {
			m.status = "Usage: /upload <file.pdf|file.txt> ..."
			return m, nil
		}
		m.busy = true
		m.status = fmt.Sprintf("Ingesting %d file(s)...", len(paths))
		return m, tea.Batch(m.spinner.Tick, m.upload(paths))
	}

	m.busy = true
	m.status = "Thinking..."
	m.pending = text
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.ask(text))
}

func (m Model) ask(question string) tea.Cmd {
	ctx, chat := m.ctx, m.chat
	return func() tea.Msg {
		_, err := chat.Ask(ctx, question)
		return answerMsg{err: err}
	}
}

func (m Model) upload(paths []string) tea.Cmd {
	ctx, chat := m.ctx, m.chat
	return func() tea.Msg {
		files, err := ReadUploads(paths)
		if err != nil {
			return uploadMsg{err: err}
		}
		report, err := chat.Upload(ctx, files)
		return uploadMsg{report: report, err: err}
	}
}

// ReadUploads reads local files into uploads named by their base name.
func ReadUploads(paths []string) ([]models.Upload, error) {
	files := make([]models.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		files = append(files, models.Upload{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

func (m *Model) refresh() {
	msgs := m.chat.Messages()
	if m.pending != "" {
		msgs = append(msgs, models.Message{Role: models.RoleUser, Content: m.pending})
	}
	m.viewport.SetContent(renderTranscript(msgs, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Ask My Docs")
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func renderTranscript(msgs []models.Message, width int) string {
	if len(msgs) == 0 {
		return "No messages yet."
	}
	wrap := lipgloss.NewStyle().Width(max(10, width-4))
	var b strings.Builder
	for _, msg := range msgs {
		if msg.Role == models.RoleUser {
			b.WriteString(userStyle.Render("You: "))
		} else {
			b.WriteString(assistantStyle.Render("Assistant: "))
		}
		b.WriteString(wrap.Render(msg.Content))
		b.WriteString("\n")
		if sources := rag.FormatSources(msg.Sources); sources != "" {
			b.WriteString(sourceStyle.Render(sources))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
