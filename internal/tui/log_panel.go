package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kpenrose/finscope/internal/orchestrator"
)

const maxLogLines = 500

// LogPanel shows the orchestrator event stream in a scrollable viewport.
// It sticks to the bottom while the reviewer has not scrolled away.
type LogPanel struct {
	vp     viewport.Model
	lines  []string
	width  int
	height int

	titleStyle lipgloss.Style
	timeStyle  lipgloss.Style
	agentStyle lipgloss.Style
	infoStyle  lipgloss.Style
	errorStyle lipgloss.Style
}

// NewLogPanel creates an empty LogPanel.
func NewLogPanel() *LogPanel {
	return &LogPanel{
		vp:    viewport.New(80, 10),
		lines: make([]string, 0),

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		timeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		agentStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")),

		infoStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}

// SetSize updates the panel dimensions.
func (p *LogPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.vp.Width = maxInt(width-4, 10)
	p.vp.Height = maxInt(height-3, 1)
}

// Add appends one event to the log.
func (p *LogPanel) Add(ev orchestrator.Event) {
	p.lines = append(p.lines, p.renderLine(ev))
	if len(p.lines) > maxLogLines {
		p.lines = p.lines[len(p.lines)-maxLogLines:]
	}

	atBottom := p.vp.AtBottom()
	p.vp.SetContent(strings.Join(p.lines, "\n"))
	if atBottom {
		p.vp.GotoBottom()
	}
}

// Update forwards scrolling keys to the viewport.
func (p *LogPanel) Update(msg tea.Msg) (*LogPanel, tea.Cmd) {
	var cmd tea.Cmd
	p.vp, cmd = p.vp.Update(msg)
	return p, cmd
}

// View renders the panel.
func (p *LogPanel) View() string {
	var b strings.Builder
	b.WriteString(p.titleStyle.Render("Activity"))
	b.WriteString("\n")
	b.WriteString(p.vp.View())

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(p.width - 2).
		Height(p.height - 2).
		Render(b.String())
}

func (p *LogPanel) renderLine(ev orchestrator.Event) string {
	ts := p.timeStyle.Render(ev.Timestamp.Format("15:04:05"))

	agent := ""
	if ev.Agent != "" {
		agent = p.agentStyle.Render(fmt.Sprintf("[%s] ", ev.Agent))
	}

	text := ev.Message
	if text == "" {
		text = string(ev.Type)
	}
	if ev.Err != "" {
		return fmt.Sprintf("%s %s%s", ts, agent, p.errorStyle.Render(ev.Err))
	}
	return fmt.Sprintf("%s %s%s", ts, agent, p.infoStyle.Render(text))
}
