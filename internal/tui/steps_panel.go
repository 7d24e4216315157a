package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kpenrose/finscope/internal/orchestrator"
	"github.com/kpenrose/finscope/pkg/models"
)

// Status icons shared across panels.
const (
	iconPending = "[○]"
	iconWaiting = "[◐]"
	iconRunning = "[●]"
	iconDone    = "[✓]"
	iconFailed  = "[✗]"
)

// StepsPanel displays the plan's steps in creation order with a cursor.
type StepsPanel struct {
	goal           string
	steps          []*models.Step
	completedCount int
	failedCount    int
	selected       int
	scrollOffset   int
	width          int
	height         int

	titleStyle    lipgloss.Style
	selectedStyle lipgloss.Style
	normalStyle   lipgloss.Style
	pendingStyle  lipgloss.Style
	waitingStyle  lipgloss.Style
	runningStyle  lipgloss.Style
	doneStyle     lipgloss.Style
	failedStyle   lipgloss.Style
	agentStyle    lipgloss.Style
	sectionStyle  lipgloss.Style
}

// NewStepsPanel creates an empty StepsPanel.
func NewStepsPanel() *StepsPanel {
	return &StepsPanel{
		steps: make([]*models.Step, 0),

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		selectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Bold(true),

		normalStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		pendingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),

		waitingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		runningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")),

		failedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		agentStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")),

		sectionStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
	}
}

// SetPlan replaces the displayed plan and its steps.
func (p *StepsPanel) SetPlan(pws *models.PlanWithSteps) {
	if pws == nil {
		return
	}
	p.goal = pws.Goal
	p.steps = pws.Steps
	p.completedCount = pws.CompletedSteps
	p.failedCount = pws.FailedSteps
	if p.selected >= len(p.steps) {
		p.selected = len(p.steps) - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}
}

// SetSize updates the panel dimensions.
func (p *StepsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// MoveUp moves the cursor up one step.
func (p *StepsPanel) MoveUp() {
	if p.selected > 0 {
		p.selected--
		p.ensureVisible()
	}
}

// MoveDown moves the cursor down one step.
func (p *StepsPanel) MoveDown() {
	if p.selected < len(p.steps)-1 {
		p.selected++
		p.ensureVisible()
	}
}

// Selected returns the step under the cursor, or nil when the list is empty.
func (p *StepsPanel) Selected() *models.Step {
	if p.selected < 0 || p.selected >= len(p.steps) {
		return nil
	}
	return p.steps[p.selected]
}

// ApplyEvent updates a step's displayed status from an orchestrator event.
func (p *StepsPanel) ApplyEvent(ev orchestrator.Event) {
	st := p.find(ev.StepID)
	if st == nil {
		return
	}
	switch ev.Type {
	case orchestrator.EventStepAwaitingFeedback:
		st.Status = models.StepStatusAwaitingFeedback
	case orchestrator.EventStepApproved:
		st.Status = models.StepStatusApproved
	case orchestrator.EventStepRejected:
		st.Status = models.StepStatusRejected
	case orchestrator.EventStepStarted:
		st.Status = models.StepStatusExecuting
	case orchestrator.EventStepCompleted:
		st.Status = models.StepStatusCompleted
		p.completedCount++
	case orchestrator.EventStepFailed:
		st.Status = models.StepStatusFailed
		st.ErrorMessage = ev.Err
		p.failedCount++
	}
}

// MarkDecided reflects a just-submitted decision before the store confirms it.
func (p *StepsPanel) MarkDecided(stepID string, approved bool) {
	st := p.find(stepID)
	if st == nil {
		return
	}
	if approved {
		st.Status = models.StepStatusApproved
	} else {
		st.Status = models.StepStatusRejected
	}
}

func (p *StepsPanel) find(stepID string) *models.Step {
	if stepID == "" {
		return nil
	}
	for _, st := range p.steps {
		if st.ID == stepID {
			return st
		}
	}
	return nil
}

func (p *StepsPanel) ensureVisible() {
	visibleRows := p.height - 4
	if visibleRows < 1 {
		visibleRows = 1
	}
	if p.selected < p.scrollOffset {
		p.scrollOffset = p.selected
	} else if p.selected >= p.scrollOffset+visibleRows {
		p.scrollOffset = p.selected - visibleRows + 1
	}
}

// View renders the panel.
func (p *StepsPanel) View() string {
	var b strings.Builder

	title := "Plan"
	if p.goal != "" {
		title = truncate(p.goal, maxInt(p.width-6, 10))
	}
	b.WriteString(p.titleStyle.Render(title))
	b.WriteString("\n")

	if len(p.steps) == 0 {
		b.WriteString(p.normalStyle.Render("  No steps yet"))
	} else {
		pending := 0
		for _, st := range p.steps {
			if st.Status == models.StepStatusAwaitingFeedback || st.Status == models.StepStatusPlanned {
				pending++
			}
		}
		b.WriteString(p.sectionStyle.Render(fmt.Sprintf(
			" %d steps · %d done · %d failed · %d to review",
			len(p.steps), p.completedCount, p.failedCount, pending)))
		b.WriteString("\n")

		visibleRows := p.height - 4
		if visibleRows < 1 {
			visibleRows = 1
		}
		start := p.scrollOffset
		end := minInt(start+visibleRows, len(p.steps))

		for i := start; i < end; i++ {
			b.WriteString(p.renderStepLine(p.steps[i], i == p.selected))
			if i < end-1 {
				b.WriteString("\n")
			}
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(p.width - 2).
		Height(p.height - 2).
		Render(b.String())
}

func (p *StepsPanel) renderStepLine(st *models.Step, selected bool) string {
	icon := p.statusIcon(st.Status)
	agent := p.agentStyle.Render(fmt.Sprintf("[%s]", st.Agent))

	action := st.EffectiveAction()
	maxLen := p.width - 12 - len(st.Agent)
	if maxLen < 10 {
		maxLen = 10
	}
	line := fmt.Sprintf(" %s %s %s", icon, truncate(action, maxLen), agent)

	if st.Status == models.StepStatusFailed && st.ErrorMessage != "" {
		line += "\n     " + p.failedStyle.Render(truncate(st.ErrorMessage, maxInt(p.width-10, 20)))
	}

	if selected {
		return p.selectedStyle.Render(line)
	}
	return p.normalStyle.Render(line)
}

func (p *StepsPanel) statusIcon(status models.StepStatus) string {
	switch status {
	case models.StepStatusPlanned, models.StepStatusApproved:
		return p.pendingStyle.Render(iconPending)
	case models.StepStatusAwaitingFeedback:
		return p.waitingStyle.Render(iconWaiting)
	case models.StepStatusExecuting:
		return p.runningStyle.Render(iconRunning)
	case models.StepStatusCompleted:
		return p.doneStyle.Render(iconDone)
	case models.StepStatusFailed, models.StepStatusRejected:
		return p.failedStyle.Render(iconFailed)
	default:
		return p.pendingStyle.Render(iconPending)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
