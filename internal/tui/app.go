// Package tui provides the interactive review surface for a running plan.
//
// The app lists the plan's steps with live statuses, shows the orchestrator
// event stream in a scrollable log pane, and lets the reviewer decide steps
// that await feedback: approve as proposed, reject with a reason, or revise
// the action before approving.
//
// Usage:
//
//	program, app := tui.NewReviewProgram()
//	app.SetDecisionHandler(func(fb models.HumanFeedback) { ... })
//	go program.Run()
//
//	// Push state from the run loop
//	program.Send(tui.PlanMsg{Plan: pws})
//	program.Send(tui.EventMsg{Event: ev})
//	program.Send(tui.SessionDoneMsg{Success: true, Message: "plan finished"})
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kpenrose/finscope/internal/orchestrator"
	"github.com/kpenrose/finscope/pkg/models"
)

// PlanMsg replaces the displayed plan with a fresh read of its steps.
type PlanMsg struct {
	Plan *models.PlanWithSteps
}

// EventMsg carries one orchestrator event into the app.
type EventMsg struct {
	Event orchestrator.Event
}

// SessionDoneMsg is sent when the run loop finishes. The app stays open so
// the reviewer can read the outcome, and quits on the next q.
type SessionDoneMsg struct {
	Success bool
	Message string
}

// FeedbackSubmittedMsg is emitted internally when the reviewer decides a step.
type FeedbackSubmittedMsg struct {
	Feedback models.HumanFeedback
}

// ReviewApp is the top-level model. Decisions leave the app through the
// handler set with SetDecisionHandler; the caller owns persistence.
type ReviewApp struct {
	steps *StepsPanel
	log   *LogPanel
	input *FeedbackInput
	keys  KeyMap

	width    int
	height   int
	quitting bool

	done     bool
	doneOK   bool
	doneMsg  string
	titleSty lipgloss.Style
	doneSty  lipgloss.Style
	failSty  lipgloss.Style
	helpSty  lipgloss.Style

	onDecision func(models.HumanFeedback)
}

// NewReviewApp creates the app with empty panels.
func NewReviewApp() *ReviewApp {
	return &ReviewApp{
		steps: NewStepsPanel(),
		log:   NewLogPanel(),
		input: NewFeedbackInput(),
		keys:  DefaultKeyMap(),

		titleSty: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 2),
		doneSty: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("34")),
		failSty: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		helpSty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// SetDecisionHandler sets the callback invoked for every submitted decision.
func (a *ReviewApp) SetDecisionHandler(handler func(models.HumanFeedback)) {
	a.onDecision = handler
}

// Init implements tea.Model.
func (a *ReviewApp) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *ReviewApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case PlanMsg:
		a.steps.SetPlan(msg.Plan)
		return a, nil

	case EventMsg:
		a.log.Add(msg.Event)
		a.steps.ApplyEvent(msg.Event)
		return a, nil

	case FeedbackSubmittedMsg:
		// Reflect the decision immediately; the authoritative status
		// arrives with the next event or plan refresh.
		a.steps.MarkDecided(msg.Feedback.StepID, msg.Feedback.Approved)
		if a.onDecision != nil {
			a.onDecision(msg.Feedback)
		}
		return a, nil

	case SessionDoneMsg:
		a.done = true
		a.doneOK = msg.Success
		a.doneMsg = msg.Message
		return a, nil
	}

	return a, nil
}

func (a *ReviewApp) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		a.quitting = true
		return a, tea.Quit
	}

	// An open input owns the keyboard until submitted or cancelled.
	if a.input.Active() {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		a.quitting = true
		return a, tea.Quit

	case key.Matches(msg, a.keys.Up):
		a.steps.MoveUp()

	case key.Matches(msg, a.keys.Down):
		a.steps.MoveDown()

	case key.Matches(msg, a.keys.Approve):
		if st := a.steps.Selected(); reviewable(st) {
			fb := models.HumanFeedback{
				StepID:    st.ID,
				PlanID:    st.PlanID,
				SessionID: st.SessionID,
				Approved:  true,
			}
			return a, func() tea.Msg { return FeedbackSubmittedMsg{Feedback: fb} }
		}

	case key.Matches(msg, a.keys.Reject):
		if st := a.steps.Selected(); reviewable(st) {
			a.input.OpenReject(st)
		}

	case key.Matches(msg, a.keys.Revise):
		if st := a.steps.Selected(); reviewable(st) {
			a.input.OpenRevise(st)
		}

	default:
		// Remaining keys scroll the log pane.
		var cmd tea.Cmd
		a.log, cmd = a.log.Update(msg)
		return a, cmd
	}

	return a, nil
}

// reviewable reports whether the reviewer can still decide the step.
func reviewable(st *models.Step) bool {
	if st == nil {
		return false
	}
	return st.Status == models.StepStatusPlanned || st.Status == models.StepStatusAwaitingFeedback
}

func (a *ReviewApp) updateSizes() {
	// The bottom area holds either the footer or an open input field.
	bottomHeight := 3
	available := a.height - bottomHeight
	if available < 8 {
		available = 8
	}

	stepsHeight := available / 2
	if stepsHeight < 4 {
		stepsHeight = 4
	}
	logHeight := available - stepsHeight

	a.steps.SetSize(a.width, stepsHeight)
	a.log.SetSize(a.width, logHeight)
	a.input.SetWidth(a.width)
}

// View implements tea.Model.
func (a *ReviewApp) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	sections := []string{
		a.steps.View(),
		a.log.View(),
	}

	if a.input.Active() {
		sections = append(sections, a.input.View())
	} else {
		sections = append(sections, a.footerView())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *ReviewApp) footerView() string {
	help := a.helpSty.Render("a approve · r reject · e revise · j/k move · pgup/pgdn log · q quit")
	if !a.done {
		return help
	}

	var status string
	if a.doneOK {
		status = a.doneSty.Render(fmt.Sprintf("✓ %s", a.doneMsg))
	} else {
		status = a.failSty.Render(fmt.Sprintf("✗ %s", a.doneMsg))
	}
	return lipgloss.JoinVertical(lipgloss.Left, status, a.helpSty.Render("press q to quit"))
}

// NewReviewProgram creates a bubbletea program for the review app.
func NewReviewProgram() (*tea.Program, *ReviewApp) {
	app := NewReviewApp()
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}
