package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kpenrose/finscope/pkg/models"
)

type inputPurpose int

const (
	purposeNone inputPurpose = iota
	purposeReject
	purposeRevise
)

// FeedbackInput collects the free-text half of a decision: the reason for a
// rejection, or a revised action for an approval. Enter submits, esc cancels.
type FeedbackInput struct {
	input   textinput.Model
	purpose inputPurpose
	step    *models.Step
	width   int
}

// NewFeedbackInput creates an inactive FeedbackInput.
func NewFeedbackInput() *FeedbackInput {
	ti := textinput.New()
	ti.CharLimit = 500
	ti.Width = 60

	return &FeedbackInput{
		input: ti,
		width: 80,
	}
}

// Active reports whether the input currently owns the keyboard.
func (f *FeedbackInput) Active() bool {
	return f.purpose != purposeNone
}

// OpenReject starts collecting a rejection reason for the step.
func (f *FeedbackInput) OpenReject(st *models.Step) {
	f.purpose = purposeReject
	f.step = st
	f.input.Placeholder = "Reason for rejecting (enter to submit, esc to cancel)"
	f.input.SetValue("")
	f.input.Focus()
}

// OpenRevise starts collecting a revised action for the step. The current
// action is prefilled so the reviewer edits rather than retypes.
func (f *FeedbackInput) OpenRevise(st *models.Step) {
	f.purpose = purposeRevise
	f.step = st
	f.input.Placeholder = "Revised action (enter to approve, esc to cancel)"
	f.input.SetValue(st.EffectiveAction())
	f.input.CursorEnd()
	f.input.Focus()
}

// SetWidth sets the width of the input field.
func (f *FeedbackInput) SetWidth(width int) {
	f.width = width
	f.input.Width = maxInt(width-4, 20)
}

// Update handles messages while the input is active.
func (f *FeedbackInput) Update(msg tea.Msg) (*FeedbackInput, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			f.close()
			return f, nil

		case "enter":
			fb := f.buildFeedback()
			f.close()
			return f, func() tea.Msg { return FeedbackSubmittedMsg{Feedback: fb} }
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

func (f *FeedbackInput) buildFeedback() models.HumanFeedback {
	fb := models.HumanFeedback{
		StepID:    f.step.ID,
		PlanID:    f.step.PlanID,
		SessionID: f.step.SessionID,
	}
	text := f.input.Value()

	switch f.purpose {
	case purposeReject:
		fb.Approved = false
		fb.HumanFeedback = text
	case purposeRevise:
		fb.Approved = true
		if text != "" && text != f.step.EffectiveAction() {
			fb.UpdatedAction = text
		}
	}
	return fb
}

func (f *FeedbackInput) close() {
	f.purpose = purposeNone
	f.step = nil
	f.input.Blur()
	f.input.SetValue("")
}

// View renders the input field.
func (f *FeedbackInput) View() string {
	promptStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(f.width - 2)

	prompt := "> "
	if f.purpose == purposeReject {
		prompt = "reject> "
	} else if f.purpose == purposeRevise {
		prompt = "revise> "
	}
	return boxStyle.Render(promptStyle.Render(prompt) + f.input.View())
}
