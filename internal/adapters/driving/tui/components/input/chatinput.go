// Package input provides text input components for the TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/styles"
)

// ChatInput wraps a bubbles textinput for entering questions. Submitted
// questions are kept so they can be recalled with up and down.
type ChatInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int

	history []string
	// cursor indexes history while recalling; len(history) means the
	// line being edited.
	cursor int
	draft  string
}

// NewChatInput creates a new question input component.
func NewChatInput(s *styles.Styles) *ChatInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a question..."
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = 50

	return &ChatInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the input.
func (c *ChatInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages. Up and down walk the question history.
func (c *ChatInput) Update(msg tea.Msg) (*ChatInput, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // only history keys are intercepted
		switch key.Type {
		case tea.KeyUp:
			c.Previous()
			return c, nil
		case tea.KeyDown:
			c.Next()
			return c, nil
		}
	}

	var cmd tea.Cmd
	c.textinput, cmd = c.textinput.Update(msg)
	return c, cmd
}

// View renders the input.
func (c *ChatInput) View() string {
	label := c.styles.Question.Render("You: ")
	field := c.styles.InputField.Render(c.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Submit returns the trimmed question, records it in the history and
// clears the input. ok is false for a blank line.
func (c *ChatInput) Submit() (question string, ok bool) {
	question = strings.TrimSpace(c.textinput.Value())
	if question == "" {
		return "", false
	}
	if n := len(c.history); n == 0 || c.history[n-1] != question {
		c.history = append(c.history, question)
	}
	c.cursor = len(c.history)
	c.draft = ""
	c.textinput.Reset()
	return question, true
}

// Previous recalls the previous question.
func (c *ChatInput) Previous() {
	if c.cursor == 0 {
		return
	}
	if c.cursor == len(c.history) {
		c.draft = c.textinput.Value()
	}
	c.cursor--
	c.setLine(c.history[c.cursor])
}

// Next moves forward through the history, ending at the draft.
func (c *ChatInput) Next() {
	if c.cursor >= len(c.history) {
		return
	}
	c.cursor++
	if c.cursor == len(c.history) {
		c.setLine(c.draft)
		return
	}
	c.setLine(c.history[c.cursor])
}

func (c *ChatInput) setLine(s string) {
	c.textinput.SetValue(s)
	c.textinput.CursorEnd()
}

// History returns the submitted questions, oldest first.
func (c *ChatInput) History() []string {
	return c.history
}

// Value returns the current input value.
func (c *ChatInput) Value() string {
	return c.textinput.Value()
}

// SetValue sets the input value.
func (c *ChatInput) SetValue(value string) {
	c.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (c *ChatInput) Focus() tea.Cmd {
	return c.textinput.Focus()
}

// Blur removes focus from the input.
func (c *ChatInput) Blur() {
	c.textinput.Blur()
}

// Focused returns whether the input is focused.
func (c *ChatInput) Focused() bool {
	return c.textinput.Focused()
}

// SetWidth sets the width of the input.
func (c *ChatInput) SetWidth(width int) {
	c.width = width
	// Account for label and padding
	inputWidth := width - 10
	if inputWidth < 20 {
		inputWidth = 20
	}
	c.textinput.Width = inputWidth
}

// Width returns the current width.
func (c *ChatInput) Width() int {
	return c.width
}

// Reset clears the input.
func (c *ChatInput) Reset() {
	c.textinput.Reset()
}
