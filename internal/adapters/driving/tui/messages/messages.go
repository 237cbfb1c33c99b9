// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// QuestionAsked is sent when the user submits a question.
type QuestionAsked struct {
	Question string
}

// AnswerReceived carries the answer to a question back to the model.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// StatsLoaded carries index statistics for the header.
type StatsLoaded struct {
	Stats *driving.Stats
	Err   error
}

// FocusChanged is sent when focus moves between the input and the passages.
type FocusChanged struct {
	Focus Focus
}

// Focus identifies which pane receives key presses.
type Focus int

const (
	// FocusInput is the question input.
	FocusInput Focus = iota
	// FocusPassages is the list of passages behind the last answer.
	FocusPassages
)

// String returns the string representation of the focus.
func (f Focus) String() string {
	switch f {
	case FocusInput:
		return "input"
	case FocusPassages:
		return "passages"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
