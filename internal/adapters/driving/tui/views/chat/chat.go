// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Turn is one question and its answer in the transcript.
type Turn struct {
	Question string
	Answer   *domain.Answer
	Err      error
	Pending  bool
}

// View is the chat screen: transcript, question input, passages and status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.ChatInput
	transcript viewport.Model
	passages   *list.PassageList
	statusbar  *status.Bar

	queryService driving.QueryService
	ctx          context.Context
	timeout      time.Duration

	turns    []Turn
	focus    messages.Focus
	showHelp bool
	stats    *driving.Stats

	width  int
	height int
	ready  bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, queryService driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewChatInput(s),
		transcript:   viewport.New(80, 10),
		passages:     list.NewPassageList(s),
		statusbar:    status.NewBar(s, km),
		queryService: queryService,
		ctx:          context.Background(),
		focus:        messages.FocusInput,
		width:        80,
		height:       24,
	}
}

// WithContext sets the context questions are asked under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithTimeout bounds each question. Zero means no limit.
func (v *View) WithTimeout(d time.Duration) *View {
	v.timeout = d
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.StatsLoaded:
		if msg.Err == nil {
			v.stats = msg.Stats
		}
		return v, nil

	case messages.FocusChanged:
		return v, v.setFocus(msg.Focus)

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Clear):
		v.Clear()
		return v, nil
	case keymap.Matches(keyStr, v.keymap.ScrollUp), keymap.Matches(keyStr, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	if v.focus == messages.FocusPassages {
		switch {
		case keymap.Matches(keyStr, v.keymap.Back), keymap.Matches(keyStr, v.keymap.Passages):
			return v, v.setFocus(messages.FocusInput)
		case keymap.Matches(keyStr, v.keymap.Help):
			v.showHelp = !v.showHelp
			return v, nil
		}
		var cmd tea.Cmd
		v.passages, cmd = v.passages.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(keyStr, v.keymap.Ask):
		return v, v.ask()
	case keymap.Matches(keyStr, v.keymap.Passages):
		return v, v.setFocus(messages.FocusPassages)
	case keymap.Matches(keyStr, v.keymap.Back):
		v.showHelp = false
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// setFocus moves key presses to the input or the passages pane.
func (v *View) setFocus(f messages.Focus) tea.Cmd {
	if f == messages.FocusPassages && v.passages.IsEmpty() {
		return nil
	}
	v.focus = f
	v.showHelp = false
	if f == messages.FocusPassages {
		v.input.Blur()
		v.statusbar.SetState(status.StatePassages)
		v.layout()
		return nil
	}
	if v.statusbar.State() == status.StatePassages {
		v.statusbar.SetState(status.StateReady)
	}
	v.layout()
	return v.input.Focus()
}

// ask submits the current question unless one is already in flight.
func (v *View) ask() tea.Cmd {
	if v.Pending() {
		return nil
	}
	question, ok := v.input.Submit()
	if !ok {
		return nil
	}

	v.turns = append(v.turns, Turn{Question: question, Pending: true})
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")
	v.refreshTranscript()

	return v.performQuery(question)
}

// performQuery asks the question and reports the answer.
func (v *View) performQuery(question string) tea.Cmd {
	return func() tea.Msg {
		if v.queryService == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoQueryService}
		}

		ctx := v.ctx
		if v.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, v.timeout)
			defer cancel()
		}

		answer, err := v.queryService.Query(ctx, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

// handleAnswer fills in the pending turn.
func (v *View) handleAnswer(msg messages.AnswerReceived) {
	idx := -1
	for i := len(v.turns) - 1; i >= 0; i-- {
		if v.turns[i].Pending && v.turns[i].Question == msg.Question {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	v.turns[idx] = Turn{Question: msg.Question, Answer: msg.Answer, Err: msg.Err}
	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	} else {
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage("")
		v.passages.SetPassages(msg.Answer.Evidence)
		v.statusbar.SetPassageCount(len(msg.Answer.Evidence))
	}
	v.refreshTranscript()
}

// refreshTranscript re-renders the turns and scrolls to the latest.
func (v *View) refreshTranscript() {
	v.transcript.SetContent(v.renderTurns())
	v.transcript.GotoBottom()
}

func (v *View) renderTurns() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask a question about your documents.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))
	blocks := make([]string, 0, len(v.turns))
	for _, t := range v.turns {
		lines := []string{v.styles.Question.Render("You: ") + t.Question}
		switch {
		case t.Pending:
			lines = append(lines, v.styles.Muted.Render("Thinking..."))
		case t.Err != nil:
			lines = append(lines, v.styles.Error.Render("Error: "+t.Err.Error()))
		case t.Answer != nil:
			lines = append(lines, v.styles.Answer.Render(wrap.Render(t.Answer.Response)))
			if cites := renderCitations(t.Answer); cites != "" {
				lines = append(lines, v.styles.Citation.Render(wrap.Render(cites)))
			}
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// renderCitations lists the sources behind an answer, preferring page
// references when the answer carries them.
func renderCitations(a *domain.Answer) string {
	if len(a.References) > 0 {
		return "Pages: " + strings.Join(a.References, "; ")
	}
	if len(a.Citations) == 0 {
		return ""
	}
	parts := make([]string, 0, len(a.Citations))
	for _, c := range a.Citations {
		if c.Domain != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Source, c.Domain))
		} else {
			parts = append(parts, c.Source)
		}
	}
	return "Sources: " + strings.Join(parts, "; ")
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("paperchat")
	if v.stats != nil {
		header += v.styles.Muted.Render(fmt.Sprintf("  %d chunks indexed", v.stats.Vectors))
	}

	sections := []string{header, "", v.transcript.View(), "", v.input.View()}

	switch {
	case v.showHelp:
		sections = append(sections, "", v.renderHelp())
	case v.focus == messages.FocusPassages:
		sections = append(sections, "", v.passages.View())
	}

	sections = append(sections, v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHelp lists every keybinding.
func (v *View) renderHelp() string {
	var lines []string
	for _, group := range v.keymap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			lines = append(lines, fmt.Sprintf("  %-8s %s", h.Key, h.Desc))
		}
	}
	return v.styles.Help.Render(strings.Join(lines, "\n"))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.layout()
	v.refreshTranscript()
}

// layout splits the height between the transcript and the passages pane.
func (v *View) layout() {
	// Header, spacers, bordered input and status bar.
	const chrome = 8
	available := max(v.height-chrome, 3)

	transcriptHeight := available
	if v.focus == messages.FocusPassages {
		transcriptHeight = available / 2
		v.passages.SetDimensions(v.width, available-transcriptHeight)
	}
	v.transcript.Width = v.width
	v.transcript.Height = max(transcriptHeight, 1)
}

// Clear empties the transcript and the passages.
func (v *View) Clear() {
	v.turns = nil
	v.passages.SetPassages(nil)
	v.statusbar.Clear()
	v.focus = messages.FocusInput
	v.input.Focus()
	v.layout()
	v.refreshTranscript()
}

// Turns returns the transcript.
func (v *View) Turns() []Turn {
	return v.turns
}

// Pending reports whether a question is awaiting its answer.
func (v *View) Pending() bool {
	return len(v.turns) > 0 && v.turns[len(v.turns)-1].Pending
}

// Focus returns the pane receiving key presses.
func (v *View) Focus() messages.Focus {
	return v.focus
}

// Passages returns the passages behind the last answer.
func (v *View) Passages() []domain.RetrievedDoc {
	return v.passages.Passages()
}

// Input returns the question input.
func (v *View) Input() *input.ChatInput {
	return v.input
}

// StatusBar returns the status bar.
func (v *View) StatusBar() *status.Bar {
	return v.statusbar
}

// ShowingHelp reports whether the help panel is visible.
func (v *View) ShowingHelp() bool {
	return v.showHelp
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}
