package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// MockQueryService implements driving.QueryService for testing.
type MockQueryService struct {
	QueryFunc func(ctx context.Context, question string) (*domain.Answer, error)
}

func (m *MockQueryService) Query(ctx context.Context, question string) (*domain.Answer, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, question)
	}
	return testAnswer(question), nil
}

func (m *MockQueryService) Retrieve(_ context.Context, question string) (*domain.EvidenceSet, error) {
	return &domain.EvidenceSet{Query: question}, nil
}

func testAnswer(question string) *domain.Answer {
	return &domain.Answer{
		Query:     question,
		Response:  "Attention weighs tokens against each other.",
		Citations: []domain.Citation{{Source: "attention.pdf", Domain: "ml"}},
		Evidence: []domain.RetrievedDoc{
			{ID: "0", Content: "Scaled dot-product attention.", Metadata: domain.Metadata{domain.MetaSource: "attention.pdf"}},
			{ID: "1", Content: "Multi-head attention.", Metadata: domain.Metadata{domain.MetaSource: "attention.pdf"}},
		},
	}
}

func newTestView(svc driving.QueryService) *View {
	v := NewView(styles.DefaultStyles(), keymap.DefaultKeyMap(), svc)
	v.SetDimensions(100, 40)
	return v
}

func typeText(v *View, s string) {
	for _, r := range s {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// askAndAnswer submits question and feeds the resulting message back.
func askAndAnswer(t *testing.T, v *View, question string) {
	t.Helper()
	typeText(v, question)
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	v.Update(cmd())
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, &MockQueryService{})

	require.NotNil(t, v)
	assert.False(t, v.Ready())
	assert.Equal(t, "Initialising...", v.View())
	assert.Equal(t, messages.FocusInput, v.Focus())
	assert.Empty(t, v.Turns())
}

func TestView_Init(t *testing.T) {
	v := NewView(nil, nil, nil)

	assert.NotNil(t, v.Init())
}

func TestView_WindowSize(t *testing.T) {
	v := NewView(nil, nil, nil)

	v.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	assert.True(t, v.Ready())
	assert.Equal(t, 120, v.Width())
	assert.Equal(t, 30, v.Height())
	assert.Contains(t, v.View(), "Ask a question about your documents.")
}

func TestView_AskQuestion(t *testing.T) {
	svc := &MockQueryService{}
	v := newTestView(svc)

	typeText(v, "what is attention?")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.True(t, v.Pending())
	assert.Equal(t, status.StateThinking, v.StatusBar().State())
	assert.Equal(t, "", v.Input().Value())
	assert.Contains(t, v.View(), "Thinking...")

	msg := cmd()
	answer, ok := msg.(messages.AnswerReceived)
	require.True(t, ok)
	assert.Equal(t, "what is attention?", answer.Question)

	v.Update(msg)

	require.Len(t, v.Turns(), 1)
	assert.False(t, v.Pending())
	assert.Len(t, v.Passages(), 2)
	assert.Equal(t, 2, v.StatusBar().PassageCount())

	view := v.View()
	assert.Contains(t, view, "Attention weighs tokens against each other.")
	assert.Contains(t, view, "Sources: attention.pdf (ml)")
}

func TestView_PageReferences(t *testing.T) {
	svc := &MockQueryService{QueryFunc: func(_ context.Context, q string) (*domain.Answer, error) {
		return &domain.Answer{Response: "Answer.", References: []string{"a.pdf (page 2)", "b.pdf (page 5)"}}, nil
	}}
	v := newTestView(svc)

	askAndAnswer(t, v, "q")

	assert.Contains(t, v.View(), "Pages: a.pdf (page 2); b.pdf (page 5)")
}

func TestView_BlankQuestionIgnored(t *testing.T) {
	v := newTestView(&MockQueryService{})

	typeText(v, "   ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, v.Turns())
}

func TestView_OneQuestionAtATime(t *testing.T) {
	v := newTestView(&MockQueryService{})

	typeText(v, "first")
	_, first := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeText(v, "second")
	_, second := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.NotNil(t, first)
	assert.Nil(t, second)
	assert.Len(t, v.Turns(), 1)
	assert.Equal(t, "second", v.Input().Value())
}

func TestView_QueryError(t *testing.T) {
	svc := &MockQueryService{QueryFunc: func(context.Context, string) (*domain.Answer, error) {
		return nil, domain.ErrRateLimited
	}}
	v := newTestView(svc)

	askAndAnswer(t, v, "q")

	require.Len(t, v.Turns(), 1)
	assert.ErrorIs(t, v.Turns()[0].Err, domain.ErrRateLimited)
	assert.Equal(t, status.StateError, v.StatusBar().State())
	assert.Contains(t, v.View(), "Error: rate limited")
	assert.Empty(t, v.Passages())
}

func TestView_NoQueryService(t *testing.T) {
	v := newTestView(nil)

	askAndAnswer(t, v, "q")

	assert.ErrorIs(t, v.Turns()[0].Err, ErrNoQueryService)
}

func TestView_Timeout(t *testing.T) {
	var deadline bool
	svc := &MockQueryService{QueryFunc: func(ctx context.Context, q string) (*domain.Answer, error) {
		_, deadline = ctx.Deadline()
		return testAnswer(q), nil
	}}
	v := newTestView(svc).WithTimeout(time.Minute)

	askAndAnswer(t, v, "q")

	assert.True(t, deadline)
}

func TestView_WithContext(t *testing.T) {
	type ctxKey string
	var got any
	svc := &MockQueryService{QueryFunc: func(ctx context.Context, q string) (*domain.Answer, error) {
		got = ctx.Value(ctxKey("k"))
		return testAnswer(q), nil
	}}
	v := newTestView(svc).WithContext(context.WithValue(context.Background(), ctxKey("k"), "v"))

	askAndAnswer(t, v, "q")

	assert.Equal(t, "v", got)
}

func TestView_StaleAnswerIgnored(t *testing.T) {
	v := newTestView(&MockQueryService{})

	v.Update(messages.AnswerReceived{Question: "never asked", Answer: testAnswer("x")})

	assert.Empty(t, v.Turns())
	assert.Empty(t, v.Passages())
}

func TestView_PassagesFocus(t *testing.T) {
	v := newTestView(&MockQueryService{})

	// Nothing to focus before the first answer.
	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, messages.FocusInput, v.Focus())

	askAndAnswer(t, v, "q")

	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, messages.FocusPassages, v.Focus())
	assert.False(t, v.Input().Focused())
	assert.Equal(t, status.StatePassages, v.StatusBar().State())
	assert.Contains(t, v.View(), "Passages (2)")

	// Letters navigate instead of typing.
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, "", v.Input().Value())

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.FocusInput, v.Focus())
	assert.True(t, v.Input().Focused())
	assert.Equal(t, status.StateReady, v.StatusBar().State())
}

func TestView_FocusChangedMessage(t *testing.T) {
	v := newTestView(&MockQueryService{})
	askAndAnswer(t, v, "q")

	v.Update(messages.FocusChanged{Focus: messages.FocusPassages})

	assert.Equal(t, messages.FocusPassages, v.Focus())
}

func TestView_HelpToggle(t *testing.T) {
	v := newTestView(&MockQueryService{})
	askAndAnswer(t, v, "q")
	v.Update(tea.KeyMsg{Type: tea.KeyTab})

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})

	assert.True(t, v.ShowingHelp())
	assert.Contains(t, v.View(), "ctrl+l")

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.False(t, v.ShowingHelp())
}

func TestView_QuestionMarkTypesInInput(t *testing.T) {
	v := newTestView(&MockQueryService{})

	typeText(v, "why?")

	assert.Equal(t, "why?", v.Input().Value())
	assert.False(t, v.ShowingHelp())
}

func TestView_Clear(t *testing.T) {
	v := newTestView(&MockQueryService{})
	askAndAnswer(t, v, "q")

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlL})

	assert.Empty(t, v.Turns())
	assert.Empty(t, v.Passages())
	assert.Equal(t, status.StateReady, v.StatusBar().State())
}

func TestView_ErrorOccurred(t *testing.T) {
	v := newTestView(&MockQueryService{})

	v.Update(messages.ErrorOccurred{Err: errors.New("disk full")})

	assert.Equal(t, status.StateError, v.StatusBar().State())
	assert.Equal(t, "disk full", v.StatusBar().Message())
}

func TestView_StatsHeader(t *testing.T) {
	v := newTestView(&MockQueryService{})

	v.Update(messages.StatsLoaded{Stats: &driving.Stats{Vectors: 42}})

	assert.Contains(t, v.View(), "42 chunks indexed")
}

func TestView_StatsErrorIgnored(t *testing.T) {
	v := newTestView(&MockQueryService{})

	v.Update(messages.StatsLoaded{Err: errors.New("no ledger")})

	assert.NotContains(t, v.View(), "chunks indexed")
}

func TestRenderCitations(t *testing.T) {
	tests := []struct {
		name     string
		answer   *domain.Answer
		expected string
	}{
		{name: "none", answer: &domain.Answer{}, expected: ""},
		{
			name:     "sources",
			answer:   &domain.Answer{Citations: []domain.Citation{{Source: "a.pdf"}, {Source: "b.pdf", Domain: "bio"}}},
			expected: "Sources: a.pdf; b.pdf (bio)",
		},
		{
			name: "pages preferred",
			answer: &domain.Answer{
				Citations:  []domain.Citation{{Source: "a.pdf"}},
				References: []string{"a.pdf (page 1)"},
			},
			expected: "Pages: a.pdf (page 1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderCitations(tt.answer))
		})
	}
}
