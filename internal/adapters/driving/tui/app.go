package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/views/chat"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// keymap holds the keybindings.
	keymap *keymap.KeyMap

	// chatView is the question and answer view.
	chatView *chat.View

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   s,
		keymap:   km,
		chatView: chat.NewView(s, km, ports.Query),
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	return a
}

// WithQueryTimeout bounds each question.
func (a *App) WithQueryTimeout(d time.Duration) *App {
	a.chatView.WithTimeout(d)
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("paperchat"),
		a.chatView.Init(),
		a.loadStats(),
	)
}

// loadStats fetches index statistics for the header.
func (a *App) loadStats() tea.Cmd {
	if a.ports.Stats == nil {
		return nil
	}
	return func() tea.Msg {
		stats, err := a.ports.Stats.Stats(a.ctx)
		return messages.StatsLoaded{Stats: stats, Err: err}
	}
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.chatView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if keymap.Matches(msg.String(), a.keymap.Quit) {
			return a, tea.Quit
		}

	case messages.Quit:
		return a, tea.Quit

	case messages.AnswerReceived:
		a.err = msg.Err
		a.chatView, cmd = a.chatView.Update(msg)
		// Refresh the header after each answer; ingestion may run alongside.
		return a, tea.Batch(cmd, a.loadStats())

	case messages.ErrorOccurred:
		a.err = msg.Err
	}

	a.chatView, cmd = a.chatView.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	return a.chatView.View()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Chat returns the chat view.
func (a *App) Chat() *chat.View {
	return a.chatView
}

// Err returns the last error.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.chatView.SetDimensions(width, height)
}
