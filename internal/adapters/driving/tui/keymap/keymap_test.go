package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
}

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{name: "quit", binding: km.Quit, keys: []string{"ctrl+c"}},
		{name: "help", binding: km.Help, keys: []string{"?"}},
		{name: "back", binding: km.Back, keys: []string{"esc"}},
		{name: "ask", binding: km.Ask, keys: []string{"enter"}},
		{name: "up", binding: km.Up, keys: []string{"up", "k"}},
		{name: "down", binding: km.Down, keys: []string{"down", "j"}},
		{name: "passages", binding: km.Passages, keys: []string{"tab"}},
		{name: "scroll up", binding: km.ScrollUp, keys: []string{"pgup"}},
		{name: "scroll down", binding: km.ScrollDown, keys: []string{"pgdown"}},
		{name: "clear", binding: km.Clear, keys: []string{"ctrl+l"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestDefaultKeyMap_QuitDoesNotUseLetters(t *testing.T) {
	// Letters must reach the question input.
	km := DefaultKeyMap()

	assert.False(t, Matches("q", km.Quit))
}

func TestShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.ShortHelp()
	require.Len(t, help, 3)
	assert.Equal(t, "ask", help[0].Help().Desc)
}

func TestPassagesHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.PassagesHelp()
	assert.Len(t, help, 4)
}

func TestFullHelp(t *testing.T) {
	km := DefaultKeyMap()

	groups := km.FullHelp()
	require.Len(t, groups, 3)
	for _, g := range groups {
		assert.NotEmpty(t, g)
	}
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("enter", km.Ask))
	assert.True(t, Matches("k", km.Up))
	assert.False(t, Matches("x", km.Up))
	assert.False(t, Matches("", km.Down))
}
