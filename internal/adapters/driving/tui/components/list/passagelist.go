// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// PassageList shows the passages an answer was generated from.
type PassageList struct {
	passages []domain.RetrievedDoc
	selected int
	expanded bool
	styles   *styles.Styles
	width    int
	height   int
}

// NewPassageList creates a new passage list component.
func NewPassageList(s *styles.Styles) *PassageList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &PassageList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (p *PassageList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation. Enter toggles the full text of the
// selected passage.
func (p *PassageList) Update(msg tea.Msg) (*PassageList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			p.MoveUp()
		case "down", "j":
			p.MoveDown()
		case "enter":
			p.expanded = !p.expanded
		}
	}
	return p, nil
}

// View renders the list.
func (p *PassageList) View() string {
	if len(p.passages) == 0 {
		return p.styles.Muted.Render("No passages")
	}

	lines := make([]string, 0, len(p.passages)+2)
	lines = append(lines, p.styles.Subtitle.Render(fmt.Sprintf("Passages (%d)", len(p.passages))), "")

	// Each passage takes two lines.
	visible := (p.height - 2) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if p.selected >= visible {
		start = p.selected - visible + 1
	}
	end := min(start+visible, len(p.passages))

	for i := start; i < end; i++ {
		lines = append(lines, p.renderPassage(i, &p.passages[i]))
	}

	if p.expanded {
		if doc := p.SelectedPassage(); doc != nil {
			body := p.styles.Border.Width(max(p.width-4, 20)).Render(doc.Content)
			lines = append(lines, "", body)
		}
	}

	return strings.Join(lines, "\n")
}

// renderPassage formats one passage as a heading and a preview line.
func (p *PassageList) renderPassage(index int, doc *domain.RetrievedDoc) string {
	indicator := "  "
	if index == p.selected {
		indicator = "> "
	}

	heading := fmt.Sprintf("%s[%s] %s", indicator, doc.ID, Describe(doc.Metadata))
	var headingLine string
	if index == p.selected {
		headingLine = p.styles.Selected.Render(heading)
	} else {
		headingLine = p.styles.Normal.Render(heading)
	}

	preview := strings.Join(strings.Fields(doc.Content), " ")
	limit := max(p.width-6, 20)
	if r := []rune(preview); len(r) > limit {
		preview = string(r[:limit-3]) + "..."
	}

	return headingLine + "\n" + p.styles.Muted.Render("    "+preview)
}

// Describe renders "source, page N, domain" from passage metadata.
func Describe(m domain.Metadata) string {
	parts := []string{m.Source()}
	if page, ok := m.Page(); ok {
		parts = append(parts, fmt.Sprintf("page %d", page))
	}
	if dom := m.Domain(); dom != "" {
		parts = append(parts, dom)
	}
	return strings.Join(parts, ", ")
}

// SetPassages replaces the list contents.
func (p *PassageList) SetPassages(passages []domain.RetrievedDoc) {
	p.passages = passages
	p.selected = 0
	p.expanded = false
}

// Passages returns the current passages.
func (p *PassageList) Passages() []domain.RetrievedDoc {
	return p.passages
}

// Selected returns the index of the selected passage.
func (p *PassageList) Selected() int {
	return p.selected
}

// SelectedPassage returns the selected passage, or nil if the list is empty.
func (p *PassageList) SelectedPassage() *domain.RetrievedDoc {
	if p.selected < 0 || p.selected >= len(p.passages) {
		return nil
	}
	return &p.passages[p.selected]
}

// Expanded reports whether the selected passage is shown in full.
func (p *PassageList) Expanded() bool {
	return p.expanded
}

// MoveUp moves selection up.
func (p *PassageList) MoveUp() {
	if p.selected > 0 {
		p.selected--
	}
}

// MoveDown moves selection down.
func (p *PassageList) MoveDown() {
	if p.selected < len(p.passages)-1 {
		p.selected++
	}
}

// SetDimensions sets the component dimensions.
func (p *PassageList) SetDimensions(width, height int) {
	p.width = width
	p.height = height
}

// Count returns the number of passages.
func (p *PassageList) Count() int {
	return len(p.passages)
}

// IsEmpty returns whether the list is empty.
func (p *PassageList) IsEmpty() bool {
	return len(p.passages) == 0
}
