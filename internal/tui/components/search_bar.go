package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/murmur/internal/tui/styles"
)

// SearchSubmitMsg is emitted when the user accepts a query
type SearchSubmitMsg struct {
	Query string
}

// SearchCancelMsg is emitted when the user leaves the search bar
type SearchCancelMsg struct{}

// SearchBar is a one-line query input shown above the footer
type SearchBar struct {
	input  textinput.Model
	keys   SearchKeyMap
	active bool
	width  int

	// Result position shown after submit (current is 1-based, 0 hides it)
	current int
	total   int
}

// NewSearchBar creates an inactive search bar
func NewSearchBar() SearchBar {
	ti := textinput.New()
	ti.Placeholder = "search comments, @name for authors"
	ti.Prompt = "/ "
	ti.PromptStyle = styles.SearchPromptStyle
	ti.TextStyle = styles.SearchStyle
	ti.CharLimit = 120

	return SearchBar{input: ti, keys: DefaultSearchKeyMap()}
}

// Open focuses the input with an empty query
func (s *SearchBar) Open() tea.Cmd {
	s.active = true
	s.input.SetValue("")
	return s.input.Focus()
}

// Close hides the bar
func (s *SearchBar) Close() {
	s.active = false
	s.input.Blur()
}

// Active reports whether the bar is taking input
func (s *SearchBar) Active() bool {
	return s.active
}

// Query is the current input value
func (s *SearchBar) Query() string {
	return s.input.Value()
}

// SetWidth sets the rendered width
func (s *SearchBar) SetWidth(w int) {
	s.width = w
	s.input.Width = w - 12
}

// SetResult records which match is selected out of total
func (s *SearchBar) SetResult(current, total int) {
	s.current = current
	s.total = total
}

// Update routes keys to the input while active
func (s *SearchBar) Update(msg tea.Msg) tea.Cmd {
	if !s.active {
		return nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, s.keys.Cancel):
			s.Close()
			return func() tea.Msg { return SearchCancelMsg{} }
		case key.Matches(msg, s.keys.Accept):
			query := s.input.Value()
			s.Close()
			return func() tea.Msg { return SearchSubmitMsg{Query: query} }
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return cmd
}

// View renders the input, or the last result position when inactive
func (s SearchBar) View() string {
	if s.active {
		return s.input.View()
	}
	if s.total == 0 {
		return ""
	}
	return styles.MatchHighlightStyle.Render(fmt.Sprintf("match %d/%d", s.current, s.total)) +
		styles.DimStyle.Render("  n next")
}
