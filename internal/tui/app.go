package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/murmur/internal/domain"
	"github.com/mmcdole/murmur/internal/service"
	"github.com/mmcdole/murmur/internal/tui/components"
	"github.com/mmcdole/murmur/internal/tui/styles"
)

// Layout: header line, list (with its own footer), status line
const (
	HeaderHeight = 1
	StatusHeight = 1
	ChromeHeight = HeaderHeight + StatusHeight

	statusTTL           = 3 * time.Second
	defaultFetchTimeout = 30 * time.Second
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
)

// Options configures the model
type Options struct {
	Orientation  domain.Orientation
	Overscan     int
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State    ApplicationState
	Ready    bool
	Hydrated bool

	// Services
	Pager *service.Pager

	// UI Components
	List   *components.VirtualList
	Search components.SearchBar

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int
	Resetting    bool

	// Search results over the loaded comments
	matches  []service.SearchResult
	matchPos int

	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewModel creates a new application model around pager
func NewModel(pager *service.Pager, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}

	list := components.NewVirtualList(nil)
	list.RenderRow = func(index, width int, selected bool) string {
		return components.RenderRow(pager.Row(index), list.Orientation(), width, selected)
	}
	list.OnEndReached = func() tea.Cmd {
		return startPageLoad(pager, list, opts.FetchTimeout)
	}
	list.SetOrientation(opts.Orientation)
	if opts.Overscan > 0 {
		list.SetOverscan(opts.Overscan)
	}
	list.SetFooter(components.FooterLoading, "")

	return Model{
		State:        StateBrowsing,
		Pager:        pager,
		List:         list,
		Search:       components.NewSearchBar(),
		fetchTimeout: opts.FetchTimeout,
		logger:       opts.Logger,
	}
}

// startPageLoad begins the next page if the pager allows it. It runs on the
// update loop; only the fetch itself runs in the returned command. Nothing
// loads before hydration has started, so a cached list is never refetched.
func startPageLoad(pager *service.Pager, list *components.VirtualList, timeout time.Duration) tea.Cmd {
	if !pager.Hydrated() {
		return nil
	}
	page, ok := pager.BeginLoad()
	if !ok {
		return nil
	}
	list.SetFooter(components.FooterLoading, "")
	return LoadPageCmd(pager, page, timeout)
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		HydrateCmd(m.Pager),
		TickCmd(100*time.Millisecond),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.Search.SetWidth(msg.Width)
		return m, m.List.SetSize(msg.Width, m.listHeight())

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		m.List.SetSpinnerFrame(m.SpinnerFrame)
		return m, TickCmd(100 * time.Millisecond)

	case SnapshotLoadedMsg:
		m.Hydrated = true
		if msg.Hit {
			m.StatusMsg = fmt.Sprintf("Restored %d comments", m.Pager.Len())
			m.StatusIsErr = false
			cmds = append(cmds, ClearStatusCmd(statusTTL))
		}
		cmds = append(cmds, m.syncList())
		if !msg.Hit {
			cmds = append(cmds, startPageLoad(m.Pager, m.List, m.fetchTimeout))
		}
		// The list may have reached its end while loads were still gated
		cmds = append(cmds, m.List.Rearm())
		return m, tea.Batch(cmds...)

	case PageLoadedMsg:
		m.Pager.CompleteLoad(msg.Page, msg.Items, msg.Err)
		if msg.Err != nil {
			m.StatusMsg = fmt.Sprintf("Could not load page %d", msg.Page+1)
			m.StatusIsErr = true
		}
		return m, m.syncList()

	case ResetDoneMsg:
		m.Resetting = false
		m.clearMatches()
		if msg.Err != nil {
			m.logger.Warn("reset failed", "error", msg.Err)
			m.StatusMsg = "Reset: " + msg.Err.Error()
			m.StatusIsErr = true
		} else {
			m.StatusMsg = "List reset"
			m.StatusIsErr = false
			cmds = append(cmds, ClearStatusCmd(statusTTL))
		}
		cmds = append(cmds, m.List.SetCursor(0), m.syncList())
		cmds = append(cmds, startPageLoad(m.Pager, m.List, m.fetchTimeout))
		return m, tea.Batch(cmds...)

	case components.SearchSubmitMsg:
		return m, m.runSearch(msg.Query)

	case components.SearchCancelMsg:
		return m, nil

	case ErrMsg:
		m.logger.Error("command failed", "context", msg.Context, "error", msg.Err)
		m.StatusMsg = msg.Error()
		m.StatusIsErr = true
		return m, nil

	case StatusMsg:
		m.StatusMsg = msg.Message
		m.StatusIsErr = msg.IsError
		return m, ClearStatusCmd(statusTTL)

	case ClearStatusMsg:
		if !m.StatusIsErr {
			m.StatusMsg = ""
		}
		return m, nil
	}

	// Text input cursor blink and similar
	if m.Search.Active() {
		return m, m.Search.Update(msg)
	}
	return m, nil
}

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, QuitCmd(m.Pager)
	}

	if m.State == StateHelp {
		m.State = StateBrowsing
		return m, nil
	}

	if m.Search.Active() {
		return m, m.Search.Update(msg)
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, QuitCmd(m.Pager)

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		m.clearMatches()
		return m, nil

	case key.Matches(msg, Keys.Orientation):
		return m, m.toggleOrientation()

	case key.Matches(msg, Keys.Retry):
		if m.Pager.LastError() == nil {
			m.StatusMsg = "Nothing to retry"
			m.StatusIsErr = false
			return m, ClearStatusCmd(statusTTL)
		}
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, startPageLoad(m.Pager, m.List, m.fetchTimeout)

	case key.Matches(msg, Keys.Reset):
		if m.Resetting || m.Pager.LoadState().Loading || !m.Hydrated {
			m.StatusMsg = "Wait for the current load to finish"
			m.StatusIsErr = false
			return m, ClearStatusCmd(statusTTL)
		}
		m.Resetting = true
		return m, ResetCmd(m.Pager)

	case key.Matches(msg, Keys.Search):
		return m, m.Search.Open()

	case key.Matches(msg, Keys.NextMatch):
		return m, m.nextMatch()
	}

	return m, m.List.Update(msg)
}

// handleMouseMsg routes clicks on the header button and wheel events
func (m Model) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress {
		if msg.Y == 0 {
			_, _, start, end := m.headerLayout()
			if msg.X >= start && msg.X < end {
				return m, m.toggleOrientation()
			}
		}
		return m, nil
	}
	return m, m.List.Update(msg)
}

func (m *Model) toggleOrientation() tea.Cmd {
	o := m.List.Orientation().Toggle()
	m.logger.Debug("orientation changed", "orientation", o.String())
	return m.List.SetOrientation(o)
}

// syncList pushes pager state into the list. The footer goes first so a
// load started by the count change can replace it.
func (m *Model) syncList() tea.Cmd {
	footer, hint := m.footerState()
	m.List.SetFooter(footer, hint)
	st := m.Pager.LoadState()
	return m.List.SetCount(m.Pager.Len(), st.HasMore)
}

func (m *Model) footerState() (components.Footer, string) {
	if !m.Hydrated {
		return components.FooterLoading, ""
	}
	st := m.Pager.LoadState()
	switch {
	case st.Loading:
		return components.FooterLoading, ""
	case !st.HasMore:
		return components.FooterExhausted, ""
	}
	if err := m.Pager.LastError(); err != nil {
		return components.FooterFailed, describeError(err)
	}
	return components.FooterNone, ""
}

// describeError gives a short footer hint for a fetch error
func describeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return styles.Truncate(err.Error(), 48)
	}
}

// runSearch matches query against the loaded comments and jumps to the first hit
func (m *Model) runSearch(query string) tea.Cmd {
	m.matches = service.SearchComments(m.Pager.Items(), query)
	m.matchPos = 0
	if len(m.matches) == 0 {
		m.Search.SetResult(0, 0)
		m.StatusMsg = fmt.Sprintf("No matches for %q", query)
		m.StatusIsErr = false
		return ClearStatusCmd(statusTTL)
	}
	m.Search.SetResult(1, len(m.matches))
	return m.List.SetCursor(m.matches[0].Index)
}

func (m *Model) nextMatch() tea.Cmd {
	if len(m.matches) == 0 {
		return nil
	}
	m.matchPos = (m.matchPos + 1) % len(m.matches)
	m.Search.SetResult(m.matchPos+1, len(m.matches))
	return m.List.SetCursor(m.matches[m.matchPos].Index)
}

func (m *Model) clearMatches() {
	m.matches = nil
	m.matchPos = 0
	m.Search.SetResult(0, 0)
}

func (m Model) listHeight() int {
	h := m.Height - ChromeHeight
	if h < components.FooterLines+1 {
		h = components.FooterLines + 1
	}
	return h
}

// View renders the UI
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	return m.renderHeader() + "\n" + m.List.View() + "\n" + m.renderStatusBar()
}

// headerLayout returns the header pieces and the button's column range
func (m Model) headerLayout() (title, button string, start, end int) {
	title = styles.TitleStyle.Render("murmur") + styles.DimStyle.Render("  product comments  ")
	buttonStyle := styles.ButtonStyle
	if m.List.Orientation() == domain.Horizontal {
		buttonStyle = styles.ButtonActiveStyle
	}
	button = buttonStyle.Render("[o] " + m.List.Orientation().String())
	start = lipgloss.Width(title)
	end = start + lipgloss.Width(button)
	return title, button, start, end
}

func (m Model) renderHeader() string {
	title, button, _, _ := m.headerLayout()
	return lipgloss.NewStyle().MaxWidth(m.Width).Render(title + button)
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.Search.Active() || len(m.matches) > 0:
		left = m.Search.View()
	case m.StatusMsg != "" && m.StatusIsErr:
		left = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		left = styles.DimStyle.Render(m.StatusMsg)
	}

	state := m.Pager.State().String()
	if m.Resetting {
		state = "resetting"
	}
	right := styles.DimStyle.Render(fmt.Sprintf("%d loaded · page %d · %s", m.Pager.Len(), m.Pager.NextPage(), state))

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return lipgloss.NewStyle().MaxWidth(m.Width).Render(left)
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
NAVIGATION                       LIST
  j/k        Up/down               o      Toggle vertical/horizontal
  h/l        Left/right (cards)    r      Retry failed load
  g/Home     First comment         R      Reset list and cache
  G/End      Last comment
  PgUp/PgDn  Scroll page           SEARCH
  Ctrl+u/d   Scroll half page      /      Search (@name for authors)
                                   n      Next match
  q          Quit                  Esc    Clear search

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}
