package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/murmur/internal/domain"
	"github.com/mmcdole/murmur/internal/tui/styles"
)

// Layout constants for the virtual list
const (
	// DefaultRowHeight is the block height of one item in vertical mode
	DefaultRowHeight = 5
	// DefaultCardWidth is the column width of one item in horizontal mode
	DefaultCardWidth = 32
	// DefaultOverscan is how many indices past the loaded count are rendered as skeletons
	DefaultOverscan = 3

	// FooterLines is the status line below the items
	FooterLines = 1
)

// Footer is the single status indicator shown below the list
type Footer int

const (
	FooterNone Footer = iota
	FooterLoading
	FooterExhausted
	FooterFailed
)

func (f Footer) String() string {
	switch f {
	case FooterLoading:
		return "loading"
	case FooterExhausted:
		return "exhausted"
	case FooterFailed:
		return "failed"
	default:
		return "none"
	}
}

// RowRenderer renders the item at index into a block of the given width.
// It is called for indices past the loaded count too and must return a
// placeholder for those.
type RowRenderer func(index, width int, selected bool) string

// VirtualList renders a window of a growing index space. It never holds
// item data: the count comes from the owner, rows come from RenderRow.
type VirtualList struct {
	// RenderRow draws one item (required)
	RenderRow RowRenderer
	// OnEndReached is called when the last loaded row comes into view.
	// The returned command is handed back to bubbletea.
	OnEndReached func() tea.Cmd

	keys ListKeyMap

	count     int
	exhausted bool

	orientation domain.Orientation
	rowHeight   int
	cardWidth   int
	overscan    int

	// Selection
	cursor int
	offset int

	// Dimensions
	width  int
	height int

	footer       Footer
	footerHint   string
	spinnerFrame int

	// End-reached fires once per approach
	armed bool
}

// NewVirtualList creates an empty list with default geometry
func NewVirtualList(render RowRenderer) *VirtualList {
	return &VirtualList{
		RenderRow: render,
		keys:      DefaultListKeyMap(),
		rowHeight: DefaultRowHeight,
		cardWidth: DefaultCardWidth,
		overscan:  DefaultOverscan,
		armed:     true,
	}
}

// SetSize sets the outer dimensions, including the footer line
func (l *VirtualList) SetSize(width, height int) tea.Cmd {
	l.width = width
	l.height = height
	l.ensureVisible()
	return l.checkEnd()
}

// SetCount updates the loaded item count and whether more may follow.
// A count change re-arms the end-reached signal.
func (l *VirtualList) SetCount(count int, hasMore bool) tea.Cmd {
	if count < 0 {
		count = 0
	}
	changed := count != l.count
	l.count = count
	l.exhausted = !hasMore
	l.clampCursor()
	if !changed {
		return nil
	}
	l.armed = true
	return l.checkEnd()
}

// Rearm re-arms the end-reached signal and checks the end again. Callers use
// it when a signal fired earlier could not start a load.
func (l *VirtualList) Rearm() tea.Cmd {
	l.armed = true
	return l.checkEnd()
}

// SetFooter sets the footer state. Entering FooterFailed re-arms the
// end-reached signal so the next scroll at the end retries.
func (l *VirtualList) SetFooter(f Footer, hint string) {
	if f == FooterFailed && l.footer != FooterFailed {
		l.armed = true
	}
	l.footer = f
	l.footerHint = hint
}

// SetOrientation switches layout. Cursor and offset are kept; only the
// capacity changes, and the offset is clamped so the cursor stays visible.
func (l *VirtualList) SetOrientation(o domain.Orientation) tea.Cmd {
	if o == l.orientation {
		return nil
	}
	l.orientation = o
	l.ensureVisible()
	return l.checkEnd()
}

// SetRowHeight sets the vertical block height (minimum 1)
func (l *VirtualList) SetRowHeight(h int) {
	if h < 1 {
		h = 1
	}
	l.rowHeight = h
	l.ensureVisible()
}

// SetCardWidth sets the horizontal card width (minimum 8)
func (l *VirtualList) SetCardWidth(w int) {
	if w < 8 {
		w = 8
	}
	l.cardWidth = w
	l.ensureVisible()
}

// SetOverscan sets how many skeleton indices are rendered as skeletons past the count
func (l *VirtualList) SetOverscan(n int) {
	if n < 0 {
		n = 0
	}
	l.overscan = n
}

// SetSpinnerFrame updates the loading animation frame
func (l *VirtualList) SetSpinnerFrame(frame int) {
	l.spinnerFrame = frame
}

// Accessors

func (l *VirtualList) Count() int                      { return l.count }
func (l *VirtualList) Cursor() int                     { return l.cursor }
func (l *VirtualList) Offset() int                     { return l.offset }
func (l *VirtualList) Footer() Footer                  { return l.footer }
func (l *VirtualList) Orientation() domain.Orientation { return l.orientation }
func (l *VirtualList) Armed() bool                     { return l.armed }

// SetCursor moves the cursor to index (clamped to loaded rows)
func (l *VirtualList) SetCursor(index int) tea.Cmd {
	l.cursor = index
	l.clampCursor()
	l.ensureVisible()
	return l.checkEnd()
}

// Capacity is the number of items that fit in the current layout
func (l *VirtualList) Capacity() int {
	var c int
	if l.orientation == domain.Horizontal {
		c = l.width / l.cardWidth
	} else {
		c = (l.height - FooterLines) / l.rowHeight
	}
	if c < 1 {
		c = 1
	}
	return c
}

// Window returns the half-open index range that View renders. It may
// extend past the loaded count by the overscan while more items can follow.
func (l *VirtualList) Window() (start, end int) {
	limit := l.count
	if !l.exhausted {
		limit += l.overscan
	}
	start = l.offset
	end = start + l.Capacity()
	if end > limit {
		end = limit
	}
	if start > end {
		start = end
	}
	return start, end
}

// Update handles navigation keys and the mouse wheel
func (l *VirtualList) Update(msg tea.Msg) tea.Cmd {
	if l.count == 0 {
		return nil
	}

	horizontal := l.orientation == domain.Horizontal
	step := l.Capacity()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, l.keys.Down):
			return l.move(1)
		case key.Matches(msg, l.keys.Up):
			return l.move(-1)
		case horizontal && key.Matches(msg, l.keys.Right):
			return l.move(1)
		case horizontal && key.Matches(msg, l.keys.Left):
			return l.move(-1)
		case key.Matches(msg, l.keys.Home):
			l.cursor = 0
			l.offset = 0
			return l.checkEnd()
		case key.Matches(msg, l.keys.End):
			return l.move(l.count)
		case key.Matches(msg, l.keys.HalfDown):
			return l.move(max(step/2, 1))
		case key.Matches(msg, l.keys.HalfUp):
			return l.move(-max(step/2, 1))
		case key.Matches(msg, l.keys.PageDown):
			return l.move(step)
		case key.Matches(msg, l.keys.PageUp):
			return l.move(-step)
		}

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelDown, tea.MouseButtonWheelRight:
			return l.move(1)
		case tea.MouseButtonWheelUp, tea.MouseButtonWheelLeft:
			return l.move(-1)
		}
	}

	return nil
}

// move shifts the cursor by delta. Moving past the last loaded row is how
// a user asks for more after a failure.
func (l *VirtualList) move(delta int) tea.Cmd {
	l.cursor += delta
	l.clampCursor()
	l.ensureVisible()
	return l.checkEnd()
}

// checkEnd fires OnEndReached when the last loaded row is in view and the
// signal is armed. Leaving the end re-arms it.
func (l *VirtualList) checkEnd() tea.Cmd {
	if l.exhausted || l.OnEndReached == nil || l.width <= 0 || l.height <= 0 {
		return nil
	}
	if !l.atEnd() {
		l.armed = true
		return nil
	}
	if !l.armed {
		return nil
	}
	l.armed = false
	return l.OnEndReached()
}

func (l *VirtualList) atEnd() bool {
	if l.count == 0 {
		return true
	}
	return l.cursor >= l.count-1 || l.offset+l.Capacity() >= l.count
}

func (l *VirtualList) clampCursor() {
	if l.cursor > l.count-1 {
		l.cursor = l.count - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

func (l *VirtualList) ensureVisible() {
	capacity := l.Capacity()
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+capacity {
		l.offset = l.cursor - capacity + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// View renders the visible window plus the footer line
func (l *VirtualList) View() string {
	if l.width <= 0 || l.height <= 0 {
		return ""
	}

	start, end := l.Window()
	bodyHeight := l.height - FooterLines
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	if l.orientation == domain.Horizontal {
		cards := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cards = append(cards, fitBlock(l.RenderRow(i, l.cardWidth, i == l.cursor), l.cardWidth, bodyHeight))
		}
		if len(cards) > 0 {
			body = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
		}
	} else {
		blocks := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			blocks = append(blocks, fitBlock(l.RenderRow(i, l.width, i == l.cursor), l.width, l.rowHeight))
		}
		body = strings.Join(blocks, "\n")
	}

	if start == end && l.footer != FooterLoading {
		body = styles.DimStyle.Render("No comments")
	}

	return fitBlock(body, l.width, bodyHeight) + "\n" + l.renderFooter()
}

func (l *VirtualList) renderFooter() string {
	var line string
	switch l.footer {
	case FooterLoading:
		spinner := styles.SpinnerFrames[l.spinnerFrame%len(styles.SpinnerFrames)]
		line = styles.FooterLoadingStyle.Render(spinner + " Loading more comments...")
	case FooterExhausted:
		line = styles.FooterDoneStyle.Render("No more comments")
	case FooterFailed:
		msg := "Could not load comments, press r to retry"
		if l.footerHint != "" {
			msg += " (" + l.footerHint + ")"
		}
		line = styles.FooterFailedStyle.Render(msg)
	default:
		line = " "
	}
	return lipgloss.NewStyle().MaxWidth(l.width).Render(line)
}

// fitBlock forces s to exactly height lines, each at most width cells,
// padding short lines so joined cards line up.
func fitBlock(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	clip := lipgloss.NewStyle().MaxWidth(width)
	for i, line := range lines {
		if w := lipgloss.Width(line); w > width {
			line = clip.Render(line)
		} else if w < width {
			line += strings.Repeat(" ", width-w)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
