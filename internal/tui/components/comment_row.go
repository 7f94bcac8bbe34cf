package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/murmur/internal/domain"
	"github.com/mmcdole/murmur/internal/tui/styles"
)

// Body lines per layout
const (
	rowBodyLines  = 2
	cardBodyLines = 4

	// Border (2) + horizontal padding (2)
	cardFrameWidth = 4
)

// RenderRow renders a row in the given orientation. Loaded rows show author,
// body and image strip; pending rows show a skeleton of the same size.
func RenderRow(row domain.Row, orientation domain.Orientation, width int, selected bool) string {
	if orientation == domain.Horizontal {
		return renderCard(row, width, selected)
	}
	return renderListBlock(row, width, selected)
}

// renderListBlock produces DefaultRowHeight lines: author, two body lines,
// image strip and a spacer.
func renderListBlock(row domain.Row, width int, selected bool) string {
	inner := width - 2
	if inner < 10 {
		inner = 10
	}

	var lines []string
	switch r := row.(type) {
	case domain.LoadedRow:
		lines = commentLines(r.Comment, inner, rowBodyLines)
	case domain.PendingRow:
		lines = skeletonLines(r.Index, inner, rowBodyLines)
	}

	rendered := make([]string, 0, DefaultRowHeight)
	for i, line := range lines {
		rendered = append(rendered, styles.RenderListRow(lineParts(row, i, line, len(lines)), selected, width))
	}
	rendered = append(rendered, "")
	return strings.Join(rendered, "\n")
}

// renderCard produces a bordered card for horizontal mode
func renderCard(row domain.Row, width int, selected bool) string {
	inner := width - cardFrameWidth
	if inner < 4 {
		inner = 4
	}

	var lines []string
	switch r := row.(type) {
	case domain.LoadedRow:
		lines = commentLines(r.Comment, inner, cardBodyLines)
	case domain.PendingRow:
		lines = skeletonLines(r.Index, inner, cardBodyLines)
	}

	styled := make([]string, len(lines))
	for i, line := range lines {
		styled[i] = lineStyle(row, i, len(lines)).Render(line)
	}

	style := styles.CardStyle
	if selected {
		style = styles.CardSelectedStyle
	}
	return style.Width(inner + 2).Render(strings.Join(styled, "\n"))
}

// commentLines lays out author, exactly bodyLines body lines and the image strip
func commentLines(c domain.Comment, width, bodyLines int) []string {
	lines := []string{styles.Truncate(c.Author, width)}

	body := styles.Wrap(c.Body, width, bodyLines)
	for len(body) < bodyLines {
		body = append(body, "")
	}
	lines = append(lines, body...)

	return append(lines, styles.Truncate(imageStrip(c.Images), width))
}

// skeletonLines mirrors commentLines with placeholder bars
func skeletonLines(index, width, bodyLines int) []string {
	bar := func(frac int) string {
		n := width * frac / 10
		if n < 1 {
			n = 1
		}
		return strings.Repeat("░", n)
	}
	// Vary bar lengths by index so a run of skeletons doesn't look like a table
	lines := []string{bar(3 + index%3)}
	for i := 0; i < bodyLines; i++ {
		lines = append(lines, bar(9-(index+i)%4))
	}
	return append(lines, bar(2))
}

// imageStrip renders compact references; the images themselves are not fetched
func imageStrip(images []domain.ImageRef) string {
	if len(images) == 0 {
		return ""
	}
	chips := make([]string, len(images))
	for i, img := range images {
		label := img.Alt
		if label == "" {
			label = fmt.Sprintf("image %d", i+1)
		}
		chips[i] = "[" + label + "]"
	}
	return strings.Join(chips, " ")
}

// lineParts styles one line of a vertical block
func lineParts(row domain.Row, i int, text string, total int) []styles.RowPart {
	if _, pending := row.(domain.PendingRow); pending {
		fg := styles.SlateLight
		return []styles.RowPart{{Text: text, Foreground: &fg}}
	}
	switch i {
	case 0:
		fg := styles.Amber
		return []styles.RowPart{{Text: text, Foreground: &fg, Bold: true}}
	case total - 1:
		fg := styles.Blue
		return []styles.RowPart{{Text: text, Foreground: &fg}}
	default:
		return []styles.RowPart{{Text: text}}
	}
}

// lineStyle styles one line of a horizontal card
func lineStyle(row domain.Row, i, total int) lipgloss.Style {
	if _, pending := row.(domain.PendingRow); pending {
		return styles.SkeletonStyle
	}
	switch i {
	case 0:
		return styles.AuthorStyle
	case total - 1:
		return styles.ImageChipStyle
	default:
		return styles.BodyStyle
	}
}
