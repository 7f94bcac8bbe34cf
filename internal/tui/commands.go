package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/murmur/internal/service"
)

// Command factories for async operations

const (
	hydrateTimeout = 10 * time.Second
	resetTimeout   = 10 * time.Second
	closeTimeout   = 2 * time.Second
)

// HydrateCmd restores the list from the snapshot store
func HydrateCmd(pager *service.Pager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), hydrateTimeout)
		defer cancel()

		return SnapshotLoadedMsg{Hit: pager.Hydrate(ctx)}
	}
}

// LoadPageCmd fetches one page started with Pager.BeginLoad
func LoadPageCmd(pager *service.Pager, page int, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		items, err := pager.Fetch(ctx, page)
		return PageLoadedMsg{Page: page, Items: items, Err: err}
	}
}

// ResetCmd clears the list and the stored snapshot
func ResetCmd(pager *service.Pager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
		defer cancel()

		return ResetDoneMsg{Err: pager.Reset(ctx)}
	}
}

// QuitCmd closes the pager, letting pending snapshot writes land, then quits
func QuitCmd(pager *service.Pager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		_ = pager.Close(ctx)
		return tea.Quit()
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
