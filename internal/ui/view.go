package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quire/internal/api"
	"github.com/five82/quire/internal/library"
)

const sidebarWidth = 34

func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}
	styles := m.theme.Styles()

	header := m.renderHeader(styles)
	footer := m.renderFooter(styles)
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSidebar(styles, sidebarWidth, bodyHeight),
		m.renderEntries(styles, m.width-sidebarWidth, bodyHeight),
	)
	if m.showHelp {
		body = m.renderHelp(styles, bodyHeight)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderHeader shows the connection state of the library poller.
func (m Model) renderHeader(styles Styles) string {
	sep := "  "
	parts := []string{styles.Logo.Render("quire")}

	snap := m.snapshot
	switch {
	case snap.IsOffline():
		parts = append(parts, styles.DangerText.Render("● OFFLINE"),
			styles.WarningText.Render(fmt.Sprintf("retrying after %d failures", snap.ConsecutiveFailures)))
	case !snap.HasRoots && snap.LastError == nil:
		parts = append(parts, styles.WarningText.Render("Connecting…"))
	default:
		parts = append(parts, styles.SuccessText.Render("● ONLINE"))
	}
	if snap.HasRoots {
		parts = append(parts, styles.MutedText.Render("Library:")+" "+styles.Text.Render(fmt.Sprint(len(snap.Roots))))
	}
	if !snap.LastUpdated.IsZero() {
		parts = append(parts, styles.FaintText.Render("updated "+humanizeDuration(time.Since(snap.LastUpdated))+" ago"))
	}
	if snap.LastError != nil && !api.IsCancelled(snap.LastError) {
		parts = append(parts, styles.DangerText.Render(describeError(snap.LastError)))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

func (m Model) renderFooter(styles Styles) string {
	switch {
	case m.err != nil:
		return styles.Footer.Width(m.width).Render(styles.DangerText.Render(describeError(m.err)))
	case m.status != "":
		return styles.Footer.Width(m.width).Render(m.status)
	}
	return styles.Footer.Width(m.width).Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m Model) renderSidebar(styles Styles, width, height int) string {
	box := styles.Pane
	if m.focus == paneLibrary {
		box = styles.Focused
	}
	inner := width - 2
	rows := height - 2

	var lines []string
	if len(m.rows) == 0 {
		lines = append(lines, styles.MutedText.Render("Library is empty"))
	}
	start := scrollStart(m.cursor, len(m.rows), rows)
	for i := start; i < len(m.rows) && len(lines) < rows; i++ {
		lines = append(lines, m.renderNode(styles, m.rows[i], i == m.cursor, inner))
	}
	return box.Width(inner).Height(rows).Render(strings.Join(lines, "\n"))
}

func (m Model) renderNode(styles Styles, n library.Node, selected bool, width int) string {
	icon := "•"
	switch n.Item.Type {
	case api.LibraryFolder:
		icon = "▸"
		if m.expanded.IsExpanded(n.ID()) {
			icon = "▾"
		}
		if m.loading[n.ID()] {
			icon = "…"
		}
	case api.LibraryCollection:
		icon = "◆"
	}
	indent := strings.Repeat("  ", n.Depth())
	title := truncate(n.Title(), width-len([]rune(indent))-2)
	if selected {
		return styles.Selected.Render(padRight(indent+icon+" "+title, width))
	}
	return indent + styles.KindStyle(n.Item.Type).Render(icon) + " " + styles.Text.Render(title)
}

func (m Model) renderEntries(styles Styles, width, height int) string {
	box := styles.Pane
	if m.focus == paneEntries {
		box = styles.Focused
	}
	inner := width - 2
	rows := height - 2

	var lines []string
	switch {
	case m.open == nil:
		lines = append(lines, styles.MutedText.Render("Select a feed or collection"))
	default:
		lines = append(lines, styles.AccentText.Bold(true).Render(truncate(m.open.Title(), inner)))
		if len(m.items) == 0 && !m.fetching {
			lines = append(lines, styles.MutedText.Render("No entries"))
		}
	}

	start := scrollStart(m.entryCursor, len(m.items), rows-1)
	for i := start; i < len(m.items) && len(lines) < rows; i++ {
		lines = append(lines, m.renderEntry(styles, m.items[i], i == m.entryCursor, inner))
	}
	if m.open != nil && len(lines) < rows {
		switch {
		case m.fetching:
			lines = append(lines, styles.FaintText.Render("Loading…"))
		case !m.trav.Done():
			lines = append(lines, styles.FaintText.Render("m: load more"))
		}
	}
	return box.Width(inner).Height(rows).Render(strings.Join(lines, "\n"))
}

func (m Model) renderEntry(styles Styles, e entry, selected bool, width int) string {
	marker := "●"
	if e.HasRead || m.read[e.key()] {
		marker = " "
	}
	date := ""
	if !e.PublishedAt.IsZero() {
		date = e.PublishedAt.Local().Format(time.DateOnly)
	}
	title := truncate(e.Title, width-len(date)-4)
	line := marker + " " + padRight(title, width-len(date)-3) + " " + date
	if selected {
		return styles.Selected.Render(line)
	}
	if marker == " " {
		return styles.MutedText.Render(line)
	}
	return styles.Text.Render(line)
}

func (m Model) renderHelp(styles Styles, height int) string {
	title := styles.Text.Bold(true).Render("Keyboard Shortcuts")
	content := title + "\n\n" + m.help.FullHelpView(m.keys.FullHelp()) + "\n\n" +
		styles.FaintText.Render("Theme: "+m.theme.Name)

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Render(content)

	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, modal)
}

// scrollStart returns the first visible index so cursor stays on screen.
func scrollStart(cursor, total, visible int) int {
	if visible <= 0 || total <= visible || cursor < visible {
		return 0
	}
	start := cursor - visible + 1
	if start > total-visible {
		start = total - visible
	}
	return start
}

// describeError turns an API error into a short footer message.
func describeError(err error) string {
	switch api.KindOf(err) {
	case api.KindUnauthorized:
		return "Not signed in or session expired: run quire login"
	case api.KindForbidden:
		return "Not allowed: " + err.Error()
	case api.KindTransport:
		return "API unreachable: " + err.Error()
	case api.KindValidation:
		return "Unexpected data: " + err.Error()
	default:
		return err.Error()
	}
}
