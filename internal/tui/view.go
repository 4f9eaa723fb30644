package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/csheth/docqa/internal/session"
)

func (m *model) View() string {
	m.refreshViewportIfDirty()
	parts := []string{m.heroView(), m.viewport.View()}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.busy() {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView())
	}
	parts = append(parts, m.composerPanel(), m.sessionMeterView())
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	title := lipgloss.JoinHorizontal(lipgloss.Top, heroTitleStyle.Render("docqa"), " ", modeBadgeStyle.Render(m.mode.String()))
	return lipgloss.JoinVertical(lipgloss.Left, title, taglineStyle.Render(heroTagline))
}

func (m *model) composerPanel() string {
	return joinNonEmpty([]string{
		sectionHeaderStyle.Render(m.composerTitle()),
		m.composer.View(),
		helperStyle.Render(m.composerHelpText()),
	})
}

func (m *model) composerTitle() string {
	if m.config.Catalog == nil {
		return "Question"
	}
	if m.mode == modeCompare {
		return fmt.Sprintf("Compare %s ⇄ %s", m.documentA().Name, m.documentB().Name)
	}
	return fmt.Sprintf("Ask %s", m.documentA().Name)
}

func (m *model) composerHelpText() string {
	if m.focus == focusComposer {
		return "Enter: submit • Tab: search/compare • Esc: clear, then browse sources"
	}
	return "i: edit question • j/k: move • Enter: expand • o: page • s: save • ?: keys • q: quit"
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func (m *model) sessionMeterView() string {
	stats := []string{fmt.Sprintf("Mode %s", m.mode)}
	if m.config.Session != nil {
		tracker := m.config.Session.Tracker()
		stats = append(stats,
			fmt.Sprintf("Search %s", tracker.Status(session.OpSearch).State),
			fmt.Sprintf("Compare %s", tracker.Status(session.OpCompare).State),
		)
	}
	if badges := m.jobStatusBadges(); len(badges) > 0 {
		stats = append(stats, badges...)
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) jobStatusBadges() []string {
	var badges []string
	for _, kind := range []jobKind{jobKindSummaries, jobKindPage, jobKindTranscript} {
		snapshot, ok := m.jobStatus[kind]
		if !ok {
			continue
		}
		switch snapshot.Status {
		case jobStatusRunning:
			badges = append(badges, fmt.Sprintf("%s…", kind))
		case jobStatusFailed:
			badges = append(badges, fmt.Sprintf("%s failed", kind))
		}
	}
	return badges
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"Tab", "Search/compare"},
		{"i", "Edit question"},
		{"Esc", "Browse sources"},
		{"j/k", "Move"},
		{"Enter", "Expand source"},
		{"o", "Open page"},
		{"[ ]", "PDF 1"},
		{"{ }", "PDF 2"},
		{"s", "Save result"},
		{"g/G", "Top or bottom"},
		{"?", "Toggle keys"},
		{"q", "Quit"},
	}
	rows := []string{sectionHeaderStyle.Render("Keys")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + padRight(hint.Description, 16))
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
