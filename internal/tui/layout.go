package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/docqa/internal/catalog"
	"github.com/csheth/docqa/internal/session"
)

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	composerHeight int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 20,
		composerHeight: 3,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	// hero, status meter, info line and spacing
	const chrome = 9
	usable := height - chrome - l.composerHeight
	if usable < 6 {
		usable = 6
	}
	l.viewportHeight = usable
}

type displayView struct {
	content string
	lines   map[session.SelectionKey]int
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

// currentKeys lists the chunks the cursor can visit in the active mode.
func (m *model) currentKeys() []session.SelectionKey {
	if m.config.Session == nil {
		return nil
	}
	store := m.config.Session.Store()
	var keys []session.SelectionKey
	switch m.mode {
	case modeCompare:
		if m.config.Session.Tracker().Status(session.OpCompare).State == session.StateFailed {
			return nil
		}
		if view, ok := store.ComparisonView(); ok {
			for _, chunk := range view.ChunksA {
				keys = append(keys, chunk.Key)
			}
			for _, chunk := range view.ChunksB {
				keys = append(keys, chunk.Key)
			}
		}
	default:
		if m.config.Session.Tracker().Status(session.OpSearch).State == session.StateFailed {
			return nil
		}
		if view, ok := store.SearchView(); ok {
			for _, chunk := range view.Chunks {
				keys = append(keys, chunk.Key)
			}
		}
	}
	return keys
}

func (m *model) buildDisplayContent() displayView {
	cb := &contentBuilder{}
	lines := map[session.SelectionKey]int{}
	if m.config.Session == nil || m.config.Catalog == nil {
		cb.WriteString(helperStyle.Render("No backend session configured."))
		return displayView{content: cb.String(), lines: lines}
	}

	m.writeDocuments(cb)
	if m.mode == modeCompare {
		m.writeComparison(cb, lines)
	} else {
		m.writeSearch(cb, lines)
	}
	m.writePreview(cb)
	return displayView{content: cb.String(), lines: lines}
}

func (m *model) writeDocuments(cb *contentBuilder) {
	cb.WriteString(sectionHeaderStyle.Render("Documents"))
	cb.WriteRune('\n')
	if m.mode == modeCompare {
		m.writeDocument(cb, "PDF 1", m.documentA())
		m.writeDocument(cb, "PDF 2", m.documentB())
		cb.WriteString(helperStyle.Render("[ ] pick PDF 1, { } pick PDF 2"))
		cb.WriteRune('\n')
		return
	}
	m.writeDocument(cb, "PDF", m.documentA())
	cb.WriteString(helperStyle.Render("[ ] pick a document"))
	cb.WriteRune('\n')
}

func (m *model) writeDocument(cb *contentBuilder, role string, doc catalog.Document) {
	cb.WriteString(fmt.Sprintf(" %s %s", labelStyle.Render(role+":"), documentStyle.Render(doc.Name)))
	cb.WriteRune('\n')
	summary := m.summaryText(doc.ID)
	if summary == "" {
		return
	}
	cb.WriteString(indentMultiline(helperStyle.Render(wordwrap.String(summary, m.wrapWidth(6))), "   "))
	cb.WriteRune('\n')
}

func (m *model) summaryText(id string) string {
	cache := m.config.Summaries
	if cache == nil {
		return ""
	}
	if m.summariesLoading || !cache.Loaded() {
		if cache.Err() != nil {
			return "Summary unavailable."
		}
		return "Loading summary..."
	}
	if summary, ok := cache.Get(id); ok {
		return summary
	}
	return "No summary available."
}

func (m *model) writeStatus(cb *contentBuilder, op session.Operation, pendingLabel string) bool {
	status := m.config.Session.Tracker().Status(op)
	switch status.State {
	case session.StatePending:
		cb.WriteString(helperStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), pendingLabel)))
		cb.WriteRune('\n')
	case session.StateFailed:
		cb.WriteString(errorStyle.Render(wordwrap.String(status.Message, m.wrapWidth(2))))
		cb.WriteRune('\n')
		return false
	}
	return true
}

func (m *model) writeSearch(cb *contentBuilder, lines map[session.SelectionKey]int) {
	cb.WriteRune('\n')
	cb.WriteString(sectionHeaderStyle.Render("Answer"))
	cb.WriteRune('\n')
	if !m.writeStatus(cb, session.OpSearch, "Searching…") {
		return
	}
	view, ok := m.config.Session.Store().SearchView()
	if !ok {
		cb.WriteString(helperStyle.Render("Ask a question to see the answer and its sources."))
		cb.WriteRune('\n')
		return
	}
	m.writeAnswer(cb, view.Query, view.Answer)
	cb.WriteRune('\n')
	cb.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Sources (%d)", len(view.Chunks))))
	cb.WriteRune('\n')
	m.writeChunks(cb, lines, view.Chunks, 0)
}

func (m *model) writeComparison(cb *contentBuilder, lines map[session.SelectionKey]int) {
	cb.WriteRune('\n')
	cb.WriteString(sectionHeaderStyle.Render("Comparison"))
	cb.WriteRune('\n')
	if !m.writeStatus(cb, session.OpCompare, "Comparing…") {
		return
	}
	view, ok := m.config.Session.Store().ComparisonView()
	if !ok {
		cb.WriteString(helperStyle.Render("Ask a question to compare the two documents."))
		cb.WriteRune('\n')
		return
	}
	m.writeAnswer(cb, view.Query, view.Answer)
	cb.WriteRune('\n')
	cb.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("PDF 1 sources: %s (%d)", m.documentName(view.DocumentA), len(view.ChunksA))))
	cb.WriteRune('\n')
	m.writeChunks(cb, lines, view.ChunksA, 0)
	cb.WriteRune('\n')
	cb.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("PDF 2 sources: %s (%d)", m.documentName(view.DocumentB), len(view.ChunksB))))
	cb.WriteRune('\n')
	m.writeChunks(cb, lines, view.ChunksB, len(view.ChunksA))
}

func (m *model) writeAnswer(cb *contentBuilder, query, answer string) {
	if query != "" {
		cb.WriteString(labelStyle.Render("Q: ") + helperStyle.Render(wordwrap.String(query, m.wrapWidth(6))))
		cb.WriteRune('\n')
	}
	cb.WriteString(indentMultiline(wordwrap.String(answer, m.wrapWidth(4)), "  "))
	cb.WriteRune('\n')
}

// writeChunks renders chunk headers with a preview, or the full text when the
// chunk is expanded. offset is the cursor position of the first chunk.
func (m *model) writeChunks(cb *contentBuilder, lines map[session.SelectionKey]int, chunks []session.ChunkView, offset int) {
	if len(chunks) == 0 {
		cb.WriteString(helperStyle.Render("  No sources returned."))
		cb.WriteRune('\n')
		return
	}
	selection := m.config.Session.Selection()
	for i, chunk := range chunks {
		lines[chunk.Key] = cb.Line()
		marker := "  "
		header := chunkLabelStyle.Render(chunk.Label)
		if m.focus == focusResults && offset+i == m.cursor {
			marker = "▸ "
			header = currentLineStyle.Render(chunk.Label)
		}
		expanded := selection.IsExpanded(chunk.Key)
		toggle := "+"
		if expanded {
			toggle = "-"
		}
		cb.WriteString(fmt.Sprintf("%s%s %s", marker, helperStyle.Render(toggle), header))
		cb.WriteRune('\n')
		var body string
		if expanded {
			body = wordwrap.String(strings.TrimSpace(chunk.Content), m.wrapWidth(6))
		} else {
			body = helperStyle.Render(wordwrap.String(chunk.Preview(chunkPreviewLimit), m.wrapWidth(6)))
		}
		cb.WriteString(indentMultiline(body, "    "))
		cb.WriteRune('\n')
	}
}

func (m *model) writePreview(cb *contentBuilder) {
	if m.preview == nil {
		return
	}
	cb.WriteRune('\n')
	cb.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Page %d of %s", m.preview.page, m.documentName(m.preview.documentID))))
	cb.WriteRune('\n')
	text := strings.TrimSpace(m.preview.text)
	if text == "" {
		cb.WriteString(helperStyle.Render("  This page has no extractable text."))
		cb.WriteRune('\n')
		return
	}
	cb.WriteString(indentMultiline(previewBoxStyle.Render(wordwrap.String(text, m.wrapWidth(8))), "  "))
	cb.WriteRune('\n')
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}
