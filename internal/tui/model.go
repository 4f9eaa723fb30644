package tui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/docqa/internal/catalog"
	"github.com/csheth/docqa/internal/docstore"
	"github.com/csheth/docqa/internal/rag"
	"github.com/csheth/docqa/internal/session"
	"github.com/csheth/docqa/internal/transcript"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Session   *session.Session
	Catalog   *catalog.Catalog
	Summaries *rag.SummaryCache
	// Pages enables page previews when set.
	Pages          PageSource
	TranscriptPath string
	TopK           int
	Logger         *slog.Logger
}

type model struct {
	config Config
	log    *slog.Logger
	jobs   *jobBus

	composer textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	layout   pageLayout

	mode  queryMode
	focus focusArea
	docA  int
	docB  int

	cursor      int
	visibleKeys []session.SelectionKey
	chunkLines  map[session.SelectionKey]int

	preview          *pagePreview
	pageLoading      bool
	summariesLoading bool
	saving           bool
	jobStatus        map[jobKind]jobSnapshot

	helpVisible   bool
	infoMessage   string
	errorMessage  string
	viewportDirty bool
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	return newModel(config)
}

func newModel(config Config) *model {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	composer := textinput.New()
	composer.Placeholder = composerSearchPlaceholder
	composer.CharLimit = 500
	composer.Width = 70
	composer.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	docB := 0
	if config.Catalog != nil && config.Catalog.Len() > 1 {
		docB = 1
	}

	return &model{
		config:        config,
		log:           logger,
		jobs:          newJobBus(logger),
		composer:      composer,
		spinner:       spin,
		viewport:      vp,
		layout:        newPageLayout(),
		mode:          modeSearch,
		focus:         focusComposer,
		docB:          docB,
		chunkLines:    map[session.SelectionKey]int{},
		jobStatus:     map[jobKind]jobSnapshot{},
		viewportDirty: true,
		infoMessage:   "Type a question and press Enter. Tab switches between search and compare.",
	}
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.config.Summaries != nil && !m.config.Summaries.Loaded() {
		m.summariesLoading = true
		cmds = append(cmds, m.jobs.Start(jobKindSummaries, loadSummariesJob(m.config.Summaries)), m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.markViewportDirty()
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.composer.Width = m.layout.viewportWidth - 4
		m.markViewportDirty()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case jobSignalMsg:
		m.jobStatus[msg.Snapshot.Kind] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		m.jobStatus[msg.Snapshot.Kind] = msg.Snapshot
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case searchResultMsg:
		m.handleSearchResult(msg)
		return m, nil
	case compareResultMsg:
		m.handleCompareResult(msg)
		return m, nil
	case summariesLoadedMsg:
		m.summariesLoading = false
		if msg.err != nil {
			m.log.Warn("summaries unavailable", slog.String("error", msg.err.Error()))
		}
		m.markViewportDirty()
		return m, nil
	case pagePreviewMsg:
		m.pageLoading = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Page %d preview failed: %v", msg.page, msg.err)
			m.markViewportDirty()
			return m, nil
		}
		m.preview = &pagePreview{key: msg.key, documentID: msg.documentID, page: msg.page, text: msg.text}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Showing page %d of %s. Press x to close.", msg.page, m.documentName(msg.documentID))
		m.markViewportDirty()
		return m, nil
	case transcriptSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Saving failed: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Saved %s result to %s", msg.kind, msg.path)
		return m, nil
	}
	return m, nil
}

func (m *model) busy() bool {
	if m.config.Session != nil && m.config.Session.Tracker().AnyPending() {
		return true
	}
	return m.summariesLoading || m.pageLoading || m.saving
}

func (m *model) handleSearchResult(msg searchResultMsg) {
	if !m.config.Session.CompleteSearch(msg.ticket, msg.result, msg.err) {
		m.log.Debug("discarded stale search result", slog.String("ticket", msg.ticket.ID))
		return
	}
	if msg.err != nil {
		m.errorMessage = rag.Message(msg.err)
		m.infoMessage = "Search failed. Press Enter to retry."
	} else {
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Answer ready with %d source(s). Esc then j/k to browse sources.", len(msg.result.Chunks))
		m.dropPreview(session.SetSingle)
		if m.mode == modeSearch {
			m.cursor = 0
			m.viewport.GotoTop()
		}
	}
	m.markViewportDirty()
}

func (m *model) handleCompareResult(msg compareResultMsg) {
	if !m.config.Session.CompleteCompare(msg.ticket, msg.result, msg.err) {
		m.log.Debug("discarded stale comparison result", slog.String("ticket", msg.ticket.ID))
		return
	}
	if msg.err != nil {
		m.errorMessage = rag.Message(msg.err)
		m.infoMessage = "Comparison failed. Press Enter to retry."
	} else {
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Comparison ready with %d + %d source(s).", len(msg.result.ChunksA), len(msg.result.ChunksB))
		m.dropPreview(session.SetComparisonA, session.SetComparisonB)
		if m.mode == modeCompare {
			m.cursor = 0
			m.viewport.GotoTop()
		}
	}
	m.markViewportDirty()
}

func (m *model) dropPreview(sets ...session.ResultSet) {
	if m.preview == nil {
		return
	}
	for _, set := range sets {
		if m.preview.key.Set == set {
			m.preview = nil
			return
		}
	}
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focus == focusComposer {
		cmd, _ := m.processComposerKey(key)
		return m, cmd
	}
	return m, m.processResultsKey(key)
}

func (m *model) processComposerKey(key tea.KeyMsg) (tea.Cmd, bool) {
	switch key.Type {
	case tea.KeyEnter:
		return m.submitQuery(), true
	case tea.KeyEsc:
		if m.composer.Value() != "" {
			m.composer.SetValue("")
			return nil, true
		}
		m.blurComposer()
		return nil, true
	case tea.KeyTab:
		m.toggleMode()
		return nil, true
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	return cmd, true
}

func (m *model) processResultsKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "q", "esc":
		return tea.Quit
	case "i", "/":
		return m.focusComposer()
	case "tab":
		m.toggleMode()
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "enter", " ":
		m.toggleCursorChunk()
	case "o":
		return m.previewCursorPage()
	case "x":
		if m.preview != nil {
			m.preview = nil
			m.markViewportDirty()
		}
	case "s":
		return m.saveTranscript()
	case "]":
		m.cycleDocument(&m.docA, 1)
	case "[":
		m.cycleDocument(&m.docA, -1)
	case "}":
		m.cycleDocument(&m.docB, 1)
	case "{":
		m.cycleDocument(&m.docB, -1)
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	case "pgdown", "ctrl+d":
		m.viewport.HalfViewDown()
	case "pgup", "ctrl+u":
		m.viewport.HalfViewUp()
	case "?":
		m.helpVisible = !m.helpVisible
	}
	return nil
}

func (m *model) submitQuery() tea.Cmd {
	if m.config.Session == nil || m.config.Catalog == nil {
		m.errorMessage = "No backend session configured."
		return nil
	}
	query := m.composer.Value()
	switch m.mode {
	case modeCompare:
		req := rag.CompareRequest{
			Query:     query,
			DocumentA: m.documentA().ID,
			DocumentB: m.documentB().ID,
			TopK:      m.config.TopK,
		}
		ticket, err := m.config.Session.BeginCompare(req)
		if err != nil {
			return m.rejectSubmit(err)
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Comparing %s with %s…", m.documentA().Name, m.documentB().Name)
		m.markViewportDirty()
		return tea.Batch(m.jobs.Start(jobKindCompare, compareJob(m.config.Session, ticket, req)), m.spinner.Tick)
	default:
		req := rag.SearchRequest{
			Query:      query,
			DocumentID: m.documentA().ID,
			TopK:       m.config.TopK,
		}
		ticket, err := m.config.Session.BeginSearch(req)
		if err != nil {
			return m.rejectSubmit(err)
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Searching %s…", m.documentA().Name)
		m.markViewportDirty()
		return tea.Batch(m.jobs.Start(jobKindSearch, searchJob(m.config.Session, ticket, req)), m.spinner.Tick)
	}
}

func (m *model) rejectSubmit(err error) tea.Cmd {
	if errors.Is(err, rag.ErrAlreadyInFlight) {
		m.infoMessage = "Still waiting on the previous request."
		return nil
	}
	m.errorMessage = rag.Message(err)
	m.markViewportDirty()
	return nil
}

func (m *model) toggleMode() {
	if m.mode == modeSearch {
		m.mode = modeCompare
		m.composer.Placeholder = composerComparePlaceholder
	} else {
		m.mode = modeSearch
		m.composer.Placeholder = composerSearchPlaceholder
	}
	m.cursor = 0
	m.errorMessage = ""
	m.viewport.GotoTop()
	m.markViewportDirty()
}

func (m *model) focusComposer() tea.Cmd {
	m.focus = focusComposer
	m.markViewportDirty()
	return m.composer.Focus()
}

func (m *model) blurComposer() {
	m.focus = focusResults
	m.composer.Blur()
	m.markViewportDirty()
}

func (m *model) cycleDocument(idx *int, delta int) {
	if m.config.Catalog == nil || m.config.Catalog.Len() == 0 {
		return
	}
	n := m.config.Catalog.Len()
	*idx = ((*idx+delta)%n + n) % n
	m.markViewportDirty()
}

func (m *model) documentA() catalog.Document {
	return m.config.Catalog.At(m.docA)
}

func (m *model) documentB() catalog.Document {
	return m.config.Catalog.At(m.docB)
}

func (m *model) documentName(id string) string {
	if m.config.Catalog == nil {
		return id
	}
	return m.config.Catalog.DisplayName(id)
}

func (m *model) moveCursor(delta int) {
	m.refreshViewportIfDirty()
	if len(m.visibleKeys) == 0 {
		m.cursor = 0
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.visibleKeys) {
		m.cursor = len(m.visibleKeys) - 1
	}
	m.markViewportDirty()
	m.refreshViewportIfDirty()
	m.ensureCursorVisible()
}

func (m *model) cursorKey() (session.SelectionKey, bool) {
	m.refreshViewportIfDirty()
	if m.cursor < 0 || m.cursor >= len(m.visibleKeys) {
		return session.SelectionKey{}, false
	}
	return m.visibleKeys[m.cursor], true
}

func (m *model) toggleCursorChunk() {
	key, ok := m.cursorKey()
	if !ok {
		return
	}
	m.config.Session.ToggleChunk(key)
	m.markViewportDirty()
}

func (m *model) ensureCursorVisible() {
	key, ok := m.cursorKey()
	if !ok {
		return
	}
	line, ok := m.chunkLines[key]
	if !ok {
		return
	}
	switch {
	case line < m.viewport.YOffset:
		m.viewport.SetYOffset(line)
	case line >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

func (m *model) previewCursorPage() tea.Cmd {
	if m.config.Pages == nil {
		m.infoMessage = "Page previews are disabled."
		return nil
	}
	key, ok := m.cursorKey()
	if !ok {
		return nil
	}
	chunk, ok := m.config.Session.Store().Chunk(key)
	if !ok {
		return nil
	}
	page, ok := docstore.PageNumber(chunk.Page)
	if !ok {
		m.infoMessage = "This source has no page attribution."
		return nil
	}
	docID, ok := m.documentForKey(key)
	if !ok {
		return nil
	}
	doc, err := m.config.Catalog.Resolve(docID)
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	m.pageLoading = true
	m.infoMessage = fmt.Sprintf("Loading page %d of %s…", page, doc.Name)
	return tea.Batch(m.jobs.Start(jobKindPage, pagePreviewJob(m.config.Pages, doc, key, page)), m.spinner.Tick)
}

func (m *model) documentForKey(key session.SelectionKey) (string, bool) {
	store := m.config.Session.Store()
	switch key.Set {
	case session.SetSingle:
		view, ok := store.SearchView()
		return view.DocumentID, ok
	case session.SetComparisonA:
		view, ok := store.ComparisonView()
		return view.DocumentA, ok
	case session.SetComparisonB:
		view, ok := store.ComparisonView()
		return view.DocumentB, ok
	}
	return "", false
}

func (m *model) saveTranscript() tea.Cmd {
	if m.config.TranscriptPath == "" {
		m.infoMessage = "No transcript path configured."
		return nil
	}
	store := m.config.Session.Store()
	var entry transcript.Entry
	switch m.mode {
	case modeCompare:
		view, ok := store.ComparisonView()
		if !ok {
			m.infoMessage = "Nothing to save yet."
			return nil
		}
		entry = transcript.FromComparison(view, m.config.Catalog, time.Now())
	default:
		view, ok := store.SearchView()
		if !ok {
			m.infoMessage = "Nothing to save yet."
			return nil
		}
		entry = transcript.FromSearch(view, m.config.Catalog, time.Now())
	}
	m.saving = true
	m.infoMessage = "Saving result…"
	return tea.Batch(m.jobs.Start(jobKindTranscript, saveTranscriptJob(m.config.TranscriptPath, entry)), m.spinner.Tick)
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if m.viewportDirty {
		m.refreshViewport()
	}
}

func (m *model) refreshViewport() {
	m.visibleKeys = m.currentKeys()
	if m.cursor >= len(m.visibleKeys) {
		m.cursor = 0
	}
	display := m.buildDisplayContent()
	m.chunkLines = display.lines
	m.viewport.SetContent(display.content)
	m.viewportDirty = false
}
