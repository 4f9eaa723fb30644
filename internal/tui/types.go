package tui

import (
	"github.com/csheth/docqa/internal/rag"
	"github.com/csheth/docqa/internal/session"
)

type queryMode int

const (
	modeSearch queryMode = iota
	modeCompare
)

func (m queryMode) String() string {
	if m == modeCompare {
		return "COMPARE"
	}
	return "SEARCH"
}

type focusArea int

const (
	focusComposer focusArea = iota
	focusResults
)

const heroTagline = "Ask questions of indexed PDFs, then check the evidence."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	chunkPreviewLimit         = 100
)

const (
	composerSearchPlaceholder  = "Ask a question about the selected document…"
	composerComparePlaceholder = "Ask a question to compare both documents…"
)

type searchResultMsg struct {
	ticket session.Ticket
	result rag.SearchResult
	err    error
}

type compareResultMsg struct {
	ticket session.Ticket
	result rag.ComparisonResult
	err    error
}

type summariesLoadedMsg struct {
	err error
}

type pagePreviewMsg struct {
	key        session.SelectionKey
	documentID string
	page       int
	text       string
	err        error
}

type transcriptSavedMsg struct {
	path string
	kind string
	err  error
}

// pagePreview is the extracted text of the page a chunk is attributed to.
type pagePreview struct {
	key        session.SelectionKey
	documentID string
	page       int
	text       string
}
