package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/docqa/internal/catalog"
	"github.com/csheth/docqa/internal/rag"
	"github.com/csheth/docqa/internal/session"
	"github.com/csheth/docqa/internal/transcript"
)

// PageSource extracts the text of a document page. *docstore.Store satisfies it.
type PageSource interface {
	PageText(ctx context.Context, doc catalog.Document, page int) (string, error)
}

func searchJob(s *session.Session, ticket session.Ticket, req rag.SearchRequest) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		result, err := s.RunSearch(ctx, req)
		return searchResultMsg{ticket: ticket, result: result, err: err}, err
	}
}

func compareJob(s *session.Session, ticket session.Ticket, req rag.CompareRequest) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		result, err := s.RunCompare(ctx, req)
		return compareResultMsg{ticket: ticket, result: result, err: err}, err
	}
}

func loadSummariesJob(cache *rag.SummaryCache) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		err := cache.Load(ctx)
		return summariesLoadedMsg{err: err}, err
	}
}

func pagePreviewJob(pages PageSource, doc catalog.Document, key session.SelectionKey, page int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
		defer cancel()
		text, err := pages.PageText(ctx, doc, page)
		return pagePreviewMsg{key: key, documentID: doc.ID, page: page, text: text, err: err}, err
	}
}

func saveTranscriptJob(path string, entry transcript.Entry) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		err := transcript.Append(path, entry)
		return transcriptSavedMsg{path: path, kind: entry.EntryType, err: err}, err
	}
}
