package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/csheth/docqa/internal/catalog"
	"github.com/csheth/docqa/internal/rag"
	"github.com/csheth/docqa/internal/session"
	"github.com/csheth/docqa/internal/transcript"
)

type fakeQuerier struct {
	search     rag.SearchResult
	comparison rag.ComparisonResult
	err        error
	calls      int
}

func (f *fakeQuerier) Search(ctx context.Context, req rag.SearchRequest) (rag.SearchResult, error) {
	f.calls++
	if f.err != nil {
		return rag.SearchResult{}, f.err
	}
	return f.search, nil
}

func (f *fakeQuerier) Compare(ctx context.Context, req rag.CompareRequest) (rag.ComparisonResult, error) {
	f.calls++
	if f.err != nil {
		return rag.ComparisonResult{}, f.err
	}
	return f.comparison, nil
}

type fakePages struct {
	text string
	err  error
	page int
}

func (f *fakePages) PageText(ctx context.Context, doc catalog.Document, page int) (string, error) {
	f.page = page
	return f.text, f.err
}

type fakeSummaries map[string]string

func (f fakeSummaries) Summaries(ctx context.Context) (map[string]string, error) {
	if f == nil {
		return nil, errors.New("offline")
	}
	return f, nil
}

func TestSearchJobCarriesTicket(t *testing.T) {
	querier := &fakeQuerier{search: rag.SearchResult{Answer: "yes"}}
	sess := session.New(querier)
	req := rag.SearchRequest{Query: "q", DocumentID: "pdf1"}
	ticket, err := sess.BeginSearch(req)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	msg, err := searchJob(sess, ticket, req)(context.Background())
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	result, ok := msg.(searchResultMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if result.ticket != ticket || result.result.Answer != "yes" {
		t.Fatalf("unexpected payload: %+v", result)
	}
	if !sess.Tracker().Pending(session.OpSearch) {
		t.Fatal("running the job must not complete the ticket")
	}
}

func TestCompareJobReportsError(t *testing.T) {
	querier := &fakeQuerier{err: errors.New("boom")}
	sess := session.New(querier)
	req := rag.CompareRequest{Query: "q", DocumentA: "pdf1", DocumentB: "pdf2"}
	ticket, err := sess.BeginCompare(req)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	msg, err := compareJob(sess, ticket, req)(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := msg.(compareResultMsg); got.err == nil {
		t.Fatal("message should carry the error")
	}
}

func TestLoadSummariesJob(t *testing.T) {
	cache := rag.NewSummaryCache(fakeSummaries{"pdf1": "Investor deck"})
	if _, err := loadSummariesJob(cache)(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if summary, ok := cache.Get("pdf1"); !ok || summary != "Investor deck" {
		t.Fatalf("summary not cached: %q", summary)
	}
}

func TestPagePreviewJob(t *testing.T) {
	pages := &fakePages{text: "Page body"}
	key := session.SelectionKey{Set: session.SetSingle, Index: 2}
	msg, err := pagePreviewJob(pages, catalog.Document{ID: "pdf1"}, key, 12)(context.Background())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	preview := msg.(pagePreviewMsg)
	if preview.page != 12 || preview.text != "Page body" || preview.key != key || pages.page != 12 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
}

func TestSaveTranscriptJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	msg, err := saveTranscriptJob(path, transcript.Entry{EntryType: transcript.KindSearch, Query: "q"})(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved := msg.(transcriptSavedMsg); saved.path != path || saved.kind != transcript.KindSearch {
		t.Fatalf("unexpected message: %+v", saved)
	}
	entries, err := transcript.Load(path)
	if err != nil || len(entries) != 1 {
		t.Fatalf("transcript not written: %v (%d entries)", err, len(entries))
	}
}
