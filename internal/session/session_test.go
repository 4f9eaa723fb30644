package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/csheth/docqa/internal/rag"
)

type fakeQuerier struct {
	searchCalls  int32
	compareCalls int32
	search       rag.SearchResult
	comparison   rag.ComparisonResult
	err          error
	gate         chan struct{}
}

func (f *fakeQuerier) Search(ctx context.Context, req rag.SearchRequest) (rag.SearchResult, error) {
	atomic.AddInt32(&f.searchCalls, 1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return rag.SearchResult{}, f.err
	}
	return f.search, nil
}

func (f *fakeQuerier) Compare(ctx context.Context, req rag.CompareRequest) (rag.ComparisonResult, error) {
	atomic.AddInt32(&f.compareCalls, 1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return rag.ComparisonResult{}, f.err
	}
	return f.comparison, nil
}

func TestSessionSearchScenario(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer":"1.9 MMBOEPD","source_chunks":[{"Content":"[Page 12] Target production is 1.9 MMBOEPD.","Page":"12"}]}`))
	}))
	defer server.Close()

	client, err := rag.NewClient(rag.Config{BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	s := New(client)

	if _, err := s.Search(context.Background(), rag.SearchRequest{
		Query:      "What is the 2023 production target?",
		DocumentID: "pdf1",
		TopK:       6,
	}); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	view, ok := s.Store().SearchView()
	if !ok {
		t.Fatal("expected a stored result")
	}
	if view.Answer != "1.9 MMBOEPD" {
		t.Fatalf("unexpected answer: %q", view.Answer)
	}
	chunk := view.Chunks[0]
	if got := chunk.Content; got != "Target production is 1.9 MMBOEPD." {
		t.Fatalf("unexpected normalized content: %q", got)
	}
	if got := chunk.Preview(100); got != "Target production is 1.9 MMBOEPD." {
		t.Fatalf("unexpected display content: %q", got)
	}
	if chunk.Label != "Source 1 (Page 12)" {
		t.Fatalf("unexpected label: %q", chunk.Label)
	}
	if s.Tracker().Status(OpSearch).State != StateSucceeded {
		t.Fatalf("expected succeeded, got %v", s.Tracker().Status(OpSearch).State)
	}
}

func TestSessionValidationNeverReachesTracker(t *testing.T) {
	fake := &fakeQuerier{}
	s := New(fake)

	_, err := s.Search(context.Background(), rag.SearchRequest{Query: "   ", DocumentID: "pdf1"})
	if !errors.Is(err, rag.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.BeginCompare(rag.CompareRequest{Query: "", DocumentA: "pdf1", DocumentB: "pdf2"}); !errors.Is(err, rag.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fake.searchCalls != 0 || fake.compareCalls != 0 {
		t.Fatal("validation failures must not issue requests")
	}
	if s.Tracker().Status(OpSearch).State != StateIdle || s.Tracker().Status(OpCompare).State != StateIdle {
		t.Fatal("validation failures must not change lifecycle state")
	}
}

func TestSessionSearchWhilePendingIsRejected(t *testing.T) {
	fake := &fakeQuerier{gate: make(chan struct{}), search: rag.SearchResult{Answer: "ok"}}
	s := New(fake)
	req := rag.SearchRequest{Query: "q", DocumentID: "pdf1"}

	done := make(chan error, 1)
	ticket, err := s.BeginSearch(req)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	go func() {
		result, err := s.RunSearch(context.Background(), req)
		s.CompleteSearch(ticket, result, err)
		done <- err
	}()

	if _, err := s.Search(context.Background(), req); !errors.Is(err, rag.ErrAlreadyInFlight) {
		t.Fatalf("expected already in flight, got %v", err)
	}

	close(fake.gate)
	if err := <-done; err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	if calls := atomic.LoadInt32(&fake.searchCalls); calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
	if s.Tracker().Status(OpSearch).State != StateSucceeded {
		t.Fatal("first search should have succeeded")
	}
}

func TestSessionSearchAndCompareAreIndependent(t *testing.T) {
	fake := &fakeQuerier{}
	s := New(fake)

	searchTicket, err := s.BeginSearch(rag.SearchRequest{Query: "q", DocumentID: "pdf1"})
	if err != nil {
		t.Fatalf("begin search: %v", err)
	}
	compareTicket, err := s.BeginCompare(rag.CompareRequest{Query: "q", DocumentA: "pdf1", DocumentB: "pdf2"})
	if err != nil {
		t.Fatalf("compare should not wait on search: %v", err)
	}

	s.CompleteCompare(compareTicket, rag.ComparisonResult{Answer: "cmp"}, nil)
	s.CompleteSearch(searchTicket, rag.SearchResult{Answer: "single"}, nil)

	searchView, _ := s.Store().SearchView()
	compareView, _ := s.Store().ComparisonView()
	if searchView.Answer != "single" || compareView.Answer != "cmp" {
		t.Fatalf("slots mixed up: %q / %q", searchView.Answer, compareView.Answer)
	}
}

func TestSessionFailureRecordsMessage(t *testing.T) {
	fake := &fakeQuerier{err: &rag.Error{Op: "compare", Kind: rag.ErrTransport, StatusCode: 500}}
	s := New(fake)
	s.Store().IngestComparison(rag.ComparisonResult{Answer: "previous"})

	_, err := s.Compare(context.Background(), rag.CompareRequest{Query: "q", DocumentA: "pdf1", DocumentB: "pdf2"})
	if !errors.Is(err, rag.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	status := s.Tracker().Status(OpCompare)
	if status.State != StateFailed || status.Message != "Backend error (500)." {
		t.Fatalf("unexpected status: %+v", status)
	}
	view, _ := s.Store().ComparisonView()
	if view.Answer != "previous" {
		t.Fatal("failed compare must not touch stored results")
	}
}

func TestSessionIngestClearsMatchingExpansion(t *testing.T) {
	fake := &fakeQuerier{
		search:     rag.SearchResult{Chunks: []rag.Chunk{{Content: "a"}, {Content: "b"}}},
		comparison: rag.ComparisonResult{ChunksA: []rag.Chunk{{Content: "x"}}, ChunksB: []rag.Chunk{{Content: "y"}}},
	}
	s := New(fake)
	ctx := context.Background()

	if _, err := s.Search(ctx, rag.SearchRequest{Query: "q", DocumentID: "pdf1"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	single := SelectionKey{Set: SetSingle, Index: 1}
	if !s.ToggleChunk(single) {
		t.Fatal("expected chunk to expand")
	}

	if _, err := s.Compare(ctx, rag.CompareRequest{Query: "q", DocumentA: "pdf1", DocumentB: "pdf2"}); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !s.Selection().IsExpanded(single) {
		t.Fatal("a comparison result must not clear the single expansion")
	}

	if _, err := s.Search(ctx, rag.SearchRequest{Query: "again", DocumentID: "pdf1"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, ok := s.Selection().Expanded(); ok {
		t.Fatal("new search result must clear the single expansion")
	}

	side := SelectionKey{Set: SetComparisonB, Index: 0}
	s.ToggleChunk(side)
	if _, err := s.Compare(ctx, rag.CompareRequest{Query: "again", DocumentA: "pdf1", DocumentB: "pdf2"}); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if s.Selection().IsExpanded(side) {
		t.Fatal("new comparison result must clear comparison expansion")
	}
}

func TestSessionToggleIgnoresMissingChunk(t *testing.T) {
	s := New(&fakeQuerier{})
	if s.ToggleChunk(SelectionKey{Set: SetSingle, Index: 4}) {
		t.Fatal("toggling a missing chunk should be a no-op")
	}
	if _, ok := s.Selection().Expanded(); ok {
		t.Fatal("selection should stay collapsed")
	}
}

func TestSessionStaleCompletionDiscarded(t *testing.T) {
	s := New(&fakeQuerier{})
	ticket, err := s.BeginSearch(rag.SearchRequest{Query: "q", DocumentID: "pdf1"})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !s.CompleteSearch(ticket, rag.SearchResult{Answer: "fresh"}, nil) {
		t.Fatal("completion should apply")
	}
	if s.CompleteSearch(ticket, rag.SearchResult{Answer: "stale"}, nil) {
		t.Fatal("second completion for the same ticket must be discarded")
	}
	view, _ := s.Store().SearchView()
	if view.Answer != "fresh" {
		t.Fatalf("stale completion overwrote result: %q", view.Answer)
	}
}

func TestSessionRepeatedSuccessDoesNotReingest(t *testing.T) {
	s := New(&fakeQuerier{})
	req := rag.CompareRequest{Query: "q", DocumentA: "pdf1", DocumentB: "pdf2"}
	ticket, err := s.BeginCompare(req)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	first := rag.ComparisonResult{Answer: "first", ChunksA: []rag.Chunk{{Content: "a"}}}
	if !s.CompleteCompare(ticket, first, nil) {
		t.Fatal("completion should apply")
	}
	key := SelectionKey{Set: SetComparisonA, Index: 0}
	if !s.ToggleChunk(key) {
		t.Fatal("expected chunk to expand")
	}

	second := rag.ComparisonResult{Answer: "second", ChunksA: []rag.Chunk{{Content: "b"}}}
	if s.CompleteCompare(ticket, second, nil) {
		t.Fatal("a finished ticket must not complete twice")
	}
	view, _ := s.Store().ComparisonView()
	if view.Answer != "first" {
		t.Fatalf("finished ticket re-ingested: %q", view.Answer)
	}
	if !s.Selection().IsExpanded(key) {
		t.Fatal("a discarded completion must not reset the selection")
	}
}
