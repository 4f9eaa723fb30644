package session

import (
	"testing"

	"github.com/csheth/docqa/internal/rag"
)

func TestStoreEmptyViews(t *testing.T) {
	store := NewStore()
	if _, ok := store.SearchView(); ok {
		t.Fatal("search view should be empty")
	}
	if _, ok := store.ComparisonView(); ok {
		t.Fatal("comparison view should be empty")
	}
}

func TestStoreSearchViewNormalizesAtRead(t *testing.T) {
	store := NewStore()
	store.IngestSearch(rag.SearchResult{
		Answer: "1.9 MMBOEPD",
		Chunks: []rag.Chunk{
			{Content: "[Page 12] Target production is 1.9 MMBOEPD.", Page: "12"},
			{Content: "[Page Unknown] Capital plan.", Page: "Unknown"},
			{Content: "No marker", Page: ""},
		},
	})

	view, ok := store.SearchView()
	if !ok {
		t.Fatal("expected search view")
	}
	want := []struct{ label, content string }{
		{"Source 1 (Page 12)", "Target production is 1.9 MMBOEPD."},
		{"Source 2", "Capital plan."},
		{"Source 3", "No marker"},
	}
	for i, chunk := range view.Chunks {
		if chunk.Label != want[i].label {
			t.Fatalf("chunk %d label = %q, want %q", i, chunk.Label, want[i].label)
		}
		if chunk.Content != want[i].content {
			t.Fatalf("chunk %d content = %q, want %q", i, chunk.Content, want[i].content)
		}
		if chunk.Key != (SelectionKey{Set: SetSingle, Index: i}) {
			t.Fatalf("chunk %d key mismatch: %v", i, chunk.Key)
		}
	}
	if view.Chunks[0].Raw != "[Page 12] Target production is 1.9 MMBOEPD." {
		t.Fatalf("raw content should survive reads, got %q", view.Chunks[0].Raw)
	}
}

func TestStoreIngestReplacesWholesale(t *testing.T) {
	store := NewStore()
	store.IngestSearch(rag.SearchResult{Answer: "first", Chunks: []rag.Chunk{{Content: "a"}, {Content: "b"}}})
	store.IngestSearch(rag.SearchResult{Answer: "second", Chunks: []rag.Chunk{{Content: "c"}}})

	view, _ := store.SearchView()
	if view.Answer != "second" || len(view.Chunks) != 1 || view.Chunks[0].Content != "c" {
		t.Fatalf("expected wholesale replacement, got %+v", view)
	}
}

func TestStoreComparisonLabelsCarrySide(t *testing.T) {
	store := NewStore()
	store.IngestComparison(rag.ComparisonResult{
		Answer:  "diff",
		ChunksA: []rag.Chunk{{Content: "[Page 3] a", Page: "3"}},
		ChunksB: []rag.Chunk{{Content: "b", Page: "unknown"}, {Content: "[page 9] c", Page: "9"}},
	})
	view, ok := store.ComparisonView()
	if !ok {
		t.Fatal("expected comparison view")
	}
	if got := view.ChunksA[0].Label; got != "PDF 1 · Source 1 (Page 3)" {
		t.Fatalf("unexpected side A label: %q", got)
	}
	if got := view.ChunksB[0].Label; got != "PDF 2 · Source 1" {
		t.Fatalf("unexpected side B label: %q", got)
	}
	if got := view.ChunksB[1].Content; got != "c" {
		t.Fatalf("unexpected normalized content: %q", got)
	}
	if view.ChunksB[1].Key != (SelectionKey{Set: SetComparisonB, Index: 1}) {
		t.Fatalf("unexpected key: %v", view.ChunksB[1].Key)
	}
}

func TestStoreViewsDoNotAliasStorage(t *testing.T) {
	store := NewStore()
	chunks := []rag.Chunk{{Content: "original"}}
	store.IngestSearch(rag.SearchResult{Chunks: chunks})
	chunks[0].Content = "mutated by caller"

	view, _ := store.SearchView()
	if view.Chunks[0].Raw != "original" {
		t.Fatalf("store aliases caller slice: %q", view.Chunks[0].Raw)
	}
}

func TestStoreChunkLookup(t *testing.T) {
	store := NewStore()
	if _, ok := store.Chunk(SelectionKey{Set: SetSingle}); ok {
		t.Fatal("empty store should have no chunks")
	}
	store.IngestComparison(rag.ComparisonResult{ChunksB: []rag.Chunk{{Content: "b", Page: "4"}}})
	chunk, ok := store.Chunk(SelectionKey{Set: SetComparisonB, Index: 0})
	if !ok || chunk.Page != "4" {
		t.Fatalf("lookup failed: %+v (ok=%v)", chunk, ok)
	}
	if _, ok := store.Chunk(SelectionKey{Set: SetComparisonA, Index: 0}); ok {
		t.Fatal("side A is empty")
	}
	store.Clear()
	if _, ok := store.ComparisonView(); ok {
		t.Fatal("Clear should empty the comparison slot")
	}
}

func TestChunkViewPreview(t *testing.T) {
	chunk := ChunkView{Content: "  alpha\n beta   gamma "}
	if got := chunk.Preview(100); got != "alpha beta gamma" {
		t.Fatalf("unexpected preview: %q", got)
	}
	if got := chunk.Preview(5); got != "alpha..." {
		t.Fatalf("unexpected truncated preview: %q", got)
	}
	if got := chunk.PreviewWidth(8); got != "alpha..." {
		t.Fatalf("unexpected width preview: %q", got)
	}
}
