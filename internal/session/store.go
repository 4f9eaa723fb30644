package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/muesli/reflow/truncate"

	"github.com/csheth/docqa/internal/rag"
)

// ChunkView is a read-time projection of a stored chunk. Content has page
// markers removed and surrounding whitespace trimmed; Raw is the stored text.
type ChunkView struct {
	Key        SelectionKey
	Label      string
	Content    string
	Raw        string
	Page       string
	Similarity float64
}

// Preview returns the first limit runes of the normalized content with
// whitespace collapsed, followed by "..." when it was cut.
func (c ChunkView) Preview(limit int) string {
	text := strings.Join(strings.Fields(c.Content), " ")
	if limit <= 0 || len([]rune(text)) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}

// PreviewWidth cuts the preview to a terminal cell width.
func (c ChunkView) PreviewWidth(width int) string {
	text := strings.Join(strings.Fields(c.Content), " ")
	return truncate.StringWithTail(text, uint(width), "...")
}

// SearchView is the presentation form of the current single-document result.
type SearchView struct {
	Query      string
	DocumentID string
	Answer     string
	Chunks     []ChunkView
}

// ComparisonView is the presentation form of the current comparison result.
type ComparisonView struct {
	Query     string
	DocumentA string
	DocumentB string
	Answer    string
	ChunksA   []ChunkView
	ChunksB   []ChunkView
}

// Store holds the latest search and comparison results. Each ingest replaces
// its slot wholesale; stored chunks are never rewritten.
type Store struct {
	mu         sync.RWMutex
	search     *rag.SearchResult
	comparison *rag.ComparisonResult
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// IngestSearch replaces the current single-document result.
func (s *Store) IngestSearch(result rag.SearchResult) {
	result.Chunks = append([]rag.Chunk(nil), result.Chunks...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = &result
}

// IngestComparison replaces the current comparison result.
func (s *Store) IngestComparison(result rag.ComparisonResult) {
	result.ChunksA = append([]rag.Chunk(nil), result.ChunksA...)
	result.ChunksB = append([]rag.Chunk(nil), result.ChunksB...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparison = &result
}

// SearchView returns the current single-document result, or false when empty.
func (s *Store) SearchView() (SearchView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.search == nil {
		return SearchView{}, false
	}
	return SearchView{
		Query:      s.search.Query,
		DocumentID: s.search.DocumentID,
		Answer:     s.search.Answer,
		Chunks:     viewChunks(SetSingle, s.search.Chunks),
	}, true
}

// ComparisonView returns the current comparison result, or false when empty.
func (s *Store) ComparisonView() (ComparisonView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.comparison == nil {
		return ComparisonView{}, false
	}
	return ComparisonView{
		Query:     s.comparison.Query,
		DocumentA: s.comparison.DocumentA,
		DocumentB: s.comparison.DocumentB,
		Answer:    s.comparison.Answer,
		ChunksA:   viewChunks(SetComparisonA, s.comparison.ChunksA),
		ChunksB:   viewChunks(SetComparisonB, s.comparison.ChunksB),
	}, true
}

// Chunk returns the view for a single key.
func (s *Store) Chunk(key SelectionKey) (ChunkView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []rag.Chunk
	switch key.Set {
	case SetSingle:
		if s.search != nil {
			chunks = s.search.Chunks
		}
	case SetComparisonA:
		if s.comparison != nil {
			chunks = s.comparison.ChunksA
		}
	case SetComparisonB:
		if s.comparison != nil {
			chunks = s.comparison.ChunksB
		}
	}
	if key.Index < 0 || key.Index >= len(chunks) {
		return ChunkView{}, false
	}
	return viewChunk(key, chunks[key.Index]), true
}

// Clear empties both slots.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = nil
	s.comparison = nil
}

func viewChunks(set ResultSet, chunks []rag.Chunk) []ChunkView {
	views := make([]ChunkView, len(chunks))
	for i, chunk := range chunks {
		views[i] = viewChunk(SelectionKey{Set: set, Index: i}, chunk)
	}
	return views
}

func viewChunk(key SelectionKey, chunk rag.Chunk) ChunkView {
	return ChunkView{
		Key:        key,
		Label:      ChunkLabel(key, chunk.Page),
		Content:    strings.TrimSpace(rag.NormalizeContent(chunk.Content)),
		Raw:        chunk.Content,
		Page:       chunk.Page,
		Similarity: chunk.Similarity,
	}
}

// ChunkLabel builds "Source 2 (Page 12)", prefixed with the side tag for
// comparison chunks: "PDF 1 · Source 2 (Page 12)".
func ChunkLabel(key SelectionKey, page string) string {
	label := fmt.Sprintf("Source %d", key.Index+1)
	if rag.HasKnownPage(page) {
		label = fmt.Sprintf("%s (Page %s)", label, strings.TrimSpace(page))
	}
	if side := key.Set.SideLabel(); side != "" {
		label = side + " · " + label
	}
	return label
}
