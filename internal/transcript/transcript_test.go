package transcript

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/docqa/internal/rag"
	"github.com/csheth/docqa/internal/session"
)

type names map[string]string

func (n names) DisplayName(id string) string {
	if name, ok := n[id]; ok {
		return name
	}
	return id
}

func TestFromSearch(t *testing.T) {
	store := session.NewStore()
	store.IngestSearch(rag.SearchResult{
		Query:      "production target",
		DocumentID: "pdf1",
		Answer:     "1.9 MMBOEPD",
		Chunks:     []rag.Chunk{{Content: "[Page 12] Target production is 1.9 MMBOEPD.", Page: "12", Similarity: 0.82}},
	})
	view, ok := store.SearchView()
	require.True(t, ok)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	entry := FromSearch(view, names{"pdf1": "AIM Presentation"}, at)

	assert.Equal(t, KindSearch, entry.EntryType)
	assert.Equal(t, []DocumentRef{{ID: "pdf1", Name: "AIM Presentation"}}, entry.Documents)
	require.Len(t, entry.Sources, 1)
	assert.Equal(t, "Source 1 (Page 12)", entry.Sources[0].Label)
	assert.Equal(t, "Target production is 1.9 MMBOEPD.", entry.Sources[0].Content)
	assert.Equal(t, 0.82, entry.Sources[0].Similarity)
	assert.Equal(t, at, entry.CapturedAt)
}

func TestFromComparisonKeepsSideOrder(t *testing.T) {
	store := session.NewStore()
	store.IngestComparison(rag.ComparisonResult{
		Query:     "capital",
		DocumentA: "pdf1",
		DocumentB: "pdf2",
		Answer:    "different",
		ChunksA:   []rag.Chunk{{Content: "a", Page: "3"}},
		ChunksB:   []rag.Chunk{{Content: "b", Page: "Unknown"}},
	})
	view, ok := store.ComparisonView()
	require.True(t, ok)

	entry := FromComparison(view, nil, time.Now())

	assert.Equal(t, KindComparison, entry.EntryType)
	assert.Equal(t, "pdf1", entry.Documents[0].Name)
	require.Len(t, entry.Sources, 2)
	assert.Equal(t, "pdf1", entry.Sources[0].Document)
	assert.Equal(t, "PDF 2 · Source 1", entry.Sources[1].Label)
}

func TestAppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "transcripts.json")

	first := Entry{EntryType: KindSearch, Query: "one", Sources: []Source{}}
	second := Entry{EntryType: KindComparison, Query: "two", Sources: []Source{}}

	require.NoError(t, Append(path, first))
	require.NoError(t, Append(path, second))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Query)
	assert.Equal(t, "two", entries[1].Query)
}

func TestAppendNothingIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.json")

	require.NoError(t, Append(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	entries, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Error(t, Append(path, Entry{EntryType: KindSearch}))
}
