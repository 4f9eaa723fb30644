// Package transcript exports query results to a JSON array file so a session
// can be reviewed after the program exits.
package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/csheth/docqa/internal/session"
)

const (
	KindSearch     = "search"
	KindComparison = "comparison"
)

// Namer resolves document ids to display names. *catalog.Catalog satisfies it.
type Namer interface {
	DisplayName(id string) string
}

// Entry is one exported result.
type Entry struct {
	EntryType  string        `json:"entryType"`
	Query      string        `json:"query"`
	Documents  []DocumentRef `json:"documents"`
	Answer     string        `json:"answer"`
	Sources    []Source      `json:"sources"`
	CapturedAt time.Time     `json:"capturedAt"`
}

// DocumentRef names a document an entry was answered against.
type DocumentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Source is a labeled evidence chunk with page markers removed.
type Source struct {
	Label      string  `json:"label"`
	Document   string  `json:"document"`
	Page       string  `json:"page"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity,omitempty"`
}

// FromSearch builds an entry for a single-document result.
func FromSearch(view session.SearchView, names Namer, at time.Time) Entry {
	return Entry{
		EntryType:  KindSearch,
		Query:      view.Query,
		Documents:  []DocumentRef{ref(view.DocumentID, names)},
		Answer:     view.Answer,
		Sources:    sources(view.DocumentID, view.Chunks),
		CapturedAt: at,
	}
}

// FromComparison builds an entry for a comparison result. Sources of the first
// document precede those of the second.
func FromComparison(view session.ComparisonView, names Namer, at time.Time) Entry {
	all := append(sources(view.DocumentA, view.ChunksA), sources(view.DocumentB, view.ChunksB)...)
	return Entry{
		EntryType:  KindComparison,
		Query:      view.Query,
		Documents:  []DocumentRef{ref(view.DocumentA, names), ref(view.DocumentB, names)},
		Answer:     view.Answer,
		Sources:    all,
		CapturedAt: at,
	}
}

func ref(id string, names Namer) DocumentRef {
	name := id
	if names != nil {
		name = names.DisplayName(id)
	}
	return DocumentRef{ID: id, Name: name}
}

func sources(documentID string, chunks []session.ChunkView) []Source {
	out := make([]Source, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, Source{
			Label:      chunk.Label,
			Document:   documentID,
			Page:       chunk.Page,
			Content:    chunk.Content,
			Similarity: chunk.Similarity,
		})
	}
	return out
}

// Append adds entries to the transcript file at path, creating it if needed.
func Append(path string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	raw := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		raw = append(raw, data)
	}
	return appendEntries(path, raw)
}

// Load returns every exported entry in file order.
func Load(path string) ([]Entry, error) {
	raw, err := loadEntries(path)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal(item, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func appendEntries(path string, newEntries []json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	entries, err := loadEntries(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		entries = nil
	}
	entries = append(entries, newEntries...)
	return writeEntries(path, entries)
}

func writeEntries(path string, entries []json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func loadEntries(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
