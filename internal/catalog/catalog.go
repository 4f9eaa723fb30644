package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the object store that hosts the built-in documents.
const DefaultBaseURL = "https://storage.googleapis.com/rag-frontend-bucket/pdfs"

// ErrNotFound indicates the catalog has no document with the requested id.
var ErrNotFound = errors.New("document not found")

// Entry is the static definition of one indexed document.
type Entry struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	Filename string `toml:"filename"`
	// URL overrides the location derived from the base URL and Filename.
	URL string `toml:"url,omitempty"`
}

// Document is an immutable catalog record.
type Document struct {
	ID       string
	Name     string
	Filename string
	URL      string
}

// Catalog is a read-only registry of the documents the backend has indexed.
type Catalog struct {
	docs  []Document
	index map[string]int
}

// Defaults returns the documents of the reference deployment.
func Defaults() []Entry {
	return []Entry{
		{ID: "pdf1", Name: "2023 ConocoPhillips AIM Presentation", Filename: "2023-conocophillips-aim-presentation.pdf"},
		{ID: "pdf2", Name: "2024 ConocoPhillips Proxy Statement", Filename: "2024-conocophillips-proxy-statement.pdf"},
	}
}

// New builds a catalog. Ids must be unique and non-empty; every entry needs a
// filename or an explicit URL.
func New(baseURL string, entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog: at least one document is required")
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	c := &Catalog{
		docs:  make([]Document, 0, len(entries)),
		index: make(map[string]int, len(entries)),
	}
	for i, entry := range entries {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog: document %d has no id", i+1)
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate document id %q", id)
		}
		location, err := resolveURL(base, entry)
		if err != nil {
			return nil, fmt.Errorf("catalog: document %q: %w", id, err)
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = id
		}
		c.index[id] = len(c.docs)
		c.docs = append(c.docs, Document{
			ID:       id,
			Name:     name,
			Filename: entry.Filename,
			URL:      location,
		})
	}
	return c, nil
}

func resolveURL(base string, entry Entry) (string, error) {
	if raw := strings.TrimSpace(entry.URL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || !parsed.IsAbs() {
			return "", fmt.Errorf("invalid url %q", raw)
		}
		return raw, nil
	}
	filename := strings.TrimSpace(entry.Filename)
	if filename == "" {
		return "", errors.New("filename or url is required")
	}
	if base == "" {
		return "", errors.New("base URL is required for filename entries")
	}
	return base + "/" + url.PathEscape(filename), nil
}

// Resolve looks up a document by id.
func (c *Catalog) Resolve(id string) (Document, error) {
	idx, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return Document{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c.docs[idx], nil
}

// List returns every document in definition order.
func (c *Catalog) List() []Document {
	return append([]Document(nil), c.docs...)
}

// IDs returns the document ids in definition order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.docs))
	for i, doc := range c.docs {
		ids[i] = doc.ID
	}
	return ids
}

// Len reports the number of documents.
func (c *Catalog) Len() int {
	return len(c.docs)
}

// At returns the document at position i, wrapping around in both directions.
func (c *Catalog) At(i int) Document {
	n := len(c.docs)
	return c.docs[((i%n)+n)%n]
}

// IndexOf returns the position of id, or -1.
func (c *Catalog) IndexOf(id string) int {
	idx, ok := c.index[id]
	if !ok {
		return -1
	}
	return idx
}

// DisplayName returns the document name for id, falling back to the id itself.
func (c *Catalog) DisplayName(id string) string {
	doc, err := c.Resolve(id)
	if err != nil {
		return id
	}
	return doc.Name
}
