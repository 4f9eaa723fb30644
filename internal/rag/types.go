package rag

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultTopK is the number of evidence chunks requested when the caller passes zero.
const DefaultTopK = 6

// Chunk is one retrieved passage returned as evidence for an answer.
type Chunk struct {
	Content    string  `json:"content"`
	Page       string  `json:"page"`
	Similarity float64 `json:"similarity,omitempty"`
}

// SearchRequest asks a question against a single indexed document.
type SearchRequest struct {
	Query      string
	DocumentID string
	TopK       int
}

// CompareRequest asks one question jointly against two documents.
type CompareRequest struct {
	Query     string
	DocumentA string
	DocumentB string
	TopK      int
}

// SearchResult is the answer for a single-document search. Chunks keep the
// backend's relevance order.
type SearchResult struct {
	Query      string  `json:"query"`
	DocumentID string  `json:"documentId"`
	Answer     string  `json:"answer"`
	Chunks     []Chunk `json:"chunks"`
}

// ComparisonResult is the answer for a comparison query. The two evidence lists
// are kept apart and never merged.
type ComparisonResult struct {
	Query     string  `json:"query"`
	DocumentA string  `json:"documentA"`
	DocumentB string  `json:"documentB"`
	Answer    string  `json:"answer"`
	ChunksA   []Chunk `json:"chunksA"`
	ChunksB   []Chunk `json:"chunksB"`
}

type searchPayload struct {
	Query      string `json:"query"`
	DocumentID string `json:"pdf_id"`
	TopK       int    `json:"top_k"`
}

type comparePayload struct {
	Query     string `json:"query"`
	DocumentA string `json:"pdf1_id"`
	DocumentB string `json:"pdf2_id"`
	TopK      int    `json:"top_k"`
}

type apiChunk struct {
	Content    string    `json:"Content"`
	Page       pageLabel `json:"Page"`
	Similarity float64   `json:"Similarity"`
}

type searchResponse struct {
	Answer       *string     `json:"answer"`
	SourceChunks *[]apiChunk `json:"source_chunks"`
}

type compareResponse struct {
	Response *string    `json:"response"`
	ChunksA  []apiChunk `json:"source_chunks_pdf1"`
	ChunksB  []apiChunk `json:"source_chunks_pdf2"`
}

type summariesResponse struct {
	Summaries map[string]string `json:"summaries"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// pageLabel accepts the page attribution as either a JSON string or number.
type pageLabel string

func (p *pageLabel) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*p = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = pageLabel(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*p = pageLabel(strconv.FormatInt(i, 10))
		return nil
	}
	*p = pageLabel(n.String())
	return nil
}

func convertChunks(in []apiChunk) []Chunk {
	out := make([]Chunk, 0, len(in))
	for _, c := range in {
		out = append(out, Chunk{
			Content:    c.Content,
			Page:       NormalizePage(string(c.Page)),
			Similarity: c.Similarity,
		})
	}
	return out
}
