package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 2 * time.Minute
	maxErrorBodyBytes  = 2048

	summariesPath = "/api/rag/summaries"
	searchPath    = "/api/rag/search/"
	comparePath   = "/api/rag/compare/"
)

// Config describes how to reach the RAG backend.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil. Zero selects the default.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// Client issues search and comparison requests against the RAG backend. It is
// the only component that performs network I/O for queries and never retries.
type Client struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("rag: backend URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("rag: backend URL %q must start with http:// or https://", base)
	}
	c := &Client{
		base:   base,
		client: pickHTTPClient(cfg.HTTPClient, cfg.Timeout),
		log:    cfg.Logger,
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

func pickHTTPClient(custom *http.Client, timeout time.Duration) *http.Client {
	if custom != nil {
		return custom
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.base
}

// ValidateSearch checks a search request without performing any I/O.
func ValidateSearch(req SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return validationError("search", "query cannot be empty")
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		return validationError("search", "document id is required")
	}
	if req.TopK < 0 {
		return validationError("search", "top_k must be positive")
	}
	return nil
}

// ValidateCompare checks a comparison request without performing any I/O.
func ValidateCompare(req CompareRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return validationError("compare", "query cannot be empty")
	}
	if strings.TrimSpace(req.DocumentA) == "" || strings.TrimSpace(req.DocumentB) == "" {
		return validationError("compare", "two document ids are required")
	}
	if req.TopK < 0 {
		return validationError("compare", "top_k must be positive")
	}
	return nil
}

func effectiveTopK(k int) int {
	if k == 0 {
		return DefaultTopK
	}
	return k
}

// Search asks a question against one document.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if err := ValidateSearch(req); err != nil {
		return SearchResult{}, err
	}
	payload := searchPayload{
		Query:      req.Query,
		DocumentID: req.DocumentID,
		TopK:       effectiveTopK(req.TopK),
	}
	body, err := c.do(ctx, "search", http.MethodPost, searchPath, payload)
	if err != nil {
		return SearchResult{}, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return SearchResult{}, parseError("search", "invalid JSON", err)
	}
	if parsed.Answer == nil {
		return SearchResult{}, parseError("search", `missing "answer"`, nil)
	}
	if parsed.SourceChunks == nil {
		return SearchResult{}, parseError("search", `missing "source_chunks"`, nil)
	}
	return SearchResult{
		Query:      req.Query,
		DocumentID: req.DocumentID,
		Answer:     *parsed.Answer,
		Chunks:     convertChunks(*parsed.SourceChunks),
	}, nil
}

// Compare asks one question against two documents. A side the backend omits
// comes back as an empty list rather than an error.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (ComparisonResult, error) {
	if err := ValidateCompare(req); err != nil {
		return ComparisonResult{}, err
	}
	payload := comparePayload{
		Query:     req.Query,
		DocumentA: req.DocumentA,
		DocumentB: req.DocumentB,
		TopK:      effectiveTopK(req.TopK),
	}
	body, err := c.do(ctx, "compare", http.MethodPost, comparePath, payload)
	if err != nil {
		return ComparisonResult{}, err
	}

	var parsed compareResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ComparisonResult{}, parseError("compare", "invalid JSON", err)
	}
	if parsed.Response == nil {
		return ComparisonResult{}, parseError("compare", `missing "response"`, nil)
	}
	return ComparisonResult{
		Query:     req.Query,
		DocumentA: req.DocumentA,
		DocumentB: req.DocumentB,
		Answer:    *parsed.Response,
		ChunksA:   convertChunks(parsed.ChunksA),
		ChunksB:   convertChunks(parsed.ChunksB),
	}, nil
}

// Summaries fetches the backend-provided summary text for every document.
func (c *Client) Summaries(ctx context.Context) (map[string]string, error) {
	body, err := c.do(ctx, "summaries", http.MethodGet, summariesPath, nil)
	if err != nil {
		return nil, err
	}
	var parsed summariesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, parseError("summaries", "invalid JSON", err)
	}
	if parsed.Summaries == nil {
		return nil, parseError("summaries", `missing "summaries"`, nil)
	}
	return parsed.Summaries, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(op, 0, "rate limiter", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, transportError(op, 0, "build request", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	c.log.Debug("backend request", slog.String("op", op), slog.String("request_id", requestID), slog.String("url", req.URL.String()))
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("backend unreachable", slog.String("op", op), slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, transportError(op, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		detail := errorDetail(raw)
		c.log.Warn("backend error",
			slog.String("op", op),
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode),
			slog.String("detail", detail))
		return nil, transportError(op, resp.StatusCode, detail, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(op, resp.StatusCode, "read body", err)
	}
	c.log.Debug("backend response",
		slog.String("op", op),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(started)))
	return body, nil
}

// errorDetail extracts a FastAPI style {"detail": ...} message, falling back
// to the trimmed body.
func errorDetail(raw []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Detail) > 0 {
		var text string
		if err := json.Unmarshal(parsed.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		return strings.TrimSpace(string(parsed.Detail))
	}
	return strings.TrimSpace(string(raw))
}
