// Package docstore keeps local copies of catalog documents and extracts the
// text of individual pages for previews.
package docstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/csheth/docqa/internal/catalog"
	"github.com/csheth/docqa/internal/rag"
)

const (
	cacheTTL           = 24 * time.Hour
	partialSuffix      = ".part"
	metaSuffix         = ".meta"
	defaultHTTPTimeout = 90 * time.Second
)

// ErrPageOutOfRange indicates a page number outside the document.
var ErrPageOutOfRange = errors.New("page out of range")

// Store downloads documents into a cache directory. Fresh copies are reused
// for a day, stale ones are revalidated with ETag / Last-Modified and
// interrupted downloads resume with a Range request.
type Store struct {
	dir    string
	client *http.Client
	now    func() time.Time
	log    *slog.Logger
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
	// Resume is the If-Range validator of the bytes in the .part file. A
	// partial download without one is discarded rather than resumed.
	Resume string `json:"resume,omitempty"`
}

// cachePaths are the files backing one document.
type cachePaths struct {
	pdf, meta, partial string
}

// errRestart asks download to drop the partial file and start over.
var errRestart = errors.New("restart download")

// New creates a store rooted at dir. A nil client gets a default timeout.
func New(dir string, client *http.Client, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "docqa-cache")
		}
		dir = filepath.Join(base, "docqa", "documents")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{dir: dir, client: client, now: time.Now, log: logger}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// Fetch returns the path of a local copy of doc, downloading it when needed.
// A stale copy is served when revalidation fails.
func (s *Store) Fetch(ctx context.Context, doc catalog.Document) (string, error) {
	paths := s.pathsFor(cacheKey(doc))

	current, _ := os.Stat(paths.pdf)
	if current != nil && current.Size() > 0 && s.now().Sub(current.ModTime()) < cacheTTL {
		return paths.pdf, nil
	}

	err := s.download(ctx, doc.URL, paths, current)
	if err == nil {
		s.log.Debug("document cached", slog.String("document", doc.ID), slog.String("path", paths.pdf))
		return paths.pdf, nil
	}
	if current != nil && current.Size() > 0 {
		s.log.Warn("serving stale document", slog.String("document", doc.ID), slog.String("error", err.Error()))
		return paths.pdf, nil
	}
	return "", fmt.Errorf("fetch %s: %w", doc.ID, err)
}

// download refreshes the cached copy, restarting once from scratch when the
// partial file cannot be resumed.
func (s *Store) download(ctx context.Context, docURL string, paths cachePaths, current os.FileInfo) error {
	meta, _ := readMeta(paths.meta)
	err := s.transfer(ctx, docURL, paths, meta, current)
	if !errors.Is(err, errRestart) {
		return err
	}
	s.log.Debug("discarding partial download", slog.String("path", paths.partial), slog.String("reason", err.Error()))
	if rmErr := os.Remove(paths.partial); rmErr != nil && !os.IsNotExist(rmErr) {
		return rmErr
	}
	meta.Resume = ""
	err = s.transfer(ctx, docURL, paths, meta, nil)
	if errors.Is(err, errRestart) {
		return fmt.Errorf("download %s: server rejected a plain request: %w", docURL, err)
	}
	return err
}

func (s *Store) transfer(ctx context.Context, docURL string, paths cachePaths, meta cacheMeta, current os.FileInfo) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return err
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}
	offset := resumeOffset(paths.partial, meta)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		req.Header.Set("If-Range", meta.Resume)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current == nil {
			return fmt.Errorf("%w: 304 without a cached copy", errRestart)
		}
		now := s.now()
		_ = os.Chtimes(paths.pdf, now, now)
		meta.CachedAt = now.UTC()
		return writeMeta(paths.meta, meta)
	case http.StatusOK:
		meta.Resume = resumeValidator(resp.Header)
		if err := writeMeta(paths.meta, meta); err != nil {
			return err
		}
		return s.store(resp, paths, meta, false)
	case http.StatusPartialContent:
		if offset == 0 || !strings.HasPrefix(resp.Header.Get("Content-Range"), fmt.Sprintf("bytes %d-", offset)) {
			return fmt.Errorf("%w: unexpected range %q", errRestart, resp.Header.Get("Content-Range"))
		}
		return s.store(resp, paths, meta, true)
	case http.StatusRequestedRangeNotSatisfiable:
		return fmt.Errorf("%w: %s", errRestart, resp.Status)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("download failed: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}
}

// resumeOffset is the size of a partial file that may be continued.
func resumeOffset(partial string, meta cacheMeta) int64 {
	if meta.Resume == "" {
		return 0
	}
	info, err := os.Stat(partial)
	if err != nil {
		return 0
	}
	return info.Size()
}

// resumeValidator picks the value to send as If-Range. Weak ETags cannot be
// used there.
func resumeValidator(h http.Header) string {
	if etag := h.Get("Etag"); etag != "" && !strings.HasPrefix(etag, "W/") {
		return etag
	}
	return h.Get("Last-Modified")
}

// store streams the body into the partial file and promotes it once complete.
func (s *Store) store(resp *http.Response, paths cachePaths, meta cacheMeta, appendTo bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendTo {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(paths.partial, flags, 0o644)
	if err != nil {
		return err
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		return fmt.Errorf("download interrupted after %d bytes: %w", written, copyErr)
	}
	if closeErr != nil {
		return closeErr
	}
	if err := os.Rename(paths.partial, paths.pdf); err != nil {
		return err
	}

	completed := cacheMeta{
		URL:      resp.Request.URL.String(),
		CachedAt: s.now().UTC(),
	}
	if etag, modified := resp.Header.Get("Etag"), resp.Header.Get("Last-Modified"); etag != "" || modified != "" {
		completed.ETag, completed.LastModified = etag, modified
	} else if appendTo {
		// The continued representation is the one the resume validator names.
		completed.ETag, completed.LastModified = splitValidator(meta.Resume)
	}
	if info, err := os.Stat(paths.pdf); err == nil {
		completed.Size = info.Size()
	}
	return writeMeta(paths.meta, completed)
}

func splitValidator(v string) (etag, lastModified string) {
	if strings.HasPrefix(v, `"`) {
		return v, ""
	}
	return "", v
}

// PageCount reports the number of pages in doc.
func (s *Store) PageCount(ctx context.Context, doc catalog.Document) (int, error) {
	path, err := s.Fetch(ctx, doc)
	if err != nil {
		return 0, err
	}
	file, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", doc.ID, err)
	}
	defer file.Close()
	return reader.NumPage(), nil
}

// PageText extracts the plain text of the 1-based page of doc.
func (s *Store) PageText(ctx context.Context, doc catalog.Document, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	path, err := s.Fetch(ctx, doc)
	if err != nil {
		return "", err
	}
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", doc.ID, err)
	}
	defer file.Close()

	if page > reader.NumPage() {
		return "", fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, reader.NumPage())
	}
	p := reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d of %s: %w", page, doc.ID, err)
	}
	return strings.TrimSpace(text), nil
}

// PageNumber converts a chunk page label into a page number. Labels such as
// "Unknown" report false.
func PageNumber(label string) (int, bool) {
	label = rag.NormalizePage(label)
	if !rag.HasKnownPage(label) {
		return 0, false
	}
	n, err := strconv.Atoi(label)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (s *Store) pathsFor(key string) cachePaths {
	return cachePaths{
		pdf:     filepath.Join(s.dir, key+".pdf"),
		meta:    filepath.Join(s.dir, key+metaSuffix),
		partial: filepath.Join(s.dir, key+partialSuffix),
	}
}

// cacheKey combines the readable document id with a hash of its URL so a
// relocated document is downloaded again.
func cacheKey(doc catalog.Document) string {
	sum := sha1.Sum([]byte(doc.URL))
	hash := hex.EncodeToString(sum[:])[:12]
	if id := sanitizeKey(doc.ID); id != "" {
		return id + "-" + hash
	}
	return hash
}

func sanitizeKey(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "/", "-")
	value = strings.ReplaceAll(value, "\\", "-")
	value = strings.ReplaceAll(value, ":", "-")
	value = strings.ReplaceAll(value, "..", "-")
	return value
}

func readMeta(path string) (cacheMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheMeta{}, err
	}
	var meta cacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta cacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
