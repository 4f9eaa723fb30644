package session

import (
	"context"
	"io"
	"log/slog"

	"github.com/csheth/docqa/internal/rag"
)

// Querier issues backend queries. *rag.Client satisfies it.
type Querier interface {
	Search(ctx context.Context, req rag.SearchRequest) (rag.SearchResult, error)
	Compare(ctx context.Context, req rag.CompareRequest) (rag.ComparisonResult, error)
}

// Session owns the per-user query state: results, request lifecycle and chunk
// selection. Construct one per interactive session and pass it by reference.
type Session struct {
	querier   Querier
	store     *Store
	tracker   *Tracker
	selection *Selection
	log       *slog.Logger
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger routes lifecycle logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.log = logger
		}
	}
}

// New returns an empty session backed by querier.
func New(querier Querier, opts ...Option) *Session {
	s := &Session{
		querier:   querier,
		store:     NewStore(),
		tracker:   NewTracker(),
		selection: NewSelection(),
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the result store for rendering.
func (s *Session) Store() *Store { return s.store }

// Tracker exposes the request lifecycle tracker for rendering.
func (s *Session) Tracker() *Tracker { return s.tracker }

// Selection exposes the chunk expansion state.
func (s *Session) Selection() *Selection { return s.selection }

// BeginSearch validates req and marks the search operation pending. Validation
// failures never reach the tracker.
func (s *Session) BeginSearch(req rag.SearchRequest) (Ticket, error) {
	if err := rag.ValidateSearch(req); err != nil {
		return Ticket{}, err
	}
	ticket, err := s.tracker.Submit(OpSearch)
	if err != nil {
		s.log.Debug("search ignored; already in flight", slog.String("query", req.Query))
		return Ticket{}, err
	}
	s.log.Info("search submitted", slog.String("ticket", ticket.ID), slog.String("document", req.DocumentID))
	return ticket, nil
}

// RunSearch performs the network call for a ticket returned by BeginSearch.
func (s *Session) RunSearch(ctx context.Context, req rag.SearchRequest) (rag.SearchResult, error) {
	return s.querier.Search(ctx, req)
}

// CompleteSearch applies the outcome of a search. It reports false when the
// ticket is no longer the pending one and the outcome was discarded.
func (s *Session) CompleteSearch(ticket Ticket, result rag.SearchResult, err error) bool {
	if err != nil {
		if !s.tracker.Fail(ticket, err) {
			return false
		}
		s.log.Warn("search failed", slog.String("ticket", ticket.ID), slog.String("error", err.Error()))
		return true
	}
	if !s.tracker.Current(ticket) {
		return false
	}
	s.store.IngestSearch(result)
	s.selection.ClearSets(SetSingle)
	s.tracker.Succeed(ticket)
	s.log.Info("search succeeded", slog.String("ticket", ticket.ID), slog.Int("chunks", len(result.Chunks)))
	return true
}

// Search runs a full synchronous search cycle.
func (s *Session) Search(ctx context.Context, req rag.SearchRequest) (rag.SearchResult, error) {
	ticket, err := s.BeginSearch(req)
	if err != nil {
		return rag.SearchResult{}, err
	}
	result, err := s.RunSearch(ctx, req)
	s.CompleteSearch(ticket, result, err)
	if err != nil {
		return rag.SearchResult{}, err
	}
	return result, nil
}

// BeginCompare validates req and marks the compare operation pending.
func (s *Session) BeginCompare(req rag.CompareRequest) (Ticket, error) {
	if err := rag.ValidateCompare(req); err != nil {
		return Ticket{}, err
	}
	ticket, err := s.tracker.Submit(OpCompare)
	if err != nil {
		s.log.Debug("compare ignored; already in flight", slog.String("query", req.Query))
		return Ticket{}, err
	}
	s.log.Info("compare submitted",
		slog.String("ticket", ticket.ID),
		slog.String("document_a", req.DocumentA),
		slog.String("document_b", req.DocumentB))
	return ticket, nil
}

// RunCompare performs the network call for a ticket returned by BeginCompare.
func (s *Session) RunCompare(ctx context.Context, req rag.CompareRequest) (rag.ComparisonResult, error) {
	return s.querier.Compare(ctx, req)
}

// CompleteCompare applies the outcome of a comparison as a unit.
func (s *Session) CompleteCompare(ticket Ticket, result rag.ComparisonResult, err error) bool {
	if err != nil {
		if !s.tracker.Fail(ticket, err) {
			return false
		}
		s.log.Warn("compare failed", slog.String("ticket", ticket.ID), slog.String("error", err.Error()))
		return true
	}
	if !s.tracker.Current(ticket) {
		return false
	}
	s.store.IngestComparison(result)
	s.selection.ClearSets(SetComparisonA, SetComparisonB)
	s.tracker.Succeed(ticket)
	s.log.Info("compare succeeded",
		slog.String("ticket", ticket.ID),
		slog.Int("chunks_a", len(result.ChunksA)),
		slog.Int("chunks_b", len(result.ChunksB)))
	return true
}

// Compare runs a full synchronous comparison cycle.
func (s *Session) Compare(ctx context.Context, req rag.CompareRequest) (rag.ComparisonResult, error) {
	ticket, err := s.BeginCompare(req)
	if err != nil {
		return rag.ComparisonResult{}, err
	}
	result, err := s.RunCompare(ctx, req)
	s.CompleteCompare(ticket, result, err)
	if err != nil {
		return rag.ComparisonResult{}, err
	}
	return result, nil
}

// ToggleChunk flips the expansion of key, ignoring keys that point at no
// stored chunk. It reports whether key is now expanded.
func (s *Session) ToggleChunk(key SelectionKey) bool {
	if _, ok := s.store.Chunk(key); !ok {
		return false
	}
	return s.selection.Toggle(key)
}
