package session

import (
	"fmt"
	"sync"
)

// ResultSet tags the chunk list a SelectionKey points into.
type ResultSet int

const (
	SetSingle ResultSet = iota + 1
	SetComparisonA
	SetComparisonB
)

func (s ResultSet) String() string {
	switch s {
	case SetSingle:
		return "single"
	case SetComparisonA:
		return "comparisonA"
	case SetComparisonB:
		return "comparisonB"
	default:
		return fmt.Sprintf("ResultSet(%d)", int(s))
	}
}

// SideLabel is the user-facing tag for comparison sides.
func (s ResultSet) SideLabel() string {
	switch s {
	case SetComparisonA:
		return "PDF 1"
	case SetComparisonB:
		return "PDF 2"
	default:
		return ""
	}
}

// SelectionKey identifies one chunk across the single and comparison results.
type SelectionKey struct {
	Set   ResultSet
	Index int
}

func (k SelectionKey) String() string {
	return fmt.Sprintf("%s-%d", k.Set, k.Index)
}

// Selection tracks the single expanded chunk. The cleared state is explicit
// and independent of any index value.
type Selection struct {
	mu       sync.RWMutex
	key      SelectionKey
	expanded bool
}

// NewSelection returns a collapsed selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Toggle collapses key when it is the expanded one and expands it otherwise,
// replacing any previous expansion. It reports whether key is now expanded.
func (s *Selection) Toggle(key SelectionKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded && s.key == key {
		s.expanded = false
		s.key = SelectionKey{}
		return false
	}
	s.key = key
	s.expanded = true
	return true
}

// IsExpanded reports whether key is the expanded chunk.
func (s *Selection) IsExpanded(key SelectionKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded && s.key == key
}

// Expanded returns the expanded key, if any.
func (s *Selection) Expanded() (SelectionKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, s.expanded
}

// Clear collapses everything.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = SelectionKey{}
	s.expanded = false
}

// ClearSets collapses the expanded chunk only when it belongs to one of sets.
func (s *Selection) ClearSets(sets ...ResultSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.expanded {
		return
	}
	for _, set := range sets {
		if s.key.Set == set {
			s.key = SelectionKey{}
			s.expanded = false
			return
		}
	}
}
