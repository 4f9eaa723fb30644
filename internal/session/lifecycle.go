package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/csheth/docqa/internal/rag"
)

// Operation is a kind of backend request tracked independently of the others.
type Operation string

const (
	OpSearch  Operation = "search"
	OpCompare Operation = "compare"
)

// State is the lifecycle position of one operation kind.
type State int

const (
	StateIdle State = iota
	StatePending
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is a snapshot of one operation kind.
type Status struct {
	Op          Operation
	State       State
	Message     string
	TicketID    string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// Ticket identifies one submission. Outcomes are only applied for the ticket
// that is currently pending.
type Ticket struct {
	ID string
	Op Operation
}

// ErrAlreadyInFlight is returned by Submit while the operation is pending.
var ErrAlreadyInFlight = fmt.Errorf("session: %w", rag.ErrAlreadyInFlight)

// Tracker runs the Idle → Pending → Succeeded/Failed machine for each
// operation kind. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	statuses map[Operation]Status
	now      func() time.Time
}

// NewTracker returns a tracker with every operation idle.
func NewTracker() *Tracker {
	return &Tracker{statuses: map[Operation]Status{}, now: time.Now}
}

// Submit moves op to Pending. It fails with ErrAlreadyInFlight, leaving the
// state untouched, when op is already pending.
func (t *Tracker) Submit(op Operation) (Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.statuses[op]
	if current.State == StatePending {
		return Ticket{}, ErrAlreadyInFlight
	}
	ticket := Ticket{ID: fmt.Sprintf("%s-%s", op, uuid.NewString()), Op: op}
	t.statuses[op] = Status{
		Op:        op,
		State:     StatePending,
		TicketID:  ticket.ID,
		StartedAt: t.now(),
	}
	return ticket, nil
}

// Succeed records a successful outcome for ticket.
func (t *Tracker) Succeed(ticket Ticket) bool {
	return t.finish(ticket, StateSucceeded, "")
}

// Fail records a failed outcome for ticket.
func (t *Tracker) Fail(ticket Ticket, err error) bool {
	message := "request failed"
	if err != nil {
		message = rag.Message(err)
	}
	return t.finish(ticket, StateFailed, message)
}

func (t *Tracker) finish(ticket Ticket, state State, message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.statuses[ticket.Op]
	if current.State != StatePending || current.TicketID != ticket.ID {
		return false
	}
	completed := t.now()
	current.State = state
	current.Message = message
	current.CompletedAt = completed
	current.Duration = completed.Sub(current.StartedAt)
	t.statuses[ticket.Op] = current
	return true
}

// Current reports whether ticket is the pending one for its operation.
func (t *Tracker) Current(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.statuses[ticket.Op]
	return current.State == StatePending && current.TicketID == ticket.ID
}

// Status returns the snapshot for op.
func (t *Tracker) Status(op Operation) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	status := t.statuses[op]
	status.Op = op
	return status
}

// Pending reports whether op has a request in flight.
func (t *Tracker) Pending(op Operation) bool {
	return t.Status(op).State == StatePending
}

// AnyPending reports whether any operation has a request in flight.
func (t *Tracker) AnyPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, status := range t.statuses {
		if status.State == StatePending {
			return true
		}
	}
	return false
}
