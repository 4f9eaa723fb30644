package tui

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type jobKind string

type jobStatus string

const (
	jobKindSearch     jobKind = "search"
	jobKindCompare    jobKind = "compare"
	jobKindSummaries  jobKind = "summaries"
	jobKindPage       jobKind = "page"
	jobKindTranscript jobKind = "transcript"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

type jobBus struct {
	counter int64
	log     *slog.Logger
}

func newJobBus(logger *slog.Logger) *jobBus {
	return &jobBus{log: logger}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	started := time.Now()
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}

	runCmd := func() tea.Msg {
		payload, err := runner(context.Background())
		return b.finish(startSnapshot, payload, err)
	}

	return tea.Sequence(startCmd, runCmd)
}

func (b *jobBus) finish(start jobSnapshot, payload tea.Msg, err error) jobResultEnvelope {
	snapshot := start
	snapshot.CompletedAt = time.Now()
	snapshot.Duration = snapshot.CompletedAt.Sub(start.StartedAt)
	if err != nil {
		snapshot.Status = jobStatusFailed
		snapshot.Err = err.Error()
		b.log.Warn("job failed", slog.String("job", snapshot.ID), slog.Duration("duration", snapshot.Duration), slog.String("error", snapshot.Err))
	} else {
		snapshot.Status = jobStatusSucceeded
		b.log.Debug("job finished", slog.String("job", snapshot.ID), slog.Duration("duration", snapshot.Duration))
	}
	return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
}
