// Package ledger accumulates the log, warnings and errors of one pipeline run
// and persists them incrementally so the UI can poll progress.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/timmy/culturemap/internal/logger"
)

// Entries is the persisted part of a run ledger.
type Entries struct {
	Log      []string `json:"log"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

func (e Entries) clone() Entries {
	return Entries{
		Log:      append([]string(nil), e.Log...),
		Warnings: append([]string(nil), e.Warnings...),
		Errors:   append([]string(nil), e.Errors...),
	}
}

// Sink persists the full entries of the record identified by id.
type Sink interface {
	SaveEntries(ctx context.Context, id string, entries Entries) error
}

// RunContext is threaded through every pipeline step of a single run.
// Appends are only visible to pollers after Flush.
type RunContext struct {
	mu      sync.Mutex
	id      string
	sink    Sink
	log     *logger.Logger
	entries Entries
	dirty   bool
}

// NewRunContext creates a run ledger for record id, continuing from seed.
func NewRunContext(id string, sink Sink, seed Entries, log *logger.Logger) *RunContext {
	if log == nil {
		log = logger.GetDefault()
	}
	return &RunContext{
		id:      id,
		sink:    sink,
		log:     log,
		entries: seed.clone(),
	}
}

// ID returns the record the ledger belongs to.
func (r *RunContext) ID() string {
	return r.id
}

// Logf appends an informational line.
func (r *RunContext) Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.log.Info(msg)
	r.append(&r.entries.Log, msg)
}

// Warnf appends a line that needs human review.
func (r *RunContext) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.log.Warn(msg)
	r.append(&r.entries.Warnings, msg)
}

// Errorf appends a line for a failed unit of work.
func (r *RunContext) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.log.Error(msg)
	r.append(&r.entries.Errors, msg)
}

func (r *RunContext) append(dst *[]string, msg string) {
	r.mu.Lock()
	*dst = append(*dst, msg)
	r.dirty = true
	r.mu.Unlock()
}

// HasErrors reports whether any error was recorded.
func (r *RunContext) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries.Errors) > 0
}

// Snapshot returns a copy of the accumulated entries.
func (r *RunContext) Snapshot() Entries {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.clone()
}

// Flush writes the entries through the sink if anything changed since the last flush.
func (r *RunContext) Flush(ctx context.Context) error {
	r.mu.Lock()
	if !r.dirty {
		r.mu.Unlock()
		return nil
	}
	snapshot := r.entries.clone()
	r.dirty = false
	r.mu.Unlock()

	if r.sink == nil {
		return nil
	}
	if err := r.sink.SaveEntries(ctx, r.id, snapshot); err != nil {
		r.mu.Lock()
		r.dirty = true
		r.mu.Unlock()
		return fmt.Errorf("failed to flush ledger %s: %w", r.id, err)
	}
	return nil
}
