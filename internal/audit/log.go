// Package audit keeps the append-only action history of each patient.
//
// Every entry is written under its own key (audit:<patient>:<entry id>), so
// appending never reads or rewrites an existing entry, and there is no update
// or delete path. The log does not interpret action or section values.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/chartkeep/internal/clock"
	"github.com/roach88/chartkeep/internal/doc"
	"github.com/roach88/chartkeep/internal/kv"
)

// Common action values. Callers may use any string.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionRollback = "rollback"
)

// Entry is one recorded action.
type Entry struct {
	ID         string         `json:"id"`
	PatientID  string         `json:"patientId"`
	Action     string         `json:"action"`
	Section    string         `json:"section"`
	ActorID    string         `json:"actorId"`
	ActorLabel string         `json:"actorLabel"`
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// User identifies the clinician on whose behalf entries are written.
type User struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Log appends and lists audit entries.
type Log struct {
	docs  *doc.Store
	clock clock.Clock
	ids   IDGenerator

	mu      sync.RWMutex
	current User
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the clock used for entry timestamps.
func WithClock(c clock.Clock) Option {
	return func(l *Log) { l.clock = c }
}

// WithIDGenerator sets the entry id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Log) { l.ids = g }
}

// New creates a Log over docs.
func New(docs *doc.Store, opts ...Option) *Log {
	l := &Log{
		docs:  docs,
		clock: clock.Real(),
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetCurrentUser sets the actor used for entries written without one.
func (l *Log) SetCurrentUser(u User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = u
}

// CurrentUser returns the actor set by SetCurrentUser.
func (l *Log) CurrentUser() User {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Append records one action. The patient does not have to exist.
func (l *Log) Append(ctx context.Context, patientID, action, section, actorID, actorLabel string, payload map[string]any) (Entry, error) {
	entry, op, err := l.Prepare(patientID, action, section, actorID, actorLabel, payload)
	if err != nil {
		return Entry{}, err
	}
	if err := l.docs.Commit(ctx, op); err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	return entry, nil
}

// Prepare builds an entry and its write without committing it, for callers
// that append in the same batch as the change being audited.
//
// An empty actorID falls back to the current user; an empty actorLabel falls
// back to the current user's label when the actor is the current user.
func (l *Log) Prepare(patientID, action, section, actorID, actorLabel string, payload map[string]any) (Entry, kv.Op, error) {
	current := l.CurrentUser()
	if actorID == "" {
		actorID = current.ID
	}
	if actorLabel == "" && actorID == current.ID {
		actorLabel = current.Label
	}

	entry := Entry{
		ID:         l.ids.Generate(),
		PatientID:  patientID,
		Action:     action,
		Section:    section,
		ActorID:    actorID,
		ActorLabel: actorLabel,
		Payload:    payload,
		Timestamp:  l.clock.Now(),
	}

	op, err := l.docs.Encode(doc.AuditKey(patientID, entry.ID), entry)
	if err != nil {
		return Entry{}, kv.Op{}, fmt.Errorf("encode audit entry: %w", err)
	}
	return entry, op, nil
}

// List returns a patient's entries, newest first. Never nil.
func (l *Log) List(ctx context.Context, patientID string) ([]Entry, error) {
	entries, err := l.ListOldestFirst(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// ListOldestFirst returns a patient's entries in insertion order. Never nil.
func (l *Log) ListOldestFirst(ctx context.Context, patientID string) ([]Entry, error) {
	keys, err := l.docs.Keys(ctx, doc.Prefix(doc.KindAudit, patientID))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		var e Entry
		found, err := l.docs.Get(ctx, key, &e)
		if err != nil {
			return nil, fmt.Errorf("list audit entries: %w", err)
		}
		if found {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
