// Package draft keeps transient, not-yet-submitted form state per
// (patient, form key). Drafts are never audited.
package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/chartkeep/internal/clock"
	"github.com/roach88/chartkeep/internal/doc"
)

// Draft is the autosaved state of one form.
type Draft struct {
	Data    map[string]any `json:"data"`
	SavedAt time.Time      `json:"savedAt"`
}

// Store reads and writes drafts.
type Store struct {
	docs  *doc.Store
	clock clock.Clock
}

// NewStore creates a draft store.
func NewStore(docs *doc.Store, c clock.Clock) *Store {
	return &Store{docs: docs, clock: c}
}

// Get returns the draft, or nil when none is saved.
func (s *Store) Get(ctx context.Context, patientID, formKey string) (*Draft, error) {
	var d Draft
	found, err := s.docs.Get(ctx, doc.DraftKey(patientID, formKey), &d)
	if err != nil {
		return nil, fmt.Errorf("get draft %s/%s: %w", patientID, formKey, err)
	}
	if !found {
		return nil, nil
	}
	return &d, nil
}

// Save overwrites the draft unconditionally and stamps SavedAt.
func (s *Store) Save(ctx context.Context, patientID, formKey string, data map[string]any) (Draft, error) {
	d := Draft{Data: data, SavedAt: s.clock.Now()}
	if d.Data == nil {
		d.Data = map[string]any{}
	}
	if err := s.docs.Put(ctx, doc.DraftKey(patientID, formKey), d); err != nil {
		return Draft{}, fmt.Errorf("save draft %s/%s: %w", patientID, formKey, err)
	}
	return d, nil
}

// Clear removes the draft. Clearing a missing draft is not an error.
func (s *Store) Clear(ctx context.Context, patientID, formKey string) error {
	if err := s.docs.Delete(ctx, doc.DraftKey(patientID, formKey)); err != nil {
		return fmt.Errorf("clear draft %s/%s: %w", patientID, formKey, err)
	}
	return nil
}
