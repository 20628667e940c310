package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/chartkeep/internal/audit"
	"github.com/roach88/chartkeep/internal/clock"
	"github.com/roach88/chartkeep/internal/doc"
	"github.com/roach88/chartkeep/internal/kv"
)

// AuditSection is the section name used for audit entries about the record
// itself.
const AuditSection = "patient"

// ErrMissingID is returned when saving a record without an id.
var ErrMissingID = errors.New("patient: record id is required")

// Store reads and writes patient records.
type Store struct {
	docs  *doc.Store
	log   *audit.Log
	clock clock.Clock
}

// NewStore creates a patient store that audits through log.
func NewStore(docs *doc.Store, log *audit.Log, c clock.Clock) *Store {
	return &Store{docs: docs, log: log, clock: c}
}

// Get returns the record for id, or nil when none exists.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	found, err := s.docs.Get(ctx, doc.PatientKey(id), &rec)
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// All returns every record in key order. Never nil.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	keys, err := s.docs.Keys(ctx, doc.Prefix(doc.KindPatient))
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		var rec Record
		found, err := s.docs.Get(ctx, key, &rec)
		if err != nil {
			return nil, fmt.Errorf("list patients: %w", err)
		}
		if found {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Save upserts rec and appends an audit entry for action by actorID. It
// stamps UpdatedAt, and CreatedAt when unset, and returns the stored record.
func (s *Store) Save(ctx context.Context, rec Record, action, actorID string) (Record, error) {
	stamped, ops, err := s.SaveOps(rec, action, actorID)
	if err != nil {
		return Record{}, err
	}
	if err := s.docs.Commit(ctx, ops...); err != nil {
		return Record{}, fmt.Errorf("save patient %s: %w", rec.ID, err)
	}
	return stamped, nil
}

// SaveOps prepares the record write and its audit entry without committing.
func (s *Store) SaveOps(rec Record, action, actorID string) (Record, []kv.Op, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return Record{}, nil, ErrMissingID
	}

	now := s.clock.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	recOp, err := s.docs.Encode(doc.PatientKey(rec.ID), rec)
	if err != nil {
		return Record{}, nil, fmt.Errorf("save patient %s: %w", rec.ID, err)
	}
	_, auditOp, err := s.log.Prepare(rec.ID, action, AuditSection, actorID, "", map[string]any{
		"name":   rec.Name,
		"status": rec.Status,
	})
	if err != nil {
		return Record{}, nil, fmt.Errorf("save patient %s: %w", rec.ID, err)
	}
	return rec, []kv.Op{recOp, auditOp}, nil
}

// PutOp prepares a record write with no audit entry. The caller is
// responsible for auditing the batch it belongs to.
func (s *Store) PutOp(rec Record) (kv.Op, error) {
	return s.docs.Encode(doc.PatientKey(rec.ID), rec)
}
