// Package section stores the named, patient-scoped sections of a chart.
//
// List sections (allergies, vitals, appointments, ...) are replaced
// wholesale: there is no append or diff primitive, so adding one item is a
// read-modify-write in the caller, and two writers interleaving that cycle
// lose one update. Document sections (intake, ...) are patched shallowly.
// Which shape a name has is fixed by the schema registry.
package section

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/chartkeep/internal/audit"
	"github.com/roach88/chartkeep/internal/clock"
	"github.com/roach88/chartkeep/internal/doc"
	"github.com/roach88/chartkeep/internal/kv"
	"github.com/roach88/chartkeep/internal/schema"
)

var (
	// ErrUnknownSection is returned for names absent from the registry.
	ErrUnknownSection = errors.New("section: unknown section")

	// ErrShape is returned when a list operation targets a document
	// section or the other way round.
	ErrShape = errors.New("section: wrong shape for section")

	// ErrItemID is returned when a list item has no id.
	ErrItemID = errors.New("section: item has no id")

	// ErrDuplicateID is returned when two list items share an id.
	ErrDuplicateID = errors.New("section: duplicate item id")
)

// Store reads and writes patient sections.
type Store struct {
	docs     *doc.Store
	log      *audit.Log
	registry *schema.Registry
	clock    clock.Clock
}

// NewStore creates a section store.
func NewStore(docs *doc.Store, log *audit.Log, registry *schema.Registry, c clock.Clock) *Store {
	return &Store{docs: docs, log: log, registry: registry, clock: c}
}

// Registry returns the section declarations the store enforces.
func (s *Store) Registry() *schema.Registry {
	return s.registry
}

// GetList returns the items of a list section in stored order. An untouched
// section yields an empty, non-nil slice.
func (s *Store) GetList(ctx context.Context, patientID, name string) ([]Item, error) {
	if err := s.expect(name, schema.ShapeList); err != nil {
		return nil, err
	}

	var items []Item
	if _, err := s.docs.GetExact(ctx, doc.SectionKey(patientID, name), &items); err != nil {
		return nil, fmt.Errorf("get %s for %s: %w", name, patientID, err)
	}
	if items == nil {
		items = []Item{}
	}
	for _, it := range items {
		restoreNumbers(map[string]any(it))
	}
	return items, nil
}

// SaveList replaces a list section with items, keeping their order. When
// actorID is non-empty one audit entry summarizing the replacement is
// written in the same batch.
func (s *Store) SaveList(ctx context.Context, patientID, name string, items []Item, actorID string) error {
	ops, err := s.ListOps(patientID, name, items, actorID)
	if err != nil {
		return err
	}
	if err := s.docs.Commit(ctx, ops...); err != nil {
		return fmt.Errorf("save %s for %s: %w", name, patientID, err)
	}
	return nil
}

// ListOps validates items and prepares the writes SaveList would commit.
func (s *Store) ListOps(patientID, name string, items []Item, actorID string) ([]kv.Op, error) {
	if err := s.expect(name, schema.ShapeList); err != nil {
		return nil, err
	}
	if err := validateIDs(items); err != nil {
		return nil, fmt.Errorf("save %s for %s: %w", name, patientID, err)
	}
	if items == nil {
		items = []Item{}
	}

	listOp, err := s.docs.Encode(doc.SectionKey(patientID, name), items)
	if err != nil {
		return nil, fmt.Errorf("save %s for %s: %w", name, patientID, err)
	}
	ops := []kv.Op{listOp}

	if actorID != "" {
		_, auditOp, err := s.log.Prepare(patientID, audit.ActionUpdate, name, actorID, "", map[string]any{
			"count": len(items),
		})
		if err != nil {
			return nil, fmt.Errorf("save %s for %s: %w", name, patientID, err)
		}
		ops = append(ops, auditOp)
	}
	return ops, nil
}

// GetDocument returns a document section, or nil when it was never written.
func (s *Store) GetDocument(ctx context.Context, patientID, name string) (*Document, error) {
	if err := s.expect(name, schema.ShapeDocument); err != nil {
		return nil, err
	}

	var d Document
	found, err := s.docs.Get(ctx, doc.SectionKey(patientID, name), &d)
	if err != nil {
		return nil, fmt.Errorf("get %s for %s: %w", name, patientID, err)
	}
	if !found {
		return nil, nil
	}
	return &d, nil
}

// UpdateDocument merges patch into a document section, creating it when
// absent, and stamps UpdatedAt.
func (s *Store) UpdateDocument(ctx context.Context, patientID, name string, patch Patch) (Document, error) {
	existing, err := s.GetDocument(ctx, patientID, name)
	if err != nil {
		return Document{}, err
	}

	var d Document
	if existing != nil {
		d = *existing
	}
	if patch.Data != nil {
		d.Data = patch.Data
	}
	if patch.Status != nil {
		d.Status = *patch.Status
	}
	if d.Data == nil {
		d.Data = map[string]any{}
	}
	d.UpdatedAt = s.clock.Now()

	if err := s.docs.Put(ctx, doc.SectionKey(patientID, name), d); err != nil {
		return Document{}, fmt.Errorf("update %s for %s: %w", name, patientID, err)
	}
	return d, nil
}

func (s *Store) expect(name string, shape schema.Shape) error {
	decl, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSection, name)
	}
	if decl.Shape != shape {
		return fmt.Errorf("%w: %q is a %s section", ErrShape, name, decl.Shape)
	}
	return nil
}

func validateIDs(items []Item) error {
	seen := make(map[string]int, len(items))
	for i, it := range items {
		id := it.ID()
		if id == "" {
			return fmt.Errorf("%w: item %d", ErrItemID, i)
		}
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q at items %d and %d", ErrDuplicateID, id, prev, i)
		}
		seen[id] = i
	}
	return nil
}
