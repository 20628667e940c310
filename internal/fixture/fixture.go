// Package fixture loads seed data for a chart store from YAML.
//
// A seed file looks like:
//
//	name: morning clinic
//	actor: seed
//	patients:
//	  - id: p1
//	    name: Ada Lovelace
//	    status: waiting
//	    lists:
//	      appointments:
//	        - { id: a1, status: waiting, time: "09:30" }
//	    documents:
//	      intake:
//	        status: reviewed
//	        data: { chiefComplaint: cough }
//	    drafts:
//	      soap: { notes: "bp stable" }
//
// Unknown fields are rejected so typos fail loudly.
package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chartkeep/internal/audit"
	"github.com/roach88/chartkeep/internal/draft"
	"github.com/roach88/chartkeep/internal/patient"
	"github.com/roach88/chartkeep/internal/section"
)

// ErrInvalid marks a seed file that parsed but cannot be applied.
var ErrInvalid = errors.New("invalid seed")

// Seed is one fixture file.
type Seed struct {
	Name string `yaml:"name"`

	// Actor is recorded on the audit entries the seed writes. Empty means
	// the target's current user.
	Actor string `yaml:"actor,omitempty"`

	Patients []Patient `yaml:"patients"`
}

// Patient is a record plus the sections and drafts stored under it.
type Patient struct {
	patient.Record `yaml:",inline"`

	Lists     map[string][]map[string]any `yaml:"lists,omitempty"`
	Documents map[string]Document         `yaml:"documents,omitempty"`
	Drafts    map[string]map[string]any   `yaml:"drafts,omitempty"`
}

// Document seeds a document section.
type Document struct {
	Status string         `yaml:"status,omitempty"`
	Data   map[string]any `yaml:"data"`
}

// Target is what a seed is applied to; *chart.Manager satisfies it.
type Target interface {
	SavePatient(ctx context.Context, rec patient.Record, action, actorID string) (patient.Record, error)
	SavePatientSectionList(ctx context.Context, patientID, name string, items []section.Item, actorID string) error
	UpdatePatientSection(ctx context.Context, patientID, name string, patch section.Patch) (section.Document, error)
	SaveDraft(ctx context.Context, patientID, formKey string, data map[string]any) (draft.Draft, error)
}

// Summary counts what Apply wrote.
type Summary struct {
	Patients  int `json:"patients"`
	Lists     int `json:"lists"`
	Documents int `json:"documents"`
	Drafts    int `json:"drafts"`
}

// Load reads and parses a seed file.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed with strict field checking and validates it.
func Parse(data []byte) (*Seed, error) {
	var seed Seed
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *Seed) validate() error {
	if len(s.Patients) == 0 {
		return fmt.Errorf("%w: patients list is required and must be non-empty", ErrInvalid)
	}
	seen := make(map[string]int, len(s.Patients))
	for i, p := range s.Patients {
		if p.ID == "" {
			return fmt.Errorf("%w: patients[%d]: id is required", ErrInvalid, i)
		}
		if prev, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: patient %q appears at %d and %d", ErrInvalid, p.ID, prev, i)
		}
		seen[p.ID] = i
	}
	return nil
}

// Apply writes every patient, then its lists, documents and drafts in name
// order. It stops at the first error; earlier writes are kept.
func (s *Seed) Apply(ctx context.Context, target Target) (Summary, error) {
	var sum Summary
	for _, p := range s.Patients {
		if _, err := target.SavePatient(ctx, p.Record, audit.ActionCreate, s.Actor); err != nil {
			return sum, fmt.Errorf("seed patient %s: %w", p.ID, err)
		}
		sum.Patients++

		for _, name := range sortedKeys(p.Lists) {
			items := make([]section.Item, len(p.Lists[name]))
			for i, it := range p.Lists[name] {
				items[i] = section.Item(it)
			}
			if err := target.SavePatientSectionList(ctx, p.ID, name, items, ""); err != nil {
				return sum, fmt.Errorf("seed patient %s: %w", p.ID, err)
			}
			sum.Lists++
		}

		for _, name := range sortedKeys(p.Documents) {
			d := p.Documents[name]
			patch := section.Patch{Data: d.Data}
			if d.Status != "" {
				patch.Status = &d.Status
			}
			if _, err := target.UpdatePatientSection(ctx, p.ID, name, patch); err != nil {
				return sum, fmt.Errorf("seed patient %s: %w", p.ID, err)
			}
			sum.Documents++
		}

		for _, key := range sortedKeys(p.Drafts) {
			if _, err := target.SaveDraft(ctx, p.ID, key, p.Drafts[key]); err != nil {
				return sum, fmt.Errorf("seed patient %s: %w", p.ID, err)
			}
			sum.Drafts++
		}
	}
	return sum, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
