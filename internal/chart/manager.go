// Package chart is the function surface page components call: one Manager
// wiring the patient, section, draft and audit stores and the call-end
// reconciler over a single key-value store.
package chart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/chartkeep/internal/audit"
	"github.com/roach88/chartkeep/internal/clock"
	"github.com/roach88/chartkeep/internal/doc"
	"github.com/roach88/chartkeep/internal/draft"
	"github.com/roach88/chartkeep/internal/kv"
	"github.com/roach88/chartkeep/internal/patient"
	"github.com/roach88/chartkeep/internal/reconcile"
	"github.com/roach88/chartkeep/internal/schema"
	"github.com/roach88/chartkeep/internal/section"
)

// Manager is the patient data manager.
//
// Thread-safety: safe for concurrent use. List sections are replaced
// wholesale, so concurrent read-modify-write callers can lose updates.
type Manager struct {
	docs       *doc.Store
	log        *audit.Log
	patients   *patient.Store
	sections   *section.Store
	drafts     *draft.Store
	autosave   *draft.Autosaver
	reconciler *reconcile.Reconciler
	logger     zerolog.Logger
}

type options struct {
	clock    clock.Clock
	ids      audit.IDGenerator
	registry *schema.Registry
	quiet    time.Duration
	logger   zerolog.Logger
}

// Option configures a Manager.
type Option func(*options)

// WithClock sets the clock for timestamps and autosave timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator sets the audit entry id generator.
func WithIDGenerator(g audit.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithRegistry sets the section declarations. Default: schema.Default().
func WithRegistry(r *schema.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithQuietPeriod sets the autosave debounce interval.
//
// Default: 400ms (draft.DefaultQuietPeriod)
func WithQuietPeriod(d time.Duration) Option {
	return func(o *options) { o.quiet = d }
}

// WithLogger sets the logger. Default: zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a Manager over store. The Manager owns store and closes it in
// Close. Autosave timers run their writes with ctx.
func New(ctx context.Context, store kv.Store, opts ...Option) *Manager {
	o := options{
		clock:  clock.Real(),
		ids:    audit.UUIDv7Generator{},
		quiet:  draft.DefaultQuietPeriod,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = schema.Default()
	}

	docs := doc.New(store)
	log := audit.New(docs, audit.WithClock(o.clock), audit.WithIDGenerator(o.ids))
	patients := patient.NewStore(docs, log, o.clock)
	sections := section.NewStore(docs, log, o.registry, o.clock)
	drafts := draft.NewStore(docs, o.clock)

	return &Manager{
		docs:       docs,
		log:        log,
		patients:   patients,
		sections:   sections,
		drafts:     drafts,
		autosave:   draft.NewAutosaver(ctx, drafts, o.clock, o.quiet, o.logger),
		reconciler: reconcile.New(docs, sections, patients, log, o.clock, o.logger),
		logger:     o.logger.With().Str("component", "chart").Logger(),
	}
}

// GetPatient returns the record for id, or nil when there is none.
func (m *Manager) GetPatient(ctx context.Context, id string) (*patient.Record, error) {
	return m.patients.Get(ctx, id)
}

// GetAllPatients returns every record ordered by id key. Never nil.
func (m *Manager) GetAllPatients(ctx context.Context) ([]patient.Record, error) {
	return m.patients.All(ctx)
}

// SavePatient upserts rec and audits action by actorID. An empty actorID
// attributes the entry to the current user.
func (m *Manager) SavePatient(ctx context.Context, rec patient.Record, action, actorID string) (patient.Record, error) {
	return m.patients.Save(ctx, rec, action, actorID)
}

// GetPatientSectionList returns a list section, [] when never written.
func (m *Manager) GetPatientSectionList(ctx context.Context, patientID, name string) ([]section.Item, error) {
	return m.sections.GetList(ctx, patientID, name)
}

// SavePatientSectionList replaces a list section. A non-empty actorID also
// appends an update entry to the audit log in the same batch.
func (m *Manager) SavePatientSectionList(ctx context.Context, patientID, name string, items []section.Item, actorID string) error {
	return m.sections.SaveList(ctx, patientID, name, items, actorID)
}

// GetPatientSection returns a document section, or nil when never written.
func (m *Manager) GetPatientSection(ctx context.Context, patientID, name string) (*section.Document, error) {
	return m.sections.GetDocument(ctx, patientID, name)
}

// UpdatePatientSection merges patch into a document section.
func (m *Manager) UpdatePatientSection(ctx context.Context, patientID, name string, patch section.Patch) (section.Document, error) {
	return m.sections.UpdateDocument(ctx, patientID, name, patch)
}

// Sections lists the declared sections in name order.
func (m *Manager) Sections() []schema.Section {
	return m.sections.Registry().Sections()
}

// GetDraft returns the saved draft, or nil when there is none. Edits still
// waiting out the quiet period are not visible.
func (m *Manager) GetDraft(ctx context.Context, patientID, formKey string) (*draft.Draft, error) {
	return m.drafts.Get(ctx, patientID, formKey)
}

// SaveDraft writes a draft immediately, bypassing the debounce. A save still
// pending for the same form is cancelled so it cannot overwrite data later.
func (m *Manager) SaveDraft(ctx context.Context, patientID, formKey string, data map[string]any) (draft.Draft, error) {
	return m.autosave.Save(ctx, patientID, formKey, data)
}

// ScheduleDraft queues a debounced draft save; see draft.Autosaver.
func (m *Manager) ScheduleDraft(patientID, formKey string, data map[string]any) bool {
	return m.autosave.Schedule(patientID, formKey, data)
}

// ClearDraft cancels any pending save and removes the draft.
func (m *Manager) ClearDraft(ctx context.Context, patientID, formKey string) error {
	return m.autosave.Clear(ctx, patientID, formKey)
}

// FlushDrafts writes every pending autosave now.
func (m *Manager) FlushDrafts(ctx context.Context) error {
	return m.autosave.Flush(ctx)
}

// LogAction appends an audit entry. The patient need not exist.
func (m *Manager) LogAction(ctx context.Context, patientID, action, sectionName, actorID, actorLabel string, payload map[string]any) (audit.Entry, error) {
	return m.log.Append(ctx, patientID, action, sectionName, actorID, actorLabel, payload)
}

// AuditTrail returns a patient's audit entries, newest first.
func (m *Manager) AuditTrail(ctx context.Context, patientID string) ([]audit.Entry, error) {
	return m.log.List(ctx, patientID)
}

// SetCurrentUser sets the actor attributed to subsequent audit entries that
// name none.
func (m *Manager) SetCurrentUser(u audit.User) {
	m.log.SetCurrentUser(u)
	m.logger.Debug().Str("actor_id", u.ID).Msg("current user set")
}

// CurrentUser returns the actor set by SetCurrentUser.
func (m *Manager) CurrentUser() audit.User {
	return m.log.CurrentUser()
}

// EndCall runs call-end reconciliation. It never fails; see
// reconcile.Reconciler.EndCall.
func (m *Manager) EndCall(ctx context.Context, meta reconcile.CallMetadata) reconcile.Outcome {
	return m.reconciler.EndCall(ctx, meta)
}

// Close stops the autosaver, writes the saves still pending and closes the
// store. Flush errors are returned alongside any close error.
func (m *Manager) Close(ctx context.Context) error {
	flushErr := m.autosave.Close(ctx)
	if err := m.docs.Close(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("close store: %w", err))
	}
	return flushErr
}
