package draft

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/chartkeep/internal/clock"
)

// DefaultQuietPeriod is how long a form must sit unedited before its draft
// is written.
const DefaultQuietPeriod = 400 * time.Millisecond

type formRef struct {
	patientID string
	formKey   string
}

type pendingSave struct {
	timer clock.Timer
	data  map[string]any
}

// Autosaver debounces draft writes per (patient, form key): each Schedule
// cancels the pending save for that pair and arms a new one, so a burst of
// edits produces exactly one write carrying the last value.
//
// Every write to the store goes through writeMu, so a save the timer has
// already taken cannot land after a later Save or Clear of the same form.
// Lock order is writeMu before mu.
//
// Thread-safety: all methods are safe for concurrent use.
type Autosaver struct {
	store  *Store
	clock  clock.Clock
	quiet  time.Duration
	ctx    context.Context
	logger zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[formRef]*pendingSave
	stopped bool
}

// NewAutosaver creates an autosaver writing to store. Saves fired by the
// timer run with ctx. A non-positive quiet uses DefaultQuietPeriod.
func NewAutosaver(ctx context.Context, store *Store, c clock.Clock, quiet time.Duration, logger zerolog.Logger) *Autosaver {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Autosaver{
		store:   store,
		clock:   c,
		quiet:   quiet,
		ctx:     ctx,
		logger:  logger.With().Str("component", "autosave").Logger(),
		pending: make(map[formRef]*pendingSave),
	}
}

// QuietPeriod returns the debounce interval.
func (a *Autosaver) QuietPeriod() time.Duration {
	return a.quiet
}

// Schedule arms a save of data after the quiet period, replacing any save
// still pending for the same form. It reports false after Stop.
func (a *Autosaver) Schedule(patientID, formKey string, data map[string]any) bool {
	ref := formRef{patientID: patientID, formKey: formKey}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return false
	}
	if prev, ok := a.pending[ref]; ok {
		prev.timer.Stop()
	}

	p := &pendingSave{data: data}
	p.timer = a.clock.AfterFunc(a.quiet, func() { a.fire(ref, p) })
	a.pending[ref] = p
	return true
}

// Cancel drops the pending save for a form, if any. A save whose timer has
// already fired is not affected; use Save or Clear to supersede it.
func (a *Autosaver) Cancel(patientID, formKey string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelLocked(formRef{patientID: patientID, formKey: formKey})
}

// Save writes data immediately and drops any pending save for the form, so
// an older debounced value cannot overwrite it.
func (a *Autosaver) Save(ctx context.Context, patientID, formKey string, data map[string]any) (Draft, error) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	a.Cancel(patientID, formKey)
	return a.store.Save(ctx, patientID, formKey, data)
}

// Clear cancels any pending save and removes the stored draft, so a save
// armed or already firing before the clear cannot resurrect it.
func (a *Autosaver) Clear(ctx context.Context, patientID, formKey string) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	a.Cancel(patientID, formKey)
	return a.store.Clear(ctx, patientID, formKey)
}

// Pending reports how many forms have a save armed.
func (a *Autosaver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Flush writes every pending save immediately. The first error is returned
// after all saves have been attempted.
func (a *Autosaver) Flush(ctx context.Context) error {
	return a.drain(ctx, false)
}

// Close rejects further scheduling and writes every save still pending.
// Nothing scheduled before Close returns is lost.
func (a *Autosaver) Close(ctx context.Context) error {
	return a.drain(ctx, true)
}

// Stop cancels every pending save and rejects further scheduling.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for ref := range a.pending {
		a.cancelLocked(ref)
	}
}

func (a *Autosaver) drain(ctx context.Context, stop bool) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	if stop {
		a.stopped = true
	}
	due := a.pending
	a.pending = make(map[formRef]*pendingSave)
	for _, p := range due {
		p.timer.Stop()
	}
	a.mu.Unlock()

	var firstErr error
	for ref, p := range due {
		if _, err := a.store.Save(ctx, ref.patientID, ref.formKey, p.data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *Autosaver) cancelLocked(ref formRef) bool {
	p, ok := a.pending[ref]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(a.pending, ref)
	return true
}

func (a *Autosaver) fire(ref formRef, p *pendingSave) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	// Superseded while waiting for writeMu.
	if a.pending[ref] != p {
		a.mu.Unlock()
		return
	}
	delete(a.pending, ref)
	a.mu.Unlock()

	if _, err := a.store.Save(a.ctx, ref.patientID, ref.formKey, p.data); err != nil {
		a.logger.Error().Err(err).
			Str("patient_id", ref.patientID).
			Str("form_key", ref.formKey).
			Msg("autosave failed")
	}
}
