// Package reconcile undoes an appointment claim when a live session ends
// before any clinical documentation was started.
//
// The procedure reads the appointment, its visit and the patient record,
// decides, and then writes every compensating change in one batch with no
// re-read in between. Nothing guards against a concurrent writer touching
// the same keys between the read and the batch; the batch wins.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/roach88/chartkeep/internal/audit"
	"github.com/roach88/chartkeep/internal/clock"
	"github.com/roach88/chartkeep/internal/doc"
	"github.com/roach88/chartkeep/internal/kv"
	"github.com/roach88/chartkeep/internal/patient"
	"github.com/roach88/chartkeep/internal/section"
)

// Section names read and written by the reconciler.
const (
	SectionAppointments = "appointments"
	SectionVisits       = "visits"
)

// VisitStatusDraft is the status a visit returns to on rollback.
const VisitStatusDraft = "Draft"

// CallMetadata identifies the session that ended.
type CallMetadata struct {
	PatientID     string `json:"patientId"`
	AppointmentID string `json:"appointmentId"`
	VisitID       string `json:"visitId,omitempty"`
	DoctorID      string `json:"doctorId"`
}

// Decision is what Reconcile did.
type Decision string

const (
	DecisionRolledBack Decision = "rolled_back"
	DecisionSkipped    Decision = "skipped"
	DecisionFailed     Decision = "failed"
)

// Reasons attached to skipped outcomes.
const (
	ReasonMissingMetadata      = "missing_metadata"
	ReasonAppointmentNotFound  = "appointment_not_found"
	ReasonNotClaimed           = "not_claimed"
	ReasonClaimedByOther       = "claimed_by_other"
	ReasonDocumentationStarted = "documentation_started"
)

// Outcome reports a reconciliation.
type Outcome struct {
	Decision      Decision `json:"decision"`
	Reason        string   `json:"reason,omitempty"`
	AppointmentID string   `json:"appointmentId,omitempty"`
	VisitID       string   `json:"visitId,omitempty"`
}

func skipped(reason, appointmentID, visitID string) Outcome {
	return Outcome{Decision: DecisionSkipped, Reason: reason, AppointmentID: appointmentID, VisitID: visitID}
}

// Reconciler runs the call-end rollback.
type Reconciler struct {
	docs     *doc.Store
	sections *section.Store
	patients *patient.Store
	log      *audit.Log
	clock    clock.Clock
	logger   zerolog.Logger
}

// New creates a Reconciler.
func New(docs *doc.Store, sections *section.Store, patients *patient.Store, log *audit.Log, c clock.Clock, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		docs:     docs,
		sections: sections,
		patients: patients,
		log:      log,
		clock:    c,
		logger:   logger.With().Str("component", "reconciler").Logger(),
	}
}

// EndCall reconciles and never fails: errors and panics are logged and
// reported as a failed Outcome so call teardown always completes.
func (r *Reconciler) EndCall(ctx context.Context, meta CallMetadata) (out Outcome) {
	logger := r.logger.With().
		Str("patient_id", meta.PatientID).
		Str("appointment_id", meta.AppointmentID).
		Str("visit_id", meta.VisitID).
		Str("doctor_id", meta.DoctorID).
		Logger()

	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Msg("call-end reconciliation panicked")
			out = Outcome{Decision: DecisionFailed, Reason: fmt.Sprint(p), AppointmentID: meta.AppointmentID}
		}
	}()

	out, err := r.Reconcile(ctx, meta)
	if err != nil {
		logger.Error().Err(err).Msg("call-end reconciliation failed")
		return Outcome{Decision: DecisionFailed, Reason: err.Error(), AppointmentID: meta.AppointmentID}
	}

	logger.Info().
		Str("decision", string(out.Decision)).
		Str("reason", out.Reason).
		Msg("call-end reconciliation")
	return out
}

// Reconcile decides whether the claim on meta's appointment should be
// rolled back and, if so, applies the rollback.
func (r *Reconciler) Reconcile(ctx context.Context, meta CallMetadata) (Outcome, error) {
	if meta.PatientID == "" || meta.AppointmentID == "" || meta.DoctorID == "" {
		return skipped(ReasonMissingMetadata, meta.AppointmentID, ""), nil
	}

	appointments, err := r.sections.GetList(ctx, meta.PatientID, SectionAppointments)
	if err != nil {
		return Outcome{}, fmt.Errorf("read appointments: %w", err)
	}
	apptIdx := indexByID(appointments, meta.AppointmentID)
	if apptIdx < 0 {
		return skipped(ReasonAppointmentNotFound, meta.AppointmentID, ""), nil
	}
	appt := appointments[apptIdx]

	if !appt.IsSet("claimConfirmedAt") || appt.String("doctorId") == "" {
		return skipped(ReasonNotClaimed, meta.AppointmentID, ""), nil
	}
	if appt.String("doctorId") != meta.DoctorID {
		return skipped(ReasonClaimedByOther, meta.AppointmentID, ""), nil
	}

	visits, err := r.sections.GetList(ctx, meta.PatientID, SectionVisits)
	if err != nil {
		return Outcome{}, fmt.Errorf("read visits: %w", err)
	}
	visitIdx := matchVisit(visits, meta.VisitID, meta.AppointmentID)
	visitID := ""
	if visitIdx >= 0 {
		visitID = visits[visitIdx].ID()
		if DocumentationStarted(visits[visitIdx]) {
			return skipped(ReasonDocumentationStarted, meta.AppointmentID, visitID), nil
		}
	}

	rec, err := r.patients.Get(ctx, meta.PatientID)
	if err != nil {
		return Outcome{}, fmt.Errorf("read patient: %w", err)
	}

	ops, err := r.rollbackOps(meta, appointments, apptIdx, visits, visitIdx, rec)
	if err != nil {
		return Outcome{}, err
	}
	if err := r.docs.Commit(ctx, ops...); err != nil {
		return Outcome{}, fmt.Errorf("apply rollback: %w", err)
	}

	return Outcome{Decision: DecisionRolledBack, AppointmentID: meta.AppointmentID, VisitID: visitID}, nil
}

func (r *Reconciler) rollbackOps(
	meta CallMetadata,
	appointments []section.Item, apptIdx int,
	visits []section.Item, visitIdx int,
	rec *patient.Record,
) ([]kv.Op, error) {
	now := r.clock.Now()
	waiting := appointments[apptIdx].String("waitingStatus")
	if waiting == "" {
		waiting = patient.StatusWaiting
	}

	newAppointments := make([]section.Item, len(appointments))
	copy(newAppointments, appointments)
	newAppointments[apptIdx] = releaseClaim(appointments[apptIdx], waiting, now)

	newVisits := make([]section.Item, len(visits))
	copy(newVisits, visits)
	visitID := ""
	if visitIdx >= 0 {
		v := visits[visitIdx].Clone()
		v["status"] = VisitStatusDraft
		newVisits[visitIdx] = v
		visitID = v.ID()
	}

	var ops []kv.Op
	apptOps, err := r.sections.ListOps(meta.PatientID, SectionAppointments, newAppointments, "")
	if err != nil {
		return nil, fmt.Errorf("rewrite appointments: %w", err)
	}
	ops = append(ops, apptOps...)

	visitOps, err := r.sections.ListOps(meta.PatientID, SectionVisits, newVisits, "")
	if err != nil {
		return nil, fmt.Errorf("rewrite visits: %w", err)
	}
	ops = append(ops, visitOps...)

	if rec != nil {
		updated := *rec
		updated.ReturnToWaitingPool(waiting, now)
		recOp, err := r.patients.PutOp(updated)
		if err != nil {
			return nil, fmt.Errorf("rewrite patient: %w", err)
		}
		ops = append(ops, recOp)
	}

	_, auditOp, err := r.log.Prepare(meta.PatientID, audit.ActionRollback, SectionAppointments, meta.DoctorID, "", map[string]any{
		"appointmentId": meta.AppointmentID,
		"visitId":       visitID,
		"status":        waiting,
	})
	if err != nil {
		return nil, fmt.Errorf("audit rollback: %w", err)
	}
	return append(ops, auditOp), nil
}

// releaseClaim returns a copy of appt back in the waiting pool.
func releaseClaim(appt section.Item, waiting string, now time.Time) section.Item {
	out := appt.Clone()
	out["status"] = waiting
	out["claimConfirmedAt"] = ""
	out["claimConfirmedBy"] = ""
	out["claimConfirmedById"] = ""
	out["doctorId"] = ""
	out["doctorName"] = patient.WaitingPool
	out["doctorDisplayName"] = patient.WaitingPool
	out["doctorEmail"] = ""
	out["updatedAt"] = now.Format(time.RFC3339Nano)
	return out
}

// DocumentationStarted reports whether clinical work on visit has begun:
// documentationStartedAt is set or the status is in progress or completed.
func DocumentationStarted(visit section.Item) bool {
	if visit.IsSet("documentationStartedAt") {
		return true
	}
	switch cases.Fold().String(strings.TrimSpace(visit.String("status"))) {
	case "in progress", "completed":
		return true
	}
	return false
}

// matchVisit prefers the visit whose id is visitID, then the first visit
// whose appointmentId is appointmentID. It returns -1 when neither exists.
func matchVisit(visits []section.Item, visitID, appointmentID string) int {
	if visitID != "" {
		if i := indexByID(visits, visitID); i >= 0 {
			return i
		}
	}
	for i, v := range visits {
		if v.String("appointmentId") == appointmentID {
			return i
		}
	}
	return -1
}

func indexByID(items []section.Item, id string) int {
	for i, it := range items {
		if it.ID() == id {
			return i
		}
	}
	return -1
}
