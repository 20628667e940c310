// Package patient stores one PatientRecord per patient id.
//
// Records are upserted wholesale (last writer wins). Every save appends one
// audit entry in the same batch as the record write.
package patient

import "time"

// Waiting-pool values shared by the queue and the reconciler.
const (
	WaitingPool   = "Waiting Pool"
	StatusWaiting = "waiting"
)

// Record is the patient's demographic, clinical summary and workflow state.
type Record struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	DOB              string `json:"dob,omitempty" yaml:"dob,omitempty"`
	Gender           string `json:"gender,omitempty" yaml:"gender,omitempty"`
	Phone            string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email            string `json:"email,omitempty" yaml:"email,omitempty"`
	Address          string `json:"address,omitempty" yaml:"address,omitempty"`
	EmergencyContact string `json:"emergencyContact,omitempty" yaml:"emergencyContact,omitempty"`

	Allergies  string `json:"allergies,omitempty" yaml:"allergies,omitempty"`
	Insurance  string `json:"insurance,omitempty" yaml:"insurance,omitempty"`
	Conditions string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Notes      string `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Workflow state: where the patient sits in the clinic queue.
	Status      string `json:"status" yaml:"status"`
	Physician   string `json:"physician" yaml:"physician"`
	DoctorID    string `json:"doctorId" yaml:"doctorId"`
	Appointment string `json:"appointment" yaml:"appointment"`

	CreatedAt time.Time `json:"createdAt" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt,omitempty"`
}

// ReturnToWaitingPool clears the clinician assignment.
func (r *Record) ReturnToWaitingPool(status string, now time.Time) {
	if status == "" {
		status = StatusWaiting
	}
	r.Physician = WaitingPool
	r.DoctorID = ""
	r.Status = status
	r.Appointment = WaitingPool
	r.UpdatedAt = now
}
