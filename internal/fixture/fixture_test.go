package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chartkeep/internal/chart"
	"github.com/roach88/chartkeep/internal/clock"
	"github.com/roach88/chartkeep/internal/kv"
	"github.com/roach88/chartkeep/internal/reconcile"
)

func TestLoad(t *testing.T) {
	seed, err := Load("testdata/clinic.yaml")
	require.NoError(t, err)

	assert.Equal(t, "morning clinic", seed.Name)
	assert.Equal(t, "seed", seed.Actor)
	require.Len(t, seed.Patients, 2)

	p1 := seed.Patients[0]
	assert.Equal(t, "p1", p1.ID)
	assert.Equal(t, "Ada Lovelace", p1.Name)
	assert.Equal(t, "dr1", p1.DoctorID)
	assert.Len(t, p1.Lists["appointments"], 1)
	assert.Equal(t, "reviewed", p1.Documents["intake"].Status)
	assert.Equal(t, "bp stable", p1.Drafts["soap"]["notes"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/absent.yaml")
	assert.Error(t, err)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("name: x\npatients:\n  - id: p1\n    physican: typo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "physican")
}

func TestParse_Validation(t *testing.T) {
	tests := map[string]string{
		"no patients":  "name: empty\n",
		"missing id":   "patients:\n  - name: Nobody\n",
		"duplicate id": "patients:\n  - id: p1\n  - id: p1\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	seed, err := Load("testdata/clinic.yaml")
	require.NoError(t, err)

	m := chart.New(ctx, kv.NewMemory(), chart.WithClock(clock.NewManual(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))))
	t.Cleanup(func() { _ = m.Close(ctx) })

	sum, err := seed.Apply(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, Summary{Patients: 2, Lists: 3, Documents: 1, Drafts: 1}, sum)

	all, err := m.GetAllPatients(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Charles Babbage", all[1].Name)

	intake, err := m.GetPatientSection(ctx, "p1", "intake")
	require.NoError(t, err)
	require.NotNil(t, intake)
	assert.Equal(t, float64(3), intake.Data["durationDays"])

	soap, err := m.GetDraft(ctx, "p1", "soap")
	require.NoError(t, err)
	require.NotNil(t, soap)

	trail, err := m.AuditTrail(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, trail, 1, "only the patient create is audited")
	assert.Equal(t, "seed", trail[0].ActorID)

	// The seeded claim is live: ending the call rolls it back.
	out := m.EndCall(ctx, reconcile.CallMetadata{PatientID: "p1", AppointmentID: "a1", VisitID: "v1", DoctorID: "dr1"})
	assert.Equal(t, reconcile.DecisionRolledBack, out.Decision)
}

func TestApply_StopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	seed, err := Parse([]byte("patients:\n  - id: p1\n    lists:\n      intake: []\n  - id: p2\n"))
	require.NoError(t, err)

	m := chart.New(ctx, kv.NewMemory())
	t.Cleanup(func() { _ = m.Close(ctx) })

	sum, err := seed.Apply(ctx, m)
	require.Error(t, err)
	assert.Equal(t, Summary{Patients: 1}, sum)
}
