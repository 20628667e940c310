package section

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chartkeep/internal/audit"
	"github.com/roach88/chartkeep/internal/clock"
	"github.com/roach88/chartkeep/internal/doc"
	"github.com/roach88/chartkeep/internal/kv"
	"github.com/roach88/chartkeep/internal/schema"
)

var epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store *Store
	log   *audit.Log
	clock *clock.Manual
	mem   *kv.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	c := clock.NewManual(epoch)
	mem := kv.NewMemory()
	docs := doc.New(mem)
	log := audit.New(docs, audit.WithClock(c))
	return fixture{
		store: NewStore(docs, log, schema.Default(), c),
		log:   log,
		clock: c,
		mem:   mem,
	}
}

func TestGetList_UntouchedIsEmptyAcrossCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := f.store.GetList(ctx, "p1", "allergies")
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	}
}

func TestSaveList_RoundTripPreservesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items := []Item{
		{"id": "m3", "name": "Metformin", "dose": "500mg"},
		{"id": "m1", "name": "Lisinopril", "dose": "10mg"},
		{"id": float64(7), "name": "Aspirin", "active": true},
	}
	require.NoError(t, f.store.SaveList(ctx, "p1", "medications", items, ""))

	got, err := f.store.GetList(ctx, "p1", "medications")
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestSaveList_ReplacesWholesale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveList(ctx, "p1", "vaccines", []Item{{"id": "v1"}, {"id": "v2"}}, ""))
	require.NoError(t, f.store.SaveList(ctx, "p1", "vaccines", []Item{{"id": "v3"}}, ""))

	got, err := f.store.GetList(ctx, "p1", "vaccines")
	require.NoError(t, err)
	assert.Equal(t, []Item{{"id": "v3"}}, got)
}

func TestSaveList_NilStoresEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveList(ctx, "p1", "vitals", nil, ""))
	raw, found, err := f.mem.Get(ctx, doc.SectionKey("p1", "vitals"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "[]", string(raw))
}

func TestSaveList_AuditOnlyWithActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveList(ctx, "p1", "allergies", []Item{{"id": "a1"}}, ""))
	entries, err := f.log.List(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, f.store.SaveList(ctx, "p1", "allergies", []Item{{"id": "a1"}, {"id": "a2"}}, "nurse-1"))
	entries, err = f.log.List(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionUpdate, entries[0].Action)
	assert.Equal(t, "allergies", entries[0].Section)
	assert.Equal(t, "nurse-1", entries[0].ActorID)
	assert.Equal(t, float64(2), entries[0].Payload["count"])
}

func TestSaveList_ItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.SaveList(ctx, "p1", "allergies", []Item{{"id": "a1"}, {"name": "no id"}}, "")
	assert.ErrorIs(t, err, ErrItemID)

	err = f.store.SaveList(ctx, "p1", "allergies", []Item{{"id": "a1"}, {"id": ""}}, "")
	assert.ErrorIs(t, err, ErrItemID)

	err = f.store.SaveList(ctx, "p1", "allergies", []Item{{"id": "a1"}, {"id": "a1"}}, "")
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = f.store.SaveList(ctx, "p1", "allergies", []Item{{"id": float64(1)}, {"id": "1"}}, "")
	assert.ErrorIs(t, err, ErrDuplicateID, "numeric and string ids compare by rendering")

	assert.Zero(t, f.mem.Len(), "rejected lists are not written")
}

func TestSaveList_NonSerializable(t *testing.T) {
	f := newFixture(t)
	err := f.store.SaveList(context.Background(), "p1", "vitals", []Item{{"id": "v1", "cb": func() {}}}, "")
	assert.ErrorIs(t, err, doc.ErrEncode)
}

func TestSections_ScopedByPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveList(ctx, "p1", "vitals", []Item{{"id": "x"}}, ""))

	got, err := f.store.GetList(ctx, "p2", "vitals")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestShapeEnforcement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.GetList(ctx, "p1", "intake")
	assert.ErrorIs(t, err, ErrShape)

	err = f.store.SaveList(ctx, "p1", "intake", []Item{{"id": "x"}}, "")
	assert.ErrorIs(t, err, ErrShape)

	_, err = f.store.GetDocument(ctx, "p1", "vitals")
	assert.ErrorIs(t, err, ErrShape)

	_, err = f.store.UpdateDocument(ctx, "p1", "appointments", Patch{})
	assert.ErrorIs(t, err, ErrShape)
}

func TestUnknownSection(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.GetList(context.Background(), "p1", "horoscope")
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestRegisteredSectionBecomesUsable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Registry().Register(schema.Section{Name: "wounds", Shape: schema.ShapeList}))

	require.NoError(t, f.store.SaveList(ctx, "p1", "wounds", []Item{{"id": "w1"}}, ""))
	got, err := f.store.GetList(ctx, "p1", "wounds")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetDocument_Missing(t *testing.T) {
	f := newFixture(t)
	d, err := f.store.GetDocument(context.Background(), "p1", "intake")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestUpdateDocument_CreatesThenMerges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := "draft"
	created, err := f.store.UpdateDocument(ctx, "p1", "intake", Patch{
		Data:   map[string]any{"chiefComplaint": "cough"},
		Status: &draft,
	})
	require.NoError(t, err)
	assert.Equal(t, epoch, created.UpdatedAt)

	f.clock.Advance(time.Minute)
	submitted := "submitted"
	merged, err := f.store.UpdateDocument(ctx, "p1", "intake", Patch{Status: &submitted})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"chiefComplaint": "cough"}, merged.Data, "data kept when patch omits it")
	assert.Equal(t, "submitted", merged.Status)
	assert.Equal(t, epoch.Add(time.Minute), merged.UpdatedAt)

	stored, err := f.store.GetDocument(ctx, "p1", "intake")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, merged, *stored)
}

func TestUpdateDocument_DataReplacedWholesale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.UpdateDocument(ctx, "p1", "history", Patch{Data: map[string]any{"smoker": "no", "surgeries": "none"}})
	require.NoError(t, err)
	d, err := f.store.UpdateDocument(ctx, "p1", "history", Patch{Data: map[string]any{"smoker": "yes"}})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"smoker": "yes"}, d.Data)
	assert.Empty(t, d.Status)
}

func TestUpdateDocument_EmptyPatchCreatesEmptyDocument(t *testing.T) {
	f := newFixture(t)
	d, err := f.store.UpdateDocument(context.Background(), "p1", "care_plan", Patch{})
	require.NoError(t, err)
	assert.NotNil(t, d.Data)
	assert.Equal(t, epoch, d.UpdatedAt)
}

func TestItemHelpers(t *testing.T) {
	it := Item{"id": float64(42), "doctorId": "dr1", "fee": 12.5, "urgent": false}
	assert.Equal(t, "42", it.ID())
	assert.Equal(t, "dr1", it.String("doctorId"))
	assert.Equal(t, "12.5", it.String("fee"))
	assert.Equal(t, "false", it.String("urgent"))
	assert.Equal(t, "", it.String("missing"))

	c := it.Clone()
	c["doctorId"] = "dr2"
	assert.Equal(t, "dr1", it.String("doctorId"))
}

func TestGetList_LargeIntegerIDsKeepEveryDigit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveList(ctx, "p1", "appointments", []Item{
		{"id": json.Number("9007199254740992"), "fee": 12.5},
		{"id": json.Number("9007199254740993"), "slot": float64(3)},
	}, ""))

	items, err := f.store.GetList(ctx, "p1", "appointments")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "9007199254740992", items[0].ID())
	assert.Equal(t, "9007199254740993", items[1].ID())
	assert.Equal(t, 12.5, items[0]["fee"], "exact numbers come back as float64")
	assert.Equal(t, float64(3), items[1]["slot"])

	// Saving what was read must not see a collision.
	require.NoError(t, f.store.SaveList(ctx, "p1", "appointments", items, ""))
}

func TestItemIsSet(t *testing.T) {
	it := Item{
		"at":    "2024-01-01T09:00:00Z",
		"blank": "  ",
		"zero":  float64(0),
		"no":    false,
		"when":  epoch,
		"never": time.Time{},
		"null":  nil,
	}
	assert.True(t, it.IsSet("at"))
	assert.True(t, it.IsSet("when"))
	for _, field := range []string{"blank", "zero", "no", "never", "null", "missing"} {
		assert.False(t, it.IsSet(field), field)
	}
}
