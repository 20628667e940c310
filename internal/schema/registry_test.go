package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_BuiltInSections(t *testing.T) {
	r := Default()

	for _, name := range []string{"allergies", "medications", "vaccines", "vitals", "appointments", "visits"} {
		s, ok := r.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, ShapeList, s.Shape, name)
	}

	intake, ok := r.Lookup("intake")
	require.True(t, ok)
	assert.Equal(t, ShapeDocument, intake.Shape)
	assert.Equal(t, "Intake", intake.Label)
}

func TestDefault_NamesSorted(t *testing.T) {
	names := Default().Names()
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "care_plan")
}

func TestParse_Custom(t *testing.T) {
	r, err := Parse([]byte(`
sections: {
	wounds: {shape: "list", label: "Wound Care"}
	discharge: {shape: "document", label: "Discharge Summary"}
}
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"discharge", "wounds"}, r.Names())
	s, _ := r.Lookup("wounds")
	assert.Equal(t, Section{Name: "wounds", Shape: ShapeList, Label: "Wound Care"}, s)
}

func TestParse_RejectsUnknownShape(t *testing.T) {
	_, err := Parse([]byte(`sections: vitals: {shape: "table", label: "Vitals"}`))
	assert.Error(t, err)
}

func TestParse_RejectsMissingLabel(t *testing.T) {
	_, err := Parse([]byte(`sections: vitals: {shape: "list"}`))
	assert.Error(t, err)
}

func TestParse_RejectsSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`sections: {`))
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	r := Default()

	require.NoError(t, r.Register(Section{Name: "wounds", Shape: ShapeList}))
	s, ok := r.Lookup("wounds")
	require.True(t, ok)
	assert.Equal(t, "wounds", s.Label, "label defaults to the name")

	require.NoError(t, r.Register(Section{Name: "vitals", Shape: ShapeList, Label: "Vital Signs"}))
	s, _ = r.Lookup("vitals")
	assert.Equal(t, "Vital Signs", s.Label)
}

func TestRegister_ShapeConflict(t *testing.T) {
	r := Default()
	err := r.Register(Section{Name: "intake", Shape: ShapeList})
	assert.ErrorIs(t, err, ErrShapeConflict)
}

func TestRegister_Invalid(t *testing.T) {
	r := Default()
	assert.Error(t, r.Register(Section{Shape: ShapeList}))
	assert.Error(t, r.Register(Section{Name: "x", Shape: "grid"}))
}
