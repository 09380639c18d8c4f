package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupUnknownStrategy(t *testing.T) {
	_, err := Lookup("TURNIP")
	require.Error(t, err)
}

func TestLookupKnownStrategies(t *testing.T) {
	for _, name := range []string{"POTATO", "CARROT", "SPINACH"} {
		tmpl, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, tmpl.Name)
	}
}

// TestPlan3DPotatoShrinksToFitTime matches S6 scenario: dims
// {x:500, y:500, t:2} under POTATO should double x/y to 1024 before clamping
// down to the cube's actual 500, and t should land on 2.
func TestPlan3DPotatoShrinksToFitTime(t *testing.T) {
	p := Plan3D(Potato, 2, 500, 500)
	assert.Equal(t, Plan{T: 2, Y: 500, X: 500}, p)
}

func TestPlan3DNeverExceedsCubeDims(t *testing.T) {
	for _, tmpl := range []Template{Potato, Carrot, Spinach} {
		p := Plan3D(tmpl, 3, 10, 10)
		assert.LessOrEqual(t, p.T, 3)
		assert.LessOrEqual(t, p.Y, 10)
		assert.LessOrEqual(t, p.X, 10)
	}
}

func TestPlan3DSpinachUnaffectedByShrinkRule(t *testing.T) {
	p := Plan3D(Spinach, 1, 5000, 5000)
	assert.Equal(t, Plan{T: 1, Y: 1024, X: 1024}, p)
}
