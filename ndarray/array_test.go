package ndarray

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArrayIsZeroed(t *testing.T) {
	a := NewArray(2, 3)
	assert.Equal(t, []int{2, 3}, a.Shape)
	assert.Equal(t, 6, a.Len())
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assert.Zero(t, a.Get(i, j))
		}
	}
}

func TestFilledSetsEveryElement(t *testing.T) {
	a := Filled(7, 2, 2)
	assert.Equal(t, 7.0, a.Get(0, 0))
	assert.Equal(t, 7.0, a.Get(1, 1))
}

func TestGetSetRowMajor(t *testing.T) {
	a := NewArray(2, 3)
	a.Set(5, 1, 2)
	assert.Equal(t, 5.0, a.Get(1, 2))
	assert.Equal(t, 5.0, a.Elements[1*3+2])
}

func TestCopyIsIndependent(t *testing.T) {
	a := NewArray(2, 2)
	a.Set(1, 0, 0)
	b := a.Copy()
	b.Set(2, 0, 0)
	assert.Equal(t, 1.0, a.Get(0, 0))
	assert.Equal(t, 2.0, b.Get(0, 0))
}

func TestTranspose2D(t *testing.T) {
	a := NewArray(2, 3)
	a.Set(1, 0, 0)
	a.Set(2, 0, 1)
	a.Set(3, 1, 2)
	tr := a.Transpose2D()
	assert.Equal(t, []int{3, 2}, tr.Shape)
	assert.Equal(t, 1.0, tr.Get(0, 0))
	assert.Equal(t, 2.0, tr.Get(1, 0))
	assert.Equal(t, 3.0, tr.Get(2, 1))
}

func TestFlipAxis0(t *testing.T) {
	a := NewArray(2, 1)
	a.Set(1, 0, 0)
	a.Set(2, 1, 0)
	flipped := a.FlipAxis0()
	assert.Equal(t, 2.0, flipped.Get(0, 0))
	assert.Equal(t, 1.0, flipped.Get(1, 0))
}

func TestMinMaxIgnoreNaN(t *testing.T) {
	a := NewArray(3)
	a.Set(math.NaN(), 0)
	a.Set(2, 1)
	a.Set(-1, 2)
	min, ok := a.Min()
	require.True(t, ok)
	assert.Equal(t, -1.0, min)
	max, ok := a.Max()
	require.True(t, ok)
	assert.Equal(t, 2.0, max)
}

func TestMinMaxAllNaNNotFound(t *testing.T) {
	a := Filled(math.NaN(), 2)
	_, ok := a.Min()
	assert.False(t, ok)
}

func TestClipLeavesNaNUntouched(t *testing.T) {
	a := NewArray(3)
	a.Set(-5, 0)
	a.Set(math.NaN(), 1)
	a.Set(50, 2)
	a.Clip(0, 10)
	assert.Equal(t, 0.0, a.Get(0))
	assert.True(t, math.IsNaN(a.Get(1)))
	assert.Equal(t, 10.0, a.Get(2))
}

func TestNaNCount(t *testing.T) {
	a := NewArray(4)
	a.Set(math.NaN(), 0)
	a.Set(math.NaN(), 2)
	assert.Equal(t, 2, a.NaNCount())
}

func TestReplaceNegativeWithNaN(t *testing.T) {
	a := NewArray(2)
	a.Set(-1, 0)
	a.Set(3, 1)
	a.ReplaceNegativeWithNaN()
	assert.True(t, math.IsNaN(a.Get(0)))
	assert.Equal(t, 3.0, a.Get(1))
}

func TestBinaryOpRejectsShapeMismatch(t *testing.T) {
	a := NewArray(2, 2)
	b := NewArray(3, 3)
	_, err := BinaryOp(a, b, func(x, y float64) float64 { return x + y })
	assert.Error(t, err)
}

func TestBinaryOpAdds(t *testing.T) {
	a := Filled(2, 2, 2)
	b := Filled(3, 2, 2)
	sum, err := BinaryOp(a, b, func(x, y float64) float64 { return x + y })
	require.NoError(t, err)
	assert.Equal(t, 5.0, sum.Get(0, 0))
}

func TestUnaryOp(t *testing.T) {
	a := Filled(4, 2)
	out := UnaryOp(a, math.Sqrt)
	assert.Equal(t, 2.0, out.Get(0))
}

func TestCombineFirstPrefersANonNaN(t *testing.T) {
	a := NewArray(2)
	a.Set(math.NaN(), 0)
	a.Set(1, 1)
	b := Filled(9, 2)
	out, err := CombineFirst(a, b)
	require.NoError(t, err)
	assert.Equal(t, 9.0, out.Get(0))
	assert.Equal(t, 1.0, out.Get(1))
}
