package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAxpy(t *testing.T) {
	y := []float32{1, 2, 3}
	x := []float32{1, 1, 1}
	Axpy(3, 2, x, 1, y, 1)
	assert.Equal(t, []float32{3, 4, 5}, y)
}

func TestAxpyZeroAlphaNoOp(t *testing.T) {
	y := []float32{1, 2, 3}
	x := []float32{10, 10, 10}
	Axpy(3, 0, x, 1, y, 1)
	assert.Equal(t, []float32{1, 2, 3}, y)
}

// exercises Axpy/Dot past a SIMD lane boundary (4, 8 or wider
// depending on build), not just the scalar tail.
func TestAxpyDotPastLaneBoundary(t *testing.T) {
	const num = 17
	x := make([]float32, num)
	y := make([]float32, num)
	for i := range x {
		x[i] = float32(i + 1)
		y[i] = float32(2 * (i + 1))
	}

	Axpy(num, 3, x, 1, y, 1)
	for i := range y {
		want := float32(2*(i+1)) + 3*float32(i+1)
		assert.InDelta(t, want, y[i], 1e-4)
	}

	a := make([]float32, num)
	b := make([]float32, num)
	var want float32
	for i := range a {
		a[i] = float32(i + 1)
		b[i] = float32(num - i)
		want += a[i] * b[i]
	}
	assert.InDelta(t, want, Dot(a, 1, b, 1, num), 1e-2)
}

func TestVdivSafe(t *testing.T) {
	dst := make([]float32, 3)
	a := []float32{1, 2, 3}
	b := []float32{2, 0, 1e-6}
	Vdiv(dst, a, b, 3)
	assert.Equal(t, float32(0.5), dst[0])
	assert.Equal(t, float32(0), dst[1])
	assert.Equal(t, float32(0), dst[2])
}

func TestDotAndSum(t *testing.T) {
	x := []float32{1, 2, 3}
	y := []float32{4, 5, 6}
	assert.Equal(t, float32(32), Dot(x, 1, y, 1, 3))
	assert.Equal(t, float32(6), Sum(x, 1, 3))
}

func TestGemvN(t *testing.T) {
	// A = [[1,2],[3,4]], x = [1,1] -> y = [3,7]
	a := []float32{1, 2, 3, 4}
	x := []float32{1, 1}
	y := make([]float32, 2)
	GemvN(y, a, x, 2, 2, 2, 1, 0)
	assert.Equal(t, []float32{3, 7}, y)
}

func TestL2Distance(t *testing.T) {
	x := []float32{0, 0}
	y := []float32{3, 4}
	assert.InDelta(t, 5.0, L2Distance(x, y, 2), 1e-6)
}

func TestMeanToVariance(t *testing.T) {
	variance := []float32{10}
	mean := []float32{2}
	MeanToVariance(variance, 1, mean)
	assert.InDelta(t, float32(6), variance[0], 1e-6)
}

func TestInvSqrt(t *testing.T) {
	assert.InDelta(t, float32(1), InvSqrt(0, 1), 1e-3)
}
