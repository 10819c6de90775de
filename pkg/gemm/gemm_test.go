package gemm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// reference computes C = alpha*op(A)*op(B) + beta*C via gonum, used as
// the test oracle. gonum is never imported by
// production code, only by tests.
func reference(transA, transB bool, m, n, k int, alpha float32, a []float32, ldA int, b []float32, ldB int, beta float32, c []float32, ldC int) []float64 {
	toF64 := func(s []float32) []float64 {
		out := make([]float64, len(s))
		for i, v := range s {
			out[i] = float64(v)
		}
		return out
	}

	var matA, matB mat.Matrix
	if transA {
		am := mat.NewDense(k, m, toF64(a))
		matA = am.T()
	} else {
		matA = mat.NewDense(m, k, toF64(a))
	}
	if transB {
		bm := mat.NewDense(n, k, toF64(b))
		matB = bm.T()
	} else {
		matB = mat.NewDense(k, n, toF64(b))
	}

	var prod mat.Dense
	prod.Mul(matA, matB)

	out := make([]float64, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out[i*n+j] = float64(alpha)*prod.At(i, j) + float64(beta)*float64(c[i*ldC+j])
		}
	}
	return out
}

func TestGemmAgainstGonumNN(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m, n, k := 5, 7, 3
	a := randSlice(rng, m*k)
	b := randSlice(rng, k*n)
	c := randSlice(rng, m*n)
	want := reference(false, false, m, n, k, 1, a, k, b, n, 0, c, n)

	ctx := NewContext()
	got := append([]float32(nil), c...)
	Gemm(ctx, false, false, m, n, k, 1, a, k, b, n, 0, got, n)

	for i := range got {
		assert.InDelta(t, want[i], float64(got[i]), 1e-3)
	}
}

func TestGemmAgainstGonumTransposed(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	m, n, k := 6, 4, 5
	a := randSlice(rng, k*m) // A^T stored (k,m)
	b := randSlice(rng, n*k) // B^T stored (n,k)
	c := randSlice(rng, m*n)
	want := reference(true, true, m, n, k, 1, a, m, b, k, 0, c, n)

	ctx := NewContext()
	got := append([]float32(nil), c...)
	Gemm(ctx, true, true, m, n, k, 1, a, m, b, k, 0, got, n)

	for i := range got {
		assert.InDelta(t, want[i], float64(got[i]), 1e-3)
	}
}

func TestGemmBetaAccumulate(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m, n, k := 9, 9, 9 // exercises MC/NC/KC-crossing-free but multi-tile path
	a := randSlice(rng, m*k)
	b := randSlice(rng, k*n)
	c := randSlice(rng, m*n)
	want := reference(false, false, m, n, k, 2, a, k, b, n, 1.5, c, n)

	ctx := NewContext()
	got := append([]float32(nil), c...)
	Gemm(ctx, false, false, m, n, k, 2, a, k, b, n, 1.5, got, n)

	for i := range got {
		assert.InDelta(t, want[i], float64(got[i]), 1e-2)
	}
}

func TestGemmZeroAlphaCollapsesToBetaC(t *testing.T) {
	c := []float32{1, 2, 3, 4}
	ctx := NewContext()
	Gemm(ctx, false, false, 2, 2, 3, 0, make([]float32, 6), 3, make([]float32, 6), 2, 2, c, 2)
	assert.Equal(t, []float32{2, 4, 6, 8}, c)
}

func randSlice(rng *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(rng.NormFloat64())
	}
	return out
}
