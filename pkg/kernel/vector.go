// Package kernel implements the engine's level-1/2 vector primitives:
// fill/copy, axpy/axpby, elementwise vector algebra, scale, dot, sum,
// general matrix-vector multiply, Euclidean distance, and the
// variance-normalize / mean-to-variance compositions batch-norm needs.
// Naming and row-major/stride conventions follow a Gemv_N/Gemv_T,
// stride-parameterized free-function style. Axpy and Dot are the two
// routines hot enough to carry a SIMD fast path: their unit-stride case
// is implemented in axpy_dot.go (default build, hwy-backed) and
// axpy_dot_purego.go (tag "purego", scalar); everything else here is
// left to the Go compiler's autovectorizer rather than hand-written
// assembly.
package kernel

import "github.com/chewxy/math32"

// SafeDivEpsilon is the threshold below which Div returns 0 instead of
// dividing.
const SafeDivEpsilon = 1e-5

// VarianceEpsilon is added inside the square root wherever a safe-zero
// comparison for a variance is required.
const VarianceEpsilon = 1e-5

// Fill sets dst[i*stride] = v for i in [0, num).
func Fill(dst []float32, stride, num int, v float32) {
	p := 0
	for i := 0; i < num; i++ {
		dst[p] = v
		p += stride
	}
}

// Copy copies src into dst, both strided, for num elements.
func Copy(dst, src []float32, strideDst, strideSrc, num int) {
	pd, ps := 0, 0
	for i := 0; i < num; i++ {
		dst[pd] = src[ps]
		pd += strideDst
		ps += strideSrc
	}
}

// Axpby computes y[i] = a*x[i] + b*y[i].
func Axpby(num int, a float32, x []float32, strideX int, b float32, y []float32, strideY int) {
	px, py := 0, 0
	for i := 0; i < num; i++ {
		y[py] = a*x[px] + b*y[py]
		px += strideX
		py += strideY
	}
}

// Scal computes x[i] *= a.
func Scal(x []float32, stride, num int, a float32) {
	if a == 1 {
		return
	}
	p := 0
	for i := 0; i < num; i++ {
		x[p] *= a
		p += stride
	}
}

// AddScalar computes x[i] += a.
func AddScalar(x []float32, stride, num int, a float32) {
	p := 0
	for i := 0; i < num; i++ {
		x[p] += a
		p += stride
	}
}

// Vadd computes dst[i] = a[i] + b[i].
func Vadd(dst, a, b []float32, num int) {
	for i := 0; i < num; i++ {
		dst[i] = a[i] + b[i]
	}
}

// Vsub computes dst[i] = a[i] - b[i].
func Vsub(dst, a, b []float32, num int) {
	for i := 0; i < num; i++ {
		dst[i] = a[i] - b[i]
	}
}

// Vmul computes dst[i] = a[i] * b[i].
func Vmul(dst, a, b []float32, num int) {
	for i := 0; i < num; i++ {
		dst[i] = a[i] * b[i]
	}
}

// Vdiv computes dst[i] = a[i] / b[i], returning 0 where |b[i]| <= SafeDivEpsilon.
func Vdiv(dst, a, b []float32, num int) {
	for i := 0; i < num; i++ {
		if math32.Abs(b[i]) <= SafeDivEpsilon {
			dst[i] = 0
			continue
		}
		dst[i] = a[i] / b[i]
	}
}

// Sum reduces x (strided) over num elements.
func Sum(x []float32, stride, num int) float32 {
	var acc float32
	p := 0
	for i := 0; i < num; i++ {
		acc += x[p]
		p += stride
	}
	return acc
}

// GemvN computes y = alpha*A*x + beta*y for row-major A (M x N, ldA >= N).
func GemvN(y []float32, a, x []float32, ldA, M, N int, alpha, beta float32) {
	if M == 0 || N == 0 {
		return
	}
	if beta != 1 {
		Scal(y, 1, M, beta)
	}
	if alpha == 0 {
		return
	}
	pa := 0
	for i := 0; i < M; i++ {
		y[i] += alpha * Dot(a[pa:pa+N], 1, x, 1, N)
		pa += ldA
	}
}

// GemvT computes y = alpha*A^T*x + beta*y for row-major A (M x N, ldA >= N),
// i.e. y has length N.
func GemvT(y []float32, a, x []float32, ldA, M, N int, alpha, beta float32) {
	if M == 0 || N == 0 {
		return
	}
	if beta != 1 {
		Scal(y, 1, N, beta)
	}
	if alpha == 0 {
		return
	}
	for j := 0; j < N; j++ {
		var dot float32
		pa := j
		for i := 0; i < M; i++ {
			dot += a[pa] * x[i]
			pa += ldA
		}
		y[j] += alpha * dot
	}
}

// L2Distance computes the Euclidean distance between x and y.
func L2Distance(x, y []float32, num int) float32 {
	var acc float32
	for i := 0; i < num; i++ {
		d := x[i] - y[i]
		acc += d * d
	}
	return math32.Sqrt(acc)
}

// VarianceNormalize computes y[i] <- y[i]*c / (a*sqrt(a) + eps), the
// composition used by batch-norm: a is the per-channel variance, c a
// scale, eps the safe-zero epsilon.
func VarianceNormalize(y []float32, a, c float32, eps float32) {
	denom := a*math32.Sqrt(a) + eps
	if math32.Abs(denom) <= SafeDivEpsilon {
		for i := range y {
			y[i] = 0
		}
		return
	}
	scale := c / denom
	for i := range y {
		y[i] *= scale
	}
}

// MeanToVariance folds a running sum-of-squares mean "a" and a mean "m"
// into a variance estimate: var <- var*a - m^2.
func MeanToVariance(variance []float32, a float32, mean []float32) {
	for i := range variance {
		variance[i] = variance[i]*a - mean[i]*mean[i]
	}
}

// InvSqrt returns 1/sqrt(x+eps), the common batch-norm/LRN normalizer.
func InvSqrt(x, eps float32) float32 {
	return 1.0 / math32.Sqrt(x+eps)
}

// Pow returns x**y, used by LRN's (k + alpha*sum)^beta normalizer.
func Pow(x, y float32) float32 {
	return math32.Pow(x, y)
}
