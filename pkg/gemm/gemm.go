// Package gemm implements the packed, cache-blocked single-precision
// matrix multiply: C <- alpha*op(A)*op(B) +
// beta*C for row-major A (m x k), B (k x n), C (m x n), independent
// transpose flags. Naming follows a BLAS-style convention
// (Gemm_NN/Gemm_NT/Gemm_TN/Gemm_TT, row-major, ld* leading dimensions);
// the packing/blocking/micro-kernel structure follows a BLIS-style
// MC/NC/KC/MR/NR contract. The MR x NR register tile itself
// (microKernel) is backed by two build-tag-selected implementations:
// microkernel.go (default) vectorizes the NR=4-wide row via the hwy
// SIMD package, microkernel_purego.go (tag "purego") is the scalar
// fallback.
package gemm

// Block sizes for the outer loops and the register-tile micro-kernel.
// Chosen to keep an MC x KC panel of A resident in L2 and a KC x NR
// panel of B resident in L1, matching a BLIS-style blocking scheme.
const (
	MC = 256
	KC = 256
	NC = 4096
	MR = 4
	NR = 4
)

// Context holds the packing buffers owned by the network for the
// lifetime of all GEMM calls. Reused across calls to avoid repeated
// allocation; grown on demand.
type Context struct {
	bufferA  []float32 // MC*KC packed panel of A
	bufferB  []float32 // KC*NC packed panel of B
	bufferAB []float32 // MR*NR scratch tile for fringe handling
	bufferC  []float32 // MR*NR scratch tile for fringe handling
}

// NewContext allocates a Context with buffers sized for the default
// block sizes. Buffers grow lazily if a caller's K/N exceeds them.
func NewContext() *Context {
	return &Context{
		bufferA:  make([]float32, MC*KC),
		bufferB:  make([]float32, KC*NC),
		bufferAB: make([]float32, MR*NR),
		bufferC:  make([]float32, MR*NR),
	}
}

func (ctx *Context) ensureA(n int) {
	if len(ctx.bufferA) < n {
		ctx.bufferA = make([]float32, n)
	}
}

func (ctx *Context) ensureB(n int) {
	if len(ctx.bufferB) < n {
		ctx.bufferB = make([]float32, n)
	}
}

// Gemm computes C <- alpha*op(A)*op(B) + beta*C. A is (m x k) or (k x m)
// if transA; B is (k x n) or (n x k) if transB. All matrices are
// row-major with the given leading dimensions. When alpha==0 or k==0 the
// call collapses to C <- beta*C.
func Gemm(ctx *Context, transA, transB bool, m, n, k int, alpha float32, a []float32, ldA int, b []float32, ldB int, beta float32, c []float32, ldC int) {
	if m == 0 || n == 0 {
		return
	}
	scaleC(c, ldC, m, n, beta)
	if alpha == 0 || k == 0 {
		return
	}

	for kc0 := 0; kc0 < k; kc0 += KC {
		kc := min(KC, k-kc0)
		for nc0 := 0; nc0 < n; nc0 += NC {
			ncw := min(NC, n-nc0)
			ctx.ensureB(kc * ncw)
			packB(ctx.bufferB, b, ldB, transB, kc0, nc0, kc, ncw)

			for mc0 := 0; mc0 < m; mc0 += MC {
				mcw := min(MC, m-mc0)
				ctx.ensureA(mcw * kc)
				packA(ctx.bufferA, a, ldA, transA, mc0, kc0, mcw, kc)

				macroKernel(ctx, c, ldC, mc0, nc0, mcw, ncw, kc, alpha)
			}
		}
	}
}

func scaleC(c []float32, ldC, m, n int, beta float32) {
	if beta == 1 {
		return
	}
	if beta == 0 {
		for i := 0; i < m; i++ {
			row := c[i*ldC : i*ldC+n]
			for j := range row {
				row[j] = 0
			}
		}
		return
	}
	for i := 0; i < m; i++ {
		row := c[i*ldC : i*ldC+n]
		for j := range row {
			row[j] *= beta
		}
	}
}

// packA copies an mcw x kc logical panel of op(A) into dst, MR-major:
// dst holds ceil(mcw/MR) panels of MR rows by kc columns, row-major
// within a panel, so the micro-kernel reads it sequentially.
func packA(dst, a []float32, ldA int, transA bool, mc0, kc0, mcw, kc int) {
	get := func(i, j int) float32 {
		if transA {
			return a[(kc0+j)*ldA+(mc0+i)]
		}
		return a[(mc0+i)*ldA+(kc0+j)]
	}
	p := 0
	for p0 := 0; p0 < mcw; p0 += MR {
		rows := min(MR, mcw-p0)
		for j := 0; j < kc; j++ {
			for r := 0; r < MR; r++ {
				if r < rows {
					dst[p] = get(p0+r, j)
				} else {
					dst[p] = 0
				}
				p++
			}
		}
	}
}

// packB copies a kc x ncw logical panel of op(B) into dst, NR-major.
func packB(dst, b []float32, ldB int, transB bool, kc0, nc0, kc, ncw int) {
	get := func(i, j int) float32 {
		if transB {
			return b[(nc0+j)*ldB+(kc0+i)]
		}
		return b[(kc0+i)*ldB+(nc0+j)]
	}
	p := 0
	for q0 := 0; q0 < ncw; q0 += NR {
		cols := min(NR, ncw-q0)
		for i := 0; i < kc; i++ {
			for c := 0; c < NR; c++ {
				if c < cols {
					dst[p] = get(i, q0+c)
				} else {
					dst[p] = 0
				}
				p++
			}
		}
	}
}

// macroKernel sweeps MR x NR tiles of the mcw x ncw block of C,
// accumulating over kc, using the packed A/B panels in ctx.
func macroKernel(ctx *Context, c []float32, ldC, mc0, nc0, mcw, ncw, kc int, alpha float32) {
	numAPanels := (mcw + MR - 1) / MR
	numBPanels := (ncw + NR - 1) / NR

	for pi := 0; pi < numAPanels; pi++ {
		rows := MR
		if pi == numAPanels-1 && mcw%MR != 0 {
			rows = mcw % MR
		}
		aPanel := ctx.bufferA[pi*kc*MR : (pi+1)*kc*MR]

		for pj := 0; pj < numBPanels; pj++ {
			cols := NR
			if pj == numBPanels-1 && ncw%NR != 0 {
				cols = ncw % NR
			}
			bPanel := ctx.bufferB[pj*kc*NR : (pj+1)*kc*NR]

			microKernel(ctx.bufferAB, aPanel, bPanel, kc)

			// Every tile is computed into the scratch tile ctx.bufferAB;
			// full tiles add all MR x NR entries into C, fringe tiles
			// (rows < MR or cols < NR) add only their valid rows/cols.
			if rows == MR && cols == NR {
				for r := 0; r < MR; r++ {
					crow := c[(mc0+pi*MR+r)*ldC+nc0+pj*NR:]
					for cc := 0; cc < NR; cc++ {
						crow[cc] += alpha * ctx.bufferAB[r*NR+cc]
					}
				}
			} else {
				for r := 0; r < rows; r++ {
					crow := c[(mc0+pi*MR+r)*ldC+nc0+pj*NR:]
					for cc := 0; cc < cols; cc++ {
						crow[cc] += alpha * ctx.bufferAB[r*NR+cc]
					}
				}
			}
		}
	}
}
