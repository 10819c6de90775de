//go:build purego

package gemm

// microKernel accumulates the MR x NR tile ab <- A_panel * B_panel over
// kc, where A_panel is kc rows of MR (MR-major) and B_panel is kc rows
// of NR (NR-major). Plain scalar fallback for builds that opt out of
// the hwy-backed SIMD path.
func microKernel(ab, aPanel, bPanel []float32, kc int) {
	for i := range ab {
		ab[i] = 0
	}
	for p := 0; p < kc; p++ {
		aRow := aPanel[p*MR : p*MR+MR]
		bRow := bPanel[p*NR : p*NR+NR]
		for r := 0; r < MR; r++ {
			av := aRow[r]
			if av == 0 {
				continue
			}
			for cc := 0; cc < NR; cc++ {
				ab[r*NR+cc] += av * bRow[cc]
			}
		}
	}
}
