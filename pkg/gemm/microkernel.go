//go:build !purego

package gemm

import "github.com/ajroetker/go-highway/hwy"

// microKernel accumulates the MR x NR tile ab <- A_panel * B_panel over
// kc, where A_panel is kc rows of MR (MR-major) and B_panel is kc rows
// of NR (NR-major). Each output row is NR=4 wide, so the inner
// accumulation is one hwy vector FMA per (row, k) step instead of a
// scalar cc loop.
func microKernel(ab, aPanel, bPanel []float32, kc int) {
	for r := 0; r < MR; r++ {
		acc := hwy.Zero[float32]()
		for p := 0; p < kc; p++ {
			av := aPanel[p*MR+r]
			if av == 0 {
				continue
			}
			bRow := bPanel[p*NR : p*NR+NR]
			acc = hwy.MulAdd(hwy.Set(av), hwy.Load(bRow), acc)
		}
		hwy.Store(acc, ab[r*NR:r*NR+NR])
	}
}
