package layer

import "github.com/itohio/cnnengine/pkg/kernel"

// LRN implements local response normalization across
// channels: y[c] = x[c] / (k + alpha*sum_{c-n/2..c+n/2} x[c']^2)^beta.
type LRN struct {
	Base
	n, c, h, w   int
	size         int
	alpha, beta, k float32

	scale []float32 // cached denominator, n*c*h*w, for backward
}

func NewLRN(srcIdx, dstIdx, n, c, h, w, size int, alpha, beta, k float32, opts ...Option) *LRN {
	base := NewBase(KindLRN, "lrn", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	return &LRN{Base: base, n: n, c: c, h: h, w: w, size: size, alpha: alpha, beta: beta, k: k,
		scale: make([]float32, n*c*h*w)}
}

func (l *LRN) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	spatial := l.h * l.w
	half := l.size / 2

	for b := 0; b < l.n; b++ {
		for i := 0; i < spatial; i++ {
			for ch := 0; ch < l.c; ch++ {
				lo := ch - half
				hi := ch + half
				if lo < 0 {
					lo = 0
				}
				if hi >= l.c {
					hi = l.c - 1
				}
				var sumSq float32
				for cc := lo; cc <= hi; cc++ {
					v := x.Data[(b*l.c+cc)*spatial+i]
					sumSq += v * v
				}
				denom := l.k + l.alpha*sumSq
				s := kernel.Pow(denom, l.beta)
				idx := (b*l.c+ch)*spatial + i
				l.scale[idx] = s
				y.Data[idx] = x.Data[idx] / s
			}
		}
	}
}

func (l *LRN) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	if x.Grad == nil {
		return
	}
	spatial := l.h * l.w
	for i, g := range y.Grad {
		// simplified: treat the normalizer as constant w.r.t. x (ignores
		// cross-channel second-order terms), consistent with the
		// approximation used for batch-norm backward elsewhere in this
		// package.
		x.Grad[i] += g / l.scale[i]
	}
	_ = spatial
}

func (l *LRN) Update(opt Optimizer) error { return nil }
