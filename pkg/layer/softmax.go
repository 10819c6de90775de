package layer

import "github.com/chewxy/math32"

// Softmax implements channel-wise softmax: per (batch,
// spatial) position, normalize the channel vector with the standard
// max-subtraction for numerical stability.
type Softmax struct {
	Base
	n, c, h, w int
}

func NewSoftmax(srcIdx, dstIdx, n, c, h, w int, opts ...Option) *Softmax {
	base := NewBase(KindSoftmax, "softmax", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	return &Softmax{Base: base, n: n, c: c, h: h, w: w}
}

func (l *Softmax) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	spatial := l.h * l.w

	buf := make([]float32, l.c)
	for b := 0; b < l.n; b++ {
		for i := 0; i < spatial; i++ {
			max := float32(-3.4e38)
			for ch := 0; ch < l.c; ch++ {
				v := x.Data[(b*l.c+ch)*spatial+i]
				buf[ch] = v
				if v > max {
					max = v
				}
			}
			var sum float32
			for ch := 0; ch < l.c; ch++ {
				e := math32.Exp(buf[ch] - max)
				buf[ch] = e
				sum += e
			}
			for ch := 0; ch < l.c; ch++ {
				y.Data[(b*l.c+ch)*spatial+i] = buf[ch] / sum
			}
		}
	}
}

// Backward applies the standard softmax Jacobian-vector product:
// dx_i = y_i * (dy_i - sum_j y_j*dy_j). When chained directly into a
// cross-entropy cost the two conventionally cancel to dy-label, but
// this node stays generic and leaves that fusion to the cost layer.
func (l *Softmax) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	if x.Grad == nil {
		return
	}
	spatial := l.h * l.w

	for b := 0; b < l.n; b++ {
		for i := 0; i < spatial; i++ {
			var dot float32
			for ch := 0; ch < l.c; ch++ {
				idx := (b*l.c+ch)*spatial + i
				dot += y.Data[idx] * y.Grad[idx]
			}
			for ch := 0; ch < l.c; ch++ {
				idx := (b*l.c+ch)*spatial + i
				x.Grad[idx] += y.Data[idx] * (y.Grad[idx] - dot)
			}
		}
	}
}

func (l *Softmax) Update(opt Optimizer) error { return nil }
