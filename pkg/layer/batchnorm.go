package layer

import (
	"fmt"

	"github.com/itohio/cnnengine/pkg/kernel"
)

// BatchNorm implements standalone batch normalization:
// per-channel mean/variance over batch-and-spatial axes in training,
// running statistics in inference, momentum 0.1,
// epsilon 1e-5.
type BatchNorm struct {
	Base
	n, c, h, w int
	momentum   float32
	training   bool

	mean, variance, scale, bias *Param
	xNorm []float32
}

// NewBatchNorm builds a standalone batch-norm node. momentum <= 0
// defaults to 0.1.
func NewBatchNorm(srcIdx, dstIdx, n, c, h, w int, training bool, momentum float32, opts ...Option) *BatchNorm {
	if momentum <= 0 {
		momentum = 0.1
	}
	base := NewBase(KindBatchNorm, "bn", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	l := &BatchNorm{Base: base, n: n, c: c, h: h, w: w, momentum: momentum, training: training}
	l.mean = l.Base.addParam(NewParam(l.Name()+"_mean", 1, c, 1, 1, false))
	l.variance = l.Base.addParam(NewParam(l.Name()+"_var", 1, c, 1, 1, false))
	l.variance.T.Fill(1)
	l.scale = l.Base.addParam(NewParam(l.Name()+"_scale", 1, c, 1, 1, l.CanLearn()))
	l.scale.T.Fill(1)
	l.bias = l.Base.addParam(NewParam(l.Name()+"_bias", 1, c, 1, 1, l.CanLearn()))
	if training {
		l.xNorm = make([]float32, n*c*h*w)
	}
	return l
}

func (l *BatchNorm) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	spatial := l.h * l.w

	if l.training {
		count := float32(l.n * spatial)
		for ch := 0; ch < l.c; ch++ {
			var sum, sumSq float32
			for b := 0; b < l.n; b++ {
				row := x.Data[(b*l.c+ch)*spatial : (b*l.c+ch+1)*spatial]
				for _, v := range row {
					sum += v
					sumSq += v * v
				}
			}
			m := sum / count
			v := sumSq/count - m*m
			l.mean.T.Data[ch] = (1-l.momentum)*l.mean.T.Data[ch] + l.momentum*m
			l.variance.T.Data[ch] = (1-l.momentum)*l.variance.T.Data[ch] + l.momentum*v
			inv := kernel.InvSqrt(v, kernel.VarianceEpsilon)
			scale := l.scale.T.Data[ch]
			shift := l.bias.T.Data[ch]
			for b := 0; b < l.n; b++ {
				idx := (b*l.c + ch) * spatial
				for i := 0; i < spatial; i++ {
					xn := (x.Data[idx+i] - m) * inv
					l.xNorm[idx+i] = xn
					y.Data[idx+i] = xn*scale + shift
				}
			}
		}
		return
	}
	for ch := 0; ch < l.c; ch++ {
		inv := kernel.InvSqrt(l.variance.T.Data[ch], kernel.VarianceEpsilon)
		scale := l.scale.T.Data[ch]
		shift := l.bias.T.Data[ch]
		mean := l.mean.T.Data[ch]
		for b := 0; b < l.n; b++ {
			idx := (b*l.c + ch) * spatial
			for i := 0; i < spatial; i++ {
				y.Data[idx+i] = (x.Data[idx+i]-mean)*inv*scale + shift
			}
		}
	}
}

func (l *BatchNorm) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	spatial := l.h * l.w

	for ch := 0; ch < l.c; ch++ {
		var dScale, dBias float32
		for b := 0; b < l.n; b++ {
			idx := (b*l.c + ch) * spatial
			for i := 0; i < spatial; i++ {
				g := y.Grad[idx+i]
				dScale += g * l.xNorm[idx+i]
				dBias += g
			}
		}
		if l.scale.RequiresGrad {
			l.scale.T.Grad[ch] += dScale
		}
		if l.bias.RequiresGrad {
			l.bias.T.Grad[ch] += dBias
		}
		if x.Grad == nil {
			continue
		}
		inv := kernel.InvSqrt(l.variance.T.Data[ch], kernel.VarianceEpsilon)
		scale := l.scale.T.Data[ch]
		factor := scale * inv
		for b := 0; b < l.n; b++ {
			idx := (b*l.c + ch) * spatial
			for i := 0; i < spatial; i++ {
				x.Grad[idx+i] += y.Grad[idx+i] * factor
			}
		}
	}
}

func (l *BatchNorm) Update(opt Optimizer) error {
	for _, p := range l.Params() {
		if err := opt.Update(p); err != nil {
			return fmt.Errorf("batchnorm %q: %w", l.Name(), err)
		}
	}
	return nil
}
