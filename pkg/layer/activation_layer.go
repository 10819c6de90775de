package layer

import "fmt"

// ActivationLayer applies an element-wise nonlinearity in place:
// source and destination tensor indices are identical, so
// reorderings and parallel execution must respect the aliasing.
type ActivationLayer struct {
	Base
	act      Activation
	n, c, h, w int
	slope    *Param // per-channel slope, only when act == ActPRelu
}

// NewActivation builds an in-place activation node over tensor idx.
func NewActivation(idx int, act Activation, n, c, h, w int, opts ...Option) *ActivationLayer {
	base := NewBase(KindActivation, "activation", []int{idx}, []int{idx})
	base.ParseOptions(opts...)
	l := &ActivationLayer{Base: base, act: act, n: n, c: c, h: h, w: w}
	if act == ActPRelu {
		l.slope = l.Base.addParam(NewParam(l.Name()+"_slope", 1, c, 1, 1, l.CanLearn()))
		l.slope.T.Fill(0.25)
	}
	return l
}

func (l *ActivationLayer) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	spatial := l.h * l.w
	var slope []float32
	if l.slope != nil {
		slope = l.slope.T.Data
	}
	for b := 0; b < l.n; b++ {
		off := b * l.c * spatial
		applyActivation(x.Data[off:off+l.c*spatial], x.Data[off:off+l.c*spatial], l.act, l.c, spatial, slope)
	}
}

func (l *ActivationLayer) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	if x.Grad == nil {
		return
	}
	spatial := l.h * l.w
	var slope, slopeGrad []float32
	if l.slope != nil {
		slope = l.slope.T.Data
		if l.slope.RequiresGrad {
			slopeGrad = l.slope.T.Grad
		}
	}
	for b := 0; b < l.n; b++ {
		off := b * l.c * spatial
		// x.Data currently holds the forward output (in-place layer);
		// gradOut and gradIn are the same buffer, accumulated via a
		// scratch copy to avoid reading already-updated gradients.
		grad := append([]float32(nil), x.Grad[off:off+l.c*spatial]...)
		for i := range x.Grad[off : off+l.c*spatial] {
			x.Grad[off+i] = 0
		}
		activationGrad(x.Grad[off:off+l.c*spatial], grad, x.Data[off:off+l.c*spatial], l.act, l.c, spatial, slope, slopeGrad)
	}
}

func (l *ActivationLayer) Update(opt Optimizer) error {
	if l.slope == nil || !l.slope.RequiresGrad {
		return nil
	}
	if err := opt.Update(l.slope); err != nil {
		return fmt.Errorf("activation %q: %w", l.Name(), err)
	}
	return nil
}
