package layer

// Reshape implements metadata-only reinterpretation of a
// tensor's shape: the element count and underlying data are unchanged,
// only N/C/H/W are reinterpreted, so forward/backward are plain copies
// between the two (already distinctly allocated) table slots.
type Reshape struct {
	Base
	size int
}

func NewReshape(srcIdx, dstIdx, size int, opts ...Option) *Reshape {
	base := NewBase(KindReshape, "reshape", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	return &Reshape{Base: base, size: size}
}

func (l *Reshape) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	copy(y.Data, x.Data)
}

func (l *Reshape) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	if x.Grad == nil {
		return
	}
	for i, g := range y.Grad {
		x.Grad[i] += g
	}
}

func (l *Reshape) Update(opt Optimizer) error { return nil }
