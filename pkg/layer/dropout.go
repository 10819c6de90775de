package layer

// Dropout implements inverted dropout: in training, each
// activation is independently zeroed with probability Rate and the
// survivors scaled by 1/(1-Rate); in inference it is the identity.
type Dropout struct {
	Base
	rate     float32
	training bool
	mask     []float32
}

func NewDropout(srcIdx, dstIdx int, size int, rate float32, training bool, opts ...Option) *Dropout {
	base := NewBase(KindDropout, "dropout", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	l := &Dropout{Base: base, rate: rate, training: training}
	if training {
		l.mask = make([]float32, size)
	}
	return l
}

func (l *Dropout) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	if !l.training || l.rate <= 0 {
		copy(y.Data, x.Data)
		return
	}
	keep := 1 - l.rate
	scale := 1 / keep
	for i, v := range x.Data {
		if l.RNG().Float32() < l.rate {
			l.mask[i] = 0
			y.Data[i] = 0
		} else {
			l.mask[i] = scale
			y.Data[i] = v * scale
		}
	}
}

func (l *Dropout) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	if x.Grad == nil {
		return
	}
	if !l.training || l.rate <= 0 {
		for i, g := range y.Grad {
			x.Grad[i] += g
		}
		return
	}
	for i, g := range y.Grad {
		x.Grad[i] += g * l.mask[i]
	}
}

func (l *Dropout) Update(opt Optimizer) error { return nil }
