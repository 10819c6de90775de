package layer

// Concat implements channel-axis concatenation of two or
// more equally-shaped-except-channel inputs into one output.
type Concat struct {
	Base
	n, h, w int
	chans   []int // per-source channel count, same order as Src()
}

func NewConcat(srcIdxs []int, dstIdx, n, h, w int, chans []int, opts ...Option) *Concat {
	base := NewBase(KindConcat, "concat", append([]int(nil), srcIdxs...), []int{dstIdx})
	base.ParseOptions(opts...)
	return &Concat{Base: base, n: n, h: h, w: w, chans: append([]int(nil), chans...)}
}

func (l *Concat) Forward(t TensorTable) {
	y := t.Tensor(l.Dst()[0])
	spatial := l.h * l.w
	totalC := 0
	for _, c := range l.chans {
		totalC += c
	}
	for b := 0; b < l.n; b++ {
		outOff := b * totalC * spatial
		chOff := 0
		for si, srcIdx := range l.Src() {
			x := t.Tensor(srcIdx)
			c := l.chans[si]
			src := x.Data[b*c*spatial : (b+1)*c*spatial]
			copy(y.Data[outOff+chOff*spatial:outOff+(chOff+c)*spatial], src)
			chOff += c
		}
	}
}

func (l *Concat) Backward(t TensorTable) {
	y := t.Tensor(l.Dst()[0])
	spatial := l.h * l.w
	totalC := 0
	for _, c := range l.chans {
		totalC += c
	}
	for b := 0; b < l.n; b++ {
		outOff := b * totalC * spatial
		chOff := 0
		for si, srcIdx := range l.Src() {
			x := t.Tensor(srcIdx)
			c := l.chans[si]
			if x.Grad != nil {
				gy := y.Grad[outOff+chOff*spatial : outOff+(chOff+c)*spatial]
				gx := x.Grad[b*c*spatial : (b+1)*c*spatial]
				for i, g := range gy {
					gx[i] += g
				}
			}
			chOff += c
		}
	}
}

func (l *Concat) Update(opt Optimizer) error { return nil }
