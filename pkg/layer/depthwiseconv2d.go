package layer

import "fmt"

// DepthwiseConv2D implements per-channel cross-correlation:
// c independent K x K filters, no channel mixing, output depth equals
// input depth.
type DepthwiseConv2D struct {
	Base
	n, c, inH, inW int
	kh, kw         int
	strideH, strideW, padH, padW int
	outH, outW     int
	hasBias        bool
	act            Activation

	weight *Param // (c, 1, kh, kw)
	bias   *Param // (c)
}

func NewDepthwiseConv2D(srcIdx, dstIdx, n, c, inH, inW, kh, kw, strideH, strideW, padH, padW int, hasBias bool, act Activation, opts ...Option) (*DepthwiseConv2D, error) {
	outH := (inH+2*padH-kh)/strideH + 1
	outW := (inW+2*padW-kw)/strideW + 1
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("depthwiseconv2d: non-positive output geometry %dx%d", outH, outW)
	}
	base := NewBase(KindDepthwiseConv2D, "dwconv2d", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	l := &DepthwiseConv2D{
		Base: base, n: n, c: c, inH: inH, inW: inW, kh: kh, kw: kw,
		strideH: strideH, strideW: strideW, padH: padH, padW: padW,
		outH: outH, outW: outW, hasBias: hasBias, act: act,
	}
	l.weight = l.Base.addParam(NewParam(l.Name()+"_w", c, 1, kh, kw, l.CanLearn()))
	InitParam(l.weight, FillerXavier, kh*kw, kh*kw, l.RNG(), 0)
	if hasBias {
		l.bias = l.Base.addParam(NewParam(l.Name()+"_b", 1, c, 1, 1, l.CanLearn()))
	}
	return l, nil
}

func (l *DepthwiseConv2D) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	spatialIn := l.inH * l.inW
	spatialOut := l.outH * l.outW

	for b := 0; b < l.n; b++ {
		for ch := 0; ch < l.c; ch++ {
			in := x.Data[(b*l.c+ch)*spatialIn:]
			out := y.Data[(b*l.c+ch)*spatialOut : (b*l.c+ch+1)*spatialOut]
			w := l.weight.T.Data[ch*l.kh*l.kw : (ch+1)*l.kh*l.kw]
			var bias float32
			if l.hasBias {
				bias = l.bias.T.Data[ch]
			}
			for oy := 0; oy < l.outH; oy++ {
				for ox := 0; ox < l.outW; ox++ {
					var acc float32
					for ky := 0; ky < l.kh; ky++ {
						iy := oy*l.strideH + ky - l.padH
						if iy < 0 || iy >= l.inH {
							continue
						}
						for kx := 0; kx < l.kw; kx++ {
							ix := ox*l.strideW + kx - l.padW
							if ix < 0 || ix >= l.inW {
								continue
							}
							acc += in[iy*l.inW+ix] * w[ky*l.kw+kx]
						}
					}
					out[oy*l.outW+ox] = acc + bias
				}
			}
		}
	}
	applyActivation(y.Data, y.Data, l.act, l.n*l.c, spatialOut, nil)
}

func (l *DepthwiseConv2D) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	spatialIn := l.inH * l.inW
	spatialOut := l.outH * l.outW

	gradAct := make([]float32, len(y.Grad))
	activationGrad(gradAct, y.Grad, y.Data, l.act, l.n*l.c, spatialOut, nil, nil)

	for b := 0; b < l.n; b++ {
		for ch := 0; ch < l.c; ch++ {
			gy := gradAct[(b*l.c+ch)*spatialOut : (b*l.c+ch+1)*spatialOut]
			w := l.weight.T.Data[ch*l.kh*l.kw : (ch+1)*l.kh*l.kw]
			var wGrad []float32
			if l.weight.RequiresGrad {
				wGrad = l.weight.T.Grad[ch*l.kh*l.kw : (ch+1)*l.kh*l.kw]
			}
			var gx []float32
			if x.Grad != nil {
				gx = x.Grad[(b*l.c+ch)*spatialIn : (b*l.c+ch+1)*spatialIn]
			}
			if l.hasBias && l.bias.RequiresGrad {
				var sum float32
				for _, v := range gy {
					sum += v
				}
				l.bias.T.Grad[ch] += sum
			}
			for oy := 0; oy < l.outH; oy++ {
				for ox := 0; ox < l.outW; ox++ {
					g := gy[oy*l.outW+ox]
					if g == 0 {
						continue
					}
					for ky := 0; ky < l.kh; ky++ {
						iy := oy*l.strideH + ky - l.padH
						if iy < 0 || iy >= l.inH {
							continue
						}
						for kx := 0; kx < l.kw; kx++ {
							ix := ox*l.strideW + kx - l.padW
							if ix < 0 || ix >= l.inW {
								continue
							}
							if wGrad != nil {
								wGrad[ky*l.kw+kx] += g * x.Data[(b*l.c+ch)*spatialIn+iy*l.inW+ix]
							}
							if gx != nil {
								gx[iy*l.inW+ix] += g * w[ky*l.kw+kx]
							}
						}
					}
				}
			}
		}
	}
}

func (l *DepthwiseConv2D) Update(opt Optimizer) error {
	for _, p := range l.Params() {
		if err := opt.Update(p); err != nil {
			return fmt.Errorf("depthwiseconv2d %q: %w", l.Name(), err)
		}
	}
	return nil
}
