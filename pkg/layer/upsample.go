package layer

// Upsample implements nearest-neighbor spatial upscale by
// an integer factor, as used by the YOLO feature-pyramid path.
type Upsample struct {
	Base
	n, c, inH, inW, factor int
	outH, outW             int
}

func NewUpsample(srcIdx, dstIdx, n, c, inH, inW, factor int, opts ...Option) *Upsample {
	base := NewBase(KindUpsample, "upsample", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	return &Upsample{Base: base, n: n, c: c, inH: inH, inW: inW, factor: factor,
		outH: inH * factor, outW: inW * factor}
}

func (l *Upsample) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	spatialIn := l.inH * l.inW
	spatialOut := l.outH * l.outW

	for b := 0; b < l.n; b++ {
		for ch := 0; ch < l.c; ch++ {
			in := x.Data[(b*l.c+ch)*spatialIn : (b*l.c+ch+1)*spatialIn]
			out := y.Data[(b*l.c+ch)*spatialOut : (b*l.c+ch+1)*spatialOut]
			for oy := 0; oy < l.outH; oy++ {
				iy := oy / l.factor
				for ox := 0; ox < l.outW; ox++ {
					ix := ox / l.factor
					out[oy*l.outW+ox] = in[iy*l.inW+ix]
				}
			}
		}
	}
}

func (l *Upsample) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	if x.Grad == nil {
		return
	}
	spatialIn := l.inH * l.inW
	spatialOut := l.outH * l.outW

	for b := 0; b < l.n; b++ {
		for ch := 0; ch < l.c; ch++ {
			gx := x.Grad[(b*l.c+ch)*spatialIn : (b*l.c+ch+1)*spatialIn]
			gy := y.Grad[(b*l.c+ch)*spatialOut : (b*l.c+ch+1)*spatialOut]
			for oy := 0; oy < l.outH; oy++ {
				iy := oy / l.factor
				for ox := 0; ox < l.outW; ox++ {
					ix := ox / l.factor
					gx[iy*l.inW+ix] += gy[oy*l.outW+ox]
				}
			}
		}
	}
}

func (l *Upsample) Update(opt Optimizer) error { return nil }
