package layer

import "math"

// Pool implements max/avg pooling. A Global option collapses the whole
// H x W plane to 1 x 1 regardless of the configured window, sharing
// the same node kind as the strided form.
type Pool struct {
	Base
	max bool

	n, c, inH, inW int
	kh, kw         int
	strideH, strideW, padH, padW int
	outH, outW     int
	global         bool

	argmax []int // max-pool only: winning input index per output element
}

// PoolOption configures a Pool beyond the shared layer.Option set.
type PoolOption func(*Pool)

// Global collapses the entire spatial plane into a single output
// pixel, ignoring the configured window/stride/pad.
func Global(g bool) PoolOption {
	return func(p *Pool) { p.global = g }
}

func NewMaxPool2D(srcIdx, dstIdx, n, c, inH, inW, kh, kw, strideH, strideW, padH, padW int, opts []Option, popts ...PoolOption) *Pool {
	return newPool(KindMaxPool2D, "maxpool2d", true, srcIdx, dstIdx, n, c, inH, inW, kh, kw, strideH, strideW, padH, padW, opts, popts)
}

func NewAvgPool2D(srcIdx, dstIdx, n, c, inH, inW, kh, kw, strideH, strideW, padH, padW int, opts []Option, popts ...PoolOption) *Pool {
	return newPool(KindAvgPool2D, "avgpool2d", false, srcIdx, dstIdx, n, c, inH, inW, kh, kw, strideH, strideW, padH, padW, opts, popts)
}

func newPool(kind Kind, prefix string, isMax bool, srcIdx, dstIdx, n, c, inH, inW, kh, kw, strideH, strideW, padH, padW int, opts []Option, popts []PoolOption) *Pool {
	base := NewBase(kind, prefix, []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	p := &Pool{Base: base, max: isMax, n: n, c: c, inH: inH, inW: inW,
		kh: kh, kw: kw, strideH: strideH, strideW: strideW, padH: padH, padW: padW}
	for _, o := range popts {
		o(p)
	}
	if p.global {
		p.outH, p.outW = 1, 1
		p.kh, p.kw = inH, inW
		p.strideH, p.strideW = inH, inW
		p.padH, p.padW = 0, 0
	} else {
		p.outH = (inH+2*padH-kh)/strideH + 1
		p.outW = (inW+2*padW-kw)/strideW + 1
	}
	if isMax {
		p.argmax = make([]int, n*c*p.outH*p.outW)
	}
	return p
}

func (p *Pool) Forward(t TensorTable) {
	x := t.Tensor(p.Src()[0])
	y := t.Tensor(p.Dst()[0])
	spatialIn := p.inH * p.inW
	spatialOut := p.outH * p.outW

	for b := 0; b < p.n; b++ {
		for ch := 0; ch < p.c; ch++ {
			in := x.Data[(b*p.c+ch)*spatialIn:]
			out := y.Data[(b*p.c+ch)*spatialOut : (b*p.c+ch+1)*spatialOut]
			for oy := 0; oy < p.outH; oy++ {
				for ox := 0; ox < p.outW; ox++ {
					outIdx := oy*p.outW + ox
					best := float32(-math.MaxFloat32)
					bestIdx := -1
					var sum float32
					var count int
					for ky := 0; ky < p.kh; ky++ {
						iy := oy*p.strideH + ky - p.padH
						if iy < 0 || iy >= p.inH {
							continue
						}
						for kx := 0; kx < p.kw; kx++ {
							ix := ox*p.strideW + kx - p.padW
							if ix < 0 || ix >= p.inW {
								continue
							}
							idx := iy*p.inW + ix
							v := in[idx]
							if p.max {
								if v > best {
									best = v
									bestIdx = idx
								}
							} else {
								sum += v
								count++
							}
						}
					}
					if p.max {
						out[outIdx] = best
						p.argmax[(b*p.c+ch)*spatialOut+outIdx] = bestIdx
					} else {
						if count == 0 {
							out[outIdx] = 0
						} else {
							out[outIdx] = sum / float32(count)
						}
					}
				}
			}
		}
	}
}

func (p *Pool) Backward(t TensorTable) {
	x := t.Tensor(p.Src()[0])
	y := t.Tensor(p.Dst()[0])
	if x.Grad == nil {
		return
	}
	spatialIn := p.inH * p.inW
	spatialOut := p.outH * p.outW

	for b := 0; b < p.n; b++ {
		for ch := 0; ch < p.c; ch++ {
			gx := x.Grad[(b*p.c+ch)*spatialIn : (b*p.c+ch+1)*spatialIn]
			gy := y.Grad[(b*p.c+ch)*spatialOut : (b*p.c+ch+1)*spatialOut]
			if p.max {
				am := p.argmax[(b*p.c+ch)*spatialOut : (b*p.c+ch+1)*spatialOut]
				for outIdx, g := range gy {
					if am[outIdx] >= 0 {
						gx[am[outIdx]] += g
					}
				}
				continue
			}
			for oy := 0; oy < p.outH; oy++ {
				for ox := 0; ox < p.outW; ox++ {
					g := gy[oy*p.outW+ox]
					if g == 0 {
						continue
					}
					var count int
					for ky := 0; ky < p.kh; ky++ {
						iy := oy*p.strideH + ky - p.padH
						if iy < 0 || iy >= p.inH {
							continue
						}
						for kx := 0; kx < p.kw; kx++ {
							ix := ox*p.strideW + kx - p.padW
							if ix < 0 || ix >= p.inW {
								continue
							}
							count++
						}
					}
					if count == 0 {
						continue
					}
					share := g / float32(count)
					for ky := 0; ky < p.kh; ky++ {
						iy := oy*p.strideH + ky - p.padH
						if iy < 0 || iy >= p.inH {
							continue
						}
						for kx := 0; kx < p.kw; kx++ {
							ix := ox*p.strideW + kx - p.padW
							if ix < 0 || ix >= p.inW {
								continue
							}
							gx[iy*p.inW+ix] += share
						}
					}
				}
			}
		}
	}
}

func (p *Pool) Update(opt Optimizer) error { return nil }
