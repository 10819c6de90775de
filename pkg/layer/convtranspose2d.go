package layer

import (
	"fmt"

	"github.com/itohio/cnnengine/pkg/conv"
	"github.com/itohio/cnnengine/pkg/gemm"
)

// ConvTranspose2D implements transposed convolution: GEMM
// with transposed weight orientation followed by col2im accumulation.
// Output geometry follows resolution of the open
// question in : out = (in-1)*stride - 2*pad + K.
type ConvTranspose2D struct {
	Base
	n, inC, inH, inW int
	outC             int
	kh, kw           int
	strideH, strideW, padH, padW int
	outH, outW       int
	hasBias          bool
	act              Activation

	weight *Param // (inC, outC, kh, kw)
	bias   *Param

	ctx *gemm.Context
	col []float32
}

func outDimTranspose(in, k, pad, stride int) int {
	return (in-1)*stride - 2*pad + k
}

func NewConvTranspose2D(srcIdx, dstIdx, n, inC, inH, inW, outC, kh, kw, strideH, strideW, padH, padW int, hasBias bool, act Activation, opts ...Option) (*ConvTranspose2D, error) {
	outH := outDimTranspose(inH, kh, padH, strideH)
	outW := outDimTranspose(inW, kw, padW, strideW)
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("convtranspose2d: non-positive output geometry %dx%d", outH, outW)
	}
	base := NewBase(KindConvTranspose2D, "convtranspose2d", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	l := &ConvTranspose2D{
		Base: base, n: n, inC: inC, inH: inH, inW: inW, outC: outC, kh: kh, kw: kw,
		strideH: strideH, strideW: strideW, padH: padH, padW: padW,
		outH: outH, outW: outW, hasBias: hasBias, act: act,
		ctx: gemm.NewContext(),
	}
	l.weight = l.Base.addParam(NewParam(l.Name()+"_w", inC, outC, kh, kw, l.CanLearn()))
	InitParam(l.weight, FillerXavier, inC, outC*kh*kw, l.RNG(), 0)
	if hasBias {
		l.bias = l.Base.addParam(NewParam(l.Name()+"_b", 1, outC, 1, 1, l.CanLearn()))
	}
	l.col = make([]float32, outC*kh*kw*inH*inW)
	return l, nil
}

// Forward: col(outC*kh*kw, inH*inW) = weight^T(outC*kh*kw, inC) * x(inC, inH*inW),
// then col2im-accumulates col into the (outC, outH, outW) output, the
// adjoint of the conv2d forward's im2col+GEMM.
func (l *ConvTranspose2D) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	spatialIn := l.inH * l.inW
	spatialOut := l.outH * l.outW
	fanOut := l.outC * l.kh * l.kw

	for b := 0; b < l.n; b++ {
		gemm.Gemm(l.ctx, true, false, fanOut, spatialIn, l.inC, 1, l.weight.T.Data, fanOut, x.Data[b*l.inC*spatialIn:], spatialIn, 0, l.col, spatialIn)
		dst := y.Data[b*l.outC*spatialOut : (b+1)*l.outC*spatialOut]
		for i := range dst {
			dst[i] = 0
		}
		conv.Col2Im(dst, l.col, l.outC, l.outH, l.outW, l.kh, l.kw, l.padH, l.padW, l.strideH, l.strideW)
		if l.hasBias {
			for oc := 0; oc < l.outC; oc++ {
				row := dst[oc*spatialOut : (oc+1)*spatialOut]
				for i := range row {
					row[i] += l.bias.T.Data[oc]
				}
			}
		}
	}
	applyActivation(y.Data, y.Data, l.act, l.n*l.outC, spatialOut, nil)
}

func (l *ConvTranspose2D) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	spatialIn := l.inH * l.inW
	spatialOut := l.outH * l.outW
	fanOut := l.outC * l.kh * l.kw

	gradAct := make([]float32, len(y.Grad))
	activationGrad(gradAct, y.Grad, y.Data, l.act, l.n*l.outC, spatialOut, nil, nil)

	for b := 0; b < l.n; b++ {
		gy := gradAct[b*l.outC*spatialOut : (b+1)*l.outC*spatialOut]
		if l.hasBias && l.bias.RequiresGrad {
			for oc := 0; oc < l.outC; oc++ {
				var sum float32
				for _, v := range gy[oc*spatialOut : (oc+1)*spatialOut] {
					sum += v
				}
				l.bias.T.Grad[oc] += sum
			}
		}
		// gradCol is im2col(gy): adjoint of the forward col2im.
		gradCol := make([]float32, fanOut*spatialIn)
		conv.Im2Col(gradCol, gy, l.outC, l.outH, l.outW, l.kh, l.kw, l.padH, l.padW, l.strideH, l.strideW)

		if l.weight.RequiresGrad {
			// weightGrad(inC,fanOut) += x(inC,spatialIn) * gradCol^T(spatialIn,fanOut)
			gemm.Gemm(l.ctx, false, true, l.inC, fanOut, spatialIn, 1, x.Data[b*l.inC*spatialIn:], spatialIn, gradCol, spatialIn, 1, l.weight.T.Grad, fanOut)
		}
		if x.Grad != nil {
			// gradX(inC,spatialIn) += weight(fanOut,inC)^T... = weight(inC,fanOut as transposed storage) * gradCol
			gemm.Gemm(l.ctx, false, false, l.inC, spatialIn, fanOut, 1, l.weight.T.Data, fanOut, gradCol, spatialIn, 1, x.Grad[b*l.inC*spatialIn:], spatialIn)
		}
	}
}

func (l *ConvTranspose2D) Update(opt Optimizer) error {
	for _, p := range l.Params() {
		if err := opt.Update(p); err != nil {
			return fmt.Errorf("convtranspose2d %q: %w", l.Name(), err)
		}
	}
	return nil
}
