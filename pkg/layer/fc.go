package layer

import (
	"fmt"

	"github.com/itohio/cnnengine/pkg/gemm"
)

// FC implements fully connected layer: input reshaped to
// (n, c*h*w), a single GEMM against weights (out, c*h*w), bias, and
// activation.
type FC struct {
	Base
	n, inSize, outSize int
	hasBias            bool
	act                Activation

	weight *Param // (outSize, inSize)
	bias   *Param // (outSize)

	ctx *gemm.Context
}

func NewFC(srcIdx, dstIdx, n, inSize, outSize int, hasBias bool, act Activation, opts ...Option) (*FC, error) {
	if inSize <= 0 || outSize <= 0 {
		return nil, fmt.Errorf("fc: invalid sizes inSize=%d outSize=%d", inSize, outSize)
	}
	base := NewBase(KindFC, "fc", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)
	l := &FC{Base: base, n: n, inSize: inSize, outSize: outSize, hasBias: hasBias, act: act, ctx: gemm.NewContext()}
	l.weight = l.Base.addParam(NewParam(l.Name()+"_w", outSize, inSize, 1, 1, l.CanLearn()))
	InitParam(l.weight, FillerXavier, inSize, outSize, l.RNG(), 0)
	if hasBias {
		l.bias = l.Base.addParam(NewParam(l.Name()+"_b", 1, outSize, 1, 1, l.CanLearn()))
	}
	return l, nil
}

func (l *FC) Forward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])
	// y(n,outSize) = x(n,inSize) * weight^T(inSize,outSize)
	gemm.Gemm(l.ctx, false, true, l.n, l.outSize, l.inSize, 1, x.Data, l.inSize, l.weight.T.Data, l.inSize, 0, y.Data, l.outSize)
	if l.hasBias {
		for b := 0; b < l.n; b++ {
			row := y.Data[b*l.outSize : (b+1)*l.outSize]
			for i := range row {
				row[i] += l.bias.T.Data[i]
			}
		}
	}
	applyActivation(y.Data, y.Data, l.act, l.n, l.outSize, nil)
}

func (l *FC) Backward(t TensorTable) {
	x := t.Tensor(l.Src()[0])
	y := t.Tensor(l.Dst()[0])

	gradAct := make([]float32, len(y.Grad))
	activationGrad(gradAct, y.Grad, y.Data, l.act, l.n, l.outSize, nil, nil)

	if l.hasBias && l.bias.RequiresGrad {
		for b := 0; b < l.n; b++ {
			row := gradAct[b*l.outSize : (b+1)*l.outSize]
			for i, v := range row {
				l.bias.T.Grad[i] += v
			}
		}
	}
	if l.weight.RequiresGrad {
		// weightGrad(outSize,inSize) += gradAct^T(outSize,n) * x(n,inSize)
		gemm.Gemm(l.ctx, true, false, l.outSize, l.inSize, l.n, 1, gradAct, l.outSize, x.Data, l.inSize, 1, l.weight.T.Grad, l.inSize)
	}
	if x.Grad != nil {
		// gradX(n,inSize) = gradAct(n,outSize) * weight(outSize,inSize)
		gemm.Gemm(l.ctx, false, false, l.n, l.inSize, l.outSize, 1, gradAct, l.outSize, l.weight.T.Data, l.inSize, 1, x.Grad, l.inSize)
	}
}

func (l *FC) Update(opt Optimizer) error {
	for _, p := range l.Params() {
		if err := opt.Update(p); err != nil {
			return fmt.Errorf("fc %q: %w", l.Name(), err)
		}
	}
	return nil
}
