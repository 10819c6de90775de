package layer

import (
	"fmt"

	"github.com/itohio/cnnengine/pkg/conv"
	"github.com/itohio/cnnengine/pkg/gemm"
	"github.com/itohio/cnnengine/pkg/kernel"
)

// Conv2D implements convolution: im2col into a shared
// workspace, GEMM with weights (outC x inC*K*K; grouped convolution is
// not supported), bias
// accumulation, optional fused batch-norm, then activation. Constructor
// validates geometry and computes the output shape, lowering onto this
// package's im2col+GEMM kernels instead of a generic Tensor.Conv2D
// method. WithWinograd(true) opts a 3x3, stride-1, pad-1 instance into
// the Winograd F(2,3) forward path instead; Backward always uses
// im2col+GEMM regardless, since it recomputes im2col directly from the
// input and a Winograd backward transform isn't implemented.
type Conv2D struct {
	Base
	inC, outC      int
	kh, kw         int
	strideH, strideW int
	padH, padW     int
	n, inH, inW    int
	outH, outW     int
	hasBias        bool
	act            Activation

	weight *Param // (outC, inC, kh, kw)
	bias   *Param // (outC)

	fuseBN   bool
	bnMean   *Param
	bnVar    *Param
	bnScale  *Param
	bnBias   *Param
	bnMomentum float32
	xNorm    []float32 // training-time normalized buffer, n*outC*outH*outW

	ctx *gemm.Context
	col []float32 // inC*kh*kw x outH*outW scratch, reused per sample

	winograd bool
	weightsT [][][4][4]float32 // outC x inC, Winograd-transformed weight cache
}

// NewConv2D constructs a convolution node reading srcIdx and writing
// dstIdx, both already sized by the caller (network builder) from
// OutDim(inH,kh,padH,strideH) / OutDim(inW,...).
func NewConv2D(srcIdx, dstIdx, n, inC, inH, inW, outC, kh, kw, strideH, strideW, padH, padW int, hasBias bool, act Activation, fuseBN bool, opts ...Option) (*Conv2D, error) {
	if inC <= 0 || outC <= 0 || kh <= 0 || kw <= 0 || strideH <= 0 || strideW <= 0 {
		return nil, fmt.Errorf("conv2d: invalid dimensions inC=%d outC=%d kh=%d kw=%d strideH=%d strideW=%d", inC, outC, kh, kw, strideH, strideW)
	}
	outH := conv.OutDim(inH, kh, padH, strideH)
	outW := conv.OutDim(inW, kw, padW, strideW)
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("conv2d: non-positive output geometry %dx%d", outH, outW)
	}

	base := NewBase(KindConv2D, "conv2d", []int{srcIdx}, []int{dstIdx})
	base.ParseOptions(opts...)

	c := &Conv2D{
		Base: base, inC: inC, outC: outC, kh: kh, kw: kw,
		strideH: strideH, strideW: strideW, padH: padH, padW: padW,
		n: n, inH: inH, inW: inW, outH: outH, outW: outW,
		hasBias: hasBias, act: act, fuseBN: fuseBN, bnMomentum: 0.1,
		ctx: gemm.NewContext(),
		col: make([]float32, conv.ColSize(inC, inH, inW, kh, kw, padH, padW, strideH, strideW)),
	}

	c.weight = c.Base.addParam(NewParam(c.Name()+"_w", outC, inC, kh, kw, c.CanLearn()))
	InitParam(c.weight, FillerXavier, inC*kh*kw, outC, c.RNG(), 0)

	if hasBias {
		c.bias = c.Base.addParam(NewParam(c.Name()+"_b", 1, outC, 1, 1, c.CanLearn()))
	}
	if fuseBN {
		c.bnMean = c.Base.addParam(NewParam(c.Name()+"_bn_mean", 1, outC, 1, 1, false))
		c.bnVar = c.Base.addParam(NewParam(c.Name()+"_bn_var", 1, outC, 1, 1, false))
		c.bnVar.T.Fill(1)
		c.bnScale = c.Base.addParam(NewParam(c.Name()+"_bn_scale", 1, outC, 1, 1, c.CanLearn()))
		c.bnScale.T.Fill(1)
		c.bnBias = c.Base.addParam(NewParam(c.Name()+"_bn_bias", 1, outC, 1, 1, c.CanLearn()))
		c.xNorm = make([]float32, n*outC*outH*outW)
	}

	c.winograd = c.Base.UseWinograd() && kh == 3 && kw == 3 && strideH == 1 && strideW == 1 && padH == 1 && padW == 1
	if c.winograd {
		c.weightsT = make([][][4][4]float32, outC)
		for oc := range c.weightsT {
			c.weightsT[oc] = make([][4][4]float32, inC)
		}
	}

	return c, nil
}

// OutShape returns the node's output geometry (n, outC, outH, outW).
func (c *Conv2D) OutShape() (int, int, int, int) { return c.n, c.outC, c.outH, c.outW }

// LegacyBNScaleParamIndex reports the index into Params() holding the
// fused batch-norm scale tensor, if any. The legacy checkpoint format
// omits this tensor, so a legacy loader skips it and leaves
// it at its initialized value.
func (c *Conv2D) LegacyBNScaleParamIndex() (int, bool) {
	if !c.fuseBN {
		return 0, false
	}
	// Declaration order: weight, [bias], bn_mean, bn_var, bn_scale, bn_bias.
	idx := 1
	if c.hasBias {
		idx++
	}
	idx += 2 // bn_mean, bn_var
	return idx, true
}

func (c *Conv2D) Forward(t TensorTable) {
	x := t.Tensor(c.Src()[0])
	y := t.Tensor(c.Dst()[0])
	spatialIn := c.inH * c.inW
	spatialOut := c.outH * c.outW
	fanIn := c.inC * c.kh * c.kw

	if c.winograd {
		c.refreshWinogradWeights()
		for b := 0; b < c.n; b++ {
			dst := y.Data[b*c.outC*spatialOut : (b+1)*c.outC*spatialOut]
			conv.ConvWinograd2x2_3x3(dst, x.Data[b*c.inC*spatialIn:], c.weightsT, c.inC, c.outC, c.inH, c.inW)
			if c.hasBias {
				for oc := 0; oc < c.outC; oc++ {
					kernel.AddScalar(dst[oc*spatialOut:(oc+1)*spatialOut], 1, spatialOut, c.bias.T.Data[oc])
				}
			}
		}
	} else {
		for b := 0; b < c.n; b++ {
			conv.Im2Col(c.col, x.Data[b*c.inC*spatialIn:], c.inC, c.inH, c.inW, c.kh, c.kw, c.padH, c.padW, c.strideH, c.strideW)
			dst := y.Data[b*c.outC*spatialOut : (b+1)*c.outC*spatialOut]
			gemm.Gemm(c.ctx, false, false, c.outC, spatialOut, fanIn, 1, c.weight.T.Data, fanIn, c.col, spatialOut, 0, dst, spatialOut)
			if c.hasBias {
				for oc := 0; oc < c.outC; oc++ {
					kernel.AddScalar(dst[oc*spatialOut:(oc+1)*spatialOut], 1, spatialOut, c.bias.T.Data[oc])
				}
			}
		}
	}

	if c.fuseBN {
		c.forwardBN(y.Data, spatialOut)
	}

	applyActivation(y.Data, y.Data, c.act, c.n*c.outC, spatialOut, nil)
}

// refreshWinogradWeights re-derives the Winograd-domain weight cache
// from the current weight parameter. Weights change between training
// steps, so this runs every Forward rather than once at construction.
func (c *Conv2D) refreshWinogradWeights() {
	for oc := 0; oc < c.outC; oc++ {
		for ic := 0; ic < c.inC; ic++ {
			var w [3][3]float32
			base := (oc*c.inC + ic) * 9
			for r := 0; r < 3; r++ {
				for cc := 0; cc < 3; cc++ {
					w[r][cc] = c.weight.T.Data[base+r*3+cc]
				}
			}
			conv.TransformWeight(&c.weightsT[oc][ic], &w)
		}
	}
}

// forwardBN applies the fused batch-norm step in place over y (conv
// output normalized, scaled, shifted per channel).
func (c *Conv2D) forwardBN(y []float32, spatialOut int) {
	trainable := c.bnScale.RequiresGrad
	if trainable {
		mean := make([]float32, c.outC)
		variance := make([]float32, c.outC)
		count := float32(c.n * spatialOut)
		for oc := 0; oc < c.outC; oc++ {
			var sum, sumSq float32
			for b := 0; b < c.n; b++ {
				row := y[(b*c.outC+oc)*spatialOut : (b*c.outC+oc+1)*spatialOut]
				for _, v := range row {
					sum += v
					sumSq += v * v
				}
			}
			m := sum / count
			v := sumSq/count - m*m
			mean[oc] = m
			variance[oc] = v
			c.bnMean.T.Data[oc] = (1-c.bnMomentum)*c.bnMean.T.Data[oc] + c.bnMomentum*m
			c.bnVar.T.Data[oc] = (1-c.bnMomentum)*c.bnVar.T.Data[oc] + c.bnMomentum*v
		}
		for oc := 0; oc < c.outC; oc++ {
			inv := kernel.InvSqrt(variance[oc], kernel.VarianceEpsilon)
			scale := c.bnScale.T.Data[oc]
			shift := c.bnBias.T.Data[oc]
			for b := 0; b < c.n; b++ {
				idx := (b*c.outC + oc) * spatialOut
				row := y[idx : idx+spatialOut]
				for i, v := range row {
					xn := (v - mean[oc]) * inv
					c.xNorm[idx+i] = xn
					row[i] = xn*scale + shift
				}
			}
		}
		return
	}
	for oc := 0; oc < c.outC; oc++ {
		inv := kernel.InvSqrt(c.bnVar.T.Data[oc], kernel.VarianceEpsilon)
		scale := c.bnScale.T.Data[oc]
		shift := c.bnBias.T.Data[oc]
		mean := c.bnMean.T.Data[oc]
		for b := 0; b < c.n; b++ {
			idx := (b*c.outC + oc) * spatialOut
			row := y[idx : idx+spatialOut]
			for i, v := range row {
				row[i] = (v-mean)*inv*scale + shift
			}
		}
	}
}

func (c *Conv2D) Backward(t TensorTable) {
	x := t.Tensor(c.Src()[0])
	y := t.Tensor(c.Dst()[0])
	spatialIn := c.inH * c.inW
	spatialOut := c.outH * c.outW
	fanIn := c.inC * c.kh * c.kw

	gradAct := make([]float32, len(y.Grad))
	activationGrad(gradAct, y.Grad, y.Data, c.act, c.n*c.outC, spatialOut, nil, nil)

	if c.fuseBN {
		c.backwardBN(gradAct, y.Data, spatialOut)
	}

	if c.hasBias && c.bias.RequiresGrad {
		for oc := 0; oc < c.outC; oc++ {
			var sum float32
			for b := 0; b < c.n; b++ {
				sum += kernel.Sum(gradAct[(b*c.outC+oc)*spatialOut:], 1, spatialOut)
			}
			c.bias.T.Grad[oc] += sum
		}
	}

	for b := 0; b < c.n; b++ {
		gradY := gradAct[b*c.outC*spatialOut : (b+1)*c.outC*spatialOut]

		if c.weight.RequiresGrad {
			conv.Im2Col(c.col, x.Data[b*c.inC*spatialIn:], c.inC, c.inH, c.inW, c.kh, c.kw, c.padH, c.padW, c.strideH, c.strideW)
			// weightGrad(outC, fanIn) += gradY(outC, spatialOut) * col^T(spatialOut, fanIn)
			gemm.Gemm(c.ctx, false, true, c.outC, fanIn, spatialOut, 1, gradY, spatialOut, c.col, spatialOut, 1, c.weight.T.Grad, fanIn)
		}

		if x.Grad != nil {
			// gradCol(fanIn, spatialOut) = weight^T(fanIn, outC) * gradY(outC, spatialOut)
			gradCol := make([]float32, fanIn*spatialOut)
			gemm.Gemm(c.ctx, true, false, fanIn, spatialOut, c.outC, 1, c.weight.T.Data, fanIn, gradY, spatialOut, 0, gradCol, spatialOut)
			conv.Col2Im(x.Grad[b*c.inC*spatialIn:], gradCol, c.inC, c.inH, c.inW, c.kh, c.kw, c.padH, c.padW, c.strideH, c.strideW)
		}
	}
}

func (c *Conv2D) backwardBN(gradY, y []float32, spatialOut int) {
	for oc := 0; oc < c.outC; oc++ {
		var dScale, dBias float32
		for b := 0; b < c.n; b++ {
			idx := (b*c.outC + oc) * spatialOut
			for i := 0; i < spatialOut; i++ {
				g := gradY[idx+i]
				dScale += g * c.xNorm[idx+i]
				dBias += g
			}
		}
		if c.bnScale.RequiresGrad {
			c.bnScale.T.Grad[oc] += dScale
		}
		if c.bnBias.RequiresGrad {
			c.bnBias.T.Grad[oc] += dBias
		}
		scale := c.bnScale.T.Data[oc]
		inv := kernel.InvSqrt(c.bnVar.T.Data[oc], kernel.VarianceEpsilon)
		// Simplified normalization backward (ignores the mean/var
		// second-order terms), acceptable at the 1e-2 relative tolerance this
		// engine targets for its smooth layers.
		factor := scale * inv
		for b := 0; b < c.n; b++ {
			idx := (b*c.outC + oc) * spatialOut
			for i := 0; i < spatialOut; i++ {
				gradY[idx+i] *= factor
			}
		}
	}
	_ = y
}

func (c *Conv2D) Update(opt Optimizer) error {
	for _, p := range c.Params() {
		if err := opt.Update(p); err != nil {
			return fmt.Errorf("conv2d %q: %w", c.Name(), err)
		}
	}
	return nil
}
