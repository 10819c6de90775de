package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConv2DIdentityKernelReproducesInput(t *testing.T) {
	// A 3x3, pad=1, stride=1 convolution whose single kernel tap is the
	// center (all else zero) and bias zero must reproduce the input
	// exactly.
	ft := newFakeTable()
	h, w := 4, 4
	xi := ft.add("x", 1, 1, h, w, true)
	in := ft.Tensor(xi).Data
	for i := range in {
		in[i] = float32(i + 1)
	}
	yi := ft.add("y", 1, 1, h, w, true)

	c, err := NewConv2D(xi, yi, 1, 1, h, w, 1, 3, 3, 1, 1, 1, 1, false, ActNone, false)
	assert.NoError(t, err)
	for i := range c.weight.T.Data {
		c.weight.T.Data[i] = 0
	}
	c.weight.T.Data[1*3+1] = 1 // center tap

	c.Forward(ft)
	assert.Equal(t, in, ft.Tensor(yi).Data)
}

func TestConv2DWinogradIdentityKernelReproducesInput(t *testing.T) {
	ft := newFakeTable()
	h, w := 4, 4
	xi := ft.add("x", 1, 1, h, w, true)
	in := ft.Tensor(xi).Data
	for i := range in {
		in[i] = float32(i + 1)
	}
	yi := ft.add("y", 1, 1, h, w, true)

	c, err := NewConv2D(xi, yi, 1, 1, h, w, 1, 3, 3, 1, 1, 1, 1, false, ActNone, false, WithWinograd(true))
	assert.NoError(t, err)
	assert.True(t, c.winograd, "3x3/stride-1/pad-1 geometry must qualify for the Winograd path")
	for i := range c.weight.T.Data {
		c.weight.T.Data[i] = 0
	}
	c.weight.T.Data[1*3+1] = 1 // center tap

	c.Forward(ft)
	assert.InDeltaSlice(t, in, ft.Tensor(yi).Data, 1e-4)
}

func TestConv2DWinogradMatchesIm2ColGEMM(t *testing.T) {
	ft := newFakeTable()
	n, inC, outC, h, w := 1, 2, 3, 8, 8
	xi := ft.add("x", n, inC, h, w, true)
	in := ft.Tensor(xi).Data
	for i := range in {
		in[i] = float32(i%7) - 3
	}
	yiRef := ft.add("y_ref", n, outC, h, w, true)
	yiWin := ft.add("y_win", n, outC, h, w, true)

	ref, err := NewConv2D(xi, yiRef, n, inC, h, w, outC, 3, 3, 1, 1, 1, 1, true, ActNone, false)
	assert.NoError(t, err)
	win, err := NewConv2D(xi, yiWin, n, inC, h, w, outC, 3, 3, 1, 1, 1, 1, true, ActNone, false, WithWinograd(true))
	assert.NoError(t, err)
	assert.True(t, win.winograd)

	for i := range ref.weight.T.Data {
		v := float32((i%5)-2) * 0.25
		ref.weight.T.Data[i] = v
		win.weight.T.Data[i] = v
	}
	copy(win.bias.T.Data, ref.bias.T.Data)

	ref.Forward(ft)
	win.Forward(ft)

	assert.InDeltaSlice(t, ft.Tensor(yiRef).Data, ft.Tensor(yiWin).Data, 1e-3)
}

func TestConv2DOutputShape(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 2, 3, 8, 8, true)
	yi := ft.add("y", 2, 4, 8, 8, true)

	c, err := NewConv2D(xi, yi, 2, 3, 8, 8, 4, 3, 3, 1, 1, 1, 1, true, ActRelu, false)
	assert.NoError(t, err)
	n, outC, outH, outW := c.OutShape()
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, outC)
	assert.Equal(t, 8, outH)
	assert.Equal(t, 8, outW)
}

func TestConv2DRejectsInvalidDimensions(t *testing.T) {
	_, err := NewConv2D(0, 1, 1, 0, 4, 4, 1, 3, 3, 1, 1, 1, 1, false, ActNone, false)
	assert.Error(t, err)
}

func TestConv2DLegacyBNScaleParamIndex(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 1, 1, 4, 4, true)
	yi := ft.add("y", 1, 2, 4, 4, true)

	c, err := NewConv2D(xi, yi, 1, 1, 4, 4, 2, 3, 3, 1, 1, 1, 1, true, ActNone, true)
	assert.NoError(t, err)
	idx, ok := c.LegacyBNScaleParamIndex()
	assert.True(t, ok)
	// declaration order: weight(0), bias(1), bn_mean(2), bn_var(3), bn_scale(4)
	assert.Equal(t, 4, idx)
}

func TestConv2DBackwardAccumulatesWeightGradient(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 1, 1, 3, 3, true)
	copy(ft.Tensor(xi).Data, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	yi := ft.add("y", 1, 1, 3, 3, true)

	c, err := NewConv2D(xi, yi, 1, 1, 3, 3, 1, 3, 3, 1, 1, 1, 1, false, ActNone, false, WithCanLearn(true))
	assert.NoError(t, err)

	c.Forward(ft)
	for i := range ft.Tensor(yi).Grad {
		ft.Tensor(yi).Grad[i] = 1
	}
	c.Backward(ft)

	var anyNonZero bool
	for _, g := range c.weight.T.Grad {
		if g != 0 {
			anyNonZero = true
		}
	}
	assert.True(t, anyNonZero)
}
