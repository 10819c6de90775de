package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivationReluForward(t *testing.T) {
	ft := newFakeTable()
	idx := ft.add("x", 1, 1, 1, 4)
	ft.Tensor(idx).Data = []float32{-1, 0, 2, -3}

	l := NewActivation(idx, ActRelu, 1, 1, 1, 4)
	l.Forward(ft)

	assert.Equal(t, []float32{0, 0, 2, 0}, ft.Tensor(idx).Data)
}

func TestActivationPReluHasLearnableSlope(t *testing.T) {
	ft := newFakeTable()
	idx := ft.add("x", 1, 2, 1, 2, true)
	ft.Tensor(idx).Data = []float32{-2, 1, -4, 3}

	l := NewActivation(idx, ActPRelu, 1, 2, 1, 2, WithCanLearn(true))
	assert.Len(t, l.Params(), 1)
	assert.Equal(t, float32(0.25), l.Params()[0].T.Data[0])

	l.Forward(ft)
	// channel 0 slope 0.25: -2*0.25=-0.5 survives, 1 unchanged
	assert.InDelta(t, -0.5, ft.Tensor(idx).Data[0], 1e-6)
	assert.Equal(t, float32(1), ft.Tensor(idx).Data[1])
}

func TestActivationBackwardRelu(t *testing.T) {
	ft := newFakeTable()
	idx := ft.add("x", 1, 1, 1, 3, true)
	x := ft.Tensor(idx)
	copy(x.Data, []float32{-1, 2, 3})

	l := NewActivation(idx, ActRelu, 1, 1, 1, 3)
	l.Forward(ft)
	copy(x.Grad, []float32{1, 1, 1})
	l.Backward(ft)

	assert.Equal(t, []float32{0, 1, 1}, x.Grad)
}
