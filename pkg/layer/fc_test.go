package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFCForwardIdentityWeight(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 1, 2, 1, 1, true)
	copy(ft.Tensor(xi).Data, []float32{3, 4})
	yi := ft.add("y", 1, 2, 1, 1, true)

	l, err := NewFC(xi, yi, 1, 2, 2, false, ActNone)
	assert.NoError(t, err)
	// weight (out=2,in=2): set to identity
	copy(l.weight.T.Data, []float32{1, 0, 0, 1})

	l.Forward(ft)
	assert.Equal(t, []float32{3, 4}, ft.Tensor(yi).Data)
}

func TestFCForwardWithBias(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 1, 1, 1, 1, true)
	ft.Tensor(xi).Data[0] = 2
	yi := ft.add("y", 1, 1, 1, 1, true)

	l, err := NewFC(xi, yi, 1, 1, 1, true, ActNone)
	assert.NoError(t, err)
	l.weight.T.Data[0] = 3
	l.bias.T.Data[0] = 1

	l.Forward(ft)
	assert.Equal(t, float32(7), ft.Tensor(yi).Data[0]) // 2*3+1
}

func TestFCRejectsNonPositiveSizes(t *testing.T) {
	_, err := NewFC(0, 1, 1, 0, 4, false, ActNone)
	assert.Error(t, err)
}

func TestFCBackwardWeightAndInputGradients(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 1, 1, 1, 1, true)
	ft.Tensor(xi).Data[0] = 2
	yi := ft.add("y", 1, 1, 1, 1, true)

	l, err := NewFC(xi, yi, 1, 1, 1, false, ActNone, WithCanLearn(true))
	assert.NoError(t, err)
	l.weight.T.Data[0] = 3

	l.Forward(ft)
	ft.Tensor(yi).Grad[0] = 1
	l.Backward(ft)

	assert.Equal(t, float32(2), l.weight.T.Grad[0]) // dW = gradY*x = 1*2
	assert.Equal(t, float32(3), ft.Tensor(xi).Grad[0]) // dX = gradY*W = 1*3
}
