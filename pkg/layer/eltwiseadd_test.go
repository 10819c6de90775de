package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEltwiseAddForwardSumsAllSources(t *testing.T) {
	ft := newFakeTable()
	a := ft.add("a", 1, 1, 1, 3, true)
	copy(ft.Tensor(a).Data, []float32{1, 2, 3})
	b := ft.add("b", 1, 1, 1, 3, true)
	copy(ft.Tensor(b).Data, []float32{10, 20, 30})
	yi := ft.add("y", 1, 1, 1, 3, true)

	l := NewEltwiseAdd([]int{a, b}, yi, 3)
	l.Forward(ft)

	assert.Equal(t, []float32{11, 22, 33}, ft.Tensor(yi).Data)
}

func TestEltwiseAddBackwardBroadcastsGradientToEachSource(t *testing.T) {
	ft := newFakeTable()
	a := ft.add("a", 1, 1, 1, 2, true)
	b := ft.add("b", 1, 1, 1, 2, true)
	yi := ft.add("y", 1, 1, 1, 2, true)

	l := NewEltwiseAdd([]int{a, b}, yi, 2)
	copy(ft.Tensor(yi).Grad, []float32{5, 6})
	l.Backward(ft)

	assert.Equal(t, []float32{5, 6}, ft.Tensor(a).Grad)
	assert.Equal(t, []float32{5, 6}, ft.Tensor(b).Grad)
}
