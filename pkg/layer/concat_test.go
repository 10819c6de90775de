package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcatForwardAlongChannelAxis(t *testing.T) {
	ft := newFakeTable()
	a := ft.add("a", 1, 1, 1, 2, true)
	copy(ft.Tensor(a).Data, []float32{1, 2})
	b := ft.add("b", 1, 2, 1, 2, true)
	copy(ft.Tensor(b).Data, []float32{3, 4, 5, 6})
	yi := ft.add("y", 1, 3, 1, 2, true)

	l := NewConcat([]int{a, b}, yi, 1, 1, 2, []int{1, 2})
	l.Forward(ft)

	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, ft.Tensor(yi).Data)
}

func TestConcatBackwardSplitsGradientByChannelRange(t *testing.T) {
	ft := newFakeTable()
	a := ft.add("a", 1, 1, 1, 2, true)
	b := ft.add("b", 1, 2, 1, 2, true)
	yi := ft.add("y", 1, 3, 1, 2, true)

	l := NewConcat([]int{a, b}, yi, 1, 1, 2, []int{1, 2})
	copy(ft.Tensor(yi).Grad, []float32{1, 1, 2, 2, 3, 3})
	l.Backward(ft)

	assert.Equal(t, []float32{1, 1}, ft.Tensor(a).Grad)
	assert.Equal(t, []float32{2, 2, 3, 3}, ft.Tensor(b).Grad)
}
