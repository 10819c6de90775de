package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsampleNearestNeighborForward(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 1, 1, 2, 2, true)
	copy(ft.Tensor(xi).Data, []float32{1, 2, 3, 4})
	yi := ft.add("y", 1, 1, 4, 4, true)

	l := NewUpsample(xi, yi, 1, 1, 2, 2, 2)
	l.Forward(ft)

	want := []float32{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	assert.Equal(t, want, ft.Tensor(yi).Data)
}

func TestUpsampleBackwardAccumulatesIntoSourcePixel(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 1, 1, 1, 1, true)
	yi := ft.add("y", 1, 1, 2, 2, true)

	l := NewUpsample(xi, yi, 1, 1, 1, 1, 2)
	copy(ft.Tensor(yi).Grad, []float32{1, 2, 3, 4})
	l.Backward(ft)

	assert.Equal(t, []float32{10}, ft.Tensor(xi).Grad)
}
