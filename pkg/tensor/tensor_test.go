package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRecordsNameAndShapeOnly(t *testing.T) {
	tn := New("x", 2, 3, 4, 5)
	assert.Equal(t, "x", tn.Name)
	assert.Equal(t, 2*3*4*5, tn.Size())
	assert.Nil(t, tn.Data)
	assert.Nil(t, tn.Grad)
}

func TestAllocateWithAndWithoutGrad(t *testing.T) {
	tn := New("x", 1, 2, 2, 2)
	tn.Allocate(false)
	assert.Len(t, tn.Data, 8)
	assert.Nil(t, tn.Grad)

	tn.Allocate(true)
	assert.Len(t, tn.Grad, 8)
}

func TestAllocateIsNoOpWhenSizeMatches(t *testing.T) {
	tn := New("x", 1, 1, 2, 2)
	tn.Allocate(false)
	tn.Data[0] = 42
	tn.Allocate(false)
	assert.Equal(t, float32(42), tn.Data[0])
}

func TestAllocatePanicsOnShapeChangeAfterAllocation(t *testing.T) {
	tn := New("x", 1, 1, 2, 2)
	tn.Allocate(false)
	tn.C = 3
	assert.Panics(t, func() { tn.Allocate(false) })
}

func TestIndexFormula(t *testing.T) {
	tn := New("x", 2, 3, 4, 5)
	tn.Allocate(false)
	// (b,k,y,x) = (1,2,3,4) -> ((1*3+2)*4+3)*5+4
	want := ((1*3+2)*4+3)*5 + 4
	assert.Equal(t, want, tn.Index(1, 2, 3, 4))
}

func TestAtAndSetAt(t *testing.T) {
	tn := New("x", 1, 1, 2, 2)
	tn.Allocate(false)
	tn.SetAt(0, 0, 1, 1, 7)
	assert.Equal(t, float32(7), tn.At(0, 0, 1, 1))
}

func TestSameShape(t *testing.T) {
	a := New("a", 1, 2, 3, 4)
	b := New("b", 1, 2, 3, 4)
	c := New("c", 1, 2, 3, 5)
	assert.True(t, a.SameShape(b))
	assert.False(t, a.SameShape(c))
}

func TestZeroGrad(t *testing.T) {
	tn := New("x", 1, 1, 1, 3)
	tn.Allocate(true)
	tn.Grad[0], tn.Grad[1], tn.Grad[2] = 1, 2, 3
	tn.ZeroGrad()
	assert.Equal(t, []float32{0, 0, 0}, tn.Grad)
}

func TestFill(t *testing.T) {
	tn := New("x", 1, 1, 1, 4)
	tn.Allocate(false)
	tn.Fill(9)
	for _, v := range tn.Data {
		assert.Equal(t, float32(9), v)
	}
}

func TestHasGrad(t *testing.T) {
	tn := New("x", 1, 1, 1, 1)
	tn.Allocate(false)
	assert.False(t, tn.HasGrad())
	tn.Allocate(true)
	assert.True(t, tn.HasGrad())
}

func TestNilTensorSizeIsZero(t *testing.T) {
	var tn *Tensor
	assert.Equal(t, 0, tn.Size())
}
