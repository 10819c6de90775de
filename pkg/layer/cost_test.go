package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEuclideanCostForwardAndBackward(t *testing.T) {
	ft := newFakeTable()
	pi := ft.add("pred", 1, 2, 1, 1, true)
	copy(ft.Tensor(pi).Data, []float32{1, 2})
	li := ft.add("label", 1, 2, 1, 1, false)
	copy(ft.Tensor(li).Data, []float32{0, 0})
	loi := ft.add("loss", 1, 1, 1, 1, true)

	l := NewEuclideanCost(pi, li, loi, 1, 2)
	l.Forward(ft)

	// 0.5*(1^2+2^2)/1 = 2.5
	assert.InDelta(t, 2.5, l.Loss(), 1e-6)
	assert.Equal(t, l.Loss(), ft.Tensor(loi).Data[0])

	l.Backward(ft)
	assert.Equal(t, []float32{1, 2}, ft.Tensor(pi).Grad)
}

func TestLiftedStructuredCostZeroWhenAllSameLabelAndIdentical(t *testing.T) {
	ft := newFakeTable()
	ei := ft.add("embed", 4, 2, 1, 1, true)
	// all points identical -> dist=0 for every pair, hinge = log(sum negs)+0.
	// with every label the same, there are no negatives at all, so
	// logTerm=0 and hinge=0, contributing nothing (not > 0).
	for i := range ft.Tensor(ei).Data {
		ft.Tensor(ei).Data[i] = 1
	}
	loi := ft.add("loss", 1, 1, 1, 1, true)

	l := NewLiftedStructuredCost(ei, loi, 4, 2, 1.0)
	l.SetLabels([]int32{0, 0, 0, 0})
	l.Forward(ft)

	assert.Equal(t, float32(0), l.Loss())
}

func TestLiftedStructuredCostPositivePairWithNearNegativesProducesLoss(t *testing.T) {
	ft := newFakeTable()
	ei := ft.add("embed", 4, 1, 1, 1, true)
	// each positive pair is separated by 3 and interleaved with the other
	// label's points: for pair (0,1) the negatives sit at distances
	// {1,4} and {2,1}, so the log-sum-exp term is log(e^0+e^-3+e^-1+e^0)
	// ~= 0.88 and the hinge is ~3.88 > 0 (pair (2,3) is symmetric).
	copy(ft.Tensor(ei).Data, []float32{0, 3, 1, 4})
	loi := ft.add("loss", 1, 1, 1, 1, true)

	l := NewLiftedStructuredCost(ei, loi, 4, 1, 1.0)
	l.SetLabels([]int32{0, 0, 1, 1})
	l.Forward(ft)

	assert.Greater(t, l.Loss(), float32(0))

	l.Backward(ft)
	for _, g := range ft.Tensor(ei).Grad {
		assert.False(t, g != g) // not NaN
	}
}
