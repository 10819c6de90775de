package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchNormTrainingNormalizesToZeroMeanUnitVariance(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 2, 1, 1, 2, true) // batch=2, 1 channel, 2 spatial -> 4 samples per channel
	copy(ft.Tensor(xi).Data, []float32{1, 2, 3, 4})
	yi := ft.add("y", 2, 1, 1, 2, true)

	l := NewBatchNorm(xi, yi, 2, 1, 1, 2, true, 0.1)
	l.Forward(ft)

	y := ft.Tensor(yi).Data
	var mean float32
	for _, v := range y {
		mean += v
	}
	mean /= 4
	assert.InDelta(t, 0, mean, 1e-3)

	var variance float32
	for _, v := range y {
		variance += (v - mean) * (v - mean)
	}
	variance /= 4
	assert.InDelta(t, 1, variance, 1e-3)
}

func TestBatchNormInferenceUsesRunningStats(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 1, 1, 1, 2, true)
	copy(ft.Tensor(xi).Data, []float32{5, 5})
	yi := ft.add("y", 1, 1, 1, 2, true)

	l := NewBatchNorm(xi, yi, 1, 1, 1, 2, false, 0.1)
	l.mean.T.Data[0] = 5
	l.variance.T.Data[0] = 1
	l.Forward(ft)

	// (5-5)/sqrt(1+eps)*1 + 0 == ~0
	for _, v := range ft.Tensor(yi).Data {
		assert.InDelta(t, 0, v, 1e-3)
	}
}

func TestBatchNormDefaultsMomentum(t *testing.T) {
	ft := newFakeTable()
	xi := ft.add("x", 1, 1, 1, 1, true)
	yi := ft.add("y", 1, 1, 1, 1, true)
	l := NewBatchNorm(xi, yi, 1, 1, 1, 1, true, -1)
	assert.Equal(t, float32(0.1), l.momentum)
}
