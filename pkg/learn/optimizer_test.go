package learn

import (
	"testing"

	"github.com/itohio/cnnengine/pkg/layer"
	"github.com/stretchr/testify/assert"
)

func TestSGDDescendsTowardQuadraticMinimum(t *testing.T) {
	p := layer.NewParam("w", 1, 1, 1, 1, true)
	p.T.Data[0] = 10 // minimize f(w) = w^2, grad = 2w

	opt := NewSGD(Schedule{Kind: ScheduleConstant, Base: 0.1}, 0, 0)
	prev := p.T.Data[0]
	for step := 0; step < 50; step++ {
		p.T.Grad[0] = 2 * p.T.Data[0]
		opt.SetStep(step)
		assert.NoError(t, opt.Update(p))
		assert.Less(t, abs(p.T.Data[0]), abs(prev)+1e-6)
		prev = p.T.Data[0]
	}
	assert.InDelta(t, 0, p.T.Data[0], 0.5)
}

func TestSGDSkipsParametersWithoutGrad(t *testing.T) {
	p := layer.NewParam("w", 1, 1, 1, 1, false) // RequiresGrad=false, no Grad buffer
	opt := NewSGD(Schedule{Kind: ScheduleConstant, Base: 0.1}, 0, 0)
	assert.NoError(t, opt.Update(p))
}

func TestAdamBiasCorrectedFirstStepMovesTowardNegativeGradient(t *testing.T) {
	p := layer.NewParam("w", 1, 1, 1, 1, true)
	p.T.Data[0] = 5
	p.T.Grad[0] = 1 // positive gradient -> weight should decrease

	opt := NewAdam(Schedule{Kind: ScheduleConstant, Base: 0.1}, 0.9, 0.999)
	opt.SetStep(0)
	assert.NoError(t, opt.Update(p))

	assert.Less(t, p.T.Data[0], float32(5))
}

func TestAdamDefaultsBetasWhenNonPositive(t *testing.T) {
	opt := NewAdam(Schedule{Kind: ScheduleConstant, Base: 0.1}, 0, 0)
	assert.Equal(t, float32(0.9), opt.beta1)
	assert.Equal(t, float32(0.999), opt.beta2)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
