package learn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduleConstant(t *testing.T) {
	s := Schedule{Kind: ScheduleConstant, Base: 0.1}
	assert.Equal(t, float32(0.1), s.LR(0))
	assert.Equal(t, float32(0.1), s.LR(1000))
}

func TestScheduleStepDecaysEveryPeriod(t *testing.T) {
	s := Schedule{Kind: ScheduleStep, Base: 1.0, Gamma: 0.5, Step: 10}
	assert.Equal(t, float32(1.0), s.LR(5))
	assert.InDelta(t, 0.5, s.LR(10), 1e-6)
	assert.InDelta(t, 0.25, s.LR(20), 1e-6)
}

func TestScheduleInverse(t *testing.T) {
	s := Schedule{Kind: ScheduleInverse, Base: 1.0, Gamma: 1.0, Power: 1.0}
	assert.InDelta(t, 1.0, s.LR(0), 1e-6)
	assert.InDelta(t, 0.5, s.LR(1), 1e-6) // 1/(1+1*1)
}

func TestScheduleExponential(t *testing.T) {
	s := Schedule{Kind: ScheduleExponential, Base: 2.0, Gamma: 0.5}
	assert.InDelta(t, 2.0, s.LR(0), 1e-6)
	assert.InDelta(t, 1.0, s.LR(1), 1e-6)
	assert.InDelta(t, 0.5, s.LR(2), 1e-6)
}

func TestSchedulePolynomialClampsAtStep(t *testing.T) {
	s := Schedule{Kind: SchedulePolynomial, Base: 1.0, Power: 2.0, Step: 10}
	assert.InDelta(t, 1.0, s.LR(0), 1e-6)
	assert.Equal(t, float32(0), s.LR(10))
	assert.Equal(t, float32(0), s.LR(20)) // clamps past step, no negative frac
}

func TestScheduleSigmoidMidpointIsHalfBase(t *testing.T) {
	s := Schedule{Kind: ScheduleSigmoid, Base: 1.0, Gamma: 1.0, Step: 100}
	assert.InDelta(t, 0.5, s.LR(100), 1e-6)
}
