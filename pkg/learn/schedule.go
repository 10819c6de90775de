// Package learn implements the SGD and Adam optimizers
// and six learning-rate schedules.
package learn

import "github.com/chewxy/math32"

// ScheduleKind selects how the base learning rate is decayed per step.
type ScheduleKind int

const (
	ScheduleConstant ScheduleKind = iota
	ScheduleStep
	ScheduleInverse
	ScheduleExponential
	SchedulePolynomial
	ScheduleSigmoid
)

// Schedule computes the effective learning rate at step t from a base
// rate.
type Schedule struct {
	Kind  ScheduleKind
	Base  float32
	Gamma float32
	Step  int     // ScheduleStep's period, ScheduleSigmoid's inflection step
	Power float32 // ScheduleInverse / SchedulePolynomial exponent
}

// LR returns the learning rate at step t (0-based).
func (s Schedule) LR(t int) float32 {
	switch s.Kind {
	case ScheduleConstant:
		return s.Base
	case ScheduleStep:
		if s.Step <= 0 {
			return s.Base
		}
		periods := t / s.Step
		lr := s.Base
		for i := 0; i < periods; i++ {
			lr *= s.Gamma
		}
		return lr
	case ScheduleInverse:
		return s.Base * math32.Pow(1+s.Gamma*float32(t), -s.Power)
	case ScheduleExponential:
		return s.Base * math32.Pow(s.Gamma, float32(t))
	case SchedulePolynomial:
		if s.Step <= 0 {
			return s.Base
		}
		frac := float32(t) / float32(s.Step)
		if frac > 1 {
			frac = 1
		}
		return s.Base * math32.Pow(1-frac, s.Power)
	case ScheduleSigmoid:
		return s.Base / (1 + math32.Exp(s.Gamma*(float32(t)-float32(s.Step))))
	default:
		return s.Base
	}
}
