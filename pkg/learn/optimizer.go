package learn

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/itohio/cnnengine/pkg/layer"
)

// SGD implements momentum+weight-decay update:
// v <- mu*v - lr*(grad + lambda*theta), theta <- theta + v.
// Adds RequiresGrad and data/grad length guards in Update, plus
// momentum, weight decay, and a Schedule.
type SGD struct {
	schedule Schedule
	momentum float32
	decay    float32
	step     int

	mu       sync.Mutex
	velocity map[uintptr][]float32
}

func NewSGD(schedule Schedule, momentum, decay float32) *SGD {
	return &SGD{schedule: schedule, momentum: momentum, decay: decay, velocity: make(map[uintptr][]float32)}
}

// SetStep advances the schedule's step counter; call once per
// optimizer step before Update.
func (s *SGD) SetStep(step int) { s.step = step }

func (s *SGD) Update(p *layer.Param) error {
	if s == nil {
		return fmt.Errorf("SGD.Update: nil optimizer")
	}
	if p == nil || p.T == nil {
		return fmt.Errorf("SGD.Update: nil parameter")
	}
	if !p.RequiresGrad || p.T.Grad == nil {
		return nil
	}
	if len(p.T.Data) != len(p.T.Grad) {
		return fmt.Errorf("SGD.Update: data/grad length mismatch %d vs %d", len(p.T.Data), len(p.T.Grad))
	}

	lr := s.schedule.LR(s.step)

	s.mu.Lock()
	key := uintptr(unsafe.Pointer(&p.T.Data[0]))
	v, ok := s.velocity[key]
	if !ok {
		v = make([]float32, len(p.T.Data))
		s.velocity[key] = v
	}
	s.mu.Unlock()

	for i := range p.T.Data {
		g := p.T.Grad[i] + s.decay*p.T.Data[i]
		v[i] = s.momentum*v[i] - lr*g
		p.T.Data[i] += v[i]
	}
	return nil
}

// Adam implements Adam: bias-corrected first/second moment
// estimates, beta1/beta2/epsilon=1e-8, keyed per-parameter by the data
// buffer's pointer identity (teacher's learn.Adam pattern).
type Adam struct {
	schedule Schedule
	beta1, beta2, epsilon float32
	step     int

	mu    sync.Mutex
	state map[uintptr]*adamState
}

type adamState struct {
	m, v []float32
	step int
}

func NewAdam(schedule Schedule, beta1, beta2 float32) *Adam {
	if beta1 <= 0 {
		beta1 = 0.9
	}
	if beta2 <= 0 {
		beta2 = 0.999
	}
	return &Adam{schedule: schedule, beta1: beta1, beta2: beta2, epsilon: 1e-8, state: make(map[uintptr]*adamState)}
}

func (a *Adam) SetStep(step int) { a.step = step }

func (a *Adam) Update(p *layer.Param) error {
	if a == nil {
		return fmt.Errorf("Adam.Update: nil optimizer")
	}
	if p == nil || p.T == nil {
		return fmt.Errorf("Adam.Update: nil parameter")
	}
	if !p.RequiresGrad || p.T.Grad == nil {
		return nil
	}
	if len(p.T.Data) != len(p.T.Grad) {
		return fmt.Errorf("Adam.Update: data/grad length mismatch %d vs %d", len(p.T.Data), len(p.T.Grad))
	}

	lr := a.schedule.LR(a.step)

	a.mu.Lock()
	key := uintptr(unsafe.Pointer(&p.T.Data[0]))
	st, ok := a.state[key]
	if !ok {
		st = &adamState{m: make([]float32, len(p.T.Data)), v: make([]float32, len(p.T.Data))}
		a.state[key] = st
	}
	a.mu.Unlock()

	st.step++
	bc1 := 1 - math32.Pow(a.beta1, float32(st.step))
	bc2 := 1 - math32.Pow(a.beta2, float32(st.step))

	for i := range p.T.Data {
		g := p.T.Grad[i]
		st.m[i] = a.beta1*st.m[i] + (1-a.beta1)*g
		st.v[i] = a.beta2*st.v[i] + (1-a.beta2)*g*g
		mHat := st.m[i] / bc1
		vHat := st.v[i] / bc2
		p.T.Data[i] -= lr * mHat / (math32.Sqrt(vHat) + a.epsilon)
	}
	return nil
}
