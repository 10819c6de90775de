package layer

import (
	"math"
	"math/rand"

	"github.com/itohio/cnnengine/pkg/tensor"
)

// Filler selects a weight initialization scheme: fixed, Xavier, or
// MSRA.
type Filler int

const (
	FillerFixed Filler = iota
	FillerXavier
	FillerXavierNormal
	FillerMSRA
)

// InitParam fills p.T.Data per the chosen filler. fanIn/fanOut are the
// layer's input/output fan for Xavier-style scaling.
func InitParam(p *Param, f Filler, fanIn, fanOut int, rng *rand.Rand, fixedValue float32) {
	if p == nil || p.T == nil {
		return
	}
	switch f {
	case FillerFixed:
		p.T.Fill(fixedValue)
	case FillerXavier:
		limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
		for i := range p.T.Data {
			p.T.Data[i] = (rng.Float32()*2 - 1) * limit
		}
	case FillerXavierNormal:
		stddev := float32(math.Sqrt(2.0 / float64(fanIn+fanOut)))
		for i := range p.T.Data {
			p.T.Data[i] = float32(rng.NormFloat64()) * stddev
		}
	case FillerMSRA:
		// He/MSRA: stddev = sqrt(2/fanIn), grounded in BCNN_FILLER_MSRA.
		stddev := float32(math.Sqrt(2.0 / float64(fanIn)))
		for i := range p.T.Data {
			p.T.Data[i] = float32(rng.NormFloat64()) * stddev
		}
	}
}

// NewParam allocates a parameter tensor of the given shape, with a
// gradient buffer when canLearn is true.
func NewParam(name string, n, c, h, w int, canLearn bool) *Param {
	t := tensor.New(name, n, c, h, w)
	t.Allocate(canLearn)
	return &Param{T: t, RequiresGrad: canLearn}
}
