package layer

import "github.com/chewxy/math32"

// applyActivation writes act(x[i]) into dst (dst may alias x).
// slope is the PReLU per-channel slope, indexed
// by channel when act == ActPRelu; nil otherwise.
func applyActivation(dst, x []float32, act Activation, channels, spatial int, slope []float32) {
	switch act {
	case ActNone:
		if len(x) > 0 && &dst[0] != &x[0] {
			copy(dst, x)
		}
	case ActTanh:
		for i, v := range x {
			dst[i] = math32.Tanh(v)
		}
	case ActRelu:
		for i, v := range x {
			if v < 0 {
				v = 0
			}
			dst[i] = v
		}
	case ActRamp:
		for i, v := range x {
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			dst[i] = v
		}
	case ActSoftplus:
		for i, v := range x {
			dst[i] = math32.Log(1 + math32.Exp(v))
		}
	case ActLeakyRelu:
		for i, v := range x {
			if v < 0 {
				v *= 0.01
			}
			dst[i] = v
		}
	case ActAbs:
		for i, v := range x {
			dst[i] = math32.Abs(v)
		}
	case ActClamp:
		for i, v := range x {
			if v < -1 {
				v = -1
			} else if v > 1 {
				v = 1
			}
			dst[i] = v
		}
	case ActPRelu:
		for c := 0; c < channels; c++ {
			base := c * spatial
			s := slope[c]
			for i := 0; i < spatial; i++ {
				v := x[base+i]
				if v < 0 {
					v *= s
				}
				dst[base+i] = v
			}
		}
	case ActLogistic:
		for i, v := range x {
			dst[i] = 1.0 / (1.0 + math32.Exp(-v))
		}
	}
}

// activationGrad multiplies gradOut by the elementwise derivative of act
// evaluated at the forward output y, accumulating into gradIn.
func activationGrad(gradIn, gradOut, y []float32, act Activation, channels, spatial int, slope, slopeGrad []float32) {
	switch act {
	case ActNone:
		for i := range gradOut {
			gradIn[i] += gradOut[i]
		}
	case ActTanh:
		for i, yv := range y {
			gradIn[i] += gradOut[i] * (1 - yv*yv)
		}
	case ActRelu:
		for i, yv := range y {
			if yv > 0 {
				gradIn[i] += gradOut[i]
			}
		}
	case ActRamp:
		for i, yv := range y {
			if yv > 0 && yv < 1 {
				gradIn[i] += gradOut[i]
			}
		}
	case ActSoftplus:
		for i, yv := range y {
			// d/dx softplus = sigmoid(x) = 1 - exp(-y)
			gradIn[i] += gradOut[i] * (1 - math32.Exp(-yv))
		}
	case ActLeakyRelu:
		for i, yv := range y {
			if yv >= 0 {
				gradIn[i] += gradOut[i]
			} else {
				gradIn[i] += gradOut[i] * 0.01
			}
		}
	case ActAbs:
		for i, yv := range y {
			if yv >= 0 {
				gradIn[i] += gradOut[i]
			} else {
				gradIn[i] -= gradOut[i]
			}
		}
	case ActClamp:
		for i, yv := range y {
			if yv > -1 && yv < 1 {
				gradIn[i] += gradOut[i]
			}
		}
	case ActPRelu:
		for c := 0; c < channels; c++ {
			base := c * spatial
			s := slope[c]
			for i := 0; i < spatial; i++ {
				yv := y[base+i]
				go_ := gradOut[base+i]
				if yv >= 0 {
					gradIn[base+i] += go_
				} else {
					gradIn[base+i] += go_ * s
					if slopeGrad != nil {
						slopeGrad[c] += go_ * (yv / s)
					}
				}
			}
		}
	case ActLogistic:
		for i, yv := range y {
			gradIn[i] += gradOut[i] * yv * (1 - yv)
		}
	}
}
