package conv

// ToNC4HW4 converts a single-sample NCHW buffer (channels, h, w) into
// a packed NC4HW4 layout: four channels interleaved per spatial cell,
// for SIMD-friendly access. Channel counts not divisible by 4 are
// zero-padded in the last group.
func ToNC4HW4(dst, src []float32, channels, h, w int) {
	groups := (channels + 3) / 4
	hw := h * w
	for g := 0; g < groups; g++ {
		base := g * 4
		for i := 0; i < hw; i++ {
			for lane := 0; lane < 4; lane++ {
				c := base + lane
				dstIdx := (g*hw+i)*4 + lane
				if c < channels {
					dst[dstIdx] = src[c*hw+i]
				} else {
					dst[dstIdx] = 0
				}
			}
		}
	}
}

// FromNC4HW4 is the inverse scatter/gather of ToNC4HW4, dropping the
// padding lanes introduced for channel counts not divisible by 4.
func FromNC4HW4(dst, src []float32, channels, h, w int) {
	groups := (channels + 3) / 4
	hw := h * w
	for g := 0; g < groups; g++ {
		base := g * 4
		for i := 0; i < hw; i++ {
			for lane := 0; lane < 4; lane++ {
				c := base + lane
				if c < channels {
					dst[c*hw+i] = src[(g*hw+i)*4+lane]
				}
			}
		}
	}
}
