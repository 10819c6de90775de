// Package conv implements the convolution lowering primitives:
// im2col/col2im, the Winograd F(2x2,3x3) source/
// weight/destination transforms, and NCHW<->NC4HW4 packing. Uses the
// same loop nest and zero-padding-on-out-of-bounds convention as a
// typical im2col/col2im implementation, reshaped to a single-sample
// (channels*K*K, outH*outW) column layout, so conv2d's GEMM is a plain
// weights x columns product with no further
// transpose.
package conv

// OutDim computes the output spatial extent for a convolution:
// floor((h + 2*pad - k)/stride) + 1.
func OutDim(in, k, pad, stride int) int {
	return (in+2*pad-k)/stride + 1
}

// Im2Col rearranges a single (channels, h, w) input into a
// (channels*kh*kw, outH*outW) column matrix, row-major, zero-padded
// out-of-bounds.
func Im2Col(col, im []float32, channels, h, w, kh, kw, padH, padW, strideH, strideW int) {
	outH := OutDim(h, kh, padH, strideH)
	outW := OutDim(w, kw, padW, strideW)
	ldCol := outH * outW

	row := 0
	for c := 0; c < channels; c++ {
		chanOff := c * h * w
		for ky := 0; ky < kh; ky++ {
			for kx := 0; kx < kw; kx++ {
				dst := row * ldCol
				for oy := 0; oy < outH; oy++ {
					iy := oy*strideH + ky - padH
					for ox := 0; ox < outW; ox++ {
						ix := ox*strideW + kx - padW
						if iy >= 0 && iy < h && ix >= 0 && ix < w {
							col[dst] = im[chanOff+iy*w+ix]
						} else {
							col[dst] = 0
						}
						dst++
					}
				}
				row++
			}
		}
	}
}

// Col2Im is the adjoint of Im2Col: each column element additively
// accumulates into the corresponding receptive field of im. im must be
// zeroed by the caller beforehand if a fresh accumulation is wanted.
func Col2Im(im, col []float32, channels, h, w, kh, kw, padH, padW, strideH, strideW int) {
	outH := OutDim(h, kh, padH, strideH)
	outW := OutDim(w, kw, padW, strideW)
	ldCol := outH * outW

	row := 0
	for c := 0; c < channels; c++ {
		chanOff := c * h * w
		for ky := 0; ky < kh; ky++ {
			for kx := 0; kx < kw; kx++ {
				src := row * ldCol
				for oy := 0; oy < outH; oy++ {
					iy := oy*strideH + ky - padH
					for ox := 0; ox < outW; ox++ {
						ix := ox*strideW + kx - padW
						if iy >= 0 && iy < h && ix >= 0 && ix < w {
							im[chanOff+iy*w+ix] += col[src]
						}
						src++
					}
				}
				row++
			}
		}
	}
}

// ColSize returns the element count of the im2col matrix for the given
// geometry: (channels*kh*kw) * (outH*outW).
func ColSize(channels, h, w, kh, kw, padH, padW, strideH, strideW int) int {
	outH := OutDim(h, kh, padH, strideH)
	outW := OutDim(w, kw, padW, strideW)
	return channels * kh * kw * outH * outW
}
