package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutDim(t *testing.T) {
	assert.Equal(t, 4, OutDim(4, 3, 1, 1)) // SAME, 3x3, pad1, stride1
	assert.Equal(t, 2, OutDim(4, 3, 0, 1)) // VALID
}

func TestIm2ColIdentityCenterTap(t *testing.T) {
	// 1 channel, 4x4 input of 1s, 3x3 kernel, pad=1, stride=1: each
	// column's center row corresponds to the unshifted (ky=1,kx=1) tap,
	// which must equal the source pixel itself everywhere (// identity-kernel setup from ).
	h, w := 4, 4
	im := make([]float32, h*w)
	for i := range im {
		im[i] = 1
	}
	kh, kw := 3, 3
	outH, outW := OutDim(h, kh, 1, 1), OutDim(w, kw, 1, 1)
	col := make([]float32, ColSize(1, h, w, kh, kw, 1, 1, 1, 1))
	Im2Col(col, im, 1, h, w, kh, kw, 1, 1, 1, 1)

	centerRow := 1*kw + 1 // ky=1, kx=1
	for o := 0; o < outH*outW; o++ {
		assert.Equal(t, float32(1), col[centerRow*outH*outW+o])
	}
}

func TestCol2ImIsAdjointOfIm2Col(t *testing.T) {
	h, w := 3, 3
	im := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	kh, kw := 3, 3
	col := make([]float32, ColSize(1, h, w, kh, kw, 1, 1, 1, 1))
	Im2Col(col, im, 1, h, w, kh, kw, 1, 1, 1, 1)

	recon := make([]float32, h*w)
	// col2im with the all-ones "weight" (im2col's own output) recovers a
	// per-pixel overlap count-weighted sum; verify at least the center
	// pixel (touched by all 9 taps) accumulates exactly 9x its value.
	Col2Im(recon, col, 1, h, w, kh, kw, 1, 1, 1, 1)
	assert.Equal(t, float32(9*5), recon[4]) // center pixel index 4, value 5
}
