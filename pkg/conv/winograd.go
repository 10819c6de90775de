package conv

// Winograd F(2x2, 3x3) minimal-multiplication convolution.
// Tiles the output into 2x2 patches, each patch transforms a 4x4
// input window through the source transform, multiplies element-wise
// per channel (16 independent scalar multiplies per tile-pair), applies
// the destination transform, and writes the 2x2 output. Only valid for
// 3x3, stride-1 convolution; callers fall back to Im2Col+GEMM otherwise.

// WinogradTiles returns the tile counts ceil(dstH/2), ceil(dstW/2).
func WinogradTiles(dstH, dstW int) (int, int) {
	return (dstH + 1) / 2, (dstW + 1) / 2
}

// bt is the 4x4 source transform matrix B^T (rows), at is the 2x4
// destination transform A^T, g is the 4x3 weight transform G, the
// standard F(2,3) matrices.
var bt = [4][4]float32{
	{1, 0, -1, 0},
	{0, 1, 1, 0},
	{0, -1, 1, 0},
	{0, 1, 0, -1},
}

var at = [2][4]float32{
	{1, 1, 1, 0},
	{0, 1, -1, -1},
}

var g = [4][3]float32{
	{1, 0, 0},
	{0.5, 0.5, 0.5},
	{0.5, -0.5, 0.5},
	{0, 0, 1},
}

// TransformWeight applies the weight transform G*w*G^T to a 3x3 kernel,
// producing a 4x4 transformed kernel. Weights are pre-transformed once
// at load time.
func TransformWeight(dst *[4][4]float32, w *[3][3]float32) {
	var tmp [4][3]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			var acc float32
			for k := 0; k < 3; k++ {
				acc += g[i][k] * w[k][j]
			}
			tmp[i][j] = acc
		}
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var acc float32
			for k := 0; k < 3; k++ {
				acc += tmp[i][k] * g[j][k]
			}
			dst[i][j] = acc
		}
	}
}

// transformSource applies B^T*d*B to a 4x4 input tile.
func transformSource(d *[4][4]float32) [4][4]float32 {
	var tmp, out [4][4]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var acc float32
			for k := 0; k < 4; k++ {
				acc += bt[i][k] * d[k][j]
			}
			tmp[i][j] = acc
		}
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var acc float32
			for k := 0; k < 4; k++ {
				acc += tmp[i][k] * bt[j][k]
			}
			out[i][j] = acc
		}
	}
	return out
}

// transformDest applies A^T*m*A to a 4x4 elementwise product, yielding
// the 2x2 output tile.
func transformDest(m *[4][4]float32) [2][2]float32 {
	var tmp [2][4]float32
	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			var acc float32
			for k := 0; k < 4; k++ {
				acc += at[i][k] * m[k][j]
			}
			tmp[i][j] = acc
		}
	}
	var out [2][2]float32
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			var acc float32
			for k := 0; k < 4; k++ {
				acc += tmp[i][k] * at[j][k]
			}
			out[i][j] = acc
		}
	}
	return out
}

// ConvWinograd2x2_3x3 computes a stride-1, pad-1, 3x3 convolution of a
// single sample via Winograd F(2,3). in is (inC, h, w), weightsT is
// outC transformed 4x4 kernels per inC (outC*inC 4x4 matrices, row-major
// outC-major then inC-major), out is (outC, dstH, dstW) with
// dstH=h, dstW=w (pad=1 keeps spatial size). Tiles beyond the input are
// zero-padded.
func ConvWinograd2x2_3x3(out []float32, in []float32, weightsT [][][4][4]float32, inC, outC, h, w int) {
	dstH, dstW := h, w
	tilesH, tilesW := WinogradTiles(dstH, dstW)

	for ty := 0; ty < tilesH; ty++ {
		for tx := 0; tx < tilesW; tx++ {
			oy0 := ty * 2
			ox0 := tx * 2

			// accumulate per output channel
			for oc := 0; oc < outC; oc++ {
				var acc [4][4]float32
				for ic := 0; ic < inC; ic++ {
					var tile [4][4]float32
					base := ic * h * w
					for r := 0; r < 4; r++ {
						iy := oy0 + r - 1
						for c := 0; c < 4; c++ {
							ix := ox0 + c - 1
							if iy >= 0 && iy < h && ix >= 0 && ix < w {
								tile[r][c] = in[base+iy*w+ix]
							}
						}
					}
					u := transformSource(&tile)
					wk := weightsT[oc][ic]
					for r := 0; r < 4; r++ {
						for c := 0; c < 4; c++ {
							acc[r][c] += u[r][c] * wk[r][c]
						}
					}
				}
				o := transformDest(&acc)
				outBase := oc * dstH * dstW
				for r := 0; r < 2; r++ {
					oy := oy0 + r
					if oy >= dstH {
						continue
					}
					for c := 0; c < 2; c++ {
						ox := ox0 + c
						if ox >= dstW {
							continue
						}
						out[outBase+oy*dstW+ox] = o[r][c]
					}
				}
			}
		}
	}
}
