//go:build !purego

package kernel

import "github.com/ajroetker/go-highway/hwy"

// Axpy computes y[i] += a*x[i] for num elements (BLAS axpy). The
// unit-stride case is vectorized via hwy; any other stride falls back
// to a scalar loop.
func Axpy(num int, a float32, x []float32, strideX int, y []float32, strideY int) {
	if a == 0 {
		return
	}
	if strideX == 1 && strideY == 1 {
		av := hwy.Set(a)
		lanes := hwy.MaxLanes[float32]()
		i := 0
		for ; i+lanes <= num; i += lanes {
			xv := hwy.Load(x[i : i+lanes])
			yv := hwy.Load(y[i : i+lanes])
			hwy.Store(hwy.MulAdd(av, xv, yv), y[i:i+lanes])
		}
		for ; i < num; i++ {
			y[i] += a * x[i]
		}
		return
	}
	px, py := 0, 0
	for i := 0; i < num; i++ {
		y[py] += a * x[px]
		px += strideX
		py += strideY
	}
}

// Dot computes the dot product of x and y, strided, over num elements.
// The unit-stride case is vectorized via hwy.
func Dot(x []float32, strideX int, y []float32, strideY int, num int) float32 {
	if strideX == 1 && strideY == 1 {
		lanes := hwy.MaxLanes[float32]()
		acc := hwy.Zero[float32]()
		i := 0
		for ; i+lanes <= num; i += lanes {
			acc = hwy.MulAdd(hwy.Load(x[i:i+lanes]), hwy.Load(y[i:i+lanes]), acc)
		}
		var sum float32
		for _, v := range acc.Data() {
			sum += v
		}
		for ; i < num; i++ {
			sum += x[i] * y[i]
		}
		return sum
	}
	var acc float32
	px, py := 0, 0
	for i := 0; i < num; i++ {
		acc += x[px] * y[py]
		px += strideX
		py += strideY
	}
	return acc
}
