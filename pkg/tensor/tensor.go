// Package tensor implements the engine's dense NCHW storage: a four-dimensional block of float32 in batch-major,
// channel, row, column layout, an optional gradient buffer of equal
// size, and an optional device-mirror pointer for an accelerator
// back-end. Panics on shape mismatch, value-ish constructors, and is
// deliberately narrower than a generic N-D tensor type: this engine
// needs NCHW algebra, nothing more.
package tensor

import (
	"fmt"
	"unsafe"
)

// Tensor is a named NCHW float32 block. Index of element (b, k, y, x) is
// ((b*C+k)*H+y)*W+x. Data is stable once allocated; shape does not
// change after the owning network compiles.
type Tensor struct {
	Name string

	N, C, H, W int

	// Data holds N*C*H*W elements once Allocate has been called.
	Data []float32

	// Grad mirrors Data when the tensor is differentiable and the
	// owning network was compiled in a training mode. Nil otherwise.
	Grad []float32

	// Device is an opaque accelerator-side mirror of Data, set by the
	// backend when one is configured. Nil on CPU-only builds.
	Device unsafe.Pointer
}

// New constructs a tensor descriptor with the given name and shape.
// Constructors record name and shape only: Data and Grad are not
// allocated here; call Allocate.
func New(name string, n, c, h, w int) *Tensor {
	return &Tensor{Name: name, N: n, C: c, H: h, W: w}
}

// Size returns the element count N*C*H*W.
func (t *Tensor) Size() int {
	if t == nil {
		return 0
	}
	return t.N * t.C * t.H * t.W
}

// Allocate reserves Data (and, when withGrad, Grad) for the tensor's
// current shape. Calling Allocate on an already-allocated tensor of the
// same size is a no-op; it panics if the existing buffer size disagrees
// with the (possibly since-changed) shape, since shapes must not change
// post-compile.
func (t *Tensor) Allocate(withGrad bool) {
	n := t.Size()
	if t.Data == nil {
		t.Data = make([]float32, n)
	} else if len(t.Data) != n {
		panic(fmt.Sprintf("tensor %q: shape changed after allocation: have %d want %d", t.Name, len(t.Data), n))
	}
	if withGrad {
		if t.Grad == nil {
			t.Grad = make([]float32, n)
		} else if len(t.Grad) != n {
			panic(fmt.Sprintf("tensor %q: grad shape changed after allocation: have %d want %d", t.Name, len(t.Grad), n))
		}
	}
}

// ZeroGrad zeroes the gradient buffer, if present. No-op otherwise.
func (t *Tensor) ZeroGrad() {
	for i := range t.Grad {
		t.Grad[i] = 0
	}
}

// Fill sets every element of Data to v.
func (t *Tensor) Fill(v float32) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// SameShape reports whether t and o have identical (N, C, H, W).
func (t *Tensor) SameShape(o *Tensor) bool {
	return t.N == o.N && t.C == o.C && t.H == o.H && t.W == o.W
}

// At returns the element at (b, k, y, x). Panics if out of bounds.
func (t *Tensor) At(b, k, y, x int) float32 {
	return t.Data[t.Index(b, k, y, x)]
}

// SetAt sets the element at (b, k, y, x). Panics if out of bounds.
func (t *Tensor) SetAt(b, k, y, x int, v float32) {
	t.Data[t.Index(b, k, y, x)] = v
}

// Index computes the flat offset of element (b, k, y, x).
func (t *Tensor) Index(b, k, y, x int) int {
	return ((b*t.C+k)*t.H+y)*t.W + x
}

// HasGrad reports whether the tensor carries a gradient buffer.
func (t *Tensor) HasGrad() bool { return t.Grad != nil }
