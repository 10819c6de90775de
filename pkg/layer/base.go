package layer

import (
	"fmt"
	"math/rand"
	"sync/atomic"
)

var layerCounter int64

// Option configures a node's Base at construction time, following a
// functional-option pattern.
type Option func(*Base)

// Base provides the common bookkeeping every node embeds: name,
// tensor-table wiring, parameters, and the RNG used for weight init.
// Concrete layers (Conv2D, FC, ...) embed Base and implement
// Forward/Backward/Update/Release themselves.
type Base struct {
	name     string
	nameSet  bool
	prefix   string
	kind     Kind
	canLearn bool
	rng      *rand.Rand

	src, dst []int

	params      map[int]*Param // keyed by declaration order, 0-based
	paramSeq    []int          // insertion order, for Params()
	layerIdx    int64
	useWinograd bool
}

// NewBase creates a Base for a node of the given kind, auto-named from
// a global layer counter unless overridden by WithName.
func NewBase(kind Kind, prefix string, src, dst []int) Base {
	idx := atomic.AddInt64(&layerCounter, 1)
	return Base{
		prefix:   prefix,
		kind:     kind,
		rng:      rand.New(rand.NewSource(int64(idx)*2654435761 + 1)),
		src:      src,
		dst:      dst,
		params:   make(map[int]*Param),
		layerIdx: idx,
	}
}

// ParseOptions applies opts to b, in order.
func (b *Base) ParseOptions(opts ...Option) {
	for _, opt := range opts {
		opt(b)
	}
}

// WithName sets the node's name explicitly.
func WithName(name string) Option {
	return func(b *Base) {
		b.name = name
		b.nameSet = true
	}
}

// WithCanLearn sets whether the node's parameters require gradients.
func WithCanLearn(v bool) Option {
	return func(b *Base) { b.canLearn = v }
}

// WithWinograd opts a qualifying Conv2D into the Winograd F(2,3) fast
// forward path instead of im2col+GEMM. Conv2D itself still checks the
// kernel/stride/pad geometry (3x3, stride 1, pad 1) before honoring it;
// other node kinds ignore this flag.
func WithWinograd(v bool) Option {
	return func(b *Base) { b.useWinograd = v }
}

// UseWinograd reports whether WithWinograd(true) was passed.
func (b *Base) UseWinograd() bool { return b.useWinograd }

// WithRNG overrides the node's random source, used by Xavier/MSRA init.
func WithRNG(rng *rand.Rand) Option {
	return func(b *Base) {
		if rng != nil {
			b.rng = rng
		}
	}
}

// Kind returns the node's kind tag.
func (b *Base) Kind() Kind { return b.kind }

// Name returns the node's name, generating {prefix}_{idx} on first use
// if none was set explicitly.
func (b *Base) Name() string {
	if b.nameSet {
		return b.name
	}
	if b.prefix != "" {
		b.name = fmt.Sprintf("%s_%d", b.prefix, b.layerIdx)
	} else {
		b.name = fmt.Sprintf("node_%d", b.layerIdx)
	}
	b.nameSet = true
	return b.name
}

// Src returns the node's source tensor indices.
func (b *Base) Src() []int { return b.src }

// Dst returns the node's destination tensor indices.
func (b *Base) Dst() []int { return b.dst }

// CanLearn reports whether this node's parameters require gradients.
func (b *Base) CanLearn() bool { return b.canLearn }

// RNG returns the node's random source.
func (b *Base) RNG() *rand.Rand { return b.rng }

// addParam registers a parameter in declaration order and returns it.
func (b *Base) addParam(t *Param) *Param {
	idx := len(b.paramSeq)
	b.params[idx] = t
	b.paramSeq = append(b.paramSeq, idx)
	t.RequiresGrad = b.canLearn
	return t
}

// Params returns the node's parameters in checkpoint declaration order.
func (b *Base) Params() []*Param {
	out := make([]*Param, 0, len(b.paramSeq))
	for _, idx := range b.paramSeq {
		out = append(out, b.params[idx])
	}
	return out
}

// Release is a no-op default; layers with auxiliary buffers (scratch,
// masks, Adam state held elsewhere) override it.
func (b *Base) Release() {}
