// Package layer implements the layer kinds of the engine: each as a
// node exposing forward/backward/update/release, owning its parameter
// tensors and any auxiliary buffers. Follows an nn/layers-style design
// (Base embedding, functional Option pattern, Parameter struct,
// nil-receiver guard style) but restructured so nodes reference tensors
// by integer index into the network's flat table (TensorTable) rather
// than holding tensor values directly, so the graph is an arena of
// tensors plus a node list instead of a pointer graph.
package layer

import "github.com/itohio/cnnengine/pkg/tensor"

// Kind tags a node's variant, dispatching forward/backward/update by
// virtual call rather than a global function-table registry.
type Kind int

const (
	KindConv2D Kind = iota
	KindConvTranspose2D
	KindDepthwiseConv2D
	KindFC
	KindBatchNorm
	KindLRN
	KindMaxPool2D
	KindAvgPool2D
	KindActivation
	KindSoftmax
	KindDropout
	KindConcat
	KindEltwiseAdd
	KindUpsample
	KindReshape
	KindCost
	KindYOLO
)

func (k Kind) String() string {
	switch k {
	case KindConv2D:
		return "conv2d"
	case KindConvTranspose2D:
		return "convtranspose2d"
	case KindDepthwiseConv2D:
		return "depthwiseconv2d"
	case KindFC:
		return "fc"
	case KindBatchNorm:
		return "batchnorm"
	case KindLRN:
		return "lrn"
	case KindMaxPool2D:
		return "maxpool2d"
	case KindAvgPool2D:
		return "avgpool2d"
	case KindActivation:
		return "activation"
	case KindSoftmax:
		return "softmax"
	case KindDropout:
		return "dropout"
	case KindConcat:
		return "concat"
	case KindEltwiseAdd:
		return "eltwiseadd"
	case KindUpsample:
		return "upsample"
	case KindReshape:
		return "reshape"
	case KindCost:
		return "cost"
	case KindYOLO:
		return "yolo"
	default:
		return "unknown"
	}
}

// Activation is the element-wise nonlinearity tag a layer applies
// after its main computation.
type Activation int

const (
	ActNone Activation = iota
	ActTanh
	ActRelu
	ActRamp
	ActSoftplus
	ActLeakyRelu
	ActAbs
	ActClamp
	ActPRelu
	ActLogistic
)

// TensorTable is the subset of the network's tensor arena a node needs:
// resolve a tensor by its table index. Declared here (not in package
// network) so layer has no dependency on network, avoiding an import
// cycle: network depends on layer, not the reverse.
type TensorTable interface {
	Tensor(idx int) *tensor.Tensor
}

// Optimizer is the subset of the learning-rate/optimizer behavior a node's Update needs.
// learn.SGD and learn.Adam satisfy this structurally.
type Optimizer interface {
	Update(p *Param) error
}

// Param is a trainable parameter tensor: weights, biases, batch-norm
// statistics, or a PReLU slope vector. Folded onto this package's own
// tensor.Tensor (which already carries Data+Grad together, so Param
// need not duplicate a separate Grad field).
type Param struct {
	T            *tensor.Tensor
	RequiresGrad bool
}

// ZeroGrad zeros the parameter's gradient buffer, if tracked.
func (p *Param) ZeroGrad() {
	if p == nil || !p.RequiresGrad || p.T == nil {
		return
	}
	p.T.ZeroGrad()
}

// Node is the polymorphic per-node behavior: at least one
// of Forward/Backward/Update may be a no-op for layers with no
// parameters or no gradients, but every node implements all four so the
// network engine can dispatch uniformly.
type Node interface {
	Kind() Kind
	Name() string

	// Src/Dst are indices into the network's tensor table: inputs and
	// outputs, respectively. Parameter tensors are not listed here; the
	// node holds them and returns them from Params.
	Src() []int
	Dst() []int

	// Params returns the node's trainable tensors in checkpoint
	// declaration order: weights, biases, then any fused
	// batch-norm / PReLU tensors, per layer kind.
	Params() []*Param

	Forward(t TensorTable)
	Backward(t TensorTable)
	Update(opt Optimizer) error
	Release()
}
