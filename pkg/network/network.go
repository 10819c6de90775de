// Package network implements the tensor table, the node
// list, and the compile/forward/backward/update execution loops.
// Follows a Sequential-model forward/backward loop shape (error
// wrapping per layer index) generalized from a linear layer stack to
// an arena-of-tensors-plus-index-referencing-nodes graph.
package network

import (
	"fmt"

	"github.com/itohio/cnnengine/pkg/elog"
	"github.com/itohio/cnnengine/pkg/layer"
	"github.com/itohio/cnnengine/pkg/status"
	"github.com/itohio/cnnengine/pkg/tensor"
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
)

// Mode is the network's execution state, "mode ∈
// {PREDICT, TRAIN, VALID}".
type Mode int

const (
	ModePredict Mode = iota
	ModeTrain
	ModeValid
)

// Network holds the flat tensor table and node list of : tensor
// index 0 is the primary input, index 1 the label tensor when
// training; nodes reference tensors by table index, never by pointer.
type Network struct {
	name        string
	batchSize   int
	mode        Mode
	compiled    bool
	gradsAlloc  bool

	tensors    []*tensor.Tensor
	tensorByName map[string]int

	nodes []layer.Node

	log elog.Logger
}

// New creates an empty network with the given batch size. Nodes and
// tensors are appended by the caller (typically a model builder) before
// Compile.
func New(name string, batchSize int) *Network {
	return &Network{
		name:         name,
		batchSize:    batchSize,
		tensorByName: make(map[string]int),
		log:          elog.New(),
	}
}

// SetLogger overrides the network's logging sink.
func (n *Network) SetLogger(l elog.Logger) { n.log = l }

// AddTensor appends a new, named, shaped tensor to the table and
// returns its index.
func (n *Network) AddTensor(name string, c, h, w int) (int, error) {
	if _, exists := n.tensorByName[name]; exists {
		return 0, fmt.Errorf("network: %w: duplicate tensor name %q", status.ErrInvalidParameter, name)
	}
	t := tensor.New(name, n.batchSize, c, h, w)
	idx := len(n.tensors)
	n.tensors = append(n.tensors, t)
	n.tensorByName[name] = idx
	return idx, nil
}

// Tensor resolves a tensor by table index; implements layer.TensorTable
// so every node can be handed the network directly.
func (n *Network) Tensor(idx int) *tensor.Tensor {
	if idx < 0 || idx >= len(n.tensors) {
		return nil
	}
	return n.tensors[idx]
}

// TensorByName resolves a tensor by its unique name.
func (n *Network) TensorByName(name string) (*tensor.Tensor, error) {
	idx, ok := n.tensorByName[name]
	if !ok {
		return nil, fmt.Errorf("network: %w: no tensor named %q", status.ErrInvalidParameter, name)
	}
	return n.tensors[idx], nil
}

// AddNode appends a node to the execution list. Order is also the
// forward execution order; the caller is responsible for
// only referencing tensors defined earlier in the table.
func (n *Network) AddNode(node layer.Node) error {
	if n.compiled {
		return fmt.Errorf("network: %w: cannot add nodes after Compile", status.ErrInvalidParameter)
	}
	for _, idx := range node.Src() {
		if idx < 0 || idx >= len(n.tensors) {
			return fmt.Errorf("network: %w: node %q references undefined tensor index %d", status.ErrInvalidParameter, node.Name(), idx)
		}
	}
	n.nodes = append(n.nodes, node)
	return nil
}

// Compile validates the graph is a DAG and allocates
// every tensor's data (and, in TRAIN/VALID mode, gradient) buffer.
// After Compile, tensor shapes may not change.
func (n *Network) Compile() error {
	if n.compiled {
		return fmt.Errorf("network: %w: already compiled", status.ErrInvalidParameter)
	}
	if err := n.validateDAG(); err != nil {
		return err
	}

	withGrad := n.mode != ModePredict
	for _, t := range n.tensors {
		t.Allocate(withGrad)
	}
	n.gradsAlloc = withGrad
	n.compiled = true
	n.log.Infof("network %q compiled: %d tensors, %d nodes, grads=%v", n.name, len(n.tensors), len(n.nodes), withGrad)
	return nil
}

// validateDAG builds a lvlath directed graph over tensor indices
// (vertices) and node-induced src->dst edges, then runs TopologicalSort
// to catch any cycle a caller's node list might accidentally encode.
// The engine itself only ever walks the declaration order, but a cycle
// here would mean a node reads a tensor no earlier node could have
// produced yet.
func (n *Network) validateDAG() error {
	g := core.NewGraph(core.WithDirected(true))
	for i := range n.tensors {
		if err := g.AddVertex(vertexID(i)); err != nil {
			return fmt.Errorf("network: %w: %v", status.ErrInternal, err)
		}
	}
	for _, node := range n.nodes {
		for _, s := range node.Src() {
			for _, d := range node.Dst() {
				if s == d {
					continue // in-place node: self-edge is not a cycle
				}
				if _, err := g.AddEdge(vertexID(s), vertexID(d), 1); err != nil {
					return fmt.Errorf("network: %w: %v", status.ErrInternal, err)
				}
			}
		}
	}
	if _, err := dfs.TopologicalSort(g); err != nil {
		return fmt.Errorf("network: %w: graph is not acyclic: %v", status.ErrInvalidData, err)
	}
	return nil
}

func vertexID(i int) string { return fmt.Sprintf("t%d", i) }

// SetMode transitions the network's execution mode. A
// transition into TRAIN after compile fails unless gradients were
// allocated at compile time.
func (n *Network) SetMode(m Mode) error {
	if m == ModeTrain && n.compiled && !n.gradsAlloc {
		return fmt.Errorf("network: %w: cannot switch to TRAIN, gradients were not allocated at compile time", status.ErrInvalidParameter)
	}
	n.mode = m
	return nil
}

// Mode returns the network's current execution mode.
func (n *Network) Mode() Mode { return n.mode }

// Forward walks the node list in declaration order. In TRAIN/VALID
// mode, each node's destination tensors have their gradient buffers
// zeroed immediately before that node runs, so a caller can drive
// Forward/Backward/Update in a loop without an explicit ZeroGrad call;
// ZeroGrad remains available for callers who want to reset gradients
// at a different point (e.g. before accumulating over several
// Forward/Backward pairs).
func (n *Network) Forward() error {
	if !n.compiled {
		return fmt.Errorf("network: %w: Forward called before Compile", status.ErrInvalidParameter)
	}
	training := n.mode != ModePredict
	for _, node := range n.nodes {
		if training {
			for _, d := range node.Dst() {
				n.tensors[d].ZeroGrad()
			}
		}
		node.Forward(n)
	}
	return nil
}

// Backward walks the node list in reverse, accumulating gradients into
// whatever the destination tensors held on entry. Forward already
// zeroed each node's destination gradients for this step; call
// ZeroGrad explicitly first if a caller wants accumulation across
// multiple Forward/Backward pairs instead.
func (n *Network) Backward() error {
	if !n.compiled {
		return fmt.Errorf("network: %w: Backward called before Compile", status.ErrInvalidParameter)
	}
	if !n.gradsAlloc {
		return fmt.Errorf("network: %w: Backward called but gradients were not allocated", status.ErrInvalidParameter)
	}
	for i := len(n.nodes) - 1; i >= 0; i-- {
		n.nodes[i].Backward(n)
	}
	return nil
}

// ZeroGrad zeros every tensor's gradient buffer.
func (n *Network) ZeroGrad() {
	for _, t := range n.tensors {
		t.ZeroGrad()
	}
}

// Update walks the node list forward, applying opt to every
// parameterized node.
func (n *Network) Update(opt layer.Optimizer) error {
	for i, node := range n.nodes {
		if err := node.Update(opt); err != nil {
			return fmt.Errorf("network: update node %d (%s): %w", i, node.Name(), err)
		}
	}
	return nil
}

// LossReader is implemented by loss-producing nodes (Cost, YOLO) so
// Loss can aggregate across them without a type switch per kind.
type LossReader interface {
	Loss() float32
}

// Loss returns the mean loss over every loss-producing node in the
// graph.
func (n *Network) Loss() float32 {
	var sum float32
	var count int
	for _, node := range n.nodes {
		if lr, ok := node.(LossReader); ok {
			sum += lr.Loss()
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float32(count)
}

// Release calls Release on every node, freeing auxiliary buffers.
func (n *Network) Release() {
	for _, node := range n.nodes {
		node.Release()
	}
}

// NodeCount returns the number of nodes in declaration order.
func (n *Network) NodeCount() int { return len(n.nodes) }

// Node returns the node at declaration index i.
func (n *Network) Node(i int) layer.Node { return n.nodes[i] }

// TensorCount returns the number of tensors in the table.
func (n *Network) TensorCount() int { return len(n.tensors) }
