package network

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/itohio/cnnengine/pkg/status"
)

// CheckpointHeader is the learner state saved and restored alongside
// the parameter stream, "learning rate, momentum, weight
// decay, seen count".
type CheckpointHeader struct {
	LearningRate float32
	Momentum     float32
	WeightDecay  float32
	Seen         int32
}

// legacySkipper is implemented by nodes (Conv2D, with fused batch-norm)
// whose legacy checkpoint layout omits one parameter tensor.
type legacySkipper interface {
	LegacyBNScaleParamIndex() (int, bool)
}

func writeF32(w io.Writer, v float32) error {
	return binary.Write(w, binary.LittleEndian, math.Float32bits(v))
}

func readF32(r io.Reader) (float32, error) {
	var bits uint32
	if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func writeF32Slice(w io.Writer, data []float32) error {
	for _, v := range data {
		if err := writeF32(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readF32Slice(r io.Reader, data []float32) error {
	for i := range data {
		v, err := readF32(r)
		if err != nil {
			return err
		}
		data[i] = v
	}
	return nil
}

// SaveCheckpoint writes the flat binary stream of : the header,
// then for every node in declaration order, its Params() tensors' data
// in the order the node registered them (weight, bias, fused-BN
// mean/var/scale/bias, or standalone BN's mean/variance/scale/bias, or
// PReLU's slope vector, each node's own addParam sequence).
func (n *Network) SaveCheckpoint(w io.Writer, hdr CheckpointHeader) error {
	if err := writeF32(w, hdr.LearningRate); err != nil {
		return err
	}
	if err := writeF32(w, hdr.Momentum); err != nil {
		return err
	}
	if err := writeF32(w, hdr.WeightDecay); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, hdr.Seen); err != nil {
		return err
	}

	for _, node := range n.nodes {
		for _, p := range node.Params() {
			if err := writeF32Slice(w, p.T.Data); err != nil {
				return fmt.Errorf("network: save checkpoint: node %q: %w", node.Name(), err)
			}
		}
	}
	return nil
}

// LoadCheckpoint reads the current-format stream written by
// SaveCheckpoint, failing with status.ErrInvalidData if the stream ends
// before every node's declared parameters are filled or still holds
// bytes after the last parameter.
func (n *Network) LoadCheckpoint(r io.Reader) (CheckpointHeader, error) {
	return n.loadCheckpoint(r, false)
}

// LoadCheckpointLegacy reads the legacy variant that omits the fused
// batch-norm scale tensor for every Conv2D with fused BN; the scale is
// left at its initialized value.
func (n *Network) LoadCheckpointLegacy(r io.Reader) (CheckpointHeader, error) {
	return n.loadCheckpoint(r, true)
}

func (n *Network) loadCheckpoint(r io.Reader, legacy bool) (CheckpointHeader, error) {
	var hdr CheckpointHeader
	var err error
	if hdr.LearningRate, err = readF32(r); err != nil {
		return hdr, err
	}
	if hdr.Momentum, err = readF32(r); err != nil {
		return hdr, err
	}
	if hdr.WeightDecay, err = readF32(r); err != nil {
		return hdr, err
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr.Seen); err != nil {
		return hdr, err
	}

	for _, node := range n.nodes {
		skipIdx := -1
		if legacy {
			if ls, ok := node.(legacySkipper); ok {
				if idx, has := ls.LegacyBNScaleParamIndex(); has {
					skipIdx = idx
				}
			}
		}
		for i, p := range node.Params() {
			if i == skipIdx {
				continue
			}
			if err := readF32Slice(r, p.T.Data); err != nil {
				return hdr, fmt.Errorf("network: load checkpoint: node %q param %d: %w: %v", node.Name(), i, status.ErrInvalidData, err)
			}
		}
	}
	var extra [1]byte
	if _, err := io.ReadFull(r, extra[:]); err == nil {
		return hdr, fmt.Errorf("network: load checkpoint: %w: stream has bytes past the last parameter", status.ErrInvalidData)
	}
	return hdr, nil
}
