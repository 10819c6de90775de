package layer

import "github.com/itohio/cnnengine/pkg/tensor"

// fakeTable is a minimal TensorTable backing standalone layer tests: a
// flat slice indexed exactly like the network's real tensor table,
// without requiring a full network.Compile.
type fakeTable struct {
	tensors []*tensor.Tensor
}

func newFakeTable() *fakeTable { return &fakeTable{} }

func (f *fakeTable) add(name string, n, c, h, w int, withGrad ...bool) int {
	t := tensor.New(name, n, c, h, w)
	grad := len(withGrad) > 0 && withGrad[0]
	t.Allocate(grad)
	idx := len(f.tensors)
	f.tensors = append(f.tensors, t)
	return idx
}

func (f *fakeTable) Tensor(idx int) *tensor.Tensor { return f.tensors[idx] }
