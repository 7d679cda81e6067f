package embfuse

import (
	"github.com/hupe1980/embfuse/nn"
	"github.com/hupe1980/embfuse/tensor"
)

// fusion is the closed set of fusion policies. Exactly one is chosen at
// construction.
type fusion interface {
	forward(ids *tensor.IDs) (*tensor.Dense, error)
	backward(ids *tensor.IDs, grad *tensor.Dense) error
	outputDim() int
	parameters() []*nn.Parameter
}

var (
	_ fusion = initFusion{}
	_ fusion = sumFusion{}
	_ fusion = concatFusion{}
)

// trainable filters out frozen parameters.
func trainable(params ...*nn.Parameter) []*nn.Parameter {
	var out []*nn.Parameter
	for _, p := range params {
		if p != nil && p.RequiresGrad() {
			out = append(out, p)
		}
	}
	return out
}

type initFusion struct {
	pretrained nn.Lookup
}

func (f initFusion) forward(ids *tensor.IDs) (*tensor.Dense, error) {
	return f.pretrained.Forward(ids)
}

func (f initFusion) backward(ids *tensor.IDs, grad *tensor.Dense) error {
	return f.pretrained.Backward(ids, grad)
}

func (f initFusion) outputDim() int { return f.pretrained.Dim() }

func (f initFusion) parameters() []*nn.Parameter {
	return trainable(f.pretrained.Weight())
}

// sumFusion adds the pretrained vector, projected when proj is set, to the ID vector.
type sumFusion struct {
	pretrained nn.Lookup
	id         nn.Lookup
	proj       nn.Projection
}

func (f sumFusion) forward(ids *tensor.IDs) (*tensor.Dense, error) {
	pre, err := f.pretrained.Forward(ids)
	if err != nil {
		return nil, err
	}
	if f.proj != nil {
		if pre, err = f.proj.Forward(pre); err != nil {
			return nil, err
		}
	}
	idEmb, err := f.id.Forward(ids)
	if err != nil {
		return nil, err
	}
	return tensor.Add(pre, idEmb)
}

func (f sumFusion) backward(ids *tensor.IDs, grad *tensor.Dense) error {
	if err := f.id.Backward(ids, grad); err != nil {
		return err
	}
	if f.proj == nil {
		return f.pretrained.Backward(ids, grad)
	}
	pre, err := f.pretrained.Forward(ids)
	if err != nil {
		return err
	}
	dpre, err := f.proj.Backward(pre, grad)
	if err != nil {
		return err
	}
	return f.pretrained.Backward(ids, dpre)
}

func (f sumFusion) outputDim() int { return f.id.Dim() }

func (f sumFusion) parameters() []*nn.Parameter {
	params := []*nn.Parameter{f.pretrained.Weight(), f.id.Weight()}
	if f.proj != nil {
		params = append(params, f.proj.Parameters()...)
	}
	return trainable(params...)
}

// concatFusion projects [pretrained | id] back to embedding_dim.
type concatFusion struct {
	pretrained nn.Lookup
	id         nn.Lookup
	proj       nn.Projection
}

func (f concatFusion) joined(ids *tensor.IDs) (*tensor.Dense, error) {
	pre, err := f.pretrained.Forward(ids)
	if err != nil {
		return nil, err
	}
	idEmb, err := f.id.Forward(ids)
	if err != nil {
		return nil, err
	}
	return tensor.Concat(pre, idEmb)
}

func (f concatFusion) forward(ids *tensor.IDs) (*tensor.Dense, error) {
	x, err := f.joined(ids)
	if err != nil {
		return nil, err
	}
	return f.proj.Forward(x)
}

func (f concatFusion) backward(ids *tensor.IDs, grad *tensor.Dense) error {
	x, err := f.joined(ids)
	if err != nil {
		return err
	}
	dx, err := f.proj.Backward(x, grad)
	if err != nil {
		return err
	}
	dpre, did, err := tensor.Split(dx, f.pretrained.Dim())
	if err != nil {
		return err
	}
	if err := f.pretrained.Backward(ids, dpre); err != nil {
		return err
	}
	return f.id.Backward(ids, did)
}

func (f concatFusion) outputDim() int { return f.proj.OutDim() }

func (f concatFusion) parameters() []*nn.Parameter {
	return trainable(append([]*nn.Parameter{f.pretrained.Weight(), f.id.Weight()}, f.proj.Parameters()...)...)
}
