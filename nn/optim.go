package nn

import "github.com/hupe1980/embfuse/internal/math32"

// SGD is plain stochastic gradient descent: w -= LR * grad.
type SGD struct {
	LR float32
}

// Step applies and then clears the gradients of every trainable parameter.
// Frozen parameters are skipped.
func (o SGD) Step(params []*Parameter) {
	for _, p := range params {
		if !p.RequiresGrad() {
			continue
		}
		p.ForEachRow(func(r int) {
			math32.Axpy(-o.LR, p.Grad.Row(r), p.Value.Row(r))
		})
		p.ZeroGrad()
	}
}
