package base

import (
	"math"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Init sets the values of a tensor in place. nn.Init values satisfy it.
type Init interface {
	Set(x *ts.Tensor)
}

// Normal draws every element independently from N(Mean, Std^2).
type Normal struct {
	Mean float64
	Std  float64
}

// Set implements Init.
func (n Normal) Set(x *ts.Tensor) {
	r := ts.MustRandn(x.MustSize(), gotch.Float, x.MustDevice())
	r = r.MustMul1(ts.FloatScalar(n.Std), true)
	if n.Mean != 0 {
		r = r.MustAdd1(ts.FloatScalar(n.Mean), true)
	}
	x.Copy_(r)
	r.MustDrop()
}

// InitPolicy picks the initializers of a layer's weight and bias.
// A nil initializer leaves the tensor as constructed.
type InitPolicy func(l *Layer) (ws, bs Init)

var (
	// OSVOSInit initializes the segmentation network:
	//   - conv:      weight ~ N(0, 0.001), bias = 0
	//   - linear:    weight ~ N(0, 0.01),  bias = 0
	//   - batchnorm: scale = 1, offset = 0
	OSVOSInit InitPolicy = osvosInit

	// VGGInit initializes a VGG classifier. Conv weights follow He et al.
	// with n = k*k*cOut, everything else as OSVOSInit.
	VGGInit InitPolicy = vggInit
)

func osvosInit(l *Layer) (ws, bs Init) {
	switch l.Kind {
	case KindConv:
		return Normal{Std: 0.001}, nn.NewConstInit(0)
	case KindLinear:
		return Normal{Std: 0.01}, nn.NewConstInit(0)
	case KindBatchNorm:
		return nn.NewConstInit(1), nn.NewConstInit(0)
	}
	return nil, nil
}

func vggInit(l *Layer) (ws, bs Init) {
	if l.Kind == KindConv {
		n := float64(l.KSize * l.KSize * l.COut)
		return Normal{Std: math.Sqrt(2.0 / n)}, nn.NewConstInit(0)
	}
	return osvosInit(l)
}

// Apply re-initializes in place every parametric layer of the given lists.
func (p InitPolicy) Apply(lists ...*LayerList) {
	ts.NoGrad(func() {
		for _, list := range lists {
			list.Each(func(_ int, l *Layer) {
				if !l.Kind.Parametric() {
					return
				}
				ws, bs := p(l)
				if ws != nil {
					ws.Set(l.Weight())
				}
				if bs != nil && l.Bias() != nil {
					bs.Set(l.Bias())
				}
			})
		}
	})
}
