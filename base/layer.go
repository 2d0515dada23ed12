package base

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Kind tags what a Layer computes. It is assigned once, at construction.
type Kind int

const (
	KindConv Kind = iota
	KindBatchNorm
	KindLinear
	KindReLU
	KindMaxPool
	KindAvgPool
	KindDropout
	KindFlatten
)

var kindNames = map[Kind]string{
	KindConv:      "conv",
	KindBatchNorm: "batchnorm",
	KindLinear:    "linear",
	KindReLU:      "relu",
	KindMaxPool:   "maxpool",
	KindAvgPool:   "avgpool",
	KindDropout:   "dropout",
	KindFlatten:   "flatten",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Parametric reports whether layers of this kind own learnable tensors.
func (k Kind) Parametric() bool {
	return k == KindConv || k == KindBatchNorm || k == KindLinear
}

// Layer is a single computation step of a network.
//
// Only the module matching Kind is set. CIn, COut and KSize describe the
// layer geometry and are zero where they do not apply.
type Layer struct {
	Kind  Kind
	CIn   int64
	COut  int64
	KSize int64

	Conv      *nn.Conv2D
	BatchNorm *nn.BatchNorm
	Linear    *nn.Linear

	stride  int64
	prob    float64
	outSize []int64
}

// Weight returns the learnable weight of a parametric layer, nil otherwise.
func (l *Layer) Weight() *ts.Tensor {
	switch l.Kind {
	case KindConv:
		return l.Conv.Ws
	case KindBatchNorm:
		return l.BatchNorm.Ws
	case KindLinear:
		return l.Linear.Ws
	}
	return nil
}

// Bias returns the learnable bias of a parametric layer, nil otherwise.
func (l *Layer) Bias() *ts.Tensor {
	switch l.Kind {
	case KindConv:
		return l.Conv.Bs
	case KindBatchNorm:
		return l.BatchNorm.Bs
	case KindLinear:
		return l.Linear.Bs
	}
	return nil
}

// ForwardT implements ts.ModuleT for Layer.
// The input tensor is left untouched.
func (l *Layer) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	switch l.Kind {
	case KindConv:
		return l.Conv.ForwardT(x, train)
	case KindBatchNorm:
		return l.BatchNorm.ForwardT(x, train)
	case KindLinear:
		return l.Linear.Forward(x)
	case KindReLU:
		return x.MustRelu(false)
	case KindMaxPool:
		k, s := l.KSize, l.stride
		return x.MustMaxPool2d([]int64{k, k}, []int64{s, s}, []int64{0, 0}, []int64{1, 1}, false, false)
	case KindAvgPool:
		return x.MustAdaptiveAvgPool2d(l.outSize, false)
	case KindDropout:
		return ts.MustDropout(x, l.prob, train)
	case KindFlatten:
		return x.FlatView()
	}

	panic(fmt.Sprintf("base: forward of unknown layer kind %v", l.Kind))
}

func (l *Layer) String() string {
	switch l.Kind {
	case KindConv:
		return fmt.Sprintf("conv(%d, %d, k=%d)", l.CIn, l.COut, l.KSize)
	case KindBatchNorm:
		return fmt.Sprintf("batchnorm(%d)", l.COut)
	case KindLinear:
		return fmt.Sprintf("linear(%d, %d)", l.CIn, l.COut)
	case KindMaxPool:
		return fmt.Sprintf("maxpool(k=%d, s=%d)", l.KSize, l.stride)
	case KindDropout:
		return fmt.Sprintf("dropout(%v)", l.prob)
	case KindAvgPool:
		return fmt.Sprintf("avgpool(%v)", l.outSize)
	}
	return l.Kind.String()
}

// Conv2d creates a biased convolution layer.
func Conv2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *Layer {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return &Layer{
		Kind:  KindConv,
		CIn:   cIn,
		COut:  cOut,
		KSize: ksize,
		Conv:  nn.NewConv2D(p, cIn, cOut, ksize, config),
	}
}

// BatchNorm2d creates a 2D batch normalization layer.
func BatchNorm2d(p *nn.Path, c int64) *Layer {
	return &Layer{
		Kind:      KindBatchNorm,
		CIn:       c,
		COut:      c,
		BatchNorm: nn.BatchNorm2D(p, c, nn.DefaultBatchNormConfig()),
	}
}

// Linear creates a fully-connected layer.
func Linear(p *nn.Path, inDim, outDim int64) *Layer {
	return &Layer{
		Kind:   KindLinear,
		CIn:    inDim,
		COut:   outDim,
		Linear: nn.NewLinear(p, inDim, outDim, nn.DefaultLinearConfig()),
	}
}

// ReLU creates a rectified linear activation.
func ReLU() *Layer {
	return &Layer{Kind: KindReLU}
}

// MaxPool2d creates a max pooling layer with no padding.
func MaxPool2d(ksize, stride int64) *Layer {
	return &Layer{Kind: KindMaxPool, KSize: ksize, stride: stride}
}

// AdaptiveAvgPool2d creates an average pooling layer with a fixed output size.
func AdaptiveAvgPool2d(h, w int64) *Layer {
	return &Layer{Kind: KindAvgPool, outSize: []int64{h, w}}
}

// Dropout creates a dropout layer. It is a no-op outside training.
func Dropout(prob float64) *Layer {
	return &Layer{Kind: KindDropout, prob: prob}
}

// Flatten creates a layer reshaping [B ...] into [B N].
func Flatten() *Layer {
	return &Layer{Kind: KindFlatten}
}

// Conv2dRelu creates a LayerList composing of a biased Conv2D and a ReLU activation.
func Conv2dRelu(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *LayerList {
	return NewLayerList(Conv2d(p, cIn, cOut, ksize, padding, stride), ReLU())
}
