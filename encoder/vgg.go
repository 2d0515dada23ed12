package encoder

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/osvos/base"
)

// makeLayers appends the layers of cfg to list. Layer names are their
// position in the list so that weights exported from PyTorch
// nn.Sequential modules load by name.
func makeLayers(p *nn.Path, list *base.LayerList, cfg StageConfig, cIn int64, batchNorm bool) int64 {
	for _, s := range cfg {
		if s.Pool {
			list.Append(base.MaxPool2d(2, 2))
			continue
		}
		list.Append(base.Conv2d(p.Sub(fmt.Sprint(list.Len())), cIn, s.Channels, 3, 1, 1))
		if batchNorm {
			list.Append(base.BatchNorm2d(p.Sub(fmt.Sprint(list.Len())), s.Channels))
		}
		list.Append(base.ReLU())
		cIn = s.Channels
	}
	return cIn
}

// BuildStages creates one LayerList per stage. Stage i is fed the output
// of stage i-1, stage 0 the cIn channel input.
func BuildStages(p *nn.Path, cfg []StageConfig, cIn int64) []*base.LayerList {
	stages := make([]*base.LayerList, len(cfg))
	for i, c := range cfg {
		stages[i] = base.NewLayerList()
		cIn = makeLayers(p.Sub(fmt.Sprint(i)), stages[i], c, cIn, false)
	}
	return stages
}

var _ Encoder = (*VGGEncoder)(nil)

// VGGEncoder runs a VGG backbone split into stages.
type VGGEncoder struct {
	stages []*base.LayerList
}

// NewVGGEncoder creates an encoder over already built stages.
func NewVGGEncoder(stages []*base.LayerList) *VGGEncoder {
	return &VGGEncoder{stages: stages}
}

// ForwardAll implements Encoder interface for VGGEncoder.
func (e *VGGEncoder) ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor {
	features := make([]*ts.Tensor, len(e.stages))
	in := x
	for i, s := range e.stages {
		features[i] = s.ForwardT(in, train)
		in = features[i]
	}
	return features
}

// Stages returns the backbone stages in forward order.
func (e *VGGEncoder) Stages() []*base.LayerList {
	return e.stages
}

// ConvLayers returns every backbone convolution in forward order.
func (e *VGGEncoder) ConvLayers() []*base.Layer {
	var convs []*base.Layer
	for _, s := range e.stages {
		convs = append(convs, s.OfKind(base.KindConv)...)
	}
	return convs
}

// VGGConfig describes a VGG classification network.
type VGGConfig struct {
	Features   StageConfig
	InChannels int64
	Hidden     int64
	Classes    int64
	BatchNorm  bool
}

// VGG16Config is torchvision's vgg16.
var VGG16Config = VGGConfig{
	Features:   Flatten(DefaultStages),
	InChannels: 3,
	Hidden:     4096,
	Classes:    1000,
}

// VGG is a VGG classification network.
// Ref. https://arxiv.org/abs/1409.1556
type VGG struct {
	features   *base.LayerList
	avgpool    *base.LayerList
	classifier *base.LayerList
}

// NewVGG creates a VGG network initialized with base.VGGInit.
// Variables are named as torchvision's: features.<i>, classifier.<i>.
func NewVGG(p *nn.Path, cfg VGGConfig) *VGG {
	features := base.NewLayerList()
	cOut := makeLayers(p.Sub("features"), features, cfg.Features, cfg.InChannels, cfg.BatchNorm)

	avgpool := base.NewLayerList(base.AdaptiveAvgPool2d(7, 7), base.Flatten())

	c := p.Sub("classifier")
	classifier := base.NewLayerList(
		base.Linear(c.Sub("0"), cOut*7*7, cfg.Hidden),
		base.ReLU(),
		base.Dropout(0.5),
		base.Linear(c.Sub("3"), cfg.Hidden, cfg.Hidden),
		base.ReLU(),
		base.Dropout(0.5),
		base.Linear(c.Sub("6"), cfg.Hidden, cfg.Classes),
	)

	base.VGGInit.Apply(features, classifier)

	return &VGG{
		features:   features,
		avgpool:    avgpool,
		classifier: classifier,
	}
}

// ForwardT implements ts.ModuleT for VGG. It returns class logits.
func (v *VGG) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	f := v.features.ForwardT(x, train)
	pooled := v.avgpool.ForwardT(f, train)
	f.MustDrop()
	logits := v.classifier.ForwardT(pooled, train)
	pooled.MustDrop()

	return logits
}

// Features returns the convolutional part of the network.
func (v *VGG) Features() *base.LayerList {
	return v.features
}

// ConvLayers returns the feature convolutions in forward order.
func (v *VGG) ConvLayers() []*base.Layer {
	return v.features.OfKind(base.KindConv)
}
