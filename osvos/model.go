package osvos

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
	"go.uber.org/zap"

	"github.com/sugarme/osvos/base"
	"github.com/sugarme/osvos/encoder"
)

// OSVOS is the One-Shot Video Object Segmentation network: a VGG
// backbone with one side branch per stage after the first, fused by a
// 1x1 convolution.
// Ref: https://arxiv.org/abs/1611.05198
type OSVOS struct {
	encoder *encoder.VGGEncoder
	sides   []*SideBranch
	fuse    *base.Layer
	cfg     Config
	logger  *zap.Logger
}

// New creates an OSVOS network under p.
//
// Every layer is initialized with base.OSVOSInit. With WithPretrained the
// backbone convolutions are then overwritten by those of the donor
// classification network.
//
// A config error is reported before anything is added under p. When
// loading pretrained weights fails the network variables are already
// registered in p's VarStore; discard that store.
func New(p *nn.Path, cfg Config, opts ...Option) (*OSVOS, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stages := encoder.BuildStages(p.Sub("stages"), cfg.Stages, cfg.InChannels)

	// side_prep and score_dsn start from stage 1
	var sides []*SideBranch
	cIn := cfg.InChannels
	for i, s := range cfg.Stages {
		cIn = s.OutChannels(cIn)
		if i == 0 {
			continue
		}
		name := fmt.Sprint(i - 1)
		sides = append(sides, NewSideBranch(p.Sub("side_prep").Sub(name), p.Sub("score_dsn").Sub(name), i, cIn, cfg.SideChannels, cfg.AlignCorners))
	}

	fuse := base.Conv2d(p.Sub("fuse"), cfg.SideChannels*int64(len(sides)), 1, 1, 0, 1)

	n := &OSVOS{
		encoder: encoder.NewVGGEncoder(stages),
		sides:   sides,
		fuse:    fuse,
		cfg:     cfg,
		logger:  o.logger,
	}

	base.OSVOSInit.Apply(n.layerLists()...)
	n.logger.Debug("osvos: initialized",
		zap.Int("stages", len(stages)),
		zap.Int("sides", len(sides)),
		zap.Int("convs", len(n.ConvLayers())))

	if o.loader != nil {
		if err := n.LoadPretrained(o.loader); err != nil {
			return nil, err
		}
	}

	return n, nil
}

// layerLists returns every list of layers owned by the network.
func (n *OSVOS) layerLists() []*base.LayerList {
	lists := append([]*base.LayerList{}, n.encoder.Stages()...)
	for _, s := range n.sides {
		lists = append(lists, s.prep, s.score)
	}
	return append(lists, base.NewLayerList(n.fuse))
}

// Stages returns the backbone stages.
func (n *OSVOS) Stages() []*base.LayerList {
	return n.encoder.Stages()
}

// Sides returns the side branches, one per stage after the first.
func (n *OSVOS) Sides() []*SideBranch {
	return n.sides
}

// ConvLayers returns the backbone convolutions in forward order.
func (n *OSVOS) ConvLayers() []*base.Layer {
	return n.encoder.ConvLayers()
}

// LoadPretrained builds the donor classification network on its own CPU
// VarStore, loads its weights and transplants its convolutions into the
// backbone.
func (n *OSVOS) LoadPretrained(loader WeightLoader) error {
	vs := nn.NewVarStore(cpu)
	donor := encoder.NewVGG(vs.Root(), n.cfg.Donor)
	if err := loader.Load(vs); err != nil {
		return fmt.Errorf("osvos: loading donor weights: %w", err)
	}

	if err := Transplant(n.ConvLayers(), donor.ConvLayers()); err != nil {
		return fmt.Errorf("osvos: %w", err)
	}
	n.logger.Info("osvos: transplanted donor convolutions",
		zap.Stringer("source", loader),
		zap.Int("layers", len(donor.ConvLayers())))

	return nil
}

// ForwardT returns one score map per side branch in stage order followed
// by the fused map. All maps are [B 1 H W] for a [B C H W] input.
func (n *OSVOS) ForwardT(x *ts.Tensor, train bool) []*ts.Tensor {
	size := x.MustSize()
	h, w := size[2], size[3]

	// 0- Shape: [B  64 H    W   ]
	// 1- Shape: [B 128 H/2  W/2 ]
	// 2- Shape: [B 256 H/4  W/4 ]
	// 3- Shape: [B 512 H/8  W/8 ]
	// 4- Shape: [B 512 H/16 W/16]
	features := n.encoder.ForwardAll(x, train)

	sides := make([]ts.Tensor, 0, len(n.sides))
	outs := make([]*ts.Tensor, 0, len(n.sides)+1)
	for i, b := range n.sides {
		side, score := b.ForwardT(features[i+1], h, w, train)
		sides = append(sides, *side)
		outs = append(outs, score)
	}

	cat := ts.MustCat(sides, 1)
	fused := n.fuse.ForwardT(cat, train)

	cat.MustDrop()
	for i := range sides {
		sides[i].MustDrop()
	}
	for _, f := range features {
		f.MustDrop()
	}

	return append(outs, fused)
}

// Fused returns only the fused map of x.
func (n *OSVOS) Fused(x *ts.Tensor, train bool) *ts.Tensor {
	outs := n.ForwardT(x, train)
	for _, o := range outs[:len(outs)-1] {
		o.MustDrop()
	}
	return outs[len(outs)-1]
}
