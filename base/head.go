package base

import "github.com/sugarme/gotch/nn"

// NewSegmentationHead creates a conv + ReLU head mapping cIn channels to cOut.
// The convolution lives under p.Sub("0").
func NewSegmentationHead(p *nn.Path, cIn, cOut, ksize, padding int64) *LayerList {
	return Conv2dRelu(p.Sub("0"), cIn, cOut, ksize, padding, 1)
}
