package osvos

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/osvos/base"
)

// SideBranch turns the feature map of one backbone stage into a side
// feature at input resolution and a single channel score map.
type SideBranch struct {
	prep         *base.LayerList
	score        *base.LayerList
	factor       int64
	alignCorners bool
}

// NewSideBranch creates the side branch of backbone stage `stage` (>= 1).
// Its features are upscaled by 2^stage, see base.Upsample for alignCorners.
func NewSideBranch(prepPath, scorePath *nn.Path, stage int, cIn, cSide int64, alignCorners bool) *SideBranch {
	return &SideBranch{
		prep:         base.NewSegmentationHead(prepPath, cIn, cSide, 3, 1),
		score:        base.NewSegmentationHead(scorePath, cSide, 1, 1, 0),
		factor:       int64(1) << uint(stage),
		alignCorners: alignCorners,
	}
}

// Factor returns the upscale factor of the branch.
func (b *SideBranch) Factor() int64 {
	return b.factor
}

// ForwardT returns the side feature [B cSide h w] and the score map
// [B 1 h w] of stage feature x.
//
// The score is computed on the upscaled feature before cropping and is
// cropped separately.
func (b *SideBranch) ForwardT(x *ts.Tensor, h, w int64, train bool) (side, score *ts.Tensor) {
	prep := b.prep.ForwardT(x, train)
	up := base.Upsample(prep, b.factor, b.alignCorners)
	prep.MustDrop()

	side = base.CenterCrop(up, h, w)
	s := b.score.ForwardT(up, train)
	up.MustDrop()
	score = base.CenterCrop(s, h, w)
	s.MustDrop()

	return side, score
}
