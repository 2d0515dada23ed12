package metric

import (
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

// ClassBalancedBCE is the class-balanced sigmoid cross entropy of OSVOS.
//
// Per-pixel binary cross entropy is summed separately over foreground
// and background pixels of label. The foreground sum is weighted by the
// background ratio and vice versa, so that a small object is not
// swamped by its background. The result is averaged over all pixels.
//
// logit and label must have the same shape; label holds 0 or 1.
func ClassBalancedBCE(logit, label *ts.Tensor) *ts.Tensor {
	// NOTE: reduction: none = 0; mean = 1; sum = 2.
	bce := logit.MustBinaryCrossEntropyWithLogits(label, ts.NewTensor(), ts.NewTensor(), 0, false)

	background := label.MustMul1(ts.FloatScalar(-1), false).MustAdd1(ts.FloatScalar(1), true)

	numPos := count(label)
	numNeg := count(background)
	total := numPos + numNeg

	posLoss := bce.MustMul(label, false).MustSum(gotch.Double, true)
	negLoss := bce.MustMul(background, true).MustSum(gotch.Double, true)
	background.MustDrop()

	pos := posLoss.MustMul1(ts.FloatScalar(numNeg/total), true)
	neg := negLoss.MustMul1(ts.FloatScalar(numPos/total), true)
	loss := pos.MustAdd(neg, true)
	neg.MustDrop()

	return loss.MustMul1(ts.FloatScalar(1/total), true)
}

func count(x *ts.Tensor) float64 {
	sum := x.MustSum(gotch.Double, false)
	n := sum.Float64Values()[0]
	sum.MustDrop()
	return n
}

// DeepSupervisionLoss sums the class-balanced losses of every side output,
// each weighted by sideWeight, and of the fused output (last element).
func DeepSupervisionLoss(outputs []*ts.Tensor, label *ts.Tensor, sideWeight float64) *ts.Tensor {
	n := len(outputs)
	loss := ClassBalancedBCE(outputs[n-1], label)
	for _, side := range outputs[:n-1] {
		l := ClassBalancedBCE(side, label).MustMul1(ts.FloatScalar(sideWeight), true)
		loss = loss.MustAdd(l, true)
		l.MustDrop()
	}
	return loss
}
