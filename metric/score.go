package metric

import (
	ts "github.com/sugarme/gotch/tensor"
)

// Threshold above which a prediction or target value is foreground.
const Threshold = 0.5

func binarize(x *ts.Tensor) []bool {
	vals := x.Float64Values()
	out := make([]bool, len(vals))
	for i, v := range vals {
		out[i] = v > Threshold
	}
	return out
}

func overlap(pred, target []bool, class bool) (inter, predCount, targetCount float64) {
	for i := range pred {
		p := pred[i] == class
		t := target[i] == class
		if p && t {
			inter++
		}
		if p {
			predCount++
		}
		if t {
			targetCount++
		}
	}
	return inter, predCount, targetCount
}

// IoU returns the intersection over union of the foreground of pred and
// target. Two empty masks have an IoU of 1.
func IoU(pred, target *ts.Tensor) float64 {
	inter, p, t := overlap(binarize(pred), binarize(target), true)
	union := p + t - inter
	if union == 0 {
		return 1
	}
	return inter / union
}

// DiceCoeff returns 2|P∩T| / (|P| + |T|) over the foreground of pred and
// target. Two empty masks have a coefficient of 1.
func DiceCoeff(pred, target *ts.Tensor) float64 {
	inter, p, t := overlap(binarize(pred), binarize(target), true)
	if p+t == 0 {
		return 1
	}
	return 2 * inter / (p + t)
}

// JaccardIndex returns the IoU averaged over classes. Only binary masks
// are supported, so classes is clamped to [1, 2]: 1 or less scores the
// foreground only, 2 or more averages background and foreground.
func JaccardIndex(pred, target *ts.Tensor, classes int) float64 {
	p, t := binarize(pred), binarize(target)
	iou := func(class bool) float64 {
		inter, pc, tc := overlap(p, t, class)
		union := pc + tc - inter
		if union == 0 {
			return 1
		}
		return inter / union
	}

	if classes <= 1 {
		return iou(true)
	}
	return (iou(false) + iou(true)) / 2
}
