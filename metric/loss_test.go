package metric_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/osvos/metric"
)

func maskPair() (pred, target *ts.Tensor) {
	pslice := []int64{1, 0, 0, 1, 0, 0, 1, 0, 0}
	tslice := []int64{1, 0, 0, 1, 1, 0, 1, 0, 0}

	pred = ts.MustOfSlice(pslice).MustView([]int64{1, 3, 3}, true)
	target = ts.MustOfSlice(tslice).MustView([]int64{1, 3, 3}, true)
	return pred, target
}

func TestIoU(t *testing.T) {
	pred, target := maskPair()
	assert.InDelta(t, 0.75, metric.IoU(pred, target), 1e-9)

	empty := ts.MustZeros([]int64{1, 3, 3}, gotch.Float, gotch.CPU)
	assert.Equal(t, 1.0, metric.IoU(empty, empty))
}

func TestDiceCoeff(t *testing.T) {
	pred, target := maskPair()
	assert.InDelta(t, 6.0/7.0, metric.DiceCoeff(pred, target), 1e-9)
}

func TestJaccardIndex(t *testing.T) {
	pred, target := maskPair()
	// background: 5/6, foreground: 3/4
	assert.InDelta(t, (5.0/6.0+0.75)/2, metric.JaccardIndex(pred, target, 2), 1e-9)
	assert.InDelta(t, 0.75, metric.JaccardIndex(pred, target, 1), 1e-9)

	// clamped to the binary case
	assert.Equal(t, metric.JaccardIndex(pred, target, 2), metric.JaccardIndex(pred, target, 3))
	assert.Equal(t, metric.JaccardIndex(pred, target, 1), metric.JaccardIndex(pred, target, 0))
}

func bce(x, y float64) float64 {
	return math.Max(x, 0) - x*y + math.Log1p(math.Exp(-math.Abs(x)))
}

func TestClassBalancedBCE(t *testing.T) {
	logits := []float32{2, -1, 0.5, -3}
	labels := []float32{1, 0, 0, 0}

	logit := ts.MustOfSlice(logits).MustView([]int64{1, 1, 2, 2}, true)
	label := ts.MustOfSlice(labels).MustView([]int64{1, 1, 2, 2}, true)

	// 1 positive, 3 negatives
	pos := bce(2, 1)
	neg := bce(-1, 0) + bce(0.5, 0) + bce(-3, 0)
	want := (0.75*pos + 0.25*neg) / 4

	loss := metric.ClassBalancedBCE(logit, label)
	assert.InDelta(t, want, loss.Float64Values()[0], 1e-5)
	loss.MustDrop()
}

func TestClassBalancedBCE_Repeated(t *testing.T) {
	logits := []float32{2, -1, 0.5, -3}
	labels := []float32{1, 0, 0, 0}

	logit := ts.MustOfSlice(logits).MustView([]int64{1, 1, 2, 2}, true)
	defer logit.MustDrop()
	label := ts.MustOfSlice(labels).MustView([]int64{1, 1, 2, 2}, true)
	defer label.MustDrop()

	first := metric.ClassBalancedBCE(logit, label)
	want := first.Float64Values()[0]
	first.MustDrop()

	for i := 0; i < 100; i++ {
		loss := metric.ClassBalancedBCE(logit, label)
		require.InDelta(t, want, loss.Float64Values()[0], 1e-9)
		loss.MustDrop()
	}
	assert.Equal(t, []float64{1, 0, 0, 0}, label.Float64Values(), "label untouched")
	assert.Equal(t, []float64{2, -1, 0.5, -3}, logit.Float64Values(), "logit untouched")
}

func TestDeepSupervisionLoss(t *testing.T) {
	logits := []float32{2, -1, 0.5, -3}
	labels := []float32{1, 0, 0, 0}

	side := ts.MustOfSlice(logits).MustView([]int64{1, 1, 2, 2}, true)
	fused := ts.MustOfSlice(logits).MustView([]int64{1, 1, 2, 2}, true)
	label := ts.MustOfSlice(labels).MustView([]int64{1, 1, 2, 2}, true)

	single := metric.ClassBalancedBCE(fused, label).Float64Values()[0]
	loss := metric.DeepSupervisionLoss([]*ts.Tensor{side, side, fused}, label, 0.5)
	assert.InDelta(t, 2*single, loss.Float64Values()[0], 1e-5)
}
