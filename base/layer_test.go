package base_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/osvos/base"
)

func TestKind(t *testing.T) {
	tests := []struct {
		kind       base.Kind
		name       string
		parametric bool
	}{
		{base.KindConv, "conv", true},
		{base.KindBatchNorm, "batchnorm", true},
		{base.KindLinear, "linear", true},
		{base.KindReLU, "relu", false},
		{base.KindMaxPool, "maxpool", false},
		{base.KindAvgPool, "avgpool", false},
		{base.KindDropout, "dropout", false},
		{base.KindFlatten, "flatten", false},
		{base.Kind(42), "Kind(42)", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.kind.String())
		assert.Equal(t, tt.parametric, tt.kind.Parametric(), tt.name)
	}
}

func TestLayer_Params(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	root := vs.Root()

	conv := base.Conv2d(root.Sub("conv"), 3, 8, 3, 1, 1)
	assert.Equal(t, base.KindConv, conv.Kind)
	assert.Equal(t, []int64{8, 3, 3, 3}, conv.Weight().MustSize())
	assert.Equal(t, []int64{8}, conv.Bias().MustSize())

	bn := base.BatchNorm2d(root.Sub("bn"), 8)
	assert.Equal(t, []int64{8}, bn.Weight().MustSize())

	lin := base.Linear(root.Sub("fc"), 8, 2)
	assert.Equal(t, []int64{2, 8}, lin.Weight().MustSize())
	assert.Equal(t, []int64{2}, lin.Bias().MustSize())

	assert.Nil(t, base.ReLU().Weight())
	assert.Nil(t, base.MaxPool2d(2, 2).Bias())
	assert.Equal(t, "conv(3, 8, k=3)", conv.String())
}

func TestLayer_ForwardT(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	root := vs.Root()

	x := ts.MustRand([]int64{2, 3, 14, 14}, gotch.Float, gotch.CPU)
	defer x.MustDrop()

	tests := []struct {
		name  string
		layer *base.Layer
		want  []int64
	}{
		{"conv", base.Conv2d(root.Sub("conv"), 3, 5, 3, 1, 1), []int64{2, 5, 14, 14}},
		{"conv stride", base.Conv2d(root.Sub("conv2"), 3, 5, 1, 0, 2), []int64{2, 5, 7, 7}},
		{"batchnorm", base.BatchNorm2d(root.Sub("bn"), 3), []int64{2, 3, 14, 14}},
		{"relu", base.ReLU(), []int64{2, 3, 14, 14}},
		{"maxpool", base.MaxPool2d(2, 2), []int64{2, 3, 7, 7}},
		{"avgpool", base.AdaptiveAvgPool2d(7, 7), []int64{2, 3, 7, 7}},
		{"dropout", base.Dropout(0.5), []int64{2, 3, 14, 14}},
		{"flatten", base.Flatten(), []int64{2, 3 * 14 * 14}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.layer.ForwardT(x, false)
			assert.Equal(t, tt.want, out.MustSize())
			out.MustDrop()
		})
	}
}

func TestConv2dRelu(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	list := base.Conv2dRelu(vs.Root(), 3, 4, 3, 1, 1)
	assert.Equal(t, 2, list.Len())
	assert.Equal(t, base.KindConv, list.MustAt(0).Kind)
	assert.Equal(t, base.KindReLU, list.MustAt(1).Kind)

	x := ts.MustRand([]int64{1, 3, 8, 8}, gotch.Float, gotch.CPU)
	defer x.MustDrop()
	out := list.ForwardT(x, false)
	defer out.MustDrop()
	for _, v := range out.Float64Values() {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}
