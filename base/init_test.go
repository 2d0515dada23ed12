package base_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
	"gonum.org/v1/gonum/stat"

	"github.com/sugarme/osvos/base"
)

func assertConst(t *testing.T, want float64, vals []float64) {
	t.Helper()
	for _, v := range vals {
		require.Equal(t, want, v)
	}
}

func assertNormal(t *testing.T, sd float64, vals []float64) {
	t.Helper()
	mean, std := stat.MeanStdDev(vals, nil)
	assert.InDelta(t, 0, mean, 5*sd/math.Sqrt(float64(len(vals))))
	assert.InEpsilon(t, sd, std, 0.05)
	for _, v := range vals {
		require.NotEqual(t, 0.0, v)
	}
}

func TestOSVOSInit(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	root := vs.Root()

	conv := base.Conv2d(root.Sub("conv"), 64, 64, 3, 1, 1)
	bn := base.BatchNorm2d(root.Sub("bn"), 64)
	lin := base.Linear(root.Sub("fc"), 256, 128)
	list := base.NewLayerList(conv, bn, base.ReLU(), base.Flatten(), lin)

	base.OSVOSInit.Apply(list)

	assertNormal(t, 0.001, conv.Weight().Float64Values())
	assertConst(t, 0, conv.Bias().Float64Values())
	assertNormal(t, 0.01, lin.Weight().Float64Values())
	assertConst(t, 0, lin.Bias().Float64Values())
	assertConst(t, 1, bn.Weight().Float64Values())
	assertConst(t, 0, bn.Bias().Float64Values())
}

func TestVGGInit(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	conv := base.Conv2d(vs.Root().Sub("conv"), 64, 128, 3, 1, 1)

	base.VGGInit.Apply(base.NewLayerList(conv))

	assertNormal(t, math.Sqrt(2.0/(3*3*128)), conv.Weight().Float64Values())
	assertConst(t, 0, conv.Bias().Float64Values())
}

func TestNormal(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	a := base.Conv2d(vs.Root().Sub("a"), 32, 32, 3, 1, 1)
	b := base.Conv2d(vs.Root().Sub("b"), 32, 32, 3, 1, 1)

	base.OSVOSInit.Apply(base.NewLayerList(a, b))

	wa, wb := a.Weight().Float64Values(), b.Weight().Float64Values()
	assert.NotEqual(t, wa, wb, "same-shaped convs must differ")
	_, std := stat.MeanStdDev(wa, nil)
	assert.Greater(t, std, 0.0, "weights within a conv must differ")
}

func TestNormal_Mean(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	conv := base.Conv2d(vs.Root().Sub("conv"), 64, 64, 3, 1, 1)

	ts.NoGrad(func() {
		base.Normal{Mean: 2, Std: 0.5}.Set(conv.Weight())
	})

	mean, std := stat.MeanStdDev(conv.Weight().Float64Values(), nil)
	assert.InDelta(t, 2, mean, 0.05)
	assert.InEpsilon(t, 0.5, std, 0.05)
}
