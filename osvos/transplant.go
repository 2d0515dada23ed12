package osvos

import (
	"errors"
	"fmt"
	"reflect"

	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/osvos/base"
)

// ErrTopologyMismatch is returned when two networks do not share the same
// sequence of convolution shapes.
var ErrTopologyMismatch = errors.New("topology mismatch")

// Transplant copies weight and bias of the k-th convolution of src into
// the k-th convolution of dst. Both are expected in forward order.
//
// All shapes are checked before anything is copied. Copies are deep: dst
// does not share storage with src afterwards.
func Transplant(dst, src []*base.Layer) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: %d target convolutions, %d source convolutions", ErrTopologyMismatch, len(dst), len(src))
	}

	for k := range dst {
		if dst[k].Kind != base.KindConv || src[k].Kind != base.KindConv {
			return fmt.Errorf("%w: layer %d: want conv, got %v <- %v", ErrTopologyMismatch, k, dst[k].Kind, src[k].Kind)
		}
		if err := sameSize(dst[k].Weight(), src[k].Weight()); err != nil {
			return fmt.Errorf("%w: conv %d weight: %v", ErrTopologyMismatch, k, err)
		}
		if err := sameSize(dst[k].Bias(), src[k].Bias()); err != nil {
			return fmt.Errorf("%w: conv %d bias: %v", ErrTopologyMismatch, k, err)
		}
	}

	ts.NoGrad(func() {
		for k := range dst {
			dst[k].Weight().Copy_(src[k].Weight())
			dst[k].Bias().Copy_(src[k].Bias())
		}
	})

	return nil
}

func sameSize(dst, src *ts.Tensor) error {
	dSize := dst.MustSize()
	sSize := src.MustSize()
	if !reflect.DeepEqual(dSize, sSize) {
		return fmt.Errorf("shape %v <- %v", dSize, sSize)
	}
	return nil
}
