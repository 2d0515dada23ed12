package base

import (
	"errors"
	"fmt"

	ts "github.com/sugarme/gotch/tensor"
)

// ErrIndexOutOfRange is returned when indexing a LayerList outside [0, Len()).
var ErrIndexOutOfRange = errors.New("index out of range")

// LayerList is an ordered list of heterogeneous layers.
// It forwards an input through its layers in insertion order.
type LayerList struct {
	layers []*Layer
}

// NewLayerList creates a LayerList holding the given layers.
func NewLayerList(layers ...*Layer) *LayerList {
	l := &LayerList{}
	l.Append(layers...)
	return l
}

// Append adds layers at the end of the list.
func (l *LayerList) Append(layers ...*Layer) {
	l.layers = append(l.layers, layers...)
}

// Len returns number of layers.
func (l *LayerList) Len() int {
	return len(l.layers)
}

// At returns the layer at index i.
func (l *LayerList) At(i int) (*Layer, error) {
	if i < 0 || i >= len(l.layers) {
		return nil, fmt.Errorf("layer %d of %d: %w", i, len(l.layers), ErrIndexOutOfRange)
	}
	return l.layers[i], nil
}

// MustAt is At but panics on an out of range index.
func (l *LayerList) MustAt(i int) *Layer {
	layer, err := l.At(i)
	if err != nil {
		panic(err)
	}
	return layer
}

// Layers returns the layers in insertion order.
// The returned slice is a copy; the layers themselves are shared.
func (l *LayerList) Layers() []*Layer {
	out := make([]*Layer, len(l.layers))
	copy(out, l.layers)
	return out
}

// Each calls fn for every layer in insertion order.
func (l *LayerList) Each(fn func(i int, layer *Layer)) {
	for i, layer := range l.layers {
		fn(i, layer)
	}
}

// OfKind returns the layers of the given kind in insertion order.
func (l *LayerList) OfKind(kind Kind) []*Layer {
	var out []*Layer
	for _, layer := range l.layers {
		if layer.Kind == kind {
			out = append(out, layer)
		}
	}
	return out
}

// ForwardT implements ts.ModuleT for LayerList.
// Intermediate tensors are dropped; the input tensor is not.
func (l *LayerList) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	if len(l.layers) == 0 {
		return x.MustShallowClone()
	}

	out := l.layers[0].ForwardT(x, train)
	for _, layer := range l.layers[1:] {
		next := layer.ForwardT(out, train)
		out.MustDrop()
		out = next
	}

	return out
}
