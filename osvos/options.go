package osvos

import (
	"github.com/sugarme/gotch"
	"go.uber.org/zap"
)

// donor networks are always loaded on CPU; Copy_ moves weights to the
// device of the backbone.
var cpu = gotch.CPU

type options struct {
	loader WeightLoader
	logger *zap.Logger
}

func defaultOptions() options {
	return options{logger: zap.NewNop()}
}

// Option configures New.
type Option func(*options)

// WithPretrained transplants the donor convolutions read by loader into
// the backbone after random initialization.
func WithPretrained(loader WeightLoader) Option {
	return func(o *options) {
		o.loader = loader
	}
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
