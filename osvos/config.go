package osvos

import (
	"fmt"

	"github.com/sugarme/osvos/encoder"
)

// Config describes the OSVOS network.
type Config struct {
	// Stages is the backbone, one entry per stage.
	Stages []encoder.StageConfig
	// InChannels is the number of image channels.
	InChannels int64
	// SideChannels is the width of every side branch feature.
	SideChannels int64
	// AlignCorners selects corner-aligned bilinear upsampling in the side
	// branches. Checkpoints trained with PyTorch 0.3 or older expect it.
	AlignCorners bool
	// Donor is the classification network whose convolutions are
	// transplanted into the backbone when pretrained weights are loaded.
	Donor encoder.VGGConfig
}

// DefaultConfig returns the OSVOS network on top of VGG16.
func DefaultConfig() Config {
	return Config{
		Stages:       encoder.DefaultStages,
		InChannels:   3,
		SideChannels: 16,
		Donor:        encoder.VGG16Config,
	}
}

// Validate checks the config can build a network.
func (c Config) Validate() error {
	if len(c.Stages) < 2 {
		return fmt.Errorf("%w: need at least 2 stages, got %d", encoder.ErrInvalidConfig, len(c.Stages))
	}
	if c.InChannels <= 0 {
		return fmt.Errorf("%w: in channels %d", encoder.ErrInvalidConfig, c.InChannels)
	}
	if c.SideChannels <= 0 {
		return fmt.Errorf("%w: side channels %d", encoder.ErrInvalidConfig, c.SideChannels)
	}
	return nil
}
